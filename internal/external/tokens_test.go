package external

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHMACTokenRoundTrip(t *testing.T) {
	issuer, err := NewHMACTokenIssuer("test-secret")
	require.NoError(t, err)

	token, err := issuer.Issue("session-abc", "participant-1", "publisher", time.Hour)
	require.NoError(t, err)

	channel, uid, err := issuer.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "session-abc", channel)
	require.Equal(t, "participant-1", uid)
}

func TestVerifyRejectsTampering(t *testing.T) {
	issuer, err := NewHMACTokenIssuer("test-secret")
	require.NoError(t, err)

	token, err := issuer.Issue("session-abc", "participant-1", "publisher", time.Hour)
	require.NoError(t, err)

	_, _, err = issuer.Verify(token + "x")
	require.Error(t, err)

	other, err := NewHMACTokenIssuer("different-secret")
	require.NoError(t, err)
	_, _, err = other.Verify(token)
	require.Error(t, err)
}

func TestIssueOrFallback(t *testing.T) {
	token := IssueOrFallback(nil, "c", "u", "publisher", time.Hour, nil)
	require.Equal(t, PlaceholderToken, token)

	issuer, err := NewHMACTokenIssuer("secret")
	require.NoError(t, err)

	token = IssueOrFallback(issuer, "c", "u", "publisher", time.Hour, nil)
	require.NotEqual(t, PlaceholderToken, token)

	// Missing uid fails inside the issuer; the caller still gets the
	// placeholder instead of an error.
	token = IssueOrFallback(issuer, "c", "", "publisher", time.Hour, nil)
	require.Equal(t, PlaceholderToken, token)
}

func TestParseScoresToleratesCodeFence(t *testing.T) {
	scores, err := parseScores("```json\n{\"toxicity\":0.4,\"self_harm\":1.5,\"spam\":-0.2,\"inappropriate\":0.1}\n```")
	require.NoError(t, err)
	require.Equal(t, 0.4, scores.Toxicity)
	require.Equal(t, 1.0, scores.SelfHarm)
	require.Equal(t, 0.0, scores.Spam)
}
