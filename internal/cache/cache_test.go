package cache

import (
	"testing"

	"github.com/google/uuid"
	"github.com/havenward/sanctum/internal/domain"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestVoiceSettingsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	sessionID := uuid.New()

	_, found, err := store.GetVoiceSettings(sessionID, "p1")
	require.NoError(t, err)
	require.False(t, found)

	settings := domain.VoiceSettings{Stability: 0.8, SimilarityBoost: 0.5, VoiceStyle: domain.VoiceStyleCalm}
	require.NoError(t, store.PutVoiceSettings(sessionID, "p1", settings))

	got, found, err := store.GetVoiceSettings(sessionID, "p1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, settings, got)
}

func TestAlertsLifecycle(t *testing.T) {
	store := newTestStore(t)
	sessionID := uuid.New()

	alert := domain.NewEmergencyAlert(sessionID, "p1", "some content", "crisis phrase detected", 0.95)
	require.NoError(t, store.PutAlert(*alert))

	other := domain.NewEmergencyAlert(uuid.New(), "p2", "other", "crisis phrase detected", 0.9)
	require.NoError(t, store.PutAlert(*other))

	active, err := store.ActiveAlerts(sessionID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, alert.ID, active[0].ID)

	require.NoError(t, store.ResolveAlert(sessionID, alert.ID))

	active, err = store.ActiveAlerts(sessionID)
	require.NoError(t, err)
	require.Empty(t, active)
}

func TestParticipantCount(t *testing.T) {
	store := newTestStore(t)
	sessionID := uuid.New()

	_, found, err := store.ParticipantCount(sessionID)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, store.SetParticipantCount(sessionID, 3))

	count, found, err := store.ParticipantCount(sessionID)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 3, count)
}

func TestPurgeSession(t *testing.T) {
	store := newTestStore(t)
	sessionID := uuid.New()
	keep := uuid.New()

	require.NoError(t, store.PutVoiceSettings(sessionID, "p1", domain.DefaultVoiceSettings()))
	require.NoError(t, store.SetParticipantCount(sessionID, 2))
	require.NoError(t, store.PutAlert(*domain.NewEmergencyAlert(sessionID, "p1", "x", "r", 1)))
	require.NoError(t, store.PutVoiceSettings(keep, "p9", domain.DefaultVoiceSettings()))

	require.NoError(t, store.PurgeSession(sessionID))

	_, found, err := store.GetVoiceSettings(sessionID, "p1")
	require.NoError(t, err)
	require.False(t, found)

	_, found, err = store.ParticipantCount(sessionID)
	require.NoError(t, err)
	require.False(t, found)

	alerts, err := store.ActiveAlerts(sessionID)
	require.NoError(t, err)
	require.Empty(t, alerts)

	_, found, err = store.GetVoiceSettings(keep, "p9")
	require.NoError(t, err)
	require.True(t, found)
}
