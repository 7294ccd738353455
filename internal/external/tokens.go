package external

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/havenward/sanctum/lib/logger/sl"
)

// PlaceholderToken is handed out when the real issuer fails. Clients
// treat it as "audio unavailable, retry later" rather than an error.
const PlaceholderToken = "sanctum-audio-unavailable"

// ChannelTokenIssuer mints short-lived credentials for the external
// audio channel provider.
type ChannelTokenIssuer interface {
	Issue(channel, uid, role string, ttl time.Duration) (string, error)
}

// HMACTokenIssuer signs channel grants with a shared secret. It stands
// in for a vendor SDK behind the same interface.
type HMACTokenIssuer struct {
	secret []byte
}

func NewHMACTokenIssuer(secret string) (*HMACTokenIssuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("channel token secret is empty")
	}
	return &HMACTokenIssuer{secret: []byte(secret)}, nil
}

func (i *HMACTokenIssuer) Issue(channel, uid, role string, ttl time.Duration) (string, error) {
	if channel == "" || uid == "" {
		return "", fmt.Errorf("channel and uid are required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	expiry := time.Now().UTC().Add(ttl).Unix()
	grant := strings.Join([]string{channel, uid, role, strconv.FormatInt(expiry, 10)}, ":")

	mac := hmac.New(sha256.New, i.secret)
	mac.Write([]byte(grant))
	sig := mac.Sum(nil)

	payload := base64.RawURLEncoding.EncodeToString([]byte(grant))
	signature := base64.RawURLEncoding.EncodeToString(sig)
	return payload + "." + signature, nil
}

// Verify checks a token's signature and expiry and returns the granted
// channel and uid.
func (i *HMACTokenIssuer) Verify(token string) (channel, uid string, err error) {
	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("malformed token")
	}

	grantRaw, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", "", fmt.Errorf("malformed token payload")
	}

	mac := hmac.New(sha256.New, i.secret)
	mac.Write(grantRaw)
	want := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(want), []byte(parts[1])) {
		return "", "", fmt.Errorf("bad token signature")
	}

	fields := strings.Split(string(grantRaw), ":")
	if len(fields) != 4 {
		return "", "", fmt.Errorf("malformed token grant")
	}

	expiry, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil || time.Now().UTC().Unix() > expiry {
		return "", "", fmt.Errorf("token expired")
	}

	return fields[0], fields[1], nil
}

// IssueOrFallback wraps an issuer with the degrade-gracefully policy:
// failures are logged and replaced with the placeholder token.
func IssueOrFallback(issuer ChannelTokenIssuer, channel, uid, role string, ttl time.Duration, log *slog.Logger) string {
	if issuer == nil {
		return PlaceholderToken
	}
	token, err := issuer.Issue(channel, uid, role, ttl)
	if err != nil {
		if log != nil {
			log.Error("channel token issuance failed, using placeholder", sl.Err(err))
		}
		return PlaceholderToken
	}
	return token
}
