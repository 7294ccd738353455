package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/havenward/sanctum/internal/domain"
)

// SpeechSynthesizer turns text into modulated audio. The engine treats
// it as optional: when synthesis fails the caller passes the original
// audio (or nothing) through.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string, settings domain.VoiceSettings) ([]byte, error)
}

// HTTPSynthesizer posts to an external synthesis service.
type HTTPSynthesizer struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     *slog.Logger
}

func NewHTTPSynthesizer(baseURL, apiKey string, log *slog.Logger) (*HTTPSynthesizer, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("synthesis base url is empty")
	}
	if log == nil {
		log = slog.Default()
	}
	return &HTTPSynthesizer{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
		log:     log,
	}, nil
}

type synthesisRequest struct {
	Text          string               `json:"text"`
	VoiceID       string               `json:"voice_id"`
	VoiceSettings domain.VoiceSettings `json:"voice_settings"`
}

func (s *HTTPSynthesizer) Synthesize(ctx context.Context, text, voiceID string, settings domain.VoiceSettings) ([]byte, error) {
	body, err := json.Marshal(synthesisRequest{
		Text:          text,
		VoiceID:       voiceID,
		VoiceSettings: settings.Normalized(),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/synthesize", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("synthesis service returned status %d", resp.StatusCode)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read synthesis response: %w", err)
	}
	return audio, nil
}
