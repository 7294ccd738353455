package domain

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"
)

func TestNewEmergencyAlertExcerpt(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantRunes int
	}{
		{"short stays intact", "brief message", utf8.RuneCountInString("brief message")},
		{"long ascii truncated", strings.Repeat("a", 500), alertExcerptLength},
		{"long multibyte truncated", strings.Repeat("я слышу тебя ", 40), alertExcerptLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alert := NewEmergencyAlert(uuid.New(), "p1", tt.content, "crisis language", 0.95)
			if !utf8.ValidString(alert.Excerpt) {
				t.Fatalf("excerpt is not valid utf-8: %q", alert.Excerpt)
			}
			if got := utf8.RuneCountInString(alert.Excerpt); got != tt.wantRunes {
				t.Errorf("excerpt length = %d runes, want %d", got, tt.wantRunes)
			}
			if alert.Status != AlertActive {
				t.Errorf("status = %q, want %q", alert.Status, AlertActive)
			}
		})
	}
}
