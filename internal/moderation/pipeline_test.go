package moderation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/havenward/sanctum/internal/domain"
)

type stubAnalyzer struct {
	scores domain.ContentScores
	err    error
	calls  int
}

func (s *stubAnalyzer) Score(_ context.Context, _ string) (domain.ContentScores, error) {
	s.calls++
	return s.scores, s.err
}

type memorySink struct {
	alerts []domain.EmergencyAlert
}

func (m *memorySink) PutAlert(alert domain.EmergencyAlert) error {
	m.alerts = append(m.alerts, alert)
	return nil
}

func newTestPipeline(t *testing.T, analyzer Analyzer, sink AlertSink) *Pipeline {
	t.Helper()
	detector, err := NewCrisisDetector()
	if err != nil {
		t.Fatalf("detector: %v", err)
	}
	return NewPipeline(detector, analyzer, sink, nil)
}

func TestCrisisPhraseAlwaysCritical(t *testing.T) {
	sink := &memorySink{}
	analyzer := &stubAnalyzer{}
	p := newTestPipeline(t, analyzer, sink)

	// The level is the most permissive one; the crisis path must not
	// care.
	decision := p.Screen(context.Background(), "I want to kill myself", uuid.New(), "p1", domain.ModerationLow, false)

	if decision.Action != domain.ActionEmergencyAlert {
		t.Fatalf("action = %s, want emergency_alert", decision.Action)
	}
	if decision.Severity != domain.SeverityCritical {
		t.Errorf("severity = %s, want critical", decision.Severity)
	}
	if len(sink.alerts) != 1 {
		t.Fatalf("alerts stored = %d, want 1", len(sink.alerts))
	}
	if sink.alerts[0].Status != domain.AlertActive {
		t.Error("stored alert not active")
	}
	if analyzer.calls != 0 {
		t.Error("tier two ran despite a tier-one match")
	}
}

func TestCrisisPatterns(t *testing.T) {
	p := newTestPipeline(t, nil, nil)

	tests := []struct {
		content string
		crisis  bool
	}{
		{"I want to die tonight", true},
		{"goodbye forever everyone", true},
		{"nobody would miss me anyway", true},
		{"I can't take it anymore", true},
		{"my plant died last week", false},
		{"the meeting is at noon", false},
	}

	for _, tt := range tests {
		decision := p.ScreenInstant(tt.content, uuid.New(), "p1")
		got := decision.Action == domain.ActionEmergencyAlert
		if got != tt.crisis {
			t.Errorf("ScreenInstant(%q) crisis = %v, want %v", tt.content, got, tt.crisis)
		}
	}
}

func TestMissingDetectorFailsClosed(t *testing.T) {
	p := NewPipeline(nil, nil, nil, nil)

	decision := p.ScreenInstant("completely benign", uuid.New(), "p1")
	if decision.Action != domain.ActionEmergencyAlert || decision.Severity != domain.SeverityCritical {
		t.Errorf("decision = %+v, want fail-closed critical escalation", decision)
	}
}

func TestHeuristics(t *testing.T) {
	p := newTestPipeline(t, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		content string
		action  domain.ModerationAction
	}{
		{"oversized", strings.Repeat("a ", 1500), domain.ActionWarning},
		{"repeated run", "well " + strings.Repeat("!", 30), domain.ActionWarning},
		{"repeated run at limit", strings.Repeat("z", 10), domain.ActionWarning},
		{"repeated run below limit", "hmmmmmmmmm okay", domain.ActionNone},
		{"repeated multibyte run", strings.Repeat("あ", 12), domain.ActionWarning},
		{"shouting", "STOP TALKING TO ME RIGHT NOW EVERYONE", domain.ActionWarning},
		{"normal", "i had a rough day but talking helps", domain.ActionNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := p.ScreenDeep(ctx, tt.content, domain.ModerationMedium, false)
			if decision.Action != tt.action {
				t.Errorf("action = %s, want %s", decision.Action, tt.action)
			}
		})
	}
}

func TestThresholdTable(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		scores domain.ContentScores
		level  domain.ModerationLevel
		action domain.ModerationAction
	}{
		{"self harm over threshold", domain.ContentScores{SelfHarm: 0.75}, domain.ModerationMedium, domain.ActionEmergencyAlert},
		{"self harm under low threshold", domain.ContentScores{SelfHarm: 0.75}, domain.ModerationLow, domain.ActionNone},
		{"toxicity kick", domain.ContentScores{Toxicity: 0.85}, domain.ModerationMedium, domain.ActionKick},
		{"toxicity mute", domain.ContentScores{Toxicity: 0.78}, domain.ModerationMedium, domain.ActionMute},
		{"toxicity warning on strict", domain.ContentScores{Toxicity: 0.5}, domain.ModerationStrict, domain.ActionWarning},
		{"toxicity ignored on low", domain.ContentScores{Toxicity: 0.5}, domain.ModerationLow, domain.ActionNone},
		{"inappropriate kick", domain.ContentScores{Inappropriate: 0.9}, domain.ModerationHigh, domain.ActionKick},
		{"spam warning", domain.ContentScores{Spam: 0.85}, domain.ModerationMedium, domain.ActionWarning},
		{"spam under threshold", domain.ContentScores{Spam: 0.6}, domain.ModerationMedium, domain.ActionNone},
		{"clean", domain.ContentScores{}, domain.ModerationStrict, domain.ActionNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPipeline(t, &stubAnalyzer{scores: tt.scores}, nil)
			decision := p.ScreenDeep(ctx, "some message", tt.level, false)
			if decision.Action != tt.action {
				t.Errorf("action = %s, want %s", decision.Action, tt.action)
			}
		})
	}
}

func TestTranscriptsUseRelaxedThresholds(t *testing.T) {
	ctx := context.Background()
	// 0.68 toxicity: mute-worthy at high, ignored at medium.
	analyzer := &stubAnalyzer{scores: domain.ContentScores{Toxicity: 0.68}}
	p := newTestPipeline(t, analyzer, nil)

	message := p.ScreenDeep(ctx, "borderline transcript text", domain.ModerationHigh, false)
	if message.Action != domain.ActionMute {
		t.Fatalf("message action = %s, want mute", message.Action)
	}

	transcript := p.ScreenDeep(ctx, "borderline transcript text", domain.ModerationHigh, true)
	if transcript.Action != domain.ActionNone {
		t.Errorf("transcript action = %s, want none (relaxed one level)", transcript.Action)
	}
}

func TestAnalyzerFailureFailsOpen(t *testing.T) {
	analyzer := &stubAnalyzer{err: errors.New("upstream timeout")}
	p := newTestPipeline(t, analyzer, nil)

	decision := p.ScreenDeep(context.Background(), "anything at all", domain.ModerationStrict, false)
	if decision.Action != domain.ActionNone {
		t.Errorf("action = %s, want none on analyzer failure", decision.Action)
	}
}
