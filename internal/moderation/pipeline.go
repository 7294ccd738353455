// Package moderation screens every message and voice transcript that
// flows through a session. Tier one is a synchronous local crisis check
// that blocks delivery and fails closed. Tier two is heuristics plus an
// optional deep analyzer, advisory relative to delivery, and fails open
// so an external outage never silences a support conversation.
package moderation

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/havenward/sanctum/internal/domain"
	"github.com/havenward/sanctum/lib/logger/sl"
)

// Analyzer is the external deep content analysis capability. Scores are
// in [0, 1] per dimension.
type Analyzer interface {
	Score(ctx context.Context, content string) (domain.ContentScores, error)
}

// AlertSink receives emergency alerts raised by the crisis check. The
// ephemeral cache implements this.
type AlertSink interface {
	PutAlert(alert domain.EmergencyAlert) error
}

// thresholds is the per-level trigger table. Stricter levels use lower
// values, so they trigger sooner.
type thresholds struct {
	toxicity      float64
	selfHarm      float64
	spam          float64
	inappropriate float64
}

var levelThresholds = map[domain.ModerationLevel]thresholds{
	domain.ModerationLow:    {toxicity: 0.90, selfHarm: 0.80, spam: 0.90, inappropriate: 0.90},
	domain.ModerationMedium: {toxicity: 0.75, selfHarm: 0.70, spam: 0.80, inappropriate: 0.80},
	domain.ModerationHigh:   {toxicity: 0.60, selfHarm: 0.50, spam: 0.70, inappropriate: 0.65},
	domain.ModerationStrict: {toxicity: 0.45, selfHarm: 0.35, spam: 0.55, inappropriate: 0.50},
}

// relaxedLevel steps a level down one notch. Transcripts come out of
// speech recognition with enough noise that the configured level would
// over-trigger.
func relaxedLevel(level domain.ModerationLevel) domain.ModerationLevel {
	switch level {
	case domain.ModerationStrict:
		return domain.ModerationHigh
	case domain.ModerationHigh:
		return domain.ModerationMedium
	case domain.ModerationMedium:
		return domain.ModerationLow
	default:
		return domain.ModerationLow
	}
}

const (
	maxMessageRunes    = 2000
	spamThreshold      = 0.7
	kickThreshold      = 0.8
	muteThreshold      = 0.6
	shoutingMinLetters = 20
	shoutingCapsRatio  = 0.8
	maxRepeatedRun     = 10
)

// hasRepeatedRun reports whether the content contains maxRepeatedRun or
// more identical runes in a row.
func hasRepeatedRun(s string) bool {
	var prev rune
	run := 0
	for _, r := range s {
		if r == prev {
			run++
			if run >= maxRepeatedRun {
				return true
			}
			continue
		}
		prev = r
		run = 1
	}
	return false
}

type Pipeline struct {
	detector *CrisisDetector
	analyzer Analyzer
	alerts   AlertSink
	log      *slog.Logger
}

// NewPipeline wires the two tiers. analyzer may be nil, in which case
// tier two stops after the heuristics.
func NewPipeline(detector *CrisisDetector, analyzer Analyzer, alerts AlertSink, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		detector: detector,
		analyzer: analyzer,
		alerts:   alerts,
		log:      log,
	}
}

// ScreenInstant is tier one. It must complete before the content is
// delivered to other participants. A missing detector fails closed: the
// safety-critical path escalates rather than silently allowing content.
func (p *Pipeline) ScreenInstant(content string, sessionID uuid.UUID, participantID string) domain.ModerationDecision {
	start := time.Now()

	if p.detector == nil {
		p.log.Error("crisis detector unavailable, failing closed",
			slog.String("session_id", sessionID.String()),
		)
		return domain.ModerationDecision{
			Action:     domain.ActionEmergencyAlert,
			Severity:   domain.SeverityCritical,
			Reason:     "crisis check unavailable",
			Confidence: 0,
			Latency:    time.Since(start),
		}
	}

	matched, ok := p.detector.Match(content)
	if !ok {
		return domain.ModerationDecision{
			Action:  domain.ActionNone,
			Latency: time.Since(start),
		}
	}

	alert := domain.NewEmergencyAlert(sessionID, participantID, content, "crisis language: "+matched, 0.95)
	if p.alerts != nil {
		if err := p.alerts.PutAlert(*alert); err != nil {
			p.log.Error("failed to store emergency alert", sl.Err(err))
		}
	}

	p.log.Warn("crisis language detected",
		slog.String("session_id", sessionID.String()),
		slog.String("participant_id", participantID),
		slog.String("matched", matched),
	)

	return domain.ModerationDecision{
		Action:     domain.ActionEmergencyAlert,
		Severity:   domain.SeverityCritical,
		Reason:     "crisis language detected",
		Confidence: 0.95,
		Latency:    time.Since(start),
	}
}

// ScreenDeep is tier two: cheap heuristics first, then the deep analyzer
// when one is configured. It may run after the content was already
// delivered. Analyzer failure is logged and the content allowed through.
func (p *Pipeline) ScreenDeep(ctx context.Context, content string, level domain.ModerationLevel, transcript bool) domain.ModerationDecision {
	start := time.Now()

	if transcript {
		level = relaxedLevel(level)
	}

	if decision, flagged := screenHeuristics(content); flagged {
		decision.Latency = time.Since(start)
		return decision
	}

	if p.analyzer == nil {
		return domain.ModerationDecision{Action: domain.ActionNone, Latency: time.Since(start)}
	}

	scores, err := p.analyzer.Score(ctx, content)
	if err != nil {
		// Fail open: tier one already ran and is authoritative for the
		// crisis path. Deep analysis never blocks the conversation.
		p.log.Warn("deep content analysis unavailable, allowing content", sl.Err(err))
		return domain.ModerationDecision{
			Action:  domain.ActionNone,
			Reason:  "deep analysis unavailable",
			Latency: time.Since(start),
		}
	}

	decision := applyThresholds(scores, level)
	decision.Latency = time.Since(start)
	return decision
}

// Screen runs both tiers synchronously. Callers that deliver before the
// deep pass use ScreenInstant and ScreenDeep separately.
func (p *Pipeline) Screen(ctx context.Context, content string, sessionID uuid.UUID, participantID string, level domain.ModerationLevel, transcript bool) domain.ModerationDecision {
	if decision := p.ScreenInstant(content, sessionID, participantID); decision.Action != domain.ActionNone {
		return decision
	}
	return p.ScreenDeep(ctx, content, level, transcript)
}

func screenHeuristics(content string) (domain.ModerationDecision, bool) {
	if utf8.RuneCountInString(content) > maxMessageRunes {
		return domain.ModerationDecision{
			Action:     domain.ActionWarning,
			Severity:   domain.SeverityMedium,
			Reason:     "message too long",
			Confidence: 1,
		}, true
	}

	if hasRepeatedRun(content) {
		return domain.ModerationDecision{
			Action:     domain.ActionWarning,
			Severity:   domain.SeverityMedium,
			Reason:     "repeated character spam",
			Confidence: 0.9,
		}, true
	}

	var letters, upper int
	for _, r := range content {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters >= shoutingMinLetters && float64(upper)/float64(letters) >= shoutingCapsRatio {
		return domain.ModerationDecision{
			Action:     domain.ActionWarning,
			Severity:   domain.SeverityMedium,
			Reason:     "excessive shouting",
			Confidence: 0.8,
		}, true
	}

	return domain.ModerationDecision{}, false
}

func applyThresholds(scores domain.ContentScores, level domain.ModerationLevel) domain.ModerationDecision {
	limits, ok := levelThresholds[level]
	if !ok {
		limits = levelThresholds[domain.ModerationMedium]
	}

	// Self-harm crossing its threshold always escalates to an emergency
	// alert, never a lesser action.
	if scores.SelfHarm >= limits.selfHarm {
		return domain.ModerationDecision{
			Action:     domain.ActionEmergencyAlert,
			Severity:   domain.SeverityCritical,
			Reason:     reasonOrDefault(scores, "self-harm content detected"),
			Confidence: scores.SelfHarm,
		}
	}

	worst := scores.Toxicity
	dimension := "toxic content"
	if scores.Inappropriate >= limits.inappropriate && scores.Inappropriate > worst {
		worst = scores.Inappropriate
		dimension = "inappropriate content"
	}

	if scores.Toxicity >= limits.toxicity || scores.Inappropriate >= limits.inappropriate {
		switch {
		case worst >= kickThreshold:
			return domain.ModerationDecision{
				Action:     domain.ActionKick,
				Severity:   domain.SeverityHigh,
				Reason:     reasonOrDefault(scores, dimension),
				Confidence: worst,
			}
		case worst >= muteThreshold:
			return domain.ModerationDecision{
				Action:     domain.ActionMute,
				Severity:   domain.SeverityMedium,
				Reason:     reasonOrDefault(scores, dimension),
				Confidence: worst,
			}
		default:
			return domain.ModerationDecision{
				Action:     domain.ActionWarning,
				Severity:   domain.SeverityLow,
				Reason:     reasonOrDefault(scores, dimension),
				Confidence: worst,
			}
		}
	}

	if scores.Spam >= limits.spam && scores.Spam >= spamThreshold {
		return domain.ModerationDecision{
			Action:     domain.ActionWarning,
			Severity:   domain.SeverityLow,
			Reason:     reasonOrDefault(scores, "spam content"),
			Confidence: scores.Spam,
		}
	}

	return domain.ModerationDecision{Action: domain.ActionNone}
}

func reasonOrDefault(scores domain.ContentScores, fallback string) string {
	if strings.TrimSpace(scores.Reason) != "" {
		return scores.Reason
	}
	return fallback
}
