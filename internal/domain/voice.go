package domain

type VoiceStyle string

const (
	VoiceStyleNatural VoiceStyle = "natural"
	VoiceStyleCalm    VoiceStyle = "calm"
	VoiceStyleWarm    VoiceStyle = "warm"
	VoiceStyleBright  VoiceStyle = "bright"
	VoiceStyleLow     VoiceStyle = "low"
)

var knownVoiceStyles = map[VoiceStyle]struct{}{
	VoiceStyleNatural: {},
	VoiceStyleCalm:    {},
	VoiceStyleWarm:    {},
	VoiceStyleBright:  {},
	VoiceStyleLow:     {},
}

// VoiceSettings are per-participant voice modulation preferences. The
// numeric knobs are stored on the synthesis pipeline's native [0, 1]
// scale; clients may submit a 0-100 scale, which Normalized converts.
type VoiceSettings struct {
	Stability       float64    `json:"stability"`
	SimilarityBoost float64    `json:"similarity_boost"`
	Style           float64    `json:"style"`
	UseSpeakerBoost bool       `json:"use_speaker_boost"`
	VoiceStyle      VoiceStyle `json:"voice_style"`
}

// DefaultVoiceSettings is the snapshot used when a participant never
// configured anything.
func DefaultVoiceSettings() VoiceSettings {
	return VoiceSettings{
		Stability:       0.5,
		SimilarityBoost: 0.75,
		Style:           0.0,
		UseSpeakerBoost: true,
		VoiceStyle:      VoiceStyleNatural,
	}
}

// Normalized clamps every knob into [0, 1] and falls back to the natural
// style for unrecognized identifiers. Values above 1 are assumed to be on
// the 0-100 client scale and are divided down before clamping.
func (v VoiceSettings) Normalized() VoiceSettings {
	v.Stability = clamp01(v.Stability)
	v.SimilarityBoost = clamp01(v.SimilarityBoost)
	v.Style = clamp01(v.Style)
	if _, ok := knownVoiceStyles[v.VoiceStyle]; !ok {
		v.VoiceStyle = VoiceStyleNatural
	}
	return v
}

func clamp01(x float64) float64 {
	if x > 1 {
		x = x / 100
	}
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
