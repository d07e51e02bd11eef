package speech

import (
	"github.com/rodrigovega-17dev/paltalk-language-learning-avatar-sub001/internal/ports"
)

// ElevenLabs only accepts playback speed inside this window.
const (
	minSpeed = 0.7
	maxSpeed = 1.2
)

const defaultVoiceID = "EXAVITQu4vr4xnSDxMaL"

// emotionStyles maps the emotion enum onto the vendor style parameter.
var emotionStyles = map[ports.Emotion]float64{
	ports.EmotionNeutral:     0.0,
	ports.EmotionCalm:        0.15,
	ports.EmotionEncouraging: 0.35,
	ports.EmotionHappy:       0.55,
	ports.EmotionExcited:     0.8,
}

// ClampSettings normalizes learner-supplied settings to what the vendor
// accepts: out-of-range numbers are pulled to the nearest bound, unknown
// emotions fall back to neutral, a missing voice to the default one.
// Invalid input never causes an error.
func ClampSettings(st ports.SynthesisSettings) ports.SynthesisSettings {
	st.Speed = clamp(st.Speed, minSpeed, maxSpeed)
	st.Stability = clamp(st.Stability, 0, 1)
	st.SimilarityBoost = clamp(st.SimilarityBoost, 0, 1)
	if st.VoiceID == "" {
		st.VoiceID = defaultVoiceID
	}
	if _, ok := emotionStyles[st.Emotion]; !ok {
		st.Emotion = ports.EmotionNeutral
	}
	return st
}

func styleFor(e ports.Emotion) float64 {
	return emotionStyles[e]
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
