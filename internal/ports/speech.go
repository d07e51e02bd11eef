package ports

import "context"

// Emotion selects the expressive style of synthesized speech.
type Emotion string

const (
	EmotionNeutral     Emotion = "neutral"
	EmotionHappy       Emotion = "happy"
	EmotionEncouraging Emotion = "encouraging"
	EmotionCalm        Emotion = "calm"
	EmotionExcited     Emotion = "excited"
)

// SynthesisSettings control how the tutor voice sounds. Out-of-range numeric
// values are clamped by the speech service, never rejected.
type SynthesisSettings struct {
	VoiceID         string  `json:"voice_id"`
	Speed           float64 `json:"speed"`            // clamped to [0.7, 1.2]
	Emotion         Emotion `json:"emotion"`          // unknown values fall back to neutral
	Stability       float64 `json:"stability"`        // clamped to [0, 1]
	SimilarityBoost float64 `json:"similarity_boost"` // clamped to [0, 1]
	UseLoudspeaker  bool    `json:"use_loudspeaker"`
}

// DefaultSynthesisSettings is the voice configuration used until the
// learner changes it.
func DefaultSynthesisSettings() SynthesisSettings {
	return SynthesisSettings{
		Speed:           1.0,
		Emotion:         EmotionNeutral,
		Stability:       0.5,
		SimilarityBoost: 0.75,
	}
}

// SpeechUsage is the running synthesis usage counters, persisted across runs.
type SpeechUsage struct {
	Requests       uint64 `json:"requests"`
	CharactersSent uint64 `json:"characters_sent"`
	CacheHits      uint64 `json:"cache_hits"`
	CacheMisses    uint64 `json:"cache_misses"`
}

// HitRate is the share of Speak calls served from cache, in [0, 1].
func (u SpeechUsage) HitRate() float64 {
	if u.Requests == 0 {
		return 0
	}
	return float64(u.CacheHits) / float64(u.Requests)
}

// Transcriber converts a recorded utterance into text. language is an
// ISO 639-1 hint and may be empty.
type Transcriber interface {
	Transcribe(ctx context.Context, filePath, language string) (string, error)
}

// Speaker synthesizes text and plays it back, returning only after playback
// completes. While the conversation is paused Speak is a silent no-op.
type Speaker interface {
	Speak(ctx context.Context, text string, settings SynthesisSettings) error
}
