package speech

import (
	"context"
	"log"
	"os"

	"github.com/rodrigovega-17dev/paltalk-language-learning-avatar-sub001/internal/converr"
	"github.com/rodrigovega-17dev/paltalk-language-learning-avatar-sub001/internal/ports"
)

// TTSClient renders text to audio bytes with already-clamped settings.
type TTSClient interface {
	Synthesize(ctx context.Context, text string, st ports.SynthesisSettings) ([]byte, error)
}

// UsageRecorder keeps the running Speak counters.
type UsageRecorder interface {
	RecordHit() error
	RecordMiss(chars int) error
}

// Service is the speaking half of a conversation turn: clamp the settings,
// try the cache, otherwise synthesize, cache and play.
type Service struct {
	tts    TTSClient
	cache  *Cache
	stats  UsageRecorder
	player ports.Player
	voice  string // used when the learner has not picked a voice

	paused func() bool
}

func NewService(tts TTSClient, cache *Cache, stats UsageRecorder, player ports.Player, defaultVoice string) *Service {
	return &Service{
		tts:    tts,
		cache:  cache,
		stats:  stats,
		player: player,
		voice:  defaultVoice,
	}
}

// SetPauseProbe wires the conversation pause flag after both services
// exist. While the probe reports true, Speak is a silent no-op.
func (s *Service) SetPauseProbe(probe func() bool) {
	s.paused = probe
}

// Speak voices text and blocks until playback completes.
func (s *Service) Speak(ctx context.Context, text string, settings ports.SynthesisSettings) error {
	if s.paused != nil && s.paused() {
		log.Printf("[speech] paused, skipping playback")
		return nil
	}

	if settings.VoiceID == "" {
		// configured voice first, ClampSettings falls back to the stock one
		settings.VoiceID = s.voice
	}
	st := ClampSettings(settings)
	key := CacheKey(text, st)

	if path, ok := s.cache.Get(key); ok {
		s.recordHit()
		log.Printf("[speech] cache hit %s", key[:12])
		if err := s.player.Play(ctx, path); err != nil {
			return converr.Ensure(err, converr.KindAudio, "cached playback")
		}
		return nil
	}

	if err := s.player.SetRoute(routeFor(st)); err != nil {
		return converr.Ensure(err, converr.KindAudio, "set output route")
	}

	audio, err := s.tts.Synthesize(ctx, text, st)
	s.recordMiss(len(text))
	if err != nil {
		return converr.Ensure(err, converr.KindSynthesis, "synthesize")
	}

	path, err := s.cache.Put(key, audio)
	if err != nil {
		// play from a scratch file, the cache catches up on the next miss
		log.Printf("[speech] cache write: %v", err)
		path, err = writeScratch(audio)
		if err != nil {
			return converr.Audio(err, "stage synthesized audio")
		}
		defer os.Remove(path)
	} else {
		defer s.cache.Sweep(false)
	}

	if err := s.player.Play(ctx, path); err != nil {
		return converr.Ensure(err, converr.KindAudio, "playback")
	}
	return nil
}

func routeFor(st ports.SynthesisSettings) ports.OutputRoute {
	if st.UseLoudspeaker {
		return ports.RouteLoudspeaker
	}
	return ports.RouteEarpiece
}

func (s *Service) recordHit() {
	if s.stats == nil {
		return
	}
	if err := s.stats.RecordHit(); err != nil {
		log.Printf("[speech] record hit: %v", err)
	}
}

func (s *Service) recordMiss(chars int) {
	if s.stats == nil {
		return
	}
	if err := s.stats.RecordMiss(chars); err != nil {
		log.Printf("[speech] record miss: %v", err)
	}
}

func writeScratch(audio []byte) (string, error) {
	f, err := os.CreateTemp("", "speech-*"+cacheEntryExt)
	if err != nil {
		return "", err
	}
	if _, err := f.Write(audio); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return f.Name(), nil
}
