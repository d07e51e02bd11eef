package conversation

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rodrigovega-17dev/paltalk-language-learning-avatar-sub001/internal/converr"
	"github.com/rodrigovega-17dev/paltalk-language-learning-avatar-sub001/internal/ports"
)

const defaultChatTimeout = 120 * time.Second

// Service drives the record -> transcribe -> reply -> speak loop and owns
// the single live conversation. All operations are synchronous; a second
// operation arriving while one is in flight fails fast with an
// invalid-state error instead of queueing.
type Service struct {
	auth    ports.AuthGateway
	chat    ports.ChatClient
	stt     ports.Transcriber
	speaker ports.Speaker
	rec     ports.Recorder
	store   ports.SessionStore

	model       string
	chatTimeout time.Duration

	archive ports.S3Client // optional utterance archive

	onTurn  func(Message)
	onError func(error)

	mu        sync.Mutex
	busy      bool
	active    bool
	recording bool
	paused    bool
	sessionID string
	convCtx   *Context
	settings  ports.SynthesisSettings
	unsaved   []ports.StoredMessage
}

func NewService(
	auth ports.AuthGateway,
	chat ports.ChatClient,
	stt ports.Transcriber,
	speaker ports.Speaker,
	rec ports.Recorder,
	store ports.SessionStore,
	model string,
	chatTimeout time.Duration,
) *Service {
	if chatTimeout <= 0 {
		chatTimeout = defaultChatTimeout
	}
	return &Service{
		auth:        auth,
		chat:        chat,
		stt:         stt,
		speaker:     speaker,
		rec:         rec,
		store:       store,
		model:       model,
		chatTimeout: chatTimeout,
		settings:    ports.DefaultSynthesisSettings(),
	}
}

// SetArchive wires the optional utterance archive after construction.
func (s *Service) SetArchive(archive ports.S3Client) {
	s.archive = archive
}

// SetTurnObserver registers a callback fired after every appended message.
func (s *Service) SetTurnObserver(fn func(Message)) {
	s.onTurn = fn
}

// SetErrorObserver registers the handler invoked with every classified
// failure before it is returned to the caller.
func (s *Service) SetErrorObserver(fn func(error)) {
	s.onError = fn
}

// StartConversation resolves the signed-in learner, opens a durable session,
// fetches and voices the tutor greeting. Any previous conversation is
// replaced wholesale.
func (s *Service) StartConversation(ctx context.Context) error {
	if err := s.begin(); err != nil {
		return s.fail(err)
	}
	defer s.done()

	log.Printf("[flow] >>> START conversation")

	s.mu.Lock()
	wasRecording := s.recording
	s.active, s.recording, s.paused = false, false, false
	s.convCtx = nil
	s.mu.Unlock()

	if wasRecording {
		if _, err := s.rec.StopCapture(ctx); err != nil {
			log.Printf("[flow] stop stale capture: %v", err)
		}
	}
	// Final flush for the previous session; whatever still cannot be
	// persisted is dropped, messages never cross into another session.
	s.persistUnsaved(ctx)
	s.mu.Lock()
	if n := len(s.unsaved); n > 0 {
		log.Printf("[flow] dropping %d unpersisted message(s) from the previous session", n)
		s.unsaved = nil
	}
	s.sessionID = ""
	s.mu.Unlock()

	// 1) signed-in learner with a usable profile
	user, err := s.auth.CurrentUser(ctx)
	if err != nil {
		return s.fail(converr.Ensure(err, converr.KindAuth, "resolve current user"))
	}
	if user == nil {
		return s.fail(converr.Auth("no signed-in user"))
	}
	if user.Profile == nil || strings.TrimSpace(user.Profile.TargetLanguage) == "" {
		return s.fail(converr.Profile("learner profile is missing or incomplete"))
	}

	lang := strings.ToLower(strings.TrimSpace(user.Profile.TargetLanguage))
	native := strings.ToLower(strings.TrimSpace(user.Profile.NativeLanguage))
	level := strings.ToUpper(strings.TrimSpace(user.Profile.CEFRLevel))

	// 2) durable session, best-effort: a local id keeps the flow alive
	// when the store is down
	sessionID := uuid.NewString()
	if sess, err := s.store.CreateSession(ctx, user.ID, lang, level); err != nil {
		log.Printf("[flow] create session: %v", err)
	} else {
		sessionID = sess.ID
	}

	// 3) tutor greeting
	reply, err := s.complete(ctx, &Context{Language: lang, NativeLanguage: native, CEFRLevel: level}, greetingInstruction)
	if err != nil {
		return s.fail(converr.Ensure(err, converr.KindAPI, "greeting completion"))
	}

	// 4) activate with the greeting as the first history entry
	greeting := Message{ID: uuid.NewString(), Role: RoleAssistant, Content: reply, CreatedAt: time.Now()}
	s.mu.Lock()
	s.active = true
	s.sessionID = sessionID
	s.convCtx = &Context{Language: lang, NativeLanguage: native, CEFRLevel: level, History: []Message{greeting}}
	s.unsaved = append(s.unsaved, storedFromMessage(greeting, nil))
	settings := s.settings
	s.mu.Unlock()

	s.notifyTurn(greeting)
	s.persistUnsaved(ctx)

	// 5) voice the greeting; on failure it still stays in history
	if err := s.speaker.Speak(ctx, reply, settings); err != nil {
		return s.fail(converr.Ensure(err, converr.KindSynthesis, "greeting playback"))
	}
	return nil
}

// HandleUserInput starts capturing the learner's utterance.
func (s *Service) HandleUserInput(ctx context.Context) error {
	if err := s.begin(); err != nil {
		return s.fail(err)
	}
	defer s.done()

	s.mu.Lock()
	switch {
	case !s.active:
		s.mu.Unlock()
		return s.fail(converr.InvalidState("conversation is not active"))
	case s.paused:
		s.mu.Unlock()
		return s.fail(converr.InvalidState("conversation is paused"))
	case s.recording:
		s.mu.Unlock()
		return s.fail(converr.InvalidState("already recording"))
	}
	s.recording = true
	s.mu.Unlock()

	if err := s.rec.StartCapture(ctx); err != nil {
		s.mu.Lock()
		s.recording = false
		s.mu.Unlock()
		return s.fail(converr.Ensure(err, converr.KindAudio, "start capture"))
	}
	log.Printf("[flow] recording started")
	return nil
}

// FinishUserInput stops the capture and runs the full turn: transcribe,
// complete, voice the reply, persist both halves. A blank transcription
// drops the turn silently.
func (s *Service) FinishUserInput(ctx context.Context) error {
	if err := s.begin(); err != nil {
		return s.fail(err)
	}
	defer s.done()

	s.mu.Lock()
	if !s.recording {
		s.mu.Unlock()
		return s.fail(converr.InvalidState("no recording in progress"))
	}
	s.mu.Unlock()

	path, stopErr := s.rec.StopCapture(ctx)

	s.mu.Lock()
	s.recording = false
	conv := s.convCtx.clone()
	s.mu.Unlock()

	if stopErr != nil {
		return s.fail(converr.Ensure(stopErr, converr.KindAudio, "stop capture"))
	}

	start := time.Now()
	log.Printf("[flow] >>> TURN session=%s", s.SessionID())

	// 1) transcribe with the target language as a hint
	text, err := s.stt.Transcribe(ctx, path, conv.Language)
	if err != nil {
		return s.fail(converr.Ensure(err, converr.KindAPI, "transcription"))
	}
	text = strings.TrimSpace(text)
	if text == "" {
		// Silence or noise: nothing reaches history or the model.
		log.Printf("[flow] empty transcription, turn dropped")
		return nil
	}

	// 2) learner message, with the raw utterance archived when possible
	userMsg := Message{ID: uuid.NewString(), Role: RoleUser, Content: text, CreatedAt: time.Now()}
	audioURL := s.archiveUtterance(ctx, userMsg.ID, path)
	s.mu.Lock()
	if s.convCtx != nil {
		s.convCtx.History = append(s.convCtx.History, userMsg)
		conv = s.convCtx.clone()
	}
	s.unsaved = append(s.unsaved, storedFromMessage(userMsg, audioURL))
	s.mu.Unlock()
	s.notifyTurn(userMsg)

	// 3) tutor reply over the fully rebuilt context
	reply, err := s.complete(ctx, conv, "")
	if err != nil {
		return s.fail(converr.Ensure(err, converr.KindAPI, "chat completion"))
	}

	asstMsg := Message{ID: uuid.NewString(), Role: RoleAssistant, Content: reply, CreatedAt: time.Now()}
	s.mu.Lock()
	if s.convCtx != nil {
		s.convCtx.History = append(s.convCtx.History, asstMsg)
	}
	s.unsaved = append(s.unsaved, storedFromMessage(asstMsg, nil))
	settings := s.settings
	s.mu.Unlock()
	s.notifyTurn(asstMsg)

	// 4) voice the reply, then persist the turn
	if err := s.speaker.Speak(ctx, reply, settings); err != nil {
		return s.fail(converr.Ensure(err, converr.KindSynthesis, "reply playback"))
	}

	s.persistUnsaved(ctx)
	log.Printf("[flow][%.1fs] turn done", time.Since(start).Seconds())
	return nil
}

// StartContinuousRecording begins a press-and-hold capture. Same contract
// as HandleUserInput.
func (s *Service) StartContinuousRecording(ctx context.Context) error {
	return s.HandleUserInput(ctx)
}

// StopContinuousRecording releases the hold and runs the full turn.
func (s *Service) StopContinuousRecording(ctx context.Context) error {
	return s.FinishUserInput(ctx)
}

// PauseConversation suspends the conversation, stopping any capture in
// flight. Pausing twice is a no-op.
func (s *Service) PauseConversation() {
	s.mu.Lock()
	if !s.active || s.paused {
		s.mu.Unlock()
		return
	}
	s.paused = true
	wasRecording := s.recording
	s.recording = false
	s.mu.Unlock()

	log.Printf("[flow] paused")
	if wasRecording {
		// The partial capture is discarded, state consistency wins.
		if _, err := s.rec.StopCapture(context.Background()); err != nil {
			log.Printf("[flow] stop capture on pause: %v", err)
		}
	}
}

// ResumeConversation lifts a pause. Recording does not restart by itself.
func (s *Service) ResumeConversation() {
	s.mu.Lock()
	if !s.active || !s.paused {
		s.mu.Unlock()
		return
	}
	s.paused = false
	s.mu.Unlock()
	log.Printf("[flow] resumed")
}

// EndConversation terminates the conversation and flushes anything not yet
// persisted. The final history stays readable until the next start.
func (s *Service) EndConversation(ctx context.Context) error {
	if err := s.begin(); err != nil {
		return s.fail(err)
	}
	defer s.done()

	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return s.fail(converr.InvalidState("conversation is not active"))
	}
	wasRecording := s.recording
	s.active, s.recording, s.paused = false, false, false
	s.mu.Unlock()

	if wasRecording {
		if _, err := s.rec.StopCapture(ctx); err != nil {
			log.Printf("[flow] stop capture on end: %v", err)
		}
	}

	s.persistUnsaved(ctx)
	log.Printf("[flow] <<< END conversation")
	return nil
}

// State returns a read-only snapshot of the conversation.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Active:    s.active,
		Recording: s.recording,
		Paused:    s.paused,
		SessionID: s.sessionID,
		Context:   s.convCtx.clone(),
	}
}

// Context returns a copy of the live conversation context, nil when no
// conversation has started.
func (s *Service) Context() *Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.convCtx.clone()
}

// History returns a copy of the ordered turn history.
func (s *Service) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.convCtx == nil {
		return nil
	}
	return append([]Message(nil), s.convCtx.History...)
}

func (s *Service) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Service) IsRecording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recording
}

func (s *Service) IsPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *Service) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// Settings returns the synthesis settings used for the next reply.
func (s *Service) Settings() ports.SynthesisSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// UpdateSynthesisSettings replaces the voice settings for subsequent turns.
// Values are stored as given and clamped by the speech service on use.
func (s *Service) UpdateSynthesisSettings(st ports.SynthesisSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = st
}

// complete runs one chat completion: system prompt, full history, optional
// trailing instruction.
func (s *Service) complete(ctx context.Context, conv *Context, instruction string) (string, error) {
	msgs := make([]ports.ChatMessage, 0, len(conv.History)+2)
	msgs = append(msgs, ports.ChatMessage{Role: "system", Content: BuildSystemPrompt(conv.Language, conv.CEFRLevel)})
	for _, m := range conv.History {
		msgs = append(msgs, ports.ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	if instruction != "" {
		msgs = append(msgs, ports.ChatMessage{Role: "user", Content: instruction})
	}

	ctxChat, cancel := context.WithTimeout(ctx, s.chatTimeout)
	defer cancel()

	start := time.Now()
	reply, err := s.chat.Complete(ctxChat, msgs, s.model)
	log.Printf("[flow][%.1fs] completion done err=%v", time.Since(start).Seconds(), err)
	return reply, err
}

// persistUnsaved flushes pending messages to the store. Failures are kept
// for the next flush, never raised.
func (s *Service) persistUnsaved(ctx context.Context) {
	s.mu.Lock()
	sessionID := s.sessionID
	pending := s.unsaved
	s.unsaved = nil
	s.mu.Unlock()

	if len(pending) == 0 || sessionID == "" {
		return
	}
	if err := s.store.AppendMessages(ctx, sessionID, pending); err != nil {
		log.Printf("[flow] persist %d message(s): %v", len(pending), err)
		s.mu.Lock()
		s.unsaved = append(pending, s.unsaved...)
		s.mu.Unlock()
	}
}

// archiveUtterance uploads the recorded file, best-effort.
func (s *Service) archiveUtterance(ctx context.Context, msgID, path string) *string {
	if s.archive == nil || path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		log.Printf("[flow] archive open: %v", err)
		return nil
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		log.Printf("[flow] archive stat: %v", err)
		return nil
	}

	key := fmt.Sprintf("sessions/%s/%s%s", s.SessionID(), msgID, filepath.Ext(path))
	url, err := s.archive.PutObject(ctx, key, f, st.Size(), utteranceContentType(path))
	if err != nil {
		log.Printf("[flow] archive upload: %v", err)
		return nil
	}
	return &url
}

func utteranceContentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".ogg", ".oga":
		return "audio/ogg"
	default:
		return "application/octet-stream"
	}
}

func (s *Service) begin() *converr.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return converr.InvalidState("another conversation operation is in flight")
	}
	s.busy = true
	return nil
}

func (s *Service) done() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

func (s *Service) fail(cerr *converr.Error) error {
	log.Printf("[flow] %v", cerr)
	if s.onError != nil {
		s.onError(cerr)
	}
	return cerr
}

func (s *Service) notifyTurn(m Message) {
	if s.onTurn != nil {
		s.onTurn(m)
	}
}

func storedFromMessage(m Message, audioURL *string) ports.StoredMessage {
	return ports.StoredMessage{
		ID:        m.ID,
		Role:      string(m.Role),
		Content:   m.Content,
		AudioURL:  audioURL,
		CreatedAt: m.CreatedAt,
	}
}
