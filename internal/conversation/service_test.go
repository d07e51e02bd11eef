package conversation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rodrigovega-17dev/paltalk-language-learning-avatar-sub001/internal/converr"
	"github.com/rodrigovega-17dev/paltalk-language-learning-avatar-sub001/internal/ports"
)

type fakeAuth struct {
	user *ports.User
	err  error
}

func (f *fakeAuth) CurrentUser(ctx context.Context) (*ports.User, error) {
	return f.user, f.err
}

type fakeChat struct {
	replies []string
	err     error
	failOn  int // 1-based call number that returns err, 0 = never
	calls   int
	got     [][]ports.ChatMessage
}

func (f *fakeChat) Complete(ctx context.Context, msgs []ports.ChatMessage, model string) (string, error) {
	f.calls++
	f.got = append(f.got, append([]ports.ChatMessage(nil), msgs...))
	if f.err != nil && (f.failOn == 0 || f.failOn == f.calls) {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "ok", nil
	}
	reply := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return reply, nil
}

type fakeSTT struct {
	text    string
	err     error
	calls   int
	gotLang string
	gotPath string
}

func (f *fakeSTT) Transcribe(ctx context.Context, filePath, language string) (string, error) {
	f.calls++
	f.gotPath = filePath
	f.gotLang = language
	return f.text, f.err
}

type fakeSpeaker struct {
	err      error
	calls    int
	spoken   []string
	settings []ports.SynthesisSettings
}

func (f *fakeSpeaker) Speak(ctx context.Context, text string, settings ports.SynthesisSettings) error {
	f.calls++
	f.spoken = append(f.spoken, text)
	f.settings = append(f.settings, settings)
	return f.err
}

type fakeRecorder struct {
	startCalls int
	stopCalls  int
	startErr   error
	stopErr    error
	path       string
}

func (f *fakeRecorder) StartCapture(ctx context.Context) error {
	f.startCalls++
	return f.startErr
}

func (f *fakeRecorder) StopCapture(ctx context.Context) (string, error) {
	f.stopCalls++
	if f.stopErr != nil {
		return "", f.stopErr
	}
	return f.path, nil
}

type fakeStore struct {
	sessions    map[string]*ports.StoredSession
	createErr   error
	appendErr   error
	createCalls int
	appendCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: map[string]*ports.StoredSession{}}
}

func (f *fakeStore) CreateSession(ctx context.Context, userID, language, cefrLevel string) (*ports.StoredSession, error) {
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	sess := &ports.StoredSession{
		ID:        fmt.Sprintf("s%d", f.createCalls),
		UserID:    userID,
		Language:  language,
		CEFRLevel: cefrLevel,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	f.sessions[sess.ID] = sess
	return sess, nil
}

func (f *fakeStore) AppendMessages(ctx context.Context, sessionID string, msgs []ports.StoredMessage) error {
	f.appendCalls++
	if f.appendErr != nil {
		return f.appendErr
	}
	sess, ok := f.sessions[sessionID]
	if !ok {
		return errors.New("session not found")
	}
	sess.Messages = append(sess.Messages, msgs...)
	sess.UpdatedAt = time.Now()
	return nil
}

func (f *fakeStore) GetSession(ctx context.Context, sessionID string) (*ports.StoredSession, error) {
	sess, ok := f.sessions[sessionID]
	if !ok {
		return nil, errors.New("session not found")
	}
	return sess, nil
}

type fixture struct {
	svc     *Service
	auth    *fakeAuth
	chat    *fakeChat
	stt     *fakeSTT
	speaker *fakeSpeaker
	rec     *fakeRecorder
	store   *fakeStore
}

func newFixture() *fixture {
	f := &fixture{
		auth: &fakeAuth{user: &ports.User{
			ID:      "u1",
			Profile: &ports.Profile{TargetLanguage: "es", NativeLanguage: "en", CEFRLevel: "B1"},
		}},
		chat:    &fakeChat{replies: []string{"¡Hola! ¿Cómo estás?", "Muy bien. ¿Y tú?"}},
		stt:     &fakeSTT{text: "Hola"},
		speaker: &fakeSpeaker{},
		rec:     &fakeRecorder{path: "/tmp/utterance.wav"},
		store:   newFakeStore(),
	}
	f.svc = NewService(f.auth, f.chat, f.stt, f.speaker, f.rec, f.store, "gpt-4o-mini", time.Second)
	return f
}

func (f *fixture) start(t *testing.T) {
	t.Helper()
	if err := f.svc.StartConversation(context.Background()); err != nil {
		t.Fatalf("StartConversation: %v", err)
	}
}

func (f *fixture) turn(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	if err := f.svc.HandleUserInput(ctx); err != nil {
		t.Fatalf("HandleUserInput: %v", err)
	}
	if err := f.svc.FinishUserInput(ctx); err != nil {
		t.Fatalf("FinishUserInput: %v", err)
	}
}

func assertStateInvariant(t *testing.T, svc *Service) {
	t.Helper()
	st := svc.State()
	if st.Recording && (!st.Active || st.Paused) {
		t.Fatalf("recording outside active unpaused conversation: %+v", st)
	}
}

func assertKind(t *testing.T, err error, kind converr.Kind) *converr.Error {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	ce, ok := converr.As(err)
	if !ok {
		t.Fatalf("expected classified error, got %v", err)
	}
	if ce.Kind != kind {
		t.Fatalf("error kind = %s, want %s (%v)", ce.Kind, kind, err)
	}
	return ce
}

func TestStartConversationProducesGreeting(t *testing.T) {
	f := newFixture()
	f.start(t)

	if !f.svc.IsActive() || f.svc.IsRecording() || f.svc.IsPaused() {
		t.Fatalf("state after start = %+v", f.svc.State())
	}
	history := f.svc.History()
	if len(history) != 1 {
		t.Fatalf("history length = %d, want 1", len(history))
	}
	if history[0].Role != RoleAssistant || history[0].Content != "¡Hola! ¿Cómo estás?" {
		t.Fatalf("greeting = %+v", history[0])
	}
	if history[0].ID == "" || history[0].CreatedAt.IsZero() {
		t.Fatalf("greeting misses id/timestamp: %+v", history[0])
	}

	// greeting request: system prompt plus the fixed instruction
	if f.chat.calls != 1 {
		t.Fatalf("chat calls = %d, want 1", f.chat.calls)
	}
	msgs := f.chat.got[0]
	if len(msgs) != 2 || msgs[0].Role != "system" || msgs[1].Content != greetingInstruction {
		t.Fatalf("greeting request = %+v", msgs)
	}

	if f.speaker.calls != 1 || f.speaker.spoken[0] != "¡Hola! ¿Cómo estás?" {
		t.Fatalf("speaker calls = %d spoken=%v", f.speaker.calls, f.speaker.spoken)
	}

	sess := f.store.sessions[f.svc.SessionID()]
	if sess == nil || len(sess.Messages) != 1 || sess.Messages[0].Role != "assistant" {
		t.Fatalf("persisted session = %+v", sess)
	}
	assertStateInvariant(t, f.svc)
}

func TestStartConversationAuthAndProfileFailures(t *testing.T) {
	t.Run("no user", func(t *testing.T) {
		f := newFixture()
		f.auth.user = nil
		err := f.svc.StartConversation(context.Background())
		ce := assertKind(t, err, converr.KindAuth)
		if ce.Recoverable {
			t.Fatal("auth error must not be recoverable")
		}
		if f.svc.IsActive() || f.chat.calls != 0 {
			t.Fatalf("conversation progressed without a user")
		}
	})

	t.Run("gateway failure", func(t *testing.T) {
		f := newFixture()
		f.auth.err = errors.New("token expired")
		assertKind(t, f.svc.StartConversation(context.Background()), converr.KindAuth)
	})

	t.Run("missing profile", func(t *testing.T) {
		f := newFixture()
		f.auth.user = &ports.User{ID: "u1"}
		ce := assertKind(t, f.svc.StartConversation(context.Background()), converr.KindProfile)
		if !ce.Recoverable {
			t.Fatal("profile error must be recoverable")
		}
	})

	t.Run("blank target language", func(t *testing.T) {
		f := newFixture()
		f.auth.user = &ports.User{ID: "u1", Profile: &ports.Profile{TargetLanguage: "  "}}
		assertKind(t, f.svc.StartConversation(context.Background()), converr.KindProfile)
	})
}

func TestStartChatFailureLeavesConversationIdle(t *testing.T) {
	f := newFixture()
	f.chat.err = errors.New("upstream 500")
	f.chat.failOn = 1

	assertKind(t, f.svc.StartConversation(context.Background()), converr.KindAPI)
	if f.svc.IsActive() {
		t.Fatal("conversation became active without a greeting")
	}
	if len(f.svc.History()) != 0 {
		t.Fatalf("history = %v, want empty", f.svc.History())
	}
}

func TestTurnAppendsUserThenAssistant(t *testing.T) {
	f := newFixture()
	var observed []Message
	f.svc.SetTurnObserver(func(m Message) { observed = append(observed, m) })

	f.start(t)
	f.turn(t)

	history := f.svc.History()
	if len(history) != 3 {
		t.Fatalf("history length = %d, want 3", len(history))
	}
	if history[1].Role != RoleUser || history[1].Content != "Hola" {
		t.Fatalf("user message = %+v", history[1])
	}
	if history[2].Role != RoleAssistant || history[2].Content != "Muy bien. ¿Y tú?" {
		t.Fatalf("assistant message = %+v", history[2])
	}

	// the second completion sees the rebuilt context, learner utterance last
	req := f.chat.got[1]
	if req[0].Role != "system" {
		t.Fatalf("first request message = %+v", req[0])
	}
	last := req[len(req)-1]
	if last.Role != "user" || last.Content != "Hola" {
		t.Fatalf("last request message = %+v", last)
	}

	if len(observed) != 3 || observed[1].Role != RoleUser || observed[2].Role != RoleAssistant {
		t.Fatalf("observer sequence = %+v", observed)
	}

	// context mirrors history
	conv := f.svc.Context()
	if conv == nil || len(conv.History) != 3 || conv.Language != "es" || conv.CEFRLevel != "B1" {
		t.Fatalf("context = %+v", conv)
	}
	if conv.NativeLanguage != "en" {
		t.Fatalf("native language = %q, want en", conv.NativeLanguage)
	}

	sess := f.store.sessions[f.svc.SessionID()]
	if len(sess.Messages) != 3 {
		t.Fatalf("persisted messages = %d, want 3", len(sess.Messages))
	}
	assertStateInvariant(t, f.svc)
}

func TestTurnDropsBlankTranscription(t *testing.T) {
	f := newFixture()
	f.start(t)
	f.stt.text = " \n\t "

	f.turn(t)

	if got := len(f.svc.History()); got != 1 {
		t.Fatalf("history length = %d, want 1", got)
	}
	if f.chat.calls != 1 {
		t.Fatalf("chat calls = %d, want 1 (greeting only)", f.chat.calls)
	}
	if f.speaker.calls != 1 {
		t.Fatalf("speaker calls = %d, want 1 (greeting only)", f.speaker.calls)
	}
}

func TestHandleUserInputStateGuards(t *testing.T) {
	t.Run("idle", func(t *testing.T) {
		f := newFixture()
		assertKind(t, f.svc.HandleUserInput(context.Background()), converr.KindInvalidState)
		if f.rec.startCalls != 0 {
			t.Fatal("recorder touched while idle")
		}
	})

	t.Run("paused", func(t *testing.T) {
		f := newFixture()
		f.start(t)
		f.svc.PauseConversation()
		assertKind(t, f.svc.HandleUserInput(context.Background()), converr.KindInvalidState)
		if f.rec.startCalls != 0 {
			t.Fatal("recorder touched while paused")
		}
		if f.svc.IsRecording() {
			t.Fatal("recording flag set while paused")
		}
	})

	t.Run("already recording", func(t *testing.T) {
		f := newFixture()
		f.start(t)
		if err := f.svc.HandleUserInput(context.Background()); err != nil {
			t.Fatalf("HandleUserInput: %v", err)
		}
		assertKind(t, f.svc.HandleUserInput(context.Background()), converr.KindInvalidState)
		if f.rec.startCalls != 1 {
			t.Fatalf("start calls = %d, want 1", f.rec.startCalls)
		}
	})
}

func TestHandleUserInputPermissionRollback(t *testing.T) {
	f := newFixture()
	f.start(t)
	f.rec.startErr = converr.Permission(errors.New("denied"), "microphone permission denied")

	ce := assertKind(t, f.svc.HandleUserInput(context.Background()), converr.KindPermission)
	if !ce.Recoverable {
		t.Fatal("permission error must be recoverable")
	}
	if f.svc.IsRecording() {
		t.Fatal("recording flag not rolled back")
	}
	assertStateInvariant(t, f.svc)
}

func TestFinishWithoutRecordingFails(t *testing.T) {
	f := newFixture()
	f.start(t)
	assertKind(t, f.svc.FinishUserInput(context.Background()), converr.KindInvalidState)
}

func TestGreetingSynthesisFailureKeepsGreeting(t *testing.T) {
	f := newFixture()
	f.speaker.err = converr.Synthesis(converr.SynthRateLimited, 30, errors.New("429"))

	err := f.svc.StartConversation(context.Background())
	ce := assertKind(t, err, converr.KindSynthesis)
	if ce.Failure != converr.SynthRateLimited || ce.RetryAfter != 30 {
		t.Fatalf("synthesis error = %+v", ce)
	}
	if !f.svc.IsActive() {
		t.Fatal("conversation must stay active after a playback failure")
	}
	if got := len(f.svc.History()); got != 1 {
		t.Fatalf("history length = %d, want 1", got)
	}
}

func TestTranscriptionAndChatErrorsMapToAPI(t *testing.T) {
	t.Run("transcription", func(t *testing.T) {
		f := newFixture()
		f.start(t)
		f.stt.err = errors.New("whisper down")
		if err := f.svc.HandleUserInput(context.Background()); err != nil {
			t.Fatalf("HandleUserInput: %v", err)
		}
		assertKind(t, f.svc.FinishUserInput(context.Background()), converr.KindAPI)
		if got := len(f.svc.History()); got != 1 {
			t.Fatalf("history length = %d, want 1", got)
		}
	})

	t.Run("completion", func(t *testing.T) {
		f := newFixture()
		f.start(t)
		f.chat.err = errors.New("upstream 500")
		f.chat.failOn = 2
		if err := f.svc.HandleUserInput(context.Background()); err != nil {
			t.Fatalf("HandleUserInput: %v", err)
		}
		assertKind(t, f.svc.FinishUserInput(context.Background()), converr.KindAPI)
		// the learner utterance stays, the reply never arrived
		history := f.svc.History()
		if len(history) != 2 || history[1].Role != RoleUser {
			t.Fatalf("history = %+v", history)
		}
	})
}

func TestPauseStopsCaptureAndIsIdempotent(t *testing.T) {
	f := newFixture()
	f.start(t)
	if err := f.svc.HandleUserInput(context.Background()); err != nil {
		t.Fatalf("HandleUserInput: %v", err)
	}

	f.svc.PauseConversation()
	if !f.svc.IsPaused() || f.svc.IsRecording() {
		t.Fatalf("state after pause = %+v", f.svc.State())
	}
	if f.rec.stopCalls != 1 {
		t.Fatalf("stop calls = %d, want 1", f.rec.stopCalls)
	}

	f.svc.PauseConversation()
	if f.rec.stopCalls != 1 {
		t.Fatalf("second pause touched the recorder: %d", f.rec.stopCalls)
	}
	assertStateInvariant(t, f.svc)
}

func TestPauseSurvivesStopCaptureFailure(t *testing.T) {
	f := newFixture()
	f.start(t)
	if err := f.svc.HandleUserInput(context.Background()); err != nil {
		t.Fatalf("HandleUserInput: %v", err)
	}
	f.rec.stopErr = errors.New("device wedged")

	f.svc.PauseConversation()
	if !f.svc.IsPaused() || f.svc.IsRecording() {
		t.Fatalf("pause did not win over the stop failure: %+v", f.svc.State())
	}
}

func TestResumeDoesNotRestartRecording(t *testing.T) {
	f := newFixture()
	f.start(t)
	f.svc.PauseConversation()
	f.svc.ResumeConversation()

	if f.svc.IsPaused() || f.svc.IsRecording() {
		t.Fatalf("state after resume = %+v", f.svc.State())
	}
	// resuming an unpaused conversation changes nothing
	f.svc.ResumeConversation()
	if f.svc.IsPaused() {
		t.Fatal("resume flipped paused back on")
	}
}

func TestContinuousRecordingWrappers(t *testing.T) {
	f := newFixture()
	f.start(t)

	if err := f.svc.StartContinuousRecording(context.Background()); err != nil {
		t.Fatalf("StartContinuousRecording: %v", err)
	}
	if !f.svc.IsRecording() {
		t.Fatal("press-and-hold did not start recording")
	}
	if err := f.svc.StopContinuousRecording(context.Background()); err != nil {
		t.Fatalf("StopContinuousRecording: %v", err)
	}
	if got := len(f.svc.History()); got != 3 {
		t.Fatalf("history length = %d, want 3", got)
	}
}

func TestEndConversationFlushesPendingPersistence(t *testing.T) {
	f := newFixture()
	f.start(t)

	// the turn persists nothing while the store is down
	f.store.appendErr = errors.New("db down")
	f.turn(t)
	sess := f.store.sessions[f.svc.SessionID()]
	if len(sess.Messages) != 1 {
		t.Fatalf("messages persisted while store down = %d, want 1", len(sess.Messages))
	}

	// end flushes the two missed messages once the store recovers
	f.store.appendErr = nil
	if err := f.svc.EndConversation(context.Background()); err != nil {
		t.Fatalf("EndConversation: %v", err)
	}
	if len(sess.Messages) != 3 {
		t.Fatalf("messages after final flush = %d, want 3", len(sess.Messages))
	}
	if f.svc.IsActive() {
		t.Fatal("conversation still active after end")
	}

	assertKind(t, f.svc.EndConversation(context.Background()), converr.KindInvalidState)
}

func TestEndKeepsHistoryReadable(t *testing.T) {
	f := newFixture()
	f.start(t)
	f.turn(t)
	if err := f.svc.EndConversation(context.Background()); err != nil {
		t.Fatalf("EndConversation: %v", err)
	}
	if got := len(f.svc.History()); got != 3 {
		t.Fatalf("history after end = %d, want 3", got)
	}
}

func TestStartReplacesPreviousConversation(t *testing.T) {
	f := newFixture()
	f.start(t)
	f.turn(t)
	first := f.svc.SessionID()

	f.chat.replies = []string{"Bonjour!"}
	f.start(t)

	if f.svc.SessionID() == first {
		t.Fatal("session id was not replaced")
	}
	history := f.svc.History()
	if len(history) != 1 || history[0].Content != "Bonjour!" {
		t.Fatalf("history after restart = %+v", history)
	}
}

func TestStartDoesNotCarryUnsavedMessagesIntoNewSession(t *testing.T) {
	f := newFixture()

	// the whole first conversation runs against a session the store never
	// created, so none of its messages can ever persist
	f.store.createErr = errors.New("db down")
	f.start(t)
	f.turn(t)

	f.store.createErr = nil
	f.chat.replies = []string{"Bonjour!"}
	f.start(t)

	sess := f.store.sessions[f.svc.SessionID()]
	if sess == nil {
		t.Fatal("no session stored for the new conversation")
	}
	if len(sess.Messages) != 1 || sess.Messages[0].Content != "Bonjour!" {
		t.Fatalf("new session messages = %+v, want only its own greeting", sess.Messages)
	}
}

func TestAccessorsReturnDefensiveCopies(t *testing.T) {
	f := newFixture()
	f.start(t)

	h := f.svc.History()
	h[0].Content = "mutated"
	if f.svc.History()[0].Content == "mutated" {
		t.Fatal("History returned a shared slice")
	}

	conv := f.svc.Context()
	conv.History = append(conv.History, Message{Role: RoleUser, Content: "injected"})
	conv.Language = "fr"
	if got := f.svc.Context(); len(got.History) != 1 || got.Language != "es" {
		t.Fatalf("Context returned shared state: %+v", got)
	}

	st := f.svc.State()
	st.Context.History[0].Content = "mutated"
	if f.svc.History()[0].Content == "mutated" {
		t.Fatal("State returned a shared context")
	}
}

func TestTranscriberReceivesLanguageHintAndPath(t *testing.T) {
	f := newFixture()
	f.start(t)
	f.turn(t)

	if f.stt.gotLang != "es" {
		t.Fatalf("language hint = %q, want es", f.stt.gotLang)
	}
	if f.stt.gotPath != "/tmp/utterance.wav" {
		t.Fatalf("recording path = %q", f.stt.gotPath)
	}
}

func TestSpeakerReceivesUpdatedSettings(t *testing.T) {
	f := newFixture()
	f.start(t)

	custom := ports.SynthesisSettings{VoiceID: "v2", Speed: 9, Emotion: ports.EmotionExcited}
	f.svc.UpdateSynthesisSettings(custom)
	if f.svc.Settings() != custom {
		t.Fatalf("settings = %+v", f.svc.Settings())
	}

	f.turn(t)
	got := f.speaker.settings[len(f.speaker.settings)-1]
	// stored as given, clamping happens inside the speech service
	if got.Speed != 9 || got.VoiceID != "v2" || got.Emotion != ports.EmotionExcited {
		t.Fatalf("speaker settings = %+v", got)
	}
}

func TestErrorObserverSeesClassifiedErrors(t *testing.T) {
	f := newFixture()
	var seen []error
	f.svc.SetErrorObserver(func(err error) { seen = append(seen, err) })

	_ = f.svc.HandleUserInput(context.Background())

	if len(seen) != 1 {
		t.Fatalf("observed errors = %d, want 1", len(seen))
	}
	assertKind(t, seen[0], converr.KindInvalidState)
}

type blockingChat struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingChat) Complete(ctx context.Context, msgs []ports.ChatMessage, model string) (string, error) {
	close(b.entered)
	<-b.release
	return "hi", nil
}

func TestConcurrentOperationFailsFast(t *testing.T) {
	f := newFixture()
	chat := &blockingChat{entered: make(chan struct{}), release: make(chan struct{})}
	f.svc.chat = chat

	startDone := make(chan error, 1)
	go func() { startDone <- f.svc.StartConversation(context.Background()) }()

	<-chat.entered
	assertKind(t, f.svc.EndConversation(context.Background()), converr.KindInvalidState)

	close(chat.release)
	if err := <-startDone; err != nil {
		t.Fatalf("StartConversation: %v", err)
	}
}
