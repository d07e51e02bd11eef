package converr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindsAndRecoverableFlags(t *testing.T) {
	cases := []struct {
		name        string
		err         *Error
		wantKind    Kind
		recoverable bool
	}{
		{"auth", Auth("no signed-in user"), KindAuth, false},
		{"profile", Profile("profile missing"), KindProfile, true},
		{"permission", Permission(errors.New("denied"), "mic denied"), KindPermission, true},
		{"audio", Audio(errors.New("device busy"), "capture failed"), KindAudio, true},
		{"api", API(errors.New("500"), "chat failed"), KindAPI, true},
		{"invalid state", InvalidState("not active"), KindInvalidState, false},
		{"synthesis rate limited", Synthesis(SynthRateLimited, 30, nil), KindSynthesis, true},
		{"synthesis transport", Synthesis(SynthTransportDown, 0, nil), KindSynthesis, true},
		{"synthesis generic", Synthesis(SynthGeneric, 0, nil), KindSynthesis, true},
		{"synthesis quota", Synthesis(SynthQuotaExceeded, 0, nil), KindSynthesis, false},
		{"synthesis voice", Synthesis(SynthVoiceUnavailable, 0, nil), KindSynthesis, false},
	}

	for _, tc := range cases {
		if tc.err.Kind != tc.wantKind {
			t.Errorf("%s: kind = %s, want %s", tc.name, tc.err.Kind, tc.wantKind)
		}
		if tc.err.Recoverable != tc.recoverable {
			t.Errorf("%s: recoverable = %v, want %v", tc.name, tc.err.Recoverable, tc.recoverable)
		}
		if tc.err.Error() == "" {
			t.Errorf("%s: empty error text", tc.name)
		}
	}
}

func TestSynthesisCarriesRetryAfter(t *testing.T) {
	err := Synthesis(SynthRateLimited, 30, errors.New("429"))
	if err.Failure != SynthRateLimited {
		t.Fatalf("failure = %s, want %s", err.Failure, SynthRateLimited)
	}
	if err.RetryAfter != 30 {
		t.Fatalf("retryAfter = %d, want 30", err.RetryAfter)
	}
	if err.Message != Remediation(SynthRateLimited) {
		t.Fatalf("message = %q, want remediation text", err.Message)
	}
}

func TestRemediationNeverEmpty(t *testing.T) {
	failures := []SynthesisFailure{
		SynthRateLimited, SynthQuotaExceeded, SynthVoiceUnavailable,
		SynthTransportDown, SynthGeneric, SynthesisFailure("unknown"),
	}
	for _, f := range failures {
		if Remediation(f) == "" {
			t.Errorf("remediation for %q is empty", f)
		}
	}
}

func TestUnwrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Audio(cause, "playback failed")

	if !errors.Is(err, cause) {
		t.Fatal("errors.Is lost the wrapped cause")
	}
	wrapped := fmt.Errorf("speak: %w", err)
	ce, ok := As(wrapped)
	if !ok {
		t.Fatal("As failed on wrapped taxonomy error")
	}
	if ce.Kind != KindAudio {
		t.Fatalf("kind = %s, want %s", ce.Kind, KindAudio)
	}
}

func TestIsMatchesOnKind(t *testing.T) {
	err := fmt.Errorf("turn: %w", Synthesis(SynthQuotaExceeded, 0, nil))

	if !errors.Is(err, &Error{Kind: KindSynthesis}) {
		t.Fatal("Is did not match bare synthesis kind")
	}
	if !errors.Is(err, &Error{Kind: KindSynthesis, Failure: SynthQuotaExceeded}) {
		t.Fatal("Is did not match synthesis sub-kind")
	}
	if errors.Is(err, &Error{Kind: KindSynthesis, Failure: SynthRateLimited}) {
		t.Fatal("Is matched the wrong sub-kind")
	}
	if errors.Is(err, &Error{Kind: KindAudio}) {
		t.Fatal("Is matched the wrong kind")
	}
}

func TestEnsure(t *testing.T) {
	if Ensure(nil, KindAPI, "x") != nil {
		t.Fatal("Ensure(nil) != nil")
	}

	already := Permission(nil, "mic denied")
	if got := Ensure(already, KindAudio, "other"); got != already {
		t.Fatal("Ensure re-wrapped an already classified error")
	}

	foreign := errors.New("boom")
	got := Ensure(foreign, KindAudio, "capture failed")
	if got.Kind != KindAudio || !got.Recoverable {
		t.Fatalf("Ensure = %+v, want recoverable audio", got)
	}
	if KindOf(got) != KindAudio {
		t.Fatalf("KindOf = %s, want %s", KindOf(got), KindAudio)
	}

	auth := Ensure(foreign, KindAuth, "no user")
	if auth.Recoverable {
		t.Fatal("Ensure produced recoverable auth error")
	}
	synth := Ensure(foreign, KindSynthesis, "tts failed")
	if synth.Failure != SynthGeneric {
		t.Fatalf("Ensure synthesis failure = %s, want generic", synth.Failure)
	}
}
