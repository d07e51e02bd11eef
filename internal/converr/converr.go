// Package converr defines the unified error taxonomy surfaced by the
// conversation core. Every failure that crosses a package boundary is wrapped
// into an *Error carrying a Kind, a recoverable flag and, for synthesis
// failures, a sub-classification with an optional retry hint.
package converr

import (
	"errors"
	"fmt"
)

// Kind categorizes a conversation failure.
type Kind string

const (
	KindAuth         Kind = "auth"
	KindProfile      Kind = "profile"
	KindPermission   Kind = "permission"
	KindAudio        Kind = "audio"
	KindAPI          Kind = "api"
	KindSynthesis    Kind = "synthesis"
	KindInvalidState Kind = "invalid_state"
)

// SynthesisFailure sub-classifies KindSynthesis errors.
type SynthesisFailure string

const (
	SynthRateLimited      SynthesisFailure = "rate_limited"
	SynthQuotaExceeded    SynthesisFailure = "quota_exceeded"
	SynthVoiceUnavailable SynthesisFailure = "voice_unavailable"
	SynthTransportDown    SynthesisFailure = "transport_down"
	SynthGeneric          SynthesisFailure = "generic"
)

// Error is the single error type the conversation core hands to callers and
// to the registered error observer.
type Error struct {
	Kind        Kind
	Message     string
	Recoverable bool

	// Failure and RetryAfter are set only when Kind == KindSynthesis.
	// RetryAfter is the server-suggested wait in seconds, 0 when absent.
	Failure    SynthesisFailure
	RetryAfter int

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is lets errors.Is match on Kind: errors.Is(err, &Error{Kind: KindAudio}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Failure == "" || t.Failure == e.Failure)
}

// Auth reports that no authenticated user is available. Not recoverable
// from inside a conversation; the learner has to sign in again.
func Auth(msg string) *Error {
	return &Error{Kind: KindAuth, Message: msg, Recoverable: false}
}

// Profile reports a missing or unusable learner profile. Recoverable once
// the profile is repaired.
func Profile(msg string) *Error {
	return &Error{Kind: KindProfile, Message: msg, Recoverable: true}
}

// Permission reports a denied microphone or playback permission.
func Permission(cause error, msg string) *Error {
	return &Error{Kind: KindPermission, Message: msg, Recoverable: true, cause: cause}
}

// Audio reports a device-level capture or playback failure.
func Audio(cause error, msg string) *Error {
	return &Error{Kind: KindAudio, Message: msg, Recoverable: true, cause: cause}
}

// API reports a transcription or chat-completion backend failure.
func API(cause error, msg string) *Error {
	return &Error{Kind: KindAPI, Message: msg, Recoverable: true, cause: cause}
}

// InvalidState reports an operation called outside its legal state. These
// signal caller bugs and are never retried.
func InvalidState(msg string) *Error {
	return &Error{Kind: KindInvalidState, Message: msg, Recoverable: false}
}

// Synthesis reports a speech-synthesis failure of the given sub-kind.
// retryAfter is only meaningful for SynthRateLimited.
func Synthesis(failure SynthesisFailure, retryAfter int, cause error) *Error {
	if failure == "" {
		failure = SynthGeneric
	}
	return &Error{
		Kind:        KindSynthesis,
		Message:     Remediation(failure),
		Recoverable: synthRecoverable(failure),
		Failure:     failure,
		RetryAfter:  retryAfter,
		cause:       cause,
	}
}

func synthRecoverable(f SynthesisFailure) bool {
	switch f {
	case SynthQuotaExceeded, SynthVoiceUnavailable:
		// Need an account or settings change, retrying alone will not help.
		return false
	default:
		return true
	}
}

// Remediation returns the user-facing suggestion for a synthesis failure.
func Remediation(f SynthesisFailure) string {
	switch f {
	case SynthRateLimited:
		return "speech service is busy, wait a moment and try again"
	case SynthQuotaExceeded:
		return "speech quota exhausted, check the subscription plan"
	case SynthVoiceUnavailable:
		return "selected voice is unavailable, pick another voice"
	case SynthTransportDown:
		return "speech service is unreachable, check the connection"
	default:
		return "speech synthesis failed, try again"
	}
}

// As unwraps err to a taxonomy *Error when possible.
func As(err error) (*Error, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// KindOf returns the taxonomy Kind of err, or "" when err is foreign.
func KindOf(err error) Kind {
	if ce, ok := As(err); ok {
		return ce.Kind
	}
	return ""
}

// Ensure wraps foreign errors into the taxonomy under fallback, passing
// already-classified errors through untouched.
func Ensure(err error, fallback Kind, msg string) *Error {
	if err == nil {
		return nil
	}
	if ce, ok := As(err); ok {
		return ce
	}
	e := &Error{Kind: fallback, Message: msg, Recoverable: true, cause: err}
	switch fallback {
	case KindAuth, KindInvalidState:
		e.Recoverable = false
	case KindSynthesis:
		e.Failure = SynthGeneric
	}
	return e
}
