package ports

import "context"

// Profile is the learner profile a conversation is parameterized by.
type Profile struct {
	TargetLanguage string `json:"target_language"` // ISO 639-1
	NativeLanguage string `json:"native_language"` // ISO 639-1
	CEFRLevel      string `json:"cefr_level"`      // A1..C2
}

// User is the signed-in learner. Profile is nil when none could be loaded.
type User struct {
	ID      string   `json:"id"`
	Profile *Profile `json:"profile,omitempty"`
}

// AuthGateway resolves the current user from the request context.
// (nil, nil) means nobody is signed in.
type AuthGateway interface {
	CurrentUser(ctx context.Context) (*User, error)
}
