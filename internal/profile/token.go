package profile

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenService issues and checks the signed bearer tokens the delivery layer
// trades in. A token is "<userID>.<hex hmac-sha256(userID, secret)>".
type TokenService struct {
	secret []byte
}

func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret)}
}

func (t *TokenService) IssueToken(userID string) string {
	return userID + "." + t.sign(userID)
}

// VerifyToken returns the user id a token was issued for.
func (t *TokenService) VerifyToken(token string) (string, error) {
	idx := strings.LastIndexByte(token, '.')
	if idx <= 0 {
		return "", ErrInvalidToken
	}
	userID, sig := token[:idx], token[idx+1:]
	if !hmac.Equal([]byte(sig), []byte(t.sign(userID))) {
		return "", ErrInvalidToken
	}
	return userID, nil
}

func (t *TokenService) sign(msg string) string {
	h := hmac.New(sha256.New, t.secret)
	h.Write([]byte(msg))
	return hex.EncodeToString(h.Sum(nil))
}
