package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"

	"github.com/nhle/task-tracker/internal/access"
	"github.com/nhle/task-tracker/internal/model"
)

// ErrInvalidToken is returned for malformed, expired, or forged tokens.
var ErrInvalidToken = errors.New("invalid token")

// Tokens issues and verifies HS256 bearer tokens carrying a caller.
type Tokens struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewTokens returns a token issuer signing with key. Tokens expire after ttl.
func NewTokens(key []byte, ttl time.Duration) *Tokens {
	return &Tokens{key: key, ttl: ttl, now: time.Now}
}

// Issue returns a signed token for caller.
func (t *Tokens) Issue(caller access.Caller) (string, error) {
	token := jwt.New(jwt.SigningMethodHS256)
	claims := token.Claims.(jwt.MapClaims)
	claims["sub"] = caller.UserID
	claims["role"] = string(caller.Role)
	claims["iat"] = t.now().Unix()
	claims["exp"] = t.now().Add(t.ttl).Unix()

	signed, err := token.SignedString(t.key)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Parse verifies a token and returns the caller it names.
func (t *Tokens) Parse(raw string) (access.Caller, error) {
	token, err := jwt.Parse(raw, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.key, nil
	})
	if err != nil || !token.Valid {
		return access.Anonymous, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return access.Anonymous, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	if sub == "" || !model.Role(role).Valid() {
		return access.Anonymous, ErrInvalidToken
	}

	return access.Caller{UserID: sub, Role: model.Role(role)}, nil
}
