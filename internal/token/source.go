// Package token supplies bearer tokens for the sync handshake. Tokens come
// from an injected accessor, never a fixed global lookup, so independent
// clients and tests never share hidden credential state.
package token

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/huverse/AstraLinks-sub001/internal/errors"
)

// ErrMissing indicates no usable token was available at connect time.
var ErrMissing = apperrors.New(apperrors.CodeAuthTokenMissing, "no bearer token available")

// Source yields the bearer token to present during the handshake.
type Source interface {
	Token(ctx context.Context) (string, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) (string, error)

// Token implements Source.
func (f SourceFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// Static returns a Source that always yields the given token.
func Static(value string) Source {
	return SourceFunc(func(context.Context) (string, error) {
		return value, nil
	})
}

// FromEnv returns a Source that reads the token from an environment variable
// on every call, so rotated credentials are picked up by reconnects.
func FromEnv(key string) Source {
	return SourceFunc(func(context.Context) (string, error) {
		return strings.TrimSpace(os.Getenv(key)), nil
	})
}

// Validate reports whether raw can plausibly authenticate a handshake.
// Empty tokens and JWTs past their expiry fail with ErrMissing; opaque
// non-JWT tokens pass, since only the server can judge them.
func Validate(raw string, now func() time.Time) error {
	if now == nil {
		now = time.Now
	}
	if strings.TrimSpace(raw) == "" {
		return ErrMissing
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		// Not a JWT. Treat as an opaque bearer token.
		return nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	if now().After(exp.Time) {
		return apperrors.Wrap(apperrors.CodeAuthTokenMissing, "bearer token expired", jwt.ErrTokenExpired)
	}
	return nil
}
