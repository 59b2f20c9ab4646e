package service

import (
	"context"
	"crypto/subtle"

	"login-portal/internal/domain"
)

// CredentialVerifier decides whether a username/password pair is accepted.
type CredentialVerifier interface {
	Verify(ctx context.Context, username, password string) (bool, error)
}

type staticVerifier struct {
	expected domain.Credentials
}

// NewStaticVerifier accepts exactly one fixed pair. Comparison is exact and case-sensitive;
// callers are expected to trim input beforehand.
func NewStaticVerifier(expected domain.Credentials) CredentialVerifier {
	return &staticVerifier{expected: expected}
}

func (v *staticVerifier) Verify(_ context.Context, username, password string) (bool, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(v.expected.Username))
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(v.expected.Password))
	return userOK&passOK == 1, nil
}

// VerifierFunc adapts a plain function to CredentialVerifier.
type VerifierFunc func(ctx context.Context, username, password string) (bool, error)

func (f VerifierFunc) Verify(ctx context.Context, username, password string) (bool, error) {
	return f(ctx, username, password)
}
