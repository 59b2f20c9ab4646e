package domain

import "errors"

const (
	// MsgFieldsRequired is shown when either trimmed field is empty.
	MsgFieldsRequired = "Username and password are required."
	// MsgInvalidCredentials is shown when the trimmed fields do not match.
	MsgInvalidCredentials = "Invalid username or password."
)

// ErrSessionNotFound indicates that no record exists for a browser session.
var ErrSessionNotFound = errors.New("session not found")

// ValidationError reports a submission rejected before credentials were checked.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// AuthError reports a submission whose credentials did not match.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// NewValidationError returns the error for an incomplete form.
func NewValidationError() *ValidationError {
	return &ValidationError{Message: MsgFieldsRequired}
}

// NewAuthError returns the error for mismatching credentials.
func NewAuthError() *AuthError {
	return &AuthError{Message: MsgInvalidCredentials}
}

// UserMessage extracts the text meant for the form's error region.
func UserMessage(err error) (string, bool) {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Message, true
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Message, true
	}
	return "", false
}
