package portal

import (
	"errors"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeInvalidTransition = "INVALID_SESSION_TRANSITION"
	textCodeFormInvalid       = "FORM_INVALID"
	textCodeSubmitInProgress  = "SUBMIT_IN_PROGRESS"
	textCodeStoreUnavailable  = "SESSION_STORE_UNAVAILABLE"
	textCodeMalformedSession  = "MALFORMED_SESSION"
	textCodeUnauthorized      = "UNAUTHORIZED"
)

const (
	// MessageLoginFailed is shown when the backend gives no usable reason
	MessageLoginFailed = "Login failed. Please try again."
	// MessageRegistrationFailed is shown when the backend gives no usable reason
	MessageRegistrationFailed = "Registration failed. Please try again."
)

// ErrInvalidTransition is returned when a session state change is not allowed
var ErrInvalidTransition = goerrors.New("invalid session state transition", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// ErrFormInvalid is returned by Page.Submit when local validation fails
var ErrFormInvalid = goerrors.New("form has validation errors", goerrors.CategoryValidation).
	WithTextCode(textCodeFormInvalid).
	WithCode(goerrors.CodeBadRequest)

// ErrSubmitInProgress is returned by Page.Submit while a previous submission is pending
var ErrSubmitInProgress = goerrors.New("submission already in progress", goerrors.CategoryConflict).
	WithTextCode(textCodeSubmitInProgress).
	WithCode(goerrors.CodeConflict)

// ErrStoreUnavailable wraps failures of the persistent session store
var ErrStoreUnavailable = goerrors.New("session store unavailable", goerrors.CategoryExternal).
	WithTextCode(textCodeStoreUnavailable).
	WithCode(goerrors.CodeInternal)

// ErrMalformedSession is returned when the stored session cannot be used
var ErrMalformedSession = goerrors.New("stored session is malformed", goerrors.CategoryBadInput).
	WithTextCode(textCodeMalformedSession).
	WithCode(goerrors.CodeBadRequest)

// ErrUnauthorized is the cause attached to RemoteError for 401 responses
var ErrUnauthorized = goerrors.New("credential rejected", goerrors.CategoryAuth).
	WithTextCode(textCodeUnauthorized).
	WithCode(goerrors.CodeUnauthorized)

// RemoteError describes a failed call to the backend. ErrorText and
// MessageText hold the `error` and `message` fields of the response
// body when present.
type RemoteError struct {
	Operation   string
	Status      int
	ErrorText   string
	MessageText string
	Body        []byte
	Err         error
}

func (e *RemoteError) Error() string {
	if e == nil {
		return "<nil>"
	}

	var b strings.Builder
	b.WriteString(e.Operation)
	if e.Status > 0 {
		fmt.Fprintf(&b, ": status %d", e.Status)
	}

	if text := e.Text(); text != "" {
		b.WriteString(": ")
		b.WriteString(text)
	}

	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *RemoteError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Text returns the backend supplied reason, preferring `error` over `message`
func (e *RemoteError) Text() string {
	if e == nil {
		return ""
	}
	if e.ErrorText != "" {
		return e.ErrorText
	}
	return e.MessageText
}

// Unauthorized reports whether the backend rejected the credential
func (e *RemoteError) Unauthorized() bool {
	return e != nil && e.Status == 401
}

// Metadata returns diagnostic key/values for logging
func (e *RemoteError) Metadata() map[string]any {
	if e == nil {
		return nil
	}
	meta := map[string]any{
		"operation": e.Operation,
	}
	if e.Status > 0 {
		meta["status"] = e.Status
	}
	if text := e.Text(); text != "" {
		meta["reason"] = text
	}
	return meta
}

// RemoteMessage extracts the user facing message from err, falling back
// to the provided message when the backend did not supply one.
func RemoteMessage(err error, fallback string) string {
	var remote *RemoteError
	if errors.As(err, &remote) {
		if text := strings.TrimSpace(remote.Text()); text != "" {
			return text
		}
	}
	return fallback
}

// IsUnauthorized reports whether err is a 401 response from the backend
func IsUnauthorized(err error) bool {
	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote.Unauthorized()
	}
	return errors.Is(err, ErrUnauthorized)
}
