package portal

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRemoteError_Error(t *testing.T) {
	err := &RemoteError{Operation: OperationLogin, Status: 400, ErrorText: "Invalid email or password"}
	assert.Equal(t, "login: status 400: Invalid email or password", err.Error())

	err = &RemoteError{Operation: OperationLogout, Err: errors.New("dial tcp: refused")}
	assert.Equal(t, "logout: dial tcp: refused", err.Error())

	var nilErr *RemoteError
	assert.Equal(t, "<nil>", nilErr.Error())
	assert.Empty(t, nilErr.Text())
	assert.Nil(t, nilErr.Metadata())
}

func TestRemoteError_Metadata(t *testing.T) {
	err := &RemoteError{Operation: OperationRegister, Status: 400, MessageText: "taken"}

	assert.Equal(t, map[string]any{
		"operation": "register",
		"status":    400,
		"reason":    "taken",
	}, err.Metadata())
}

func TestRemoteMessage(t *testing.T) {
	wrapped := fmt.Errorf("call failed: %w", &RemoteError{Status: 400, ErrorText: "  Email address is already in use  "})

	assert.Equal(t, "Email address is already in use", RemoteMessage(wrapped, "fallback"))
	assert.Equal(t, "fallback", RemoteMessage(errors.New("plain"), "fallback"))
	assert.Equal(t, "fallback", RemoteMessage(nil, "fallback"))
}

func TestIsUnauthorized(t *testing.T) {
	assert.True(t, IsUnauthorized(&RemoteError{Status: 401}))
	assert.True(t, IsUnauthorized(fmt.Errorf("wrapped: %w", ErrUnauthorized)))
	assert.False(t, IsUnauthorized(&RemoteError{Status: 403}))
	assert.False(t, IsUnauthorized(errors.New("nope")))
	assert.False(t, IsUnauthorized(nil))
}

func TestSentinels(t *testing.T) {
	assert.ErrorIs(t, fmt.Errorf("%w: detail", ErrMalformedSession), ErrMalformedSession)
	assert.NotErrorIs(t, ErrMalformedSession, ErrStoreUnavailable)
}
