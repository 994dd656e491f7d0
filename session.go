package portal

import (
	"context"
	"encoding/json"
	"fmt"
)

// Session is the persisted pair of user record and bearer token
type Session struct {
	User  *User
	Token string
}

// Valid reports whether both halves of the session are present
func (s *Session) Valid() bool {
	return s != nil && s.User != nil && s.Token != ""
}

// LoadSession reads the session from the store. It returns nil with no
// error when nothing is stored, and ErrMalformedSession when only one
// half is present or the user record cannot be decoded.
func LoadSession(ctx context.Context, store Store) (*Session, error) {
	rawUser, hasUser, err := store.Get(ctx, KeyUser)
	if err != nil {
		return nil, err
	}

	token, hasToken, err := store.Get(ctx, KeyToken)
	if err != nil {
		return nil, err
	}

	if !hasUser && !hasToken {
		return nil, nil
	}

	if !hasUser || !hasToken || token == "" {
		return nil, fmt.Errorf("%w: user present=%t token present=%t", ErrMalformedSession, hasUser, hasToken && token != "")
	}

	user, err := DecodeUser(rawUser)
	if err != nil {
		return nil, err
	}

	return &Session{User: user, Token: token}, nil
}

// DecodeUser parses a stored user record
func DecodeUser(raw string) (*User, error) {
	var user *User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSession, err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user record is null", ErrMalformedSession)
	}
	return user, nil
}

// SaveSession writes the token first and then the user record
func SaveSession(ctx context.Context, store Store, session *Session) error {
	if !session.Valid() {
		return fmt.Errorf("%w: incomplete session", ErrMalformedSession)
	}

	data, err := json.Marshal(session.User)
	if err != nil {
		return fmt.Errorf("%w: encode user: %v", ErrMalformedSession, err)
	}

	if err := store.Set(ctx, KeyToken, session.Token); err != nil {
		return err
	}

	return store.Set(ctx, KeyUser, string(data))
}

// PurgeSession removes both session keys
func PurgeSession(ctx context.Context, store Store) error {
	return store.Remove(ctx, KeyToken, KeyUser)
}

// PurgeSessionIfPresent removes the session keys only when at least one
// is stored, and reports whether anything was cleared.
func PurgeSessionIfPresent(ctx context.Context, store Store) (bool, error) {
	_, hasToken, err := store.Get(ctx, KeyToken)
	if err != nil {
		return false, err
	}

	_, hasUser, err := store.Get(ctx, KeyUser)
	if err != nil {
		return false, err
	}

	if !hasToken && !hasUser {
		return false, nil
	}

	if err := PurgeSession(ctx, store); err != nil {
		return false, err
	}
	return true, nil
}

// BearerToken returns the stored token, empty when absent
func BearerToken(ctx context.Context, store Store) (string, error) {
	token, ok, err := store.Get(ctx, KeyToken)
	if err != nil || !ok {
		return "", err
	}
	return token, nil
}
