package portal

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
)

type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Transport holds the remote operations the Manager depends on
type Transport interface {
	Register(ctx context.Context, req RegisterRequest) error
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Logout(ctx context.Context) error
}

// UnauthorizedNotifier is implemented by transports that purge the
// session store when the backend rejects a credential.
type UnauthorizedNotifier interface {
	OnUnauthorized(fn func(ctx context.Context))
}

// Signals exposes the read-only session flags consumed by guards and pages
type Signals interface {
	IsAuthenticated() bool
	IsRestoring() bool
}

// SessionActions is the subset of the Manager used by form pages
type SessionActions interface {
	Login(ctx context.Context, email, password string) Result
	Register(ctx context.Context, name, email, password string) Result
}

// RegisterRequest payload
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the body returned by a successful login
type LoginResponse struct {
	Token    string `json:"token"`
	User     *User  `json:"user"`
	Message  string `json:"message,omitempty"`
	IssuedAt string `json:"issuedAt,omitempty"`
}

// Result is returned by every Manager operation. Failures never
// escape as errors, Err only carries the cause for logging.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Err     error  `json:"-"`
}

func success() Result {
	return Result{Success: true}
}

func failure(message string, err error) Result {
	return Result{Success: false, Error: message, Err: err}
}

// UserID accepts both numeric and string identifiers
type UserID string

func (id *UserID) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*id = ""
		return nil
	}

	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*id = UserID(str)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = UserID(n.String())
	return nil
}

func (id UserID) String() string {
	return string(id)
}

// User is the record returned by the backend. Only id, name and email
// are interpreted, the original JSON is kept so a store round trip
// yields the exact same record.
type User struct {
	ID    UserID `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`

	raw json.RawMessage
}

func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*u = User(p)
	u.raw = append(json.RawMessage(nil), data...)
	return nil
}

func (u User) MarshalJSON() ([]byte, error) {
	if len(u.raw) > 0 {
		return u.raw, nil
	}
	return json.Marshal(struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}{
		ID:    string(u.ID),
		Name:  u.Name,
		Email: u.Email,
	})
}

// Raw returns the JSON the record was decoded from, if any
func (u *User) Raw() json.RawMessage {
	if u == nil {
		return nil
	}
	return u.raw
}

func defLogger() Logger {
	return slog.Default().With("component", "portal")
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger()
	}
	return l
}
