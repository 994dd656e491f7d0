package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-print"
)

const (
	// DefaultBaseURL is used when no API location is configured
	DefaultBaseURL = "http://localhost:8080/api"

	maxResponseBody = 1 << 20
)

const (
	OperationRegister = "register"
	OperationLogin    = "login"
	OperationLogout   = "logout"
	OperationUsers    = "users"
)

var (
	_ Transport            = &HTTPTransport{}
	_ UnauthorizedNotifier = &HTTPTransport{}
)

// HTTPTransport talks JSON to the remote API. It reads the bearer
// credential from the session store on every request and clears the
// store when the backend answers 401.
type HTTPTransport struct {
	baseURL string
	client  *http.Client
	store   Store
	logger  Logger
	timeout time.Duration

	purgeMu  sync.Mutex
	mu       sync.RWMutex
	handlers []func(ctx context.Context)
}

// TransportOption customizes the HTTPTransport
type TransportOption func(*HTTPTransport)

// WithHTTPClient overrides the client used for requests
func WithHTTPClient(client *http.Client) TransportOption {
	return func(t *HTTPTransport) {
		if client != nil {
			t.client = client
		}
	}
}

// WithTransportLogger sets the logger
func WithTransportLogger(logger Logger) TransportOption {
	return func(t *HTTPTransport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithTimeout bounds every request
func WithTimeout(d time.Duration) TransportOption {
	return func(t *HTTPTransport) {
		t.timeout = d
	}
}

func NewHTTPTransport(baseURL string, store Store, opts ...TransportOption) *HTTPTransport {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	t := &HTTPTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  http.DefaultClient,
		store:   store,
		logger:  defLogger(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}

	return t
}

// BaseURL returns the API root requests are made against
func (t *HTTPTransport) BaseURL() string {
	return t.baseURL
}

// OnUnauthorized registers fn to be called after every 401 response, once
// the stored session is gone
func (t *HTTPTransport) OnUnauthorized(fn func(ctx context.Context)) {
	if fn == nil {
		return
	}
	t.mu.Lock()
	t.handlers = append(t.handlers, fn)
	t.mu.Unlock()
}

func (t *HTTPTransport) Register(ctx context.Context, req RegisterRequest) error {
	return t.do(ctx, OperationRegister, http.MethodPost, "/register", req, nil)
}

func (t *HTTPTransport) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	res := &LoginResponse{}
	if err := t.do(ctx, OperationLogin, http.MethodPost, "/login", req, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (t *HTTPTransport) Logout(ctx context.Context) error {
	return t.do(ctx, OperationLogout, http.MethodPost, "/logout", nil, nil)
}

// Users lists the accounts known to the backend
func (t *HTTPTransport) Users(ctx context.Context) ([]User, error) {
	var users []User
	if err := t.do(ctx, OperationUsers, http.MethodGet, "/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (t *HTTPTransport) do(ctx context.Context, op, method, path string, payload, out any) error {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return &RemoteError{Operation: op, Err: err}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, body)
	if err != nil {
		return &RemoteError{Operation: op, Err: err}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	token, err := BearerToken(ctx, t.store)
	if err != nil {
		t.logger.Error("transport failed to read token", "operation", op, "error", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := t.client.Do(req)
	if err != nil {
		return &RemoteError{Operation: op, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusUnauthorized {
		t.handleUnauthorized(ctx)
	}

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBody))
	if err != nil {
		return &RemoteError{Operation: op, Status: res.StatusCode, Err: err}
	}

	if res.StatusCode == http.StatusUnauthorized {
		return newRemoteError(op, res.StatusCode, raw, ErrUnauthorized)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return newRemoteError(op, res.StatusCode, raw, nil)
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		t.logger.Debug("transport could not decode response", "operation", op, "body", string(raw))
		return &RemoteError{Operation: op, Status: res.StatusCode, Body: raw, Err: err}
	}

	t.logger.Debug("transport response", "operation", op, "status", res.StatusCode, "body", print.MaybePrettyJSON(out))
	return nil
}

// handleUnauthorized clears the stored session when one is present and
// notifies the handlers on every 401, even when the store was already
// empty.
func (t *HTTPTransport) handleUnauthorized(ctx context.Context) {
	purgeCtx := context.WithoutCancel(ctx)

	t.purgeMu.Lock()
	cleared, err := PurgeSessionIfPresent(purgeCtx, t.store)
	t.purgeMu.Unlock()

	switch {
	case err != nil:
		t.logger.Error("transport failed to purge session after 401", "error", err)
	case cleared:
		t.logger.Info("session cleared after unauthorized response")
	}

	t.mu.RLock()
	handlers := append([]func(context.Context){}, t.handlers...)
	t.mu.RUnlock()

	for _, fn := range handlers {
		fn(purgeCtx)
	}
}

func newRemoteError(op string, status int, body []byte, cause error) *RemoteError {
	remote := &RemoteError{
		Operation: op,
		Status:    status,
		Body:      body,
		Err:       cause,
	}

	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err == nil {
		remote.ErrorText = stringField(fields, "error")
		remote.MessageText = stringField(fields, "message")
	}

	if remote.Err == nil && remote.Text() == "" {
		remote.Err = fmt.Errorf("unexpected status %d", status)
	}
	return remote
}

func stringField(fields map[string]any, key string) string {
	v, ok := fields[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}
