package portal

import (
	"context"
	"errors"
	"sync"

	"github.com/stretchr/testify/mock"
)

// MockTransport implements Transport
type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Register(ctx context.Context, req RegisterRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockTransport) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*LoginResponse)
	return res, args.Error(1)
}

func (m *MockTransport) Logout(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockUsersLister implements UsersLister
type MockUsersLister struct {
	mock.Mock
}

func (m *MockUsersLister) Users(ctx context.Context) ([]User, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]User)
	return users, args.Error(1)
}

// MockSessionActions implements SessionActions
type MockSessionActions struct {
	mock.Mock
}

func (m *MockSessionActions) Login(ctx context.Context, email, password string) Result {
	args := m.Called(ctx, email, password)
	return args.Get(0).(Result)
}

func (m *MockSessionActions) Register(ctx context.Context, name, email, password string) Result {
	args := m.Called(ctx, name, email, password)
	return args.Get(0).(Result)
}

// recordingStore wraps a MemoryStore and records writes, optionally
// failing reads or writes.
type recordingStore struct {
	*MemoryStore

	mu       sync.Mutex
	sets     []string
	removes  int
	failGet  error
	failSet  error
	setCalls int

	// onWrite runs after every successful Set or Remove
	onWrite func(op string, keys ...string)
}

func newRecordingStore() *recordingStore {
	return &recordingStore{MemoryStore: NewMemoryStore()}
}

func (s *recordingStore) Get(ctx context.Context, key string) (string, bool, error) {
	if s.failGet != nil {
		return "", false, s.failGet
	}
	return s.MemoryStore.Get(ctx, key)
}

func (s *recordingStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	s.setCalls++
	s.sets = append(s.sets, key)
	fail := s.failSet
	s.mu.Unlock()

	if fail != nil {
		return fail
	}
	if err := s.MemoryStore.Set(ctx, key, value); err != nil {
		return err
	}
	if s.onWrite != nil {
		s.onWrite("set", key)
	}
	return nil
}

func (s *recordingStore) Remove(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	s.removes++
	s.mu.Unlock()
	if err := s.MemoryStore.Remove(ctx, keys...); err != nil {
		return err
	}
	if s.onWrite != nil {
		s.onWrite("remove", keys...)
	}
	return nil
}

func (s *recordingStore) setKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sets...)
}

var errStoreDown = errors.Join(ErrStoreUnavailable, errors.New("disk on fire"))

const testUserJSON = `{"id":7,"name":"Ada Lovelace","email":"ada@example.com","role":"admin"}`

func seedSession(s Store, user, token string) {
	ctx := context.Background()
	if token != "" {
		_ = s.Set(ctx, KeyToken, token)
	}
	if user != "" {
		_ = s.Set(ctx, KeyUser, user)
	}
}

func testUser() *User {
	user, err := DecodeUser(testUserJSON)
	if err != nil {
		panic(err)
	}
	return user
}
