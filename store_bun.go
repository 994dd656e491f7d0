package portal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// SessionEntry is a single persisted key/value pair
type SessionEntry struct {
	bun.BaseModel `bun:"table:portal_session_entries,alias:pse"`
	Key           string    `bun:"entry_key,pk" json:"key"`
	Value         string    `bun:"entry_value,notnull" json:"value"`
	UpdatedAt     time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

var _ Store = &BunStore{}

// BunStore keeps the session in a SQL table through bun
type BunStore struct {
	db  bun.IDB
	now func() time.Time
}

// BunStoreOption customizes the BunStore
type BunStoreOption func(*BunStore)

// WithBunStoreClock injects the clock used for updated_at
func WithBunStoreClock(now func() time.Time) BunStoreOption {
	return func(s *BunStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewBunStore(db bun.IDB, opts ...BunStoreOption) *BunStore {
	s := &BunStore{
		db:  db,
		now: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// EnsureSchema creates the backing table when missing
func (s *BunStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*SessionEntry)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: create table: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *BunStore) Get(ctx context.Context, key string) (string, bool, error) {
	entry := &SessionEntry{}
	err := s.db.NewSelect().
		Model(entry).
		Where("?TableAlias.entry_key = ?", key).
		Limit(1).
		Scan(ctx)

	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}

	if err != nil {
		return "", false, fmt.Errorf("%w: select %s: %v", ErrStoreUnavailable, key, err)
	}
	return entry.Value, true, nil
}

func (s *BunStore) Set(ctx context.Context, key, value string) error {
	entry := &SessionEntry{
		Key:       key,
		Value:     value,
		UpdatedAt: s.now().UTC(),
	}

	_, err := s.db.NewInsert().
		Model(entry).
		On("CONFLICT (entry_key) DO UPDATE").
		Set("entry_value = EXCLUDED.entry_value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: upsert %s: %v", ErrStoreUnavailable, key, err)
	}
	return nil
}

func (s *BunStore) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	_, err := s.db.NewDelete().
		Model((*SessionEntry)(nil)).
		Where("entry_key IN (?)", bun.In(keys)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: delete: %v", ErrStoreUnavailable, err)
	}
	return nil
}
