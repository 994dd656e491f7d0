package server

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// listLimit caps ListAll; the portal shows every account on one page
const listLimit = 500

// Users is the account repository
type Users struct {
	repository.Repository[*User]
	db bun.IDB
}

var _ repository.Repository[*User] = (*Users)(nil)

func NewUsers(db bun.IDB) *Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.UUID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.UUID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &Users{
		Repository: repo,
		db:         db,
	}
}

// EnsureSchema creates the users table when missing
func (u *Users) EnsureSchema(ctx context.Context) error {
	_, err := u.db.NewCreateTable().
		Model((*User)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create users table")
	}
	return nil
}

// Register inserts the user, returning ErrEmailInUse on duplicates
func (u *Users) Register(ctx context.Context, user *User) (*User, error) {
	_, err := u.FindByEmail(ctx, user.Email)
	if err == nil {
		return nil, ErrEmailInUse
	}
	if !repository.IsRecordNotFound(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email")
	}

	created, err := u.Create(ctx, user)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailInUse
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to insert user")
	}
	return created, nil
}

// FindByEmail fails with an error matched by repository.IsRecordNotFound
// when no account matches
func (u *Users) FindByEmail(ctx context.Context, email string) (*User, error) {
	return u.GetByIdentifier(ctx, email)
}

// ListAll returns accounts in registration order
func (u *Users) ListAll(ctx context.Context) ([]*User, error) {
	users, _, err := u.List(ctx,
		repository.OrderBy("id ASC"),
		repository.Paginate(listLimit, 0),
	)
	if err != nil && !repository.IsNoRowError(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list users")
	}
	return users, nil
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
