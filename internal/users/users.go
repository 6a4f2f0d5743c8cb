package users

import (
	"context"
	"errors"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrInvalidUserID    = errors.New("invalid user id")
	ErrNotAuthenticated = errors.New("need an authenticated user to sign a link")
)

type User struct {
	ID       int64  `yaml:"id" json:"id"`
	Username string `yaml:"username" json:"username"`
	Name     string `yaml:"name" json:"name"`
	Email    string `yaml:"email" json:"email"`
	IsActive bool   `yaml:"is_active" json:"isActive"`
}

// DisplayName returns the name, falling back to username then email.
func (u *User) DisplayName() string {
	switch {
	case u.Name != "":
		return u.Name
	case u.Username != "":
		return u.Username
	}
	return u.Email
}

// Service looks users up by id.
type Service interface {
	GetUser(ctx context.Context, id int64) (*User, error)
}

// Ref identifies the user a link is signed for.
type Ref interface {
	isRef()
}

// AuthenticatedUser is a session user. Links can only be signed for it
// when Authenticated is set.
type AuthenticatedUser struct {
	ID            int64
	Authenticated bool
}

// RawUserID is a bare user id.
type RawUserID int64

func (AuthenticatedUser) isRef() {}
func (RawUserID) isRef()         {}

func ResolveID(ref Ref) (int64, error) {
	switch r := ref.(type) {
	case AuthenticatedUser:
		if !r.Authenticated {
			return 0, ErrNotAuthenticated
		}
		return r.ID, nil
	case *AuthenticatedUser:
		if r == nil || !r.Authenticated {
			return 0, ErrNotAuthenticated
		}
		return r.ID, nil
	case RawUserID:
		return int64(r), nil
	}
	return 0, ErrInvalidUserID
}

type ctxKey struct{}

func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// FromContext returns the user attached by WithUser, or nil.
func FromContext(ctx context.Context) *User {
	u, _ := ctx.Value(ctxKey{}).(*User)
	return u
}
