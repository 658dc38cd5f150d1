package users

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already in use")
)

type Store interface {
	// CreateUser inserts the user and, when set, its farmer profile in one
	// transaction. A duplicate email yields ErrEmailTaken.
	CreateUser(ctx context.Context, u *User) error
	UserByEmail(ctx context.Context, email string) (*User, error)
	UserByID(ctx context.Context, id string) (*User, error)
	// UpdateUser writes name, phone and city and upserts the farmer profile
	// when it is non-nil.
	UpdateUser(ctx context.Context, u *User) error
	SetPassword(ctx context.Context, id, hash string, at time.Time) error
}
