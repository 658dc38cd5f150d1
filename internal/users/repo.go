package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-farm-market/internal/auth"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// Repo is the Postgres implementation of Store. It also answers
// auth.SubjectLookup for the token authenticator.
type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) CreateUser(ctx context.Context, u *User) error {
	return pgx.BeginFunc(ctx, r.DB, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO users(id, role, name, email, password_hash, phone, city, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			u.ID, u.Role, u.Name, u.Email, u.PasswordHash, u.Phone, u.City, u.CreatedAt, u.UpdatedAt,
		)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrEmailTaken
		}
		if err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		if u.FarmerProfile == nil {
			return nil
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO farmer_profiles(user_id, property_name, address) VALUES ($1, $2, $3)`,
			u.ID, u.FarmerProfile.PropertyName, u.FarmerProfile.Address,
		)
		if err != nil {
			return fmt.Errorf("insert farmer profile: %w", err)
		}
		return nil
	})
}

const selectUser = `
	SELECT u.id, u.role, u.name, u.email, u.phone, u.city, u.password_hash, u.created_at, u.updated_at,
	       fp.property_name, fp.address
	FROM users u
	LEFT JOIN farmer_profiles fp ON fp.user_id = u.id`

func scanUser(row pgx.Row) (*User, error) {
	var (
		u             User
		property, adr *string
	)
	err := row.Scan(&u.ID, &u.Role, &u.Name, &u.Email, &u.Phone, &u.City, &u.PasswordHash,
		&u.CreatedAt, &u.UpdatedAt, &property, &adr)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if property != nil && adr != nil {
		u.FarmerProfile = &FarmerProfile{PropertyName: *property, Address: *adr}
	}
	return &u, nil
}

func (r *Repo) UserByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(r.DB.QueryRow(ctx, selectUser+` WHERE lower(u.email) = lower($1)`, email))
}

func (r *Repo) UserByID(ctx context.Context, id string) (*User, error) {
	if uuid.Validate(id) != nil {
		return nil, ErrNotFound
	}
	return scanUser(r.DB.QueryRow(ctx, selectUser+` WHERE u.id = $1`, id))
}

func (r *Repo) UpdateUser(ctx context.Context, u *User) error {
	return pgx.BeginFunc(ctx, r.DB, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, `
			UPDATE users SET name = $2, phone = $3, city = $4, updated_at = $5
			WHERE id = $1`, u.ID, u.Name, u.Phone, u.City, u.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return ErrNotFound
		}
		if u.FarmerProfile == nil {
			return nil
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO farmer_profiles(user_id, property_name, address) VALUES ($1, $2, $3)
			ON CONFLICT (user_id) DO UPDATE SET property_name = EXCLUDED.property_name, address = EXCLUDED.address`,
			u.ID, u.FarmerProfile.PropertyName, u.FarmerProfile.Address,
		)
		if err != nil {
			return fmt.Errorf("upsert farmer profile: %w", err)
		}
		return nil
	})
}

func (r *Repo) SetPassword(ctx context.Context, id, hash string, at time.Time) error {
	ct, err := r.DB.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`, id, hash, at)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) RoleOf(ctx context.Context, userID string) (auth.Role, error) {
	if uuid.Validate(userID) != nil {
		return "", auth.ErrUnknownSubject
	}
	var role string
	err := r.DB.QueryRow(ctx, `SELECT role FROM users WHERE id = $1`, userID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", auth.ErrUnknownSubject
	}
	if err != nil {
		return "", err
	}
	return auth.ParseRole(role)
}
