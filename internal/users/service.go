package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ariefcatur/go-farm-market/internal/apperr"
	"github.com/ariefcatur/go-farm-market/internal/auth"
	"github.com/ariefcatur/go-farm-market/internal/validate"
	"github.com/google/uuid"
)

type Service struct {
	store  Store
	tokens *auth.Issuer
	log    *slog.Logger
	now    func() time.Time
	newID  func() string
}

func NewService(store Store, tokens *auth.Issuer, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, tokens: tokens, log: log, now: time.Now, newID: uuid.NewString}
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if in.Role == auth.RoleFarmer && (in.PropertyName == nil || in.Address == nil) {
		return nil, apperr.Validation("propertyName and address are required for farmers")
	}

	switch _, err := s.store.UserByEmail(ctx, in.Email); {
	case err == nil:
		return nil, apperr.Conflict("email already in use")
	case !errors.Is(err, ErrNotFound):
		return nil, apperr.Internal(fmt.Errorf("lookup email: %w", err))
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("hash password: %w", err))
	}
	now := s.now().UTC()
	u := &User{
		ID:           s.newID(),
		Role:         in.Role,
		Name:         strings.TrimSpace(in.Name),
		Email:        in.Email,
		Phone:        strings.TrimSpace(in.Phone),
		City:         strings.TrimSpace(in.City),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.Role == auth.RoleFarmer {
		u.FarmerProfile = &FarmerProfile{PropertyName: *in.PropertyName, Address: *in.Address}
	}

	err = s.store.CreateUser(ctx, u)
	if errors.Is(err, ErrEmailTaken) {
		return nil, apperr.Conflict("email already in use")
	}
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("create user: %w", err))
	}
	s.log.Info("user registered", "user_id", u.ID, "role", u.Role)
	return s.session(u)
}

func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	u, err := s.store.UserByEmail(ctx, in.Email)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.Unauthenticated("invalid credentials")
	}
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("lookup email: %w", err))
	}
	ok, err := auth.ComparePassword(u.PasswordHash, in.Password)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("compare password: %w", err))
	}
	if !ok {
		return nil, apperr.Unauthenticated("invalid credentials")
	}
	return s.session(u)
}

func (s *Service) session(u *User) (*Session, error) {
	tok, err := s.tokens.Issue(u.ID, u.Role)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &Session{Token: tok, User: u}, nil
}

func (s *Service) Me(ctx context.Context, caller auth.Caller) (*User, error) {
	u, err := s.store.UserByID(ctx, caller.ID())
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("get user %s: %w", caller.ID(), err))
	}
	return u, nil
}

// Update applies a partial profile change. Farmer profile fields are
// ignored for consumers.
func (s *Service) Update(ctx context.Context, caller auth.Caller, in UpdateInput) (*User, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	u, err := s.Me(ctx, caller)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		u.Name = strings.TrimSpace(*in.Name)
	}
	if in.Phone != nil {
		u.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.City != nil {
		u.City = strings.TrimSpace(*in.City)
	}
	if _, isFarmer := caller.(auth.Farmer); isFarmer && (in.PropertyName != nil || in.Address != nil) {
		fp := FarmerProfile{}
		if u.FarmerProfile != nil {
			fp = *u.FarmerProfile
		}
		if in.PropertyName != nil {
			fp.PropertyName = *in.PropertyName
		}
		if in.Address != nil {
			fp.Address = *in.Address
		}
		if fp.PropertyName == "" || fp.Address == "" {
			return nil, apperr.Validation("propertyName and address are required for farmers")
		}
		u.FarmerProfile = &fp
	}
	u.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateUser(ctx, u); err != nil {
		return nil, apperr.Internal(fmt.Errorf("update user %s: %w", u.ID, err))
	}
	return u, nil
}

func (s *Service) ChangePassword(ctx context.Context, caller auth.Caller, in ChangePasswordInput) error {
	if err := validate.Struct(in); err != nil {
		return err
	}
	u, err := s.Me(ctx, caller)
	if err != nil {
		return err
	}
	ok, err := auth.ComparePassword(u.PasswordHash, in.CurrentPassword)
	if err != nil {
		return apperr.Internal(fmt.Errorf("compare password: %w", err))
	}
	if !ok {
		return apperr.Validation("current password is incorrect")
	}
	hash, err := auth.HashPassword(in.NewPassword)
	if err != nil {
		return apperr.Internal(fmt.Errorf("hash password: %w", err))
	}
	if err := s.store.SetPassword(ctx, u.ID, hash, s.now().UTC()); err != nil {
		return apperr.Internal(fmt.Errorf("set password %s: %w", u.ID, err))
	}
	return nil
}
