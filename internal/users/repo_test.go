package users

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/ariefcatur/go-farm-market/internal/auth"
	"github.com/ariefcatur/go-farm-market/internal/postgres"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRepo(t *testing.T) *Repo {
	t.Helper()
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set")
	}
	ctx := context.Background()
	pool, err := postgres.Connect(ctx, dsn, 2)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	_, err = postgres.Migrate(ctx, pool, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return &Repo{DB: pool}
}

func TestRepo_CreateAndLookup(t *testing.T) {
	r := testRepo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	u := &User{
		ID:            uuid.NewString(),
		Role:          auth.RoleFarmer,
		Name:          "Joao",
		Email:         uuid.NewString() + "@example.com",
		Phone:         "19999990000",
		City:          "Campinas",
		PasswordHash:  "x",
		CreatedAt:     now,
		UpdatedAt:     now,
		FarmerProfile: &FarmerProfile{PropertyName: "Sitio", Address: "Estrada 1"},
	}
	require.NoError(t, r.CreateUser(ctx, u))

	got, err := r.UserByEmail(ctx, u.Email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	require.NotNil(t, got.FarmerProfile)
	assert.Equal(t, "Sitio", got.FarmerProfile.PropertyName)

	dup := *u
	dup.ID = uuid.NewString()
	dup.FarmerProfile = nil
	assert.ErrorIs(t, r.CreateUser(ctx, &dup), ErrEmailTaken)

	role, err := r.RoleOf(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleFarmer, role)

	_, err = r.RoleOf(ctx, uuid.NewString())
	assert.ErrorIs(t, err, auth.ErrUnknownSubject)
	_, err = r.RoleOf(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, auth.ErrUnknownSubject)
}
