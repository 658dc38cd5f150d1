package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers map[string]Role

func (f fakeUsers) RoleOf(_ context.Context, id string) (Role, error) {
	r, ok := f[id]
	if !ok {
		return "", ErrUnknownSubject
	}
	return r, nil
}

func newTestIssuer(now time.Time) *Issuer {
	iss := NewIssuer("test-secret-0123456789", time.Hour)
	iss.now = func() time.Time { return now }
	return iss
}

func TestIssueVerify(t *testing.T) {
	iss := newTestIssuer(time.Now())
	tok, err := iss.Issue("u-1", RoleFarmer)
	require.NoError(t, err)

	c, err := iss.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "u-1", c.Subject)
	assert.Equal(t, RoleFarmer, c.Role)
}

func TestVerify_Expired(t *testing.T) {
	issued := time.Now().Add(-2 * time.Hour)
	tok, err := newTestIssuer(issued).Issue("u-1", RoleConsumer)
	require.NoError(t, err)

	_, err = newTestIssuer(time.Now()).Verify(tok)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerify_Malformed(t *testing.T) {
	iss := newTestIssuer(time.Now())
	_, err := iss.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	other := NewIssuer("another-secret-987654321", time.Hour)
	tok, err := other.Issue("u-1", RoleFarmer)
	require.NoError(t, err)
	_, err = iss.Verify(tok)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestAuthenticate(t *testing.T) {
	iss := newTestIssuer(time.Now())
	a := &Authenticator{Issuer: iss, Users: fakeUsers{"f-1": RoleFarmer, "c-1": RoleConsumer}}

	tok, _ := iss.Issue("f-1", RoleFarmer)
	caller, err := a.Authenticate(context.Background(), tok)
	require.NoError(t, err)
	farmer, ok := caller.(Farmer)
	require.True(t, ok)
	assert.Equal(t, "f-1", farmer.ID())

	tok, _ = iss.Issue("c-1", RoleConsumer)
	caller, err = a.Authenticate(context.Background(), tok)
	require.NoError(t, err)
	_, ok = caller.(Consumer)
	assert.True(t, ok)

	tok, _ = iss.Issue("gone", RoleConsumer)
	_, err = a.Authenticate(context.Background(), tok)
	assert.ErrorIs(t, err, ErrUnknownSubject)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)

	ok, err := ComparePassword(hash, "s3cret!")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ComparePassword(hash, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)
}
