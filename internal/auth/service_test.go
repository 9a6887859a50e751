package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udms-pro/udms/internal/auth"
	"github.com/udms-pro/udms/internal/shared"
	"github.com/udms-pro/udms/internal/store"
)

func newService(t *testing.T) *auth.Service {
	t.Helper()
	s := store.New()
	seed, err := store.DefaultSeed()
	require.NoError(t, err)
	require.NoError(t, s.Replace(seed))
	return auth.NewService(auth.NewRepository(s))
}

func TestAuthenticateSuccess(t *testing.T) {
	svc := newService(t)
	user, err := svc.Authenticate(context.Background(), auth.Credentials{Identifier: "SuperAdmin@University.edu", Secret: "SuperSecure123!"})
	require.NoError(t, err)
	assert.Equal(t, "super-admin", user.ID)
	assert.Equal(t, shared.RoleAdmin, user.Role)
}

func TestAuthenticateInvalidCredentials(t *testing.T) {
	svc := newService(t)
	cases := []auth.Credentials{
		{Identifier: "superadmin@university.edu", Secret: "supersecure123!"},
		{Identifier: "nobody@university.edu", Secret: "SuperSecure123!"},
		{Identifier: "", Secret: "SuperSecure123!"},
		{Identifier: "superadmin@university.edu", Secret: ""},
	}
	for _, c := range cases {
		_, err := svc.Authenticate(context.Background(), c)
		assert.ErrorIs(t, err, shared.ErrInvalidCredentials, c.Identifier)
	}
}

func TestAuthenticateHonoursCancellation(t *testing.T) {
	svc := newService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Authenticate(ctx, auth.Credentials{Identifier: "superadmin@university.edu", Secret: "SuperSecure123!"})
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}
