package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rifa/internal/auth"
	"rifa/internal/auth/store"
	pkgerrors "rifa/pkg/domain-errors"
)

func newService(t *testing.T, ttl time.Duration) (*auth.Service, auth.User) {
	t.Helper()
	svc := auth.NewService(store.NewMemoryUsers(), store.NewMemoryRevocations(), []byte("test-signing-key"), ttl)
	u, err := svc.CreateUser(context.Background(), "vendedor", "s3cret")
	require.NoError(t, err)
	return svc, u
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc, u := newService(t, time.Hour)

	t.Run("valid credentials issue a bearer token", func(t *testing.T) {
		token, err := svc.Login(ctx, "vendedor", "s3cret")
		require.NoError(t, err)
		assert.Equal(t, "bearer", token.TokenType)

		claims, err := svc.ValidateToken(token.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, u.ID.String(), claims.UserID)
		assert.Equal(t, "vendedor", claims.Username)
		assert.NotEmpty(t, claims.JTI)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, "vendedor", "wrong")
		assert.True(t, pkgerrors.Is(err, pkgerrors.CodeUnauthorized))
	})

	t.Run("unknown user gets the same error", func(t *testing.T) {
		_, err := svc.Login(ctx, "nobody", "s3cret")
		assert.True(t, pkgerrors.Is(err, pkgerrors.CodeUnauthorized))
	})
}

func TestLogoutRevokesToken(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, time.Hour)

	token, err := svc.Login(ctx, "vendedor", "s3cret")
	require.NoError(t, err)
	_, err = svc.ValidateToken(token.AccessToken)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, token.AccessToken))

	_, err = svc.ValidateToken(token.AccessToken)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeUnauthorized))

	t.Run("other tokens stay valid", func(t *testing.T) {
		other, err := svc.Login(ctx, "vendedor", "s3cret")
		require.NoError(t, err)
		_, err = svc.ValidateToken(other.AccessToken)
		assert.NoError(t, err)
	})
}

func TestExpiredTokenRejected(t *testing.T) {
	svc, _ := newService(t, -time.Minute)
	token, err := svc.Login(context.Background(), "vendedor", "s3cret")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token.AccessToken)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeUnauthorized))
}

func TestTamperedTokenRejected(t *testing.T) {
	svc, _ := newService(t, time.Hour)
	other := auth.NewService(store.NewMemoryUsers(), store.NewMemoryRevocations(), []byte("different-key"), time.Hour)
	_, err := other.CreateUser(context.Background(), "vendedor", "s3cret")
	require.NoError(t, err)

	token, err := other.Login(context.Background(), "vendedor", "s3cret")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token.AccessToken)
	assert.Error(t, err)
}

func TestUsername(t *testing.T) {
	svc, u := newService(t, time.Hour)
	name, err := svc.Username(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "vendedor", name)
}
