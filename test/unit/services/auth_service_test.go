package services_test

import (
	"context"
	"testing"
	"time"

	impl "github.com/perchnet/user-service/internal/application/services"
	"github.com/perchnet/user-service/internal/core/domain/apperror"
	"github.com/perchnet/user-service/internal/core/domain/user"
	"github.com/perchnet/user-service/test/mocks"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAuthFixture(t *testing.T, password string) (*impl.TokenAuthService, *mocks.UserRepositoryMock) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	users := &mocks.UserRepositoryMock{
		GetByUsernameFn: func(ctx context.Context, username string) (*user.User, error) {
			if username != "alice" {
				return nil, apperror.NotFound("user not found", nil)
			}
			return &user.User{ID: 1, Username: "alice", PasswordHash: string(hash)}, nil
		},
		GetByIDFn: func(ctx context.Context, id int64) (*user.User, error) {
			if id != 1 {
				return nil, apperror.NotFound("user not found", nil)
			}
			return &user.User{ID: 1, Username: "alice", PasswordHash: string(hash)}, nil
		},
	}
	svc := impl.NewTokenAuthService(users, "test-secret", 15*time.Minute, 24*time.Hour, nil)
	return svc, users
}

func TestLogin_IssuesVerifiableTokenPair(t *testing.T) {
	svc, _ := newAuthFixture(t, "s3cretpass")

	result, err := svc.Login(context.Background(), "alice", "s3cretpass")
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)
	require.NotEmpty(t, result.RefreshToken)
	require.Equal(t, int64((15 * time.Minute).Seconds()), result.ExpiresIn)

	claims, err := svc.VerifyAccessToken(result.AccessToken)
	require.NoError(t, err)
	require.Equal(t, int64(1), claims.UserID)
	require.Equal(t, "alice", claims.Username)
	require.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt, time.Minute)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _ := newAuthFixture(t, "s3cretpass")

	_, err := svc.Login(context.Background(), "alice", "wrong")
	require.True(t, apperror.IsUnauthorized(err))
}

func TestLogin_UnknownUser(t *testing.T) {
	svc, _ := newAuthFixture(t, "s3cretpass")

	_, err := svc.Login(context.Background(), "mallory", "s3cretpass")
	require.True(t, apperror.IsUnauthorized(err))
}

func TestVerifyAccessToken_RejectsRefreshToken(t *testing.T) {
	svc, _ := newAuthFixture(t, "s3cretpass")

	result, err := svc.Login(context.Background(), "alice", "s3cretpass")
	require.NoError(t, err)

	_, err = svc.VerifyAccessToken(result.RefreshToken)
	require.True(t, apperror.IsUnauthorized(err), "a refresh token must not pass as an access token")
}

func TestRefresh_IssuesNewPair(t *testing.T) {
	svc, _ := newAuthFixture(t, "s3cretpass")

	result, err := svc.Login(context.Background(), "alice", "s3cretpass")
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), result.RefreshToken)
	require.NoError(t, err)

	claims, err := svc.VerifyAccessToken(refreshed.AccessToken)
	require.NoError(t, err)
	require.Equal(t, int64(1), claims.UserID)
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	svc, _ := newAuthFixture(t, "s3cretpass")

	result, err := svc.Login(context.Background(), "alice", "s3cretpass")
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), result.AccessToken)
	require.True(t, apperror.IsUnauthorized(err))
}

func TestVerifyAccessToken_RejectsTamperedToken(t *testing.T) {
	svc, _ := newAuthFixture(t, "s3cretpass")
	other := impl.NewTokenAuthService(&mocks.UserRepositoryMock{}, "other-secret", time.Minute, time.Hour, nil)

	result, err := svc.Login(context.Background(), "alice", "s3cretpass")
	require.NoError(t, err)

	_, err = other.VerifyAccessToken(result.AccessToken)
	require.True(t, apperror.IsUnauthorized(err))
}
