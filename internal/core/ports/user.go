package ports

import (
	"context"

	"github.com/perchnet/user-service/internal/core/domain/user"
)

// UserRepository defines the interface for user data operations against the
// system of record.
type UserRepository interface {
	Create(ctx context.Context, u *user.User) error
	GetByID(ctx context.Context, id int64) (*user.User, error)
	GetByUsername(ctx context.Context, username string) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetIDByUsername(ctx context.Context, username string) (int64, error)
	Update(ctx context.Context, u *user.User) error
	SearchUsernames(ctx context.Context, query string, limit, offset int) ([]string, error)
}

// UserService defines the interface for user business logic.
type UserService interface {
	Register(ctx context.Context, req *user.RegisterRequest) (*user.User, error)
	GetUser(ctx context.Context, id int64) (*user.User, error)
	UpdateProfile(ctx context.Context, id int64, req *user.UpdateProfileRequest) (*user.User, error)
	// GetPublicProfile resolves a profile summary through the cache.
	// viewerID 0 means anonymous; otherwise relationship flags are filled
	// in fresh from the follow graph.
	GetPublicProfile(ctx context.Context, username string, viewerID int64) (*user.PublicProfile, error)
	GetUsernameByID(ctx context.Context, id int64) (string, error)
	SearchUsernames(ctx context.Context, query string, limit, offset int) ([]string, error)
}
