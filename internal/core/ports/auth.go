package ports

import (
	"context"
	"time"
)

// Claims is the verified identity extracted from an access token.
type Claims struct {
	UserID    int64
	Username  string
	ExpiresAt time.Time
}

// LoginResult carries the token pair issued on successful authentication.
type LoginResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// AuthService issues and verifies identity tokens. Token mechanics are kept
// minimal; the rest of the system only depends on VerifyAccessToken
// producing a verified principal.
type AuthService interface {
	Login(ctx context.Context, login, password string) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*LoginResult, error)
	VerifyAccessToken(token string) (*Claims, error)
}
