package services

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/perchnet/user-service/internal/core/domain/apperror"
	"github.com/perchnet/user-service/internal/core/domain/user"
	"github.com/perchnet/user-service/internal/core/ports"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type tokenClaims struct {
	Username  string `json:"username"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenAuthService issues and verifies HMAC-signed JWT pairs.
type TokenAuthService struct {
	users      ports.UserRepository
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *logrus.Logger
}

func NewTokenAuthService(users ports.UserRepository, secret string, accessTTL, refreshTTL time.Duration, logger *logrus.Logger) *TokenAuthService {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &TokenAuthService{
		users:      users,
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		logger:     logger,
	}
}

// Login implements ports.AuthService. The login field accepts either a
// username or an email address. Lookup failures and password mismatches
// collapse into the same unauthorized error so the response does not reveal
// which accounts exist.
func (s *TokenAuthService) Login(ctx context.Context, login, password string) (*ports.LoginResult, error) {
	var (
		u   *user.User
		err error
	)
	if user.ValidEmail(login) {
		u, err = s.users.GetByEmail(ctx, login)
	} else {
		u, err = s.users.GetByUsername(ctx, login)
	}
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.Unauthorized("invalid credentials", nil)
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, apperror.Unauthorized("invalid credentials", nil)
	}

	now := time.Now()
	u.LastLoginAt = &now
	if err := s.users.Update(ctx, u); err != nil && s.logger != nil {
		s.logger.WithField("user_id", u.ID).WithError(err).Warn("failed to record last login time")
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"user_id": u.ID, "username": u.Username}).Info("user logged in")
	}
	return s.issuePair(u)
}

// Refresh implements ports.AuthService.
func (s *TokenAuthService) Refresh(ctx context.Context, refreshToken string) (*ports.LoginResult, error) {
	claims, err := s.parse(refreshToken, tokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.Unauthorized("invalid refresh token", nil)
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return s.issuePair(u)
}

// VerifyAccessToken implements ports.AuthService.
func (s *TokenAuthService) VerifyAccessToken(token string) (*ports.Claims, error) {
	return s.parse(token, tokenTypeAccess)
}

func (s *TokenAuthService) issuePair(u *user.User) (*ports.LoginResult, error) {
	access, err := s.sign(u, tokenTypeAccess, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	refresh, err := s.sign(u, tokenTypeRefresh, s.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return &ports.LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}

func (s *TokenAuthService) sign(u *user.User, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		Username:  u.Username,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", u.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *TokenAuthService) parse(tokenString, wantType string) (*ports.Claims, error) {
	var claims tokenClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperror.Unauthorized("invalid token", err)
	}
	if claims.TokenType != wantType {
		return nil, apperror.Unauthorized("invalid token", nil)
	}

	var userID int64
	if _, scanErr := fmt.Sscanf(claims.Subject, "%d", &userID); scanErr != nil {
		return nil, apperror.Unauthorized("invalid token", scanErr)
	}
	out := &ports.Claims{UserID: userID, Username: claims.Username}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

var _ ports.AuthService = (*TokenAuthService)(nil)
