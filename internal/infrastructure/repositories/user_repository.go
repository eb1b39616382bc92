package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/perchnet/user-service/internal/core/domain/apperror"
	"github.com/perchnet/user-service/internal/core/domain/user"
	"github.com/perchnet/user-service/internal/core/ports"
	"github.com/sirupsen/logrus"
)

type UserRepository struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

func NewUserRepository(db *sqlx.DB, logger *logrus.Logger) *UserRepository {
	return &UserRepository{db: db, logger: logger}
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (username, email, password_hash, display_name, bio, profile_image_id, header_image_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		u.Username, u.Email, u.PasswordHash, u.DisplayName, u.Bio, u.ProfileImageID, u.HeaderImageID,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return apperror.Conflict("user already exists", err)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	var u user.User
	err := r.db.GetContext(ctx, &u, `SELECT * FROM users WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("user not found", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	var u user.User
	err := r.db.GetContext(ctx, &u, `SELECT * FROM users WHERE username = $1`, username)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("user not found", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	var u user.User
	err := r.db.GetContext(ctx, &u, `SELECT * FROM users WHERE email = $1`, email)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("user not found", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) GetIDByUsername(ctx context.Context, username string) (int64, error) {
	var id int64
	err := r.db.GetContext(ctx, &id, `SELECT id FROM users WHERE username = $1`, username)
	if err == sql.ErrNoRows {
		return 0, apperror.NotFound("user not found", err)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve username: %w", err)
	}
	return id, nil
}

func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	u.UpdatedAt = time.Now()
	query := `
		UPDATE users
		SET username = $1, email = $2, password_hash = $3, display_name = $4, bio = $5,
		    profile_image_id = $6, header_image_id = $7, last_login_at = $8, updated_at = $9
		WHERE id = $10`

	result, err := r.db.ExecContext(ctx, query,
		u.Username, u.Email, u.PasswordHash, u.DisplayName, u.Bio,
		u.ProfileImageID, u.HeaderImageID, u.LastLoginAt, u.UpdatedAt, u.ID,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return apperror.Conflict("username or email already taken", err)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("user not found", nil)
	}
	return nil
}

func (r *UserRepository) SearchUsernames(ctx context.Context, query string, limit, offset int) ([]string, error) {
	var usernames []string
	err := r.db.SelectContext(ctx, &usernames,
		`SELECT username FROM users WHERE username ILIKE $1 ORDER BY username LIMIT $2 OFFSET $3`,
		query+"%", limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search usernames: %w", err)
	}
	return usernames, nil
}

var _ ports.UserRepository = (*UserRepository)(nil)
