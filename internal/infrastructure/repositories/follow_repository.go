package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/perchnet/user-service/internal/core/domain/apperror"
	"github.com/perchnet/user-service/internal/core/ports"
	"github.com/sirupsen/logrus"
)

type FollowRepository struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

func NewFollowRepository(db *sqlx.DB, logger *logrus.Logger) *FollowRepository {
	return &FollowRepository{db: db, logger: logger}
}

func (r *FollowRepository) Create(ctx context.Context, userID, followerID int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO follows (user_id, follower_id, created_at) VALUES ($1, $2, NOW())`,
		userID, followerID,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return apperror.Conflict("follow edge already exists", err)
		}
		return fmt.Errorf("failed to create follow: %w", err)
	}
	return nil
}

func (r *FollowRepository) Delete(ctx context.Context, userID, followerID int64) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM follows WHERE user_id = $1 AND follower_id = $2`,
		userID, followerID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete follow: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("follow edge not found", nil)
	}
	return nil
}

func (r *FollowRepository) Exists(ctx context.Context, userID, followerID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM follows WHERE user_id = $1 AND follower_id = $2)`,
		userID, followerID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to check follow: %w", err)
	}
	return exists, nil
}

func (r *FollowRepository) CountFollowers(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM follows WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count followers: %w", err)
	}
	return count, nil
}

func (r *FollowRepository) CountFollowing(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM follows WHERE follower_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count following: %w", err)
	}
	return count, nil
}

var _ ports.FollowRepository = (*FollowRepository)(nil)
