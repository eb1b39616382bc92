package user

import (
	"regexp"
	"time"
)

type User struct {
	ID             int64      `json:"id" db:"id"`
	Username       string     `json:"username" db:"username"`
	Email          string     `json:"email" db:"email"`
	PasswordHash   string     `json:"-" db:"password_hash"`
	DisplayName    string     `json:"display_name" db:"display_name"`
	Bio            string     `json:"bio" db:"bio"`
	ProfileImageID *int64     `json:"profile_image_id" db:"profile_image_id"`
	HeaderImageID  *int64     `json:"header_image_id" db:"header_image_id"`
	LastLoginAt    *time.Time `json:"last_login_at" db:"last_login_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// PublicProfile is the derived, cacheable summary of a user: canonical
// profile fields plus the counters maintained by the invalidation consumers.
// IsFollowing / IsFollowingMe are viewer-relative and never cached.
type PublicProfile struct {
	UserID          int64  `json:"user_id"`
	Username        string `json:"username"`
	DisplayName     string `json:"display_name"`
	Bio             string `json:"bio"`
	ProfileImageURL string `json:"profile_image_url,omitempty"`
	HeaderImageURL  string `json:"header_image_url,omitempty"`
	FollowersCount  int    `json:"followers_count"`
	FollowingCount  int    `json:"following_count"`
	PostsCount      int    `json:"posts_count"`
	IsFollowing     *bool  `json:"is_following,omitempty"`
	IsFollowingMe   *bool  `json:"is_following_me,omitempty"`
}

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	emailPattern    = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,6}$`)
)

// ValidUsername reports whether a username contains only letters, digits and underscores.
func ValidUsername(username string) bool {
	return username != "" && len(username) <= 255 && usernamePattern.MatchString(username)
}

// ValidEmail reports whether an email address has a plausible shape.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// RegisterRequest represents the request to register a new user
type RegisterRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Bio      string `json:"bio,omitempty"`
}

// UpdateProfileRequest represents a partial profile update; nil fields are left untouched.
type UpdateProfileRequest struct {
	Username       *string `json:"username,omitempty"`
	Email          *string `json:"email,omitempty"`
	DisplayName    *string `json:"display_name,omitempty"`
	Bio            *string `json:"bio,omitempty"`
	ProfileImageID *int64  `json:"profile_image_id,omitempty"`
	HeaderImageID  *int64  `json:"header_image_id,omitempty"`
}

// UpdatedEvent is published to the event log whenever canonical user data
// changes. ChangedFields names exactly the fields that changed.
type UpdatedEvent struct {
	User          *User    `json:"user"`
	ChangedFields []string `json:"changedFields"`
}
