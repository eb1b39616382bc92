package ports

import "context"

// PostClient queries the external post service for derived data needed by
// profile summaries.
type PostClient interface {
	PostsCount(ctx context.Context, userID int64) (int, error)
	// UpdateProfileImage pushes the resolved profile image URL to the post
	// service's denormalized author records.
	UpdateProfileImage(ctx context.Context, userID int64, imageURL string) error
}

// MediaURLResolver turns stored image ids into externally reachable URLs.
// Media itself is hosted by an external collaborator.
type MediaURLResolver interface {
	// ImageURL returns "" for a nil id.
	ImageURL(imageID *int64) string
}
