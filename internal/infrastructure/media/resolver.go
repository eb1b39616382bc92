package media

import (
	"fmt"
	"strings"

	"github.com/perchnet/user-service/internal/core/ports"
)

// Resolver builds externally reachable URLs for stored image ids. Media
// bytes are served by the media service; this service only links to them.
type Resolver struct {
	baseURL string
}

func NewResolver(baseURL string) *Resolver {
	return &Resolver{baseURL: strings.TrimRight(baseURL, "/")}
}

// ImageURL implements ports.MediaURLResolver.
func (r *Resolver) ImageURL(imageID *int64) string {
	if imageID == nil {
		return ""
	}
	return fmt.Sprintf("%s/images/%d", r.baseURL, *imageID)
}

var _ ports.MediaURLResolver = (*Resolver)(nil)
