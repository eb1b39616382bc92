package postclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/perchnet/user-service/internal/core/ports"
	"github.com/sirupsen/logrus"
)

// Client talks to the post service's internal HTTP API for the derived
// data profiles need (post counts) and for pushing denormalized author
// fields back.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *logrus.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *logrus.Logger) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// PostsCount implements ports.PostClient.
func (c *Client) PostsCount(ctx context.Context, userID int64) (int, error) {
	url := fmt.Sprintf("%s/internal/users/%d/posts/count", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build posts count request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("posts count request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("posts count request returned status %d", resp.StatusCode)
	}

	var body struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("failed to decode posts count response: %w", err)
	}
	return body.Count, nil
}

// UpdateProfileImage implements ports.PostClient.
func (c *Client) UpdateProfileImage(ctx context.Context, userID int64, imageURL string) error {
	payload, err := json.Marshal(map[string]string{"profile_image_url": imageURL})
	if err != nil {
		return fmt.Errorf("failed to encode profile image payload: %w", err)
	}

	url := fmt.Sprintf("%s/internal/users/%d/profile-image", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build profile image request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("profile image request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("profile image request returned status %d", resp.StatusCode)
	}
	return nil
}

var _ ports.PostClient = (*Client)(nil)
