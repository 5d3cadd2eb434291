package fetcher

import (
	"context"
	"errors"

	"tiktok-monitor-go/internal/model"
)

// ErrFetch is returned when the post list for an account cannot be retrieved.
// The pipeline isolates it to the failing account.
var ErrFetch = errors.New("fetcher: failed to fetch posts")

// PostFetcher returns the currently visible posts for an account handle.
type PostFetcher interface {
	FetchPosts(ctx context.Context, handle string) ([]model.FetchedPost, error)
}
