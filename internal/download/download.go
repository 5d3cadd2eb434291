package download

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
)

// ErrDownload is returned when a post's media cannot be retrieved. The item
// is not marked processed and becomes eligible for retry on the next run.
var ErrDownload = errors.New("download: failed to fetch media")

// MediaDownloader retrieves raw media bytes from a URL.
type MediaDownloader interface {
	Download(ctx context.Context, mediaURL string) ([]byte, error)
}

// HTTPDownloader is the resty-backed MediaDownloader.
type HTTPDownloader struct {
	client *resty.Client
}

// NewHTTPDownloader creates a downloader with a shared HTTP client.
func NewHTTPDownloader() *HTTPDownloader {
	return &HTTPDownloader{client: resty.New()}
}

// Download fetches the media at mediaURL into memory.
func (d *HTTPDownloader) Download(ctx context.Context, mediaURL string) ([]byte, error) {
	if mediaURL == "" {
		return nil, fmt.Errorf("%w: empty media url", ErrDownload)
	}

	resp, err := d.client.R().SetContext(ctx).Get(mediaURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownload, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: server returned %s", ErrDownload, resp.Status())
	}

	return resp.Body(), nil
}

// FileExtension guesses the archive file extension from the media URL.
// TikTok stories are mp4 unless the URL points at an image.
func FileExtension(mediaURL string) string {
	lower := strings.ToLower(mediaURL)
	for _, ext := range []string{".jpg", ".jpeg", ".webp"} {
		if strings.Contains(lower, ext) {
			return ".jpg"
		}
	}
	return ".mp4"
}
