package ai

import (
	"context"
	"fmt"
	"net/http"

	"github.com/leofalp/switchai/internal/utils"
)

// HTTPImageFetcher downloads images with a plain GET request.
type HTTPImageFetcher struct {
	Client *http.Client
}

// NewHTTPImageFetcher returns a fetcher using client, or http.DefaultClient
// when client is nil.
func NewHTTPImageFetcher(client *http.Client) *HTTPImageFetcher {
	return &HTTPImageFetcher{Client: client}
}

// Fetch implements ImageFetcher.
func (fetcher *HTTPImageFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	data, err := utils.DoGet(ctx, fetcher.Client, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image %s: %w", url, err)
	}
	return data, nil
}
