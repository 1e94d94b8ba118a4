package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPFetcher reads GET {BaseURL}/v1/contents/{id}/image.
type HTTPFetcher struct {
	BaseURL string
	Client  *http.Client
	// Token is sent as a bearer token when set.
	Token string
}

func NewHTTPFetcher(baseURL string) *HTTPFetcher {
	return &HTTPFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, contentID string) (*Status, error) {
	endpoint := fmt.Sprintf("%s/v1/contents/%s/image", f.BaseURL, url.PathEscape(contentID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if f.Token != "" {
		req.Header.Set("Authorization", "Bearer "+f.Token)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch image status: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	var st Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, fmt.Errorf("decode image status: %w", err)
	}
	return &st, nil
}

var _ Fetcher = (*HTTPFetcher)(nil)
