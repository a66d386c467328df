package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	apperrors "github.com/offbeatfm/offbeat/internal/errors"
	"github.com/offbeatfm/offbeat/internal/metrics"
)

const (
	defaultBaseURL = "https://www.googleapis.com/youtube/v3"
	requestTimeout = 10 * time.Second
)

// Supported Data API endpoints.
const (
	EndpointSearch        = "search"
	EndpointVideos        = "videos"
	EndpointPlaylists     = "playlists"
	EndpointPlaylistItems = "playlistItems"
)

// Client is a thin HTTP client for the YouTube Data API v3. It returns the
// raw JSON payload untouched so callers can cache and relay it as-is.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// Get performs a GET against the given endpoint with the given query
// parameters. The API key is appended last so it never appears in cache keys.
func (c *Client) Get(ctx context.Context, endpoint string, params map[string]string) (json.RawMessage, error) {
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, apperrors.InternalError("failed to build youtube request", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.YouTubeAPICallsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, apperrors.ExternalError("youtube api request failed", err).
			WithContext("endpoint", endpoint)
	}
	defer resp.Body.Close()

	metrics.YouTubeAPICallDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	metrics.YouTubeAPICallsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.ExternalError("failed to read youtube response", err).
			WithContext("endpoint", endpoint)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.ExternalError(
			fmt.Sprintf("youtube api returned status %d", resp.StatusCode), nil).
			WithContext("endpoint", endpoint).
			WithContext("status", resp.StatusCode)
	}

	if !json.Valid(body) {
		return nil, apperrors.ExternalError("youtube api returned invalid json", nil).
			WithContext("endpoint", endpoint)
	}
	return body, nil
}
