package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"

	"github.com/offbeatfm/offbeat/internal/cache"
	apperrors "github.com/offbeatfm/offbeat/internal/errors"
)

const cacheNamespace = "youtube"

// Response freshness varies by endpoint: search results churn constantly,
// video metadata is near-static, playlists sit in between.
const (
	ttlSearch        = time.Hour
	ttlVideos        = 2 * time.Hour
	ttlPlaylists     = 4 * time.Hour
	ttlPlaylistItems = time.Hour
)

type fetcher interface {
	Get(ctx context.Context, endpoint string, params map[string]string) (json.RawMessage, error)
}

// Service fronts the rate-limited YouTube Data API with a TTL cache. Misses
// are collapsed per cache key via singleflight, and upstream calls go through
// a circuit breaker so a dead API fails fast instead of piling up requests.
type Service struct {
	cache   *cache.Cache
	client  fetcher
	group   singleflight.Group
	breaker *gobreaker.CircuitBreaker
}

func NewService(c *cache.Cache, client fetcher) *Service {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "youtube",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed",
				"component", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	return &Service{
		cache:   c,
		client:  client,
		breaker: breaker,
	}
}

// Search runs a video search for the given term.
func (s *Service) Search(ctx context.Context, term string, maxResults int) (json.RawMessage, error) {
	if term == "" {
		return nil, apperrors.ValidationError("search term is required")
	}
	if maxResults <= 0 || maxResults > 50 {
		maxResults = 10
	}
	return s.fetch(ctx, EndpointSearch, map[string]string{
		"part":       "snippet",
		"type":       "video",
		"q":          term,
		"maxResults": strconv.Itoa(maxResults),
	}, ttlSearch)
}

// Video returns metadata for a single video id.
func (s *Service) Video(ctx context.Context, id string) (json.RawMessage, error) {
	if id == "" {
		return nil, apperrors.ValidationError("video id is required")
	}
	return s.fetch(ctx, EndpointVideos, map[string]string{
		"part": "snippet,contentDetails,statistics",
		"id":   id,
	}, ttlVideos)
}

// Playlist returns metadata for a single playlist id.
func (s *Service) Playlist(ctx context.Context, id string) (json.RawMessage, error) {
	if id == "" {
		return nil, apperrors.ValidationError("playlist id is required")
	}
	return s.fetch(ctx, EndpointPlaylists, map[string]string{
		"part": "snippet,contentDetails",
		"id":   id,
	}, ttlPlaylists)
}

// PlaylistItems returns the items of a playlist.
func (s *Service) PlaylistItems(ctx context.Context, playlistID string, maxResults int) (json.RawMessage, error) {
	if playlistID == "" {
		return nil, apperrors.ValidationError("playlist id is required")
	}
	if maxResults <= 0 || maxResults > 50 {
		maxResults = 50
	}
	return s.fetch(ctx, EndpointPlaylistItems, map[string]string{
		"part":       "snippet,contentDetails",
		"playlistId": playlistID,
		"maxResults": strconv.Itoa(maxResults),
	}, ttlPlaylistItems)
}

// fetch serves from the cache when possible and otherwise performs exactly one
// upstream call per key, no matter how many callers are waiting on it.
// Failed calls are never cached.
func (s *Service) fetch(ctx context.Context, endpoint string, params map[string]string, ttl time.Duration) (json.RawMessage, error) {
	key := cache.GenerateKey(cacheNamespace, endpoint, params)

	if value, ok := s.cache.Get(key); ok {
		return value.(json.RawMessage), nil
	}

	value, err, shared := s.group.Do(key, func() (any, error) {
		// A concurrent flight may have populated the cache while we queued.
		if cached, ok := s.cache.Get(key); ok {
			return cached, nil
		}

		result, err := s.breaker.Execute(func() (any, error) {
			return s.client.Get(ctx, endpoint, params)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return nil, apperrors.ExternalError("youtube api temporarily unavailable", err).
					WithContext("endpoint", endpoint)
			}
			return nil, err
		}

		payload := result.(json.RawMessage)
		s.cache.Set(key, payload, ttl)
		slog.Debug("Cached youtube response", "endpoint", endpoint, "ttl", ttl, "bytes", len(payload))
		return payload, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		slog.Debug("Collapsed concurrent youtube fetch", "endpoint", endpoint)
	}
	return value.(json.RawMessage), nil
}

// ClearCache removes every cached YouTube response and returns the count.
func (s *Service) ClearCache() int {
	removed := s.cache.DeletePrefix(cacheNamespace + ":")
	slog.Info("Cleared youtube cache", "removed", removed)
	return removed
}

// CacheStats reports overall cache stats plus the youtube-specific entry count.
type CacheStats struct {
	cache.Stats
	YouTubeEntries int `json:"youtubeEntries"`
}

func (s *Service) CacheStats() CacheStats {
	return CacheStats{
		Stats:          s.cache.GetStats(),
		YouTubeEntries: s.cache.CountPrefix(cacheNamespace + ":"),
	}
}

