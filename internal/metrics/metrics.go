package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Hub metrics
var (
	// HubConnectedClients tracks currently connected websocket clients
	HubConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_connected_clients",
			Help: "Currently connected websocket clients",
		},
	)

	// HubActiveRooms tracks rooms with at least one member
	HubActiveRooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_active_rooms",
			Help: "Rooms with at least one member",
		},
	)

	// HubEventsEmittedTotal tracks fan-out deliveries by event type
	HubEventsEmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_events_emitted_total",
			Help: "Events delivered to clients by event type",
		},
		[]string{"type"},
	)

	// HubSlowClientsEvicted tracks clients dropped for full send buffers
	HubSlowClientsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_slow_clients_evicted_total",
			Help: "Clients disconnected because their send buffer was full",
		},
	)

	// HubDroppedFrames tracks inbound frames dropped as malformed
	HubDroppedFrames = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_dropped_frames_total",
			Help: "Inbound client frames dropped as malformed",
		},
	)
)

// Cache metrics
var (
	// CacheHitsTotal tracks cache hits
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total cache hits",
		},
	)

	// CacheMissesTotal tracks cache misses (absent or expired)
	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total cache misses, including expired entries",
		},
	)

	// CacheEvictionsTotal tracks entries removed by timers, sweeps or lazy eviction
	CacheEvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Entries removed by expiry timers, sweeps or lazy eviction",
		},
	)

	// CacheEntries tracks current entry count
	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Current number of cache entries, including not-yet-evicted expired ones",
		},
	)
)

// YouTube proxy metrics
var (
	// YouTubeAPICallsTotal tracks upstream YouTube API calls by endpoint and status
	YouTubeAPICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "youtube_api_calls_total",
			Help: "Upstream YouTube API calls by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)

	// YouTubeAPICallDuration tracks upstream call latency in seconds
	YouTubeAPICallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "youtube_api_call_duration_seconds",
			Help:    "Upstream YouTube API call duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint"},
	)
)

// WebSocket transport metrics
var (
	// WebSocketConnectionsRejected tracks upgrades rejected by the connection limiter
	WebSocketConnectionsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_connections_rejected_total",
			Help: "WebSocket upgrades rejected by the connection limiter",
		},
	)

	// WebSocketPingFailures tracks failed keepalive pings
	WebSocketPingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_ping_failures_total",
			Help: "Failed keepalive pings to websocket clients",
		},
	)
)
