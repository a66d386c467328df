package server

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// LimitReason describes why a websocket connection was rejected.
type LimitReason string

const (
	LimitReasonRate   LimitReason = "rate_limit"
	LimitReasonGlobal LimitReason = "global_limit"
	LimitReasonPerIP  LimitReason = "per_ip_limit"
)

// ConnectionLimits guards the websocket endpoint with three checks: a token
// bucket on connection attempts per IP, a global cap on concurrent
// connections, and a per-IP cap.
type ConnectionLimits struct {
	current atomic.Int64
	max     int64

	mu      sync.Mutex
	perIP   map[string]int
	maxPer  int
	buckets map[string]*bucketEntry
	rate    rate.Limit
	burst   int
	sweepAt time.Time
}

type bucketEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const (
	bucketSweepEvery = 5 * time.Minute
	bucketIdleExpiry = 10 * time.Minute
)

func NewConnectionLimits(globalMax int64, perIPMax int, attemptsPerSecond float64, burst int) *ConnectionLimits {
	return &ConnectionLimits{
		max:     globalMax,
		perIP:   make(map[string]int),
		maxPer:  perIPMax,
		buckets: make(map[string]*bucketEntry),
		rate:    rate.Limit(attemptsPerSecond),
		burst:   burst,
		sweepAt: time.Now().Add(bucketSweepEvery),
	}
}

// Acquire claims a connection slot for the given IP. On refusal the returned
// reason names the first limit that tripped.
func (l *ConnectionLimits) Acquire(ip string) (bool, LimitReason) {
	if !l.allowAttempt(ip) {
		return false, LimitReasonRate
	}

	for {
		current := l.current.Load()
		if current >= l.max {
			return false, LimitReasonGlobal
		}
		if l.current.CompareAndSwap(current, current+1) {
			break
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.perIP[ip] >= l.maxPer {
		l.current.Add(-1)
		return false, LimitReasonPerIP
	}
	l.perIP[ip]++
	return true, ""
}

// Release returns the slot claimed by Acquire.
func (l *ConnectionLimits) Release(ip string) {
	l.current.Add(-1)

	l.mu.Lock()
	defer l.mu.Unlock()
	if count := l.perIP[ip]; count > 1 {
		l.perIP[ip] = count - 1
	} else {
		delete(l.perIP, ip)
	}
}

// Current returns the number of held connection slots.
func (l *ConnectionLimits) Current() int64 {
	return l.current.Load()
}

func (l *ConnectionLimits) allowAttempt(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.After(l.sweepAt) {
		cutoff := now.Add(-bucketIdleExpiry)
		for key, entry := range l.buckets {
			if entry.lastSeen.Before(cutoff) {
				delete(l.buckets, key)
			}
		}
		l.sweepAt = now.Add(bucketSweepEvery)
	}

	entry, ok := l.buckets[ip]
	if !ok {
		entry = &bucketEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.buckets[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter.Allow()
}
