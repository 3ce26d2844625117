package ratelimit

import (
	"sync"
	"time"

	"github.com/puntodigital/cursosbot/internal/metrics"
)

// DefaultCleanupPeriod is how often inactive chat buckets are removed.
const DefaultCleanupPeriod = 5 * time.Minute

// PerChatLimiter keeps one token bucket per chat and drops buckets
// that have refilled completely.
type PerChatLimiter struct {
	mu            sync.RWMutex
	limiters      map[string]*Limiter
	maxTokens     float64
	refillRate    float64
	cleanupPeriod time.Duration
	metrics       *metrics.Metrics
	stopCh        chan struct{}
	stopOnce      sync.Once
}

// NewPerChatLimiter creates a per-chat limiter and starts its cleanup
// loop. Call Stop when shutting down.
func NewPerChatLimiter(maxTokens, refillRate float64, m *metrics.Metrics) *PerChatLimiter {
	pcl := &PerChatLimiter{
		limiters:      make(map[string]*Limiter),
		maxTokens:     maxTokens,
		refillRate:    refillRate,
		cleanupPeriod: DefaultCleanupPeriod,
		metrics:       m,
		stopCh:        make(chan struct{}),
	}
	go pcl.cleanupLoop()
	return pcl
}

// Allow reports whether the chat may send another message, consuming a
// token when it can. An empty chat id is never limited.
func (pcl *PerChatLimiter) Allow(chatID string) bool {
	if chatID == "" {
		return true
	}

	pcl.mu.RLock()
	limiter, exists := pcl.limiters[chatID]
	pcl.mu.RUnlock()

	if !exists {
		pcl.mu.Lock()
		limiter, exists = pcl.limiters[chatID]
		if !exists {
			limiter = New(pcl.maxTokens, pcl.refillRate)
			pcl.limiters[chatID] = limiter
		}
		pcl.mu.Unlock()
	}

	allowed := limiter.Allow()
	if !allowed {
		pcl.metrics.RecordRateLimiterDrop("chat")
	}
	return allowed
}

// ActiveCount returns the number of tracked chats.
func (pcl *PerChatLimiter) ActiveCount() int {
	pcl.mu.RLock()
	defer pcl.mu.RUnlock()
	return len(pcl.limiters)
}

func (pcl *PerChatLimiter) cleanupLoop() {
	ticker := time.NewTicker(pcl.cleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-pcl.stopCh:
			return
		case <-ticker.C:
			pcl.mu.Lock()
			for chatID, limiter := range pcl.limiters {
				if limiter.IsFull() {
					delete(pcl.limiters, chatID)
				}
			}
			pcl.mu.Unlock()
		}
	}
}

// Stop ends the cleanup goroutine. Safe to call multiple times.
func (pcl *PerChatLimiter) Stop() {
	pcl.stopOnce.Do(func() { close(pcl.stopCh) })
}
