package ratelimit

import (
	"sync"
	"testing"
	"time"
)

func TestLimiterBurst(t *testing.T) {
	limiter := New(3, 0.1)

	for i := range 3 {
		if !limiter.Allow() {
			t.Fatalf("request %d should be allowed within burst", i)
		}
	}
	if limiter.Allow() {
		t.Error("request beyond burst should be dropped")
	}
}

func TestLimiterRefills(t *testing.T) {
	limiter := New(1, 100) // 1 token every 10ms

	if !limiter.Allow() {
		t.Fatal("first request should pass")
	}
	if limiter.Allow() {
		t.Fatal("bucket should be empty")
	}

	time.Sleep(20 * time.Millisecond)
	if !limiter.Allow() {
		t.Error("bucket should have refilled")
	}
}

func TestLimiterCapsAtMax(t *testing.T) {
	limiter := New(2, 1000)
	time.Sleep(10 * time.Millisecond)

	if got := limiter.Available(); got > 2 {
		t.Errorf("Available() = %v, must not exceed capacity", got)
	}
	if !limiter.IsFull() {
		t.Error("untouched limiter should report full")
	}
}

func TestLimiterConcurrentAccess(t *testing.T) {
	limiter := New(100, 0)

	var wg sync.WaitGroup
	allowed := make(chan bool, 200)
	for range 200 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed <- limiter.Allow()
		}()
	}
	wg.Wait()
	close(allowed)

	count := 0
	for ok := range allowed {
		if ok {
			count++
		}
	}
	if count != 100 {
		t.Errorf("allowed %d requests, want exactly 100", count)
	}
}

func TestPerChatLimiterIsolatesChats(t *testing.T) {
	pcl := NewPerChatLimiter(1, 0, nil)
	defer pcl.Stop()

	if !pcl.Allow("a") {
		t.Fatal("first message from chat a should pass")
	}
	if pcl.Allow("a") {
		t.Error("second message from chat a should be dropped")
	}
	if !pcl.Allow("b") {
		t.Error("chat b has its own bucket and should pass")
	}
	if got := pcl.ActiveCount(); got != 2 {
		t.Errorf("ActiveCount() = %d, want 2", got)
	}
}

func TestPerChatLimiterEmptyKey(t *testing.T) {
	pcl := NewPerChatLimiter(0, 0, nil)
	defer pcl.Stop()

	if !pcl.Allow("") {
		t.Error("empty chat id must never be limited")
	}
}

func TestPerChatLimiterStopTwice(t *testing.T) {
	pcl := NewPerChatLimiter(1, 1, nil)
	pcl.Stop()
	pcl.Stop() // must not panic
}
