package server

import (
	"testing"
	"time"
)

func TestRateLimiterEnforcesLimit(t *testing.T) {
	limiter := newRateLimiter(2, time.Minute)

	if !limiter.Allow("key-1") {
		t.Fatalf("first call should pass")
	}
	if !limiter.Allow("key-1") {
		t.Fatalf("second call should pass")
	}
	if limiter.Allow("key-1") {
		t.Fatalf("third call should be limited")
	}
}

func TestRateLimiterIsolatesKeys(t *testing.T) {
	limiter := newRateLimiter(1, time.Minute)

	if !limiter.Allow("key-1") {
		t.Fatalf("key-1 should pass")
	}
	if !limiter.Allow("key-2") {
		t.Fatalf("key-2 has its own budget")
	}
	if limiter.Allow("key-1") {
		t.Fatalf("key-1 should be limited")
	}
}

func TestRateLimiterWindowReset(t *testing.T) {
	limiter := newRateLimiter(1, 20*time.Millisecond)

	if !limiter.Allow("key-1") {
		t.Fatalf("first call should pass")
	}
	if limiter.Allow("key-1") {
		t.Fatalf("second call within window should be limited")
	}

	time.Sleep(30 * time.Millisecond)
	if !limiter.Allow("key-1") {
		t.Fatalf("call after window should pass")
	}
}

func TestRateLimiterRejectsEmptyKey(t *testing.T) {
	limiter := newRateLimiter(5, time.Minute)
	if limiter.Allow("") {
		t.Fatalf("empty key must never pass")
	}
}
