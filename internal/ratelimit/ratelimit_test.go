package ratelimit

import (
	"errors"
	"testing"
)

func TestUnlimitedWhenRateZero(t *testing.T) {
	l := NewLimiter(Config{})
	for i := 0; i < 1000; i++ {
		if err := l.Allow("anyone"); err != nil {
			t.Fatalf("request %d limited in unlimited mode: %v", i, err)
		}
	}
}

func TestBurstThenLimited(t *testing.T) {
	l := NewLimiter(Config{RequestsPerMinute: 60, BurstSize: 3})

	for i := 0; i < 3; i++ {
		if err := l.Allow("client"); err != nil {
			t.Fatalf("request %d within burst limited: %v", i, err)
		}
	}
	if err := l.Allow("client"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("error = %v, want ErrRateLimited", err)
	}
}

func TestClientsIsolated(t *testing.T) {
	l := NewLimiter(Config{RequestsPerMinute: 60, BurstSize: 1})

	if err := l.Allow("a"); err != nil {
		t.Fatal(err)
	}
	if err := l.Allow("a"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("client a: error = %v, want ErrRateLimited", err)
	}
	// Client b has its own bucket.
	if err := l.Allow("b"); err != nil {
		t.Errorf("client b limited by client a's bucket: %v", err)
	}
}

func TestBurstDefaultsToRate(t *testing.T) {
	l := NewLimiter(Config{RequestsPerMinute: 5})
	for i := 0; i < 5; i++ {
		if err := l.Allow("c"); err != nil {
			t.Fatalf("request %d limited: %v", i, err)
		}
	}
	if err := l.Allow("c"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("error = %v, want ErrRateLimited", err)
	}
}
