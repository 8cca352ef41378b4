package inject

import (
	"testing"
	"time"
)

func TestLimiterAllowsExactlyMax(t *testing.T) {
	l := NewLimiter(5, time.Minute)

	allowed := 0
	for i := 0; i < 20; i++ {
		if l.Allow() {
			allowed++
		}
	}
	if allowed != 5 {
		t.Errorf("burst allowed %d frames, want 5", allowed)
	}
}

func TestLimiterDenyDoesNotQueue(t *testing.T) {
	l := NewLimiter(1, time.Minute)

	if !l.Allow() {
		t.Fatal("first frame denied")
	}
	// Repeated denials must not accumulate anything that later converts
	// into extra allowances.
	for i := 0; i < 10; i++ {
		if l.Allow() {
			t.Fatal("frame allowed while bucket empty")
		}
	}
}

func TestLimiterRefills(t *testing.T) {
	l := NewLimiter(1, 50*time.Millisecond)

	if !l.Allow() {
		t.Fatal("first frame denied")
	}
	if l.Allow() {
		t.Fatal("second frame allowed immediately")
	}

	time.Sleep(150 * time.Millisecond)
	if !l.Allow() {
		t.Error("frame denied after the refill window elapsed")
	}
}

func TestLimiterDisabled(t *testing.T) {
	tests := []struct {
		name   string
		max    int
		window time.Duration
	}{
		{"zero max", 0, time.Minute},
		{"zero window", 10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLimiter(tt.max, tt.window)
			for i := 0; i < 100; i++ {
				if !l.Allow() {
					t.Fatal("disabled limiter denied a frame")
				}
			}
		})
	}
}
