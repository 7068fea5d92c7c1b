package worker

import (
	"testing"
	"time"
)

func TestExponentialBackoffGrowsAndCaps(t *testing.T) {
	jitter := 250 * time.Millisecond

	tests := []struct {
		attempt int
		base    time.Duration
	}{
		{0, 2 * time.Second},
		{1, 4 * time.Second},
		{2, 8 * time.Second},
		{3, 16 * time.Second},
		{10, 5 * time.Minute},
		{30, 5 * time.Minute},
	}

	for _, tt := range tests {
		got := ExponentialBackoff(tt.attempt)

		if got < tt.base || got > tt.base+jitter {
			t.Errorf("attempt %d: got %v, want within [%v, %v]", tt.attempt, got, tt.base, tt.base+jitter)
		}
	}
}
