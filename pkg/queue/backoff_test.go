package queue

import (
	"errors"
	"testing"
	"time"
)

func TestFixedBackoff_Delay(t *testing.T) {
	b := FixedBackoff{Duration: 500 * time.Millisecond}
	for _, attempt := range []int{-1, 1, 10} {
		if b.Delay(attempt) != 500*time.Millisecond {
			t.Errorf("attempt %d: expected 500ms, got %v", attempt, b.Delay(attempt))
		}
	}
}

func TestExponentialBackoff_Delay(t *testing.T) {
	b := ExponentialBackoff{Base: 100 * time.Millisecond, MaxDelay: 1 * time.Second}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{-1, 100 * time.Millisecond},
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{4, 1 * time.Second},
		{63, 1 * time.Second},
	}

	for _, tt := range tests {
		if got := b.Delay(tt.attempt); got != tt.expected {
			t.Errorf("attempt %d: expected %v, got %v", tt.attempt, tt.expected, got)
		}
	}
}

func TestExponentialBackoff_Overflow(t *testing.T) {
	b := ExponentialBackoff{Base: 1 * time.Hour, MaxDelay: 2 * time.Hour}
	if b.Delay(50) != 2*time.Hour {
		t.Errorf("expected max delay on overflow, got %v", b.Delay(50))
	}
}

func TestParseBackoff(t *testing.T) {
	tests := []struct {
		name string
		want BackoffStrategy
	}{
		{"", NoBackoff{}},
		{"none", NoBackoff{}},
		{"fixed", FixedBackoff{Duration: time.Second}},
		{"exponential", ExponentialBackoff{Base: time.Second, MaxDelay: time.Minute}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBackoff(tt.name, time.Second, time.Minute)
			if err != nil {
				t.Fatalf("ParseBackoff failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %#v, got %#v", tt.want, got)
			}
		})
	}

	if _, err := ParseBackoff("linear", time.Second, time.Minute); !errors.Is(err, ErrInvalidBackoff) {
		t.Errorf("expected ErrInvalidBackoff, got %v", err)
	}
}
