package api

import (
	"testing"
	"time"
)

func TestFixedWindowLimiterAllowsUpToLimit(t *testing.T) {
	current := time.Date(2025, 6, 1, 12, 0, 10, 0, time.UTC)
	limiter := newFixedWindowLimiter(2, func() time.Time { return current })

	if !limiter.Allow() || !limiter.Allow() {
		t.Fatalf("expected the first two requests to be allowed")
	}
	if limiter.Allow() {
		t.Fatalf("expected the third request in the window to be denied")
	}
}

func TestFixedWindowLimiterResetsOnNewWindow(t *testing.T) {
	current := time.Date(2025, 6, 1, 12, 0, 59, 0, time.UTC)
	limiter := newFixedWindowLimiter(1, func() time.Time { return current })

	if !limiter.Allow() {
		t.Fatalf("expected the first request to be allowed")
	}
	if limiter.Allow() {
		t.Fatalf("expected the window to be exhausted")
	}

	current = current.Add(2 * time.Second)
	if !limiter.Allow() {
		t.Fatalf("expected a fresh window after the minute boundary")
	}
}

func TestLoadDiagnoseRateLimitPerMinuteFromEnv(t *testing.T) {
	cases := []struct {
		name  string
		value string
		want  int
	}{
		{name: "unset uses default", value: "", want: defaultDiagnoseRateLimitPerMinute},
		{name: "explicit value", value: "5", want: 5},
		{name: "zero disables", value: "0", want: 0},
		{name: "negative falls back", value: "-3", want: defaultDiagnoseRateLimitPerMinute},
		{name: "garbage falls back", value: "lots", want: defaultDiagnoseRateLimitPerMinute},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("DIAGNOSE_RATE_LIMIT_PER_MINUTE", tc.value)
			if got := loadDiagnoseRateLimitPerMinuteFromEnv(); got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestNewDiagnoseRateLimiterFromEnvDisabled(t *testing.T) {
	t.Setenv("DIAGNOSE_RATE_LIMIT_PER_MINUTE", "0")
	if limiter := newDiagnoseRateLimiterFromEnv(); limiter != nil {
		t.Fatalf("expected a zero limit to disable the limiter")
	}
}
