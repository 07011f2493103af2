package httpx

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestIsRetryableHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 599} {
		if !IsRetryableHTTPStatus(code) {
			t.Fatalf("expected %d retryable", code)
		}
	}
	for _, code := range []int{200, 400, 401, 404, 422} {
		if IsRetryableHTTPStatus(code) {
			t.Fatalf("expected %d not retryable", code)
		}
	}
}

func TestIsRetryableError(t *testing.T) {
	if !IsRetryableError(fmt.Errorf("wrap: %w", &StatusError{Service: "llm", StatusCode: 503})) {
		t.Fatalf("503 status error should retry")
	}
	if IsRetryableError(&StatusError{Service: "llm", StatusCode: 400}) {
		t.Fatalf("400 status error should not retry")
	}
	if !IsRetryableError(context.DeadlineExceeded) {
		t.Fatalf("deadline should retry")
	}
	if IsRetryableError(context.Canceled) {
		t.Fatalf("cancellation should not retry")
	}
}

func TestRetryAfterDuration(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("Retry-After", "30")
	if got := RetryAfterDuration(resp, time.Second, 10*time.Second); got != 10*time.Second {
		t.Fatalf("expected cap at 10s, got %s", got)
	}
	if got := RetryAfterDuration(nil, 2*time.Second, 0); got != 2*time.Second {
		t.Fatalf("expected fallback, got %s", got)
	}
}

func TestJitterSleepBounds(t *testing.T) {
	base := time.Second
	for i := 0; i < 50; i++ {
		got := JitterSleep(base)
		if got < 800*time.Millisecond || got > 1200*time.Millisecond {
			t.Fatalf("jitter out of bounds: %s", got)
		}
	}
}
