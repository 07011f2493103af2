package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/yungbote/pulseloop-backend/internal/platform/logger"
)

func TestComplete_SendsChatRequest(t *testing.T) {
	var got chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer k" {
			t.Errorf("unexpected auth header %q", auth)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"questions\":[]}"}}]}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL, Model: "gpt-4o-mini"}, logger.Nop())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	out, err := c.Complete(context.Background(), ChatRequest{System: "sys", User: "hi", Temperature: 0.7, MaxTokens: 1500, ExpectJSON: true})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != `{"questions":[]}` {
		t.Fatalf("unexpected content %q", out)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "hi" {
		t.Fatalf("unexpected messages %+v", got.Messages)
	}
	if got.Temperature == nil || *got.Temperature != 0.7 || got.MaxTokens != 1500 {
		t.Fatalf("unexpected sampling params temp=%v max=%d", got.Temperature, got.MaxTokens)
	}
	if got.ResponseFormat == nil || got.ResponseFormat.Type != "json_object" {
		t.Fatalf("expected json_object response format")
	}
}

func TestComplete_AzureRouting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/openai/deployments/quiz-gen/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("api-version") == "" {
			t.Errorf("missing api-version")
		}
		if r.Header.Get("api-key") != "k" {
			t.Errorf("missing api-key header")
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{APIKey: "k", AzureEndpoint: srv.URL, AzureDeployment: "quiz-gen"}, logger.Nop())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if out, err := c.Complete(context.Background(), ChatRequest{User: "hi"}); err != nil || out != "ok" {
		t.Fatalf("Complete: out=%q err=%v", out, err)
	}
}

func TestComplete_DropsRejectedTemperature(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatCompletionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if atomic.AddInt32(&calls, 1) == 1 {
			if req.Temperature == nil {
				t.Errorf("first call should carry temperature")
			}
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"Unsupported value: 'temperature' does not support 0.7"}}`))
			return
		}
		if req.Temperature != nil {
			t.Errorf("retry should omit temperature")
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL, Model: "custom"}, logger.Nop())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if out, err := c.Complete(context.Background(), ChatRequest{User: "hi", Temperature: 0.7}); err != nil || out != "ok" {
		t.Fatalf("Complete: out=%q err=%v", out, err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestComplete_NonRetryableError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL, MaxRetries: 2}, logger.Nop())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = c.Complete(context.Background(), ChatRequest{User: "hi"})
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("expected 401 error, got %v", err)
	}
}

func TestNewClient_RequiresKey(t *testing.T) {
	if _, err := NewClient(Config{}, logger.Nop()); err != ErrNotConfigured {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
