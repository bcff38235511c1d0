// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package openrouter implements the client for the OpenRouter chat
// completions API.
package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SAADAT-Abu/Lexi/internal/model"
)

// newTestClient points a client at the given test server with throttling
// effectively disabled.
func newTestClient(server *httptest.Server, apiKey string) *Client {
	return NewClient(NewCredentials(apiKey)).
		WithBaseURL(server.URL).
		WithHTTPClient(server.Client()).
		WithRateLimit(1000, 1000)
}

func completionBody(content string) string {
	return fmt.Sprintf(`{
		"id": "gen-1",
		"model": "test/model",
		"choices": [{"message": {"role": "assistant", "content": %q}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 5, "completion_tokens": 7, "total_tokens": 12}
	}`, content)
}

// =============================================================================
// COMPLETION TESTS
// =============================================================================

func TestComplete_Success(t *testing.T) {
	var gotReq chatRequest
	var gotAuth, gotReferer, gotTitle string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		gotReferer = r.Header.Get("HTTP-Referer")
		gotTitle = r.Header.Get("X-Title")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		fmt.Fprint(w, completionBody("Hello from the assistant"))
	}))
	defer server.Close()

	client := newTestClient(server, "sk-or-test-key")
	history := []model.Message{
		model.NewUserMessage("first"),
		model.NewAssistantMessage("reply"),
		model.NewUserMessage("second"),
	}

	reply, err := client.Complete(context.Background(), "test/model", history)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if reply.Role != model.RoleAssistant {
		t.Errorf("reply role = %q, want assistant", reply.Role)
	}
	if reply.Content != "Hello from the assistant" {
		t.Errorf("reply content = %q", reply.Content)
	}

	// Full history must be resent, in order
	if len(gotReq.Messages) != 3 || gotReq.Messages[2].Content != "second" {
		t.Errorf("request should carry the full history, got %v", gotReq.Messages)
	}
	if gotReq.Model != "test/model" {
		t.Errorf("request model = %q", gotReq.Model)
	}
	if gotReq.Stream {
		t.Error("stream should be false")
	}

	if gotAuth != "Bearer sk-or-test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotReferer == "" || gotTitle != "Lexi" {
		t.Errorf("attribution headers missing: referer=%q title=%q", gotReferer, gotTitle)
	}
}

func TestComplete_NoCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not reach the network without credentials")
	}))
	defer server.Close()

	client := newTestClient(server, "")
	_, err := client.Complete(context.Background(), "test/model", []model.Message{model.NewUserMessage("hi")})
	if !errors.Is(err, ErrNoCredentials) {
		t.Errorf("expected ErrNoCredentials, got %v", err)
	}
}

func TestListModels_NoCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not reach the network without credentials")
	}))
	defer server.Close()

	client := newTestClient(server, "")
	if _, err := client.ListModels(context.Background()); !errors.Is(err, ErrNoCredentials) {
		t.Errorf("ListModels: expected ErrNoCredentials, got %v", err)
	}
	if _, err := client.FreeModels(context.Background()); !errors.Is(err, ErrNoCredentials) {
		t.Errorf("FreeModels: expected ErrNoCredentials, got %v", err)
	}
}

func TestComplete_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{
			name:    "401 maps to auth failed",
			status:  http.StatusUnauthorized,
			body:    `{"error": {"code": "invalid_key", "message": "bad key"}}`,
			wantErr: ErrAuthFailed,
		},
		{
			name:    "402 maps to insufficient credits",
			status:  http.StatusPaymentRequired,
			body:    `{"error": {"message": "add credits"}}`,
			wantErr: ErrInsufficientCredits,
		},
		{
			name:    "404 maps to model not found",
			status:  http.StatusNotFound,
			body:    `{"error": {"message": "no such model"}}`,
			wantErr: ErrModelNotFound,
		},
		{
			name:    "429 maps to rate limited",
			status:  http.StatusTooManyRequests,
			body:    `{"error": {"message": "slow down"}}`,
			wantErr: ErrRateLimited,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.body)
			}))
			defer server.Close()

			client := newTestClient(server, "sk-or-test-key")
			_, err := client.Complete(context.Background(), "m", []model.Message{model.NewUserMessage("hi")})
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestComplete_ServerErrorIsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error": {"code": "overloaded", "message": "try later"}}`)
	}))
	defer server.Close()

	client := newTestClient(server, "sk-or-test-key")
	_, err := client.Complete(context.Background(), "m", []model.Message{model.NewUserMessage("hi")})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusInternalServerError || apiErr.Code != "overloaded" {
		t.Errorf("unexpected APIError: %+v", apiErr)
	}
}

func TestComplete_NoRetry(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(server, "sk-or-test-key")
	_, err := client.Complete(context.Background(), "m", []model.Message{model.NewUserMessage("hi")})
	if err == nil {
		t.Fatal("expected an error")
	}
	if n := requests.Load(); n != 1 {
		t.Errorf("server saw %d requests, want exactly 1 (no retries)", n)
	}
}

func TestComplete_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": "gen-1", "choices": []}`)
	}))
	defer server.Close()

	client := newTestClient(server, "sk-or-test-key")
	_, err := client.Complete(context.Background(), "m", []model.Message{model.NewUserMessage("hi")})
	if !errors.Is(err, ErrEmptyCompletion) {
		t.Errorf("expected ErrEmptyCompletion, got %v", err)
	}
}

func TestComplete_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `this is not json`)
	}))
	defer server.Close()

	client := newTestClient(server, "sk-or-test-key")
	_, err := client.Complete(context.Background(), "m", []model.Message{model.NewUserMessage("hi")})
	if err == nil || !strings.Contains(err.Error(), "parse") {
		t.Errorf("expected a parse error, got %v", err)
	}
}

func TestComplete_ContextCancellation(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	client := newTestClient(server, "sk-or-test-key")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Complete(ctx, "m", []model.Message{model.NewUserMessage("hi")})
	if err == nil {
		t.Error("expected context error")
	}
}

func TestComplete_CredentialRotation(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, completionBody("ok"))
	}))
	defer server.Close()

	creds := NewCredentials("sk-or-old-key")
	client := NewClient(creds).
		WithBaseURL(server.URL).
		WithHTTPClient(server.Client()).
		WithRateLimit(1000, 1000)

	creds.Set("sk-or-new-key")
	if _, err := client.Complete(context.Background(), "m", []model.Message{model.NewUserMessage("hi")}); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if gotAuth != "Bearer sk-or-new-key" {
		t.Errorf("rotated credential not used: %q", gotAuth)
	}
}

// =============================================================================
// MODEL CATALOG TESTS
// =============================================================================

func catalogJSON(models []Model) string {
	data, _ := json.Marshal(modelsResponse{Data: models})
	return string(data)
}

func TestListModels(t *testing.T) {
	catalog := []Model{
		{ID: "free/one", Name: "Free One", Pricing: Pricing{Prompt: "0", Completion: "0"}},
		{ID: "paid/one", Name: "Paid One", Pricing: Pricing{Prompt: "0.000001", Completion: "0.000002"}},
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/models" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		fmt.Fprint(w, catalogJSON(catalog))
	}))
	defer server.Close()

	client := newTestClient(server, "sk-or-test-key")
	models, err := client.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("got %d models, want 2", len(models))
	}
	if !models[0].IsFree() {
		t.Error("free/one should report IsFree")
	}
	if models[1].IsFree() {
		t.Error("paid/one should not report IsFree")
	}
}

func TestModel_IsFree(t *testing.T) {
	tests := []struct {
		name    string
		pricing Pricing
		want    bool
	}{
		{"both zero strings", Pricing{Prompt: "0", Completion: "0"}, true},
		{"prompt paid", Pricing{Prompt: "0.001", Completion: "0"}, false},
		{"completion paid", Pricing{Prompt: "0", Completion: "0.001"}, false},
		{"empty pricing", Pricing{}, false},
		{"decimal zero is not free", Pricing{Prompt: "0.0", Completion: "0"}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := Model{Pricing: tc.pricing}
			if got := m.IsFree(); got != tc.want {
				t.Errorf("IsFree() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFreeModels_FiltersToFree(t *testing.T) {
	catalog := []Model{
		{ID: "paid/a", Pricing: Pricing{Prompt: "0.1", Completion: "0.1"}},
		{ID: "free/a", Pricing: Pricing{Prompt: "0", Completion: "0"}},
		{ID: "free/b", Pricing: Pricing{Prompt: "0", Completion: "0"}},
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, catalogJSON(catalog))
	}))
	defer server.Close()

	client := newTestClient(server, "sk-or-test-key")
	free, err := client.FreeModels(context.Background())
	if err != nil {
		t.Fatalf("FreeModels failed: %v", err)
	}
	if len(free) != 2 || free[0].ID != "free/a" || free[1].ID != "free/b" {
		t.Errorf("unexpected free set: %v", free)
	}
}

func TestFreeModels_FallbackWhenNoneFree(t *testing.T) {
	catalog := make([]Model, 15)
	for i := range catalog {
		catalog[i] = Model{
			ID:      fmt.Sprintf("paid/model-%d", i),
			Pricing: Pricing{Prompt: "0.001", Completion: "0.001"},
		}
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, catalogJSON(catalog))
	}))
	defer server.Close()

	client := newTestClient(server, "sk-or-test-key")
	models, err := client.FreeModels(context.Background())
	if err != nil {
		t.Fatalf("FreeModels failed: %v", err)
	}
	if len(models) != FreeModelFallbackCount {
		t.Errorf("fallback returned %d models, want %d", len(models), FreeModelFallbackCount)
	}
	if models[0].ID != "paid/model-0" {
		t.Errorf("fallback should preserve catalog order, got %s first", models[0].ID)
	}
}

func TestListModels_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, `upstream down`)
	}))
	defer server.Close()

	client := newTestClient(server, "sk-or-test-key")
	_, err := client.ListModels(context.Background())

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadGateway {
		t.Errorf("Status = %d, want 502", apiErr.Status)
	}
}
