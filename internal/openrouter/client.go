// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package openrouter implements the client for the OpenRouter chat
// completions API.
package openrouter

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/SAADAT-Abu/Lexi/internal/model"
)

// Configuration constants for the OpenRouter API.
const (
	// DefaultBaseURL is the base URL for the OpenRouter API.
	DefaultBaseURL = "https://openrouter.ai/api/v1"

	// DefaultTimeout is the default timeout for API requests.
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion attacks.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit

	// FreeModelFallbackCount is how many models to surface when the
	// catalog reports no free models at all.
	FreeModelFallbackCount = 10
)

// Attribution headers sent with every request. OpenRouter uses these to
// credit traffic to the app.
const (
	defaultSiteURL  = "https://github.com/SAADAT-Abu/Lexi"
	defaultSiteName = "Lexi"
	userAgent       = "lexi/1.0.0"
)

// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
// Shared HTTP client with connection pooling for all OpenRouter requests.
// SECURITY: TLS verification required for production
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: false,
		},
	},
	Timeout: DefaultTimeout,
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNoCredentials indicates no API key is configured. Returned
	// before any network I/O is attempted.
	ErrNoCredentials = errors.New("OpenRouter API key not configured")

	// ErrAuthFailed indicates authentication failed (invalid or expired API key).
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")

	// ErrModelNotFound indicates the requested model does not exist.
	ErrModelNotFound = errors.New("model not found")

	// ErrInsufficientCredits indicates the account has insufficient credits.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrEmptyCompletion indicates the API returned a well-formed response
	// with no choices to extract a reply from.
	ErrEmptyCompletion = errors.New("completion response contained no choices")
)

// APIError represents a non-2xx response from the OpenRouter API.
type APIError struct {
	Code    string
	Message string
	Status  int
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("OpenRouter error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("OpenRouter error (HTTP %d): %s", e.Status, e.Message)
}

// apiErrorResponse is the wire shape of an API error body.
type apiErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// chatRequest is the wire shape of POST /chat/completions.
type chatRequest struct {
	Model    string          `json:"model"`
	Messages []model.Message `json:"messages"`
	Stream   bool            `json:"stream"`
}

// chatResponse is the wire shape of a completion response.
type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      model.Message `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the OpenRouter API. Credentials are read from the
// injected holder on every request, so a rotated key takes effect
// without rebuilding the client.
//
// The client performs exactly one round trip per call: failures surface
// to the caller as-is and nothing is retried. Callers own the decision
// to resend.
type Client struct {
	creds      *Credentials
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	siteURL    string
	siteName   string
}

// NewClient creates a client using the given credential holder.
func NewClient(creds *Credentials) *Client {
	return &Client{
		creds:      creds,
		baseURL:    DefaultBaseURL,
		httpClient: sharedHTTPClient,
		// Outgoing request throttle: sustained 2 req/s with small bursts.
		limiter:  rate.NewLimiter(rate.Limit(2), 4),
		siteURL:  defaultSiteURL,
		siteName: defaultSiteName,
	}
}

// WithBaseURL sets a custom base URL for the API.
func (c *Client) WithBaseURL(url string) *Client {
	c.baseURL = trimTrailingSlash(url)
	return c
}

// WithHTTPClient sets a custom HTTP client.
func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	c.httpClient = httpClient
	return c
}

// WithRateLimit sets the outgoing request throttle.
func (c *Client) WithRateLimit(perSecond float64, burst int) *Client {
	c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	return c
}

// WithTimeout sets the per-request timeout. The shared transport is
// kept so connection pooling still applies.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	clone := *c.httpClient
	clone.Timeout = timeout
	c.httpClient = &clone
	return c
}

// WithSiteURL sets the HTTP-Referer attribution header.
func (c *Client) WithSiteURL(url string) *Client {
	c.siteURL = url
	return c
}

// WithSiteName sets the X-Title attribution header.
func (c *Client) WithSiteName(name string) *Client {
	c.siteName = name
	return c
}

// Credentials returns the injected credential holder.
func (c *Client) Credentials() *Credentials {
	return c.creds
}

// =============================================================================
// LOGGING (without sensitive data)
// =============================================================================

// logRequest logs an API request without exposing sensitive data.
// SECURITY: Does not log headers (may contain auth) or body (may contain
// conversation content).
func (c *Client) logRequest(req *http.Request) {
	log.Printf("API Request: %s %s", req.Method, req.URL.Path)
}

// logResponse logs an API response with duration.
func (c *Client) logResponse(resp *http.Response, duration time.Duration) {
	log.Printf("API Response: %d %s (%v)", resp.StatusCode, resp.Status, duration)
}

// =============================================================================
// COMPLETIONS
// =============================================================================

// Complete performs a single chat completion round trip with the full
// message history and returns the assistant's reply.
//
// Complete never retries: rate limits, server errors, and network
// failures are all returned to the caller on the first occurrence.
func (c *Client) Complete(ctx context.Context, modelID string, messages []model.Message) (model.Message, error) {
	if !c.creds.IsConfigured() {
		return model.Message{}, ErrNoCredentials
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return model.Message{}, err
	}

	reqBody := chatRequest{
		Model:    modelID,
		Messages: messages,
		Stream:   false,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return model.Message{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return model.Message{}, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)
	c.logRequest(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)

	// SECURITY: Clear Authorization header immediately after the request
	// to keep it out of any later logging of the request value.
	req.Header.Del("Authorization")

	if err != nil {
		return model.Message{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	c.logResponse(resp, time.Since(start))

	body, err := readResponse(resp)
	if err != nil {
		return model.Message{}, err
	}

	if resp.StatusCode != http.StatusOK {
		return model.Message{}, handleErrorResponse(resp.StatusCode, body)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return model.Message{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return model.Message{}, ErrEmptyCompletion
	}

	reply := chatResp.Choices[0].Message
	if reply.Role == "" {
		reply.Role = model.RoleAssistant
	}
	return reply, nil
}

// =============================================================================
// MODEL CATALOG
// =============================================================================

// ListModels retrieves the model catalog. The credential is checked
// before any I/O, same as Complete: every endpoint requires the bearer
// key.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	if !c.creds.IsConfigured() {
		return nil, ErrNoCredentials
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)
	c.logRequest(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	req.Header.Del("Authorization")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	c.logResponse(resp, time.Since(start))

	body, err := readResponse(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, handleErrorResponse(resp.StatusCode, body)
	}

	var modelsResp modelsResponse
	if err := json.Unmarshal(body, &modelsResp); err != nil {
		return nil, fmt.Errorf("failed to parse models response: %w", err)
	}
	return modelsResp.Data, nil
}

// FreeModels returns the free subset of the catalog. When the catalog
// reports no free models, the first FreeModelFallbackCount models are
// returned instead so the picker is never empty.
func (c *Client) FreeModels(ctx context.Context) ([]Model, error) {
	all, err := c.ListModels(ctx)
	if err != nil {
		return nil, err
	}

	free := make([]Model, 0, len(all))
	for _, m := range all {
		if m.IsFree() {
			free = append(free, m)
		}
	}
	if len(free) > 0 {
		return free, nil
	}

	if len(all) > FreeModelFallbackCount {
		all = all[:FreeModelFallbackCount]
	}
	return all, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// setHeaders sets the required headers for OpenRouter API requests.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.creds.Get())
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	if c.siteURL != "" {
		req.Header.Set("HTTP-Referer", c.siteURL)
	}
	if c.siteName != "" {
		req.Header.Set("X-Title", c.siteName)
	}
}

// readResponse reads the response body with a size limit.
// SECURITY: Response size limit prevents memory exhaustion.
func readResponse(resp *http.Response) ([]byte, error) {
	limitedReader := io.LimitReader(resp.Body, MaxResponseSize)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// handleErrorResponse converts HTTP error responses to appropriate Go errors.
func handleErrorResponse(statusCode int, body []byte) error {
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		orErr := &APIError{
			Code:    apiErr.Error.Code,
			Message: apiErr.Error.Message,
			Status:  statusCode,
		}

		switch statusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", ErrAuthFailed, orErr.Message)
		case http.StatusPaymentRequired:
			return fmt.Errorf("%w: %s", ErrInsufficientCredits, orErr.Message)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrModelNotFound, orErr.Message)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", ErrRateLimited, orErr.Message)
		default:
			return orErr
		}
	}

	// Fallback for unparseable error responses
	switch statusCode {
	case http.StatusUnauthorized:
		return ErrAuthFailed
	case http.StatusPaymentRequired:
		return ErrInsufficientCredits
	case http.StatusNotFound:
		return ErrModelNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return &APIError{
			Message: string(body),
			Status:  statusCode,
		}
	}
}

func trimTrailingSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
