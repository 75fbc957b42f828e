// Package api is the client for the remote asset REST API. It wraps outbound
// requests, injects bearer tokens, and normalizes error messages across the
// heterogeneous error shapes the API produces.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// TokenSource resolves a bearer token for the API audience. An empty token
// with a nil error means "proceed without an Authorization header"; the
// server remains the authority on rejecting unauthenticated calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed-token TokenSource, used mainly in tests.
type StaticToken string

// Token implements TokenSource.
func (t StaticToken) Token(ctx context.Context) (string, error) {
	return string(t), nil
}

// APIError carries the HTTP status and the extracted human-readable message
// of a failed request. Status is zero for transport-level failures.
type APIError struct {
	Status  int
	Message string
	cause   error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// Unwrap exposes the underlying transport error when present.
func (e *APIError) Unwrap() error {
	return e.cause
}

// ErrorMessage extracts the user-facing message of a failed request,
// falling back to the raw error text for non-API failures.
func ErrorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

// Client performs HTTP requests against the asset API.
type Client struct {
	base   string
	http   *http.Client
	tokens TokenSource
	logger *slog.Logger
}

// NewClient constructs a Client for the given base URL.
func NewClient(base string, tokens TokenSource, logger *slog.Logger) *Client {
	return &Client{
		base:   base,
		http:   &http.Client{Timeout: 30 * time.Second},
		tokens: tokens,
		logger: logger,
	}
}

// Request executes method against base+endpoint with an optional JSON body.
// A 204 response yields a nil payload. Non-2xx responses return an *APIError
// whose message follows the priority detail > message > title > status text.
func (c *Client) Request(ctx context.Context, method, endpoint string, body any) (json.RawMessage, error) {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("api: marshal request body: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+endpoint, payload)
	if err != nil {
		return nil, fmt.Errorf("api: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		switch {
		case err != nil:
			if c.logger != nil {
				c.logger.Warn("token acquisition failed, proceeding without bearer",
					slog.String("endpoint", endpoint), slog.Any("error", err))
			}
		case token != "":
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	res, err := c.http.Do(req)
	if err != nil {
		if c.logger != nil {
			c.logger.Error("api request failed",
				slog.String("method", method), slog.String("endpoint", endpoint), slog.Any("error", err))
		}
		return nil, &APIError{Message: err.Error(), cause: err}
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		apiErr := &APIError{Status: res.StatusCode, Message: extractErrorMessage(res)}
		if c.logger != nil {
			c.logger.Error("api request rejected",
				slog.String("method", method), slog.String("endpoint", endpoint),
				slog.Int("status", res.StatusCode), slog.String("message", apiErr.Message))
		}
		return nil, apiErr
	}

	if res.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &APIError{Message: err.Error(), cause: err}
	}
	if len(data) == 0 {
		return nil, nil
	}
	return json.RawMessage(data), nil
}

// extractErrorMessage pulls a human-readable message out of an error
// response, tolerating the different body shapes the API emits.
func extractErrorMessage(res *http.Response) string {
	var body struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
		Title   string `json:"title"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err == nil {
		switch {
		case body.Detail != "":
			return body.Detail
		case body.Message != "":
			return body.Message
		case body.Title != "":
			return body.Title
		}
	}
	if text := http.StatusText(res.StatusCode); text != "" {
		return text
	}
	return "Unknown error"
}

func decode[T any](raw json.RawMessage) (T, error) {
	var v T
	if raw == nil {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("api: decode response: %w", err)
	}
	return v, nil
}
