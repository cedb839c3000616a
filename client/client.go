// Package client is the storefront-side core: a typed client for the booking
// backend that maintains the two independent authenticated sessions, creates
// bookings, hands off to the payment provider, and reconciles the provider's
// redirect confirmation with backend state.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fitstack/fitstack-bookings/client/session"
	"github.com/fitstack/fitstack-bookings/internal/core/domain"
)

// Client talks to the booking backend. Every request resolves its credential
// through the session store at call time; nothing is cached in the client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	sessions   *session.Store
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a client for the backend at baseURL.
func New(baseURL string, sessions *session.Store, opts ...Option) *Client {
	c := &Client{
		baseURL:  baseURL,
		sessions: sessions,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Sessions exposes the session store (sign-out, inspection).
func (c *Client) Sessions() *session.Store {
	return c.sessions
}

// anonymous marks a request that never carries a credential.
const anonymous = domain.Role("")

// do performs one round trip. role names the endpoint's required context; a
// request whose role has no credential still goes out, unauthenticated, and
// the backend is the sole authority that rejects it. A 401/403 clears only
// the session of the role the endpoint required, never the other one.
func (c *Client) do(ctx context.Context, method, path string, role domain.Role, body, out any) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if role != anonymous {
		_, token, err := c.sessions.Resolve(ctx, role)
		if err != nil {
			return err
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	}

	return c.errorFromResponse(ctx, resp, role)
}

// apiError is the backend's error envelope.
type apiError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (c *Client) errorFromResponse(ctx context.Context, resp *http.Response, role domain.Role) error {
	var body apiError
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &body)
	if body.Error == "" {
		body.Error = string(raw)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		if role != anonymous {
			// Role-scoped purge: only the implicated session goes.
			_ = c.sessions.Clear(ctx, role)
		}
		sentinel := domain.ErrUnauthorized
		if resp.StatusCode == http.StatusForbidden {
			sentinel = domain.ErrForbidden
		}
		return domain.NewServiceError(sentinel, body.Error, body.Code)
	case http.StatusConflict:
		return domain.NewServiceError(domain.ErrBookingConflict, body.Error, body.Code)
	case http.StatusNotFound:
		return domain.NewServiceError(domain.ErrBookingNotFound, body.Error, body.Code)
	case http.StatusBadRequest:
		return domain.NewServiceError(domain.ErrInvalidBooking, body.Error, body.Code)
	case http.StatusUnprocessableEntity:
		return domain.NewServiceError(domain.ErrInvalidTransition, body.Error, body.Code)
	default:
		return fmt.Errorf("backend returned status %d: %s", resp.StatusCode, body.Error)
	}
}
