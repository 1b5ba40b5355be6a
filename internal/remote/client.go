// ABOUTME: HTTP client for the remote trip store
// ABOUTME: Maps wire responses onto sentinel errors the reconciler understands

package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ErrUnauthorized means the capability token was missing or expired.
// Retryable only after a successful re-authentication.
var ErrUnauthorized = errors.New("unauthorized")

// ErrRejected means the remote store definitively refused the request
// (validation failure). Never retried.
var ErrRejected = errors.New("rejected by remote store")

// ErrNotFound means the remote record does not exist.
var ErrNotFound = errors.New("remote trip not found")

// TokenSource supplies the capability token attached to every call.
// Implementations may refresh tokens internally; Invalidate is called after
// an Unauthorized response so the next Token call re-authenticates.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

// StaticToken is a TokenSource for a fixed token (tests, long-lived keys).
type StaticToken string

// Token returns the fixed token.
func (s StaticToken) Token(context.Context) (string, error) { return string(s), nil }

// Invalidate is a no-op for static tokens.
func (s StaticToken) Invalidate() {}

// Config holds client configuration.
type Config struct {
	// BaseURL of the remote store, e.g. https://api.trekr.dev.
	BaseURL string
	// Tokens supplies the capability token per request.
	Tokens TokenSource
	// Timeout per request; defaults to 15s.
	Timeout time.Duration
}

// Client talks to the remote trip store.
type Client struct {
	baseURL string
	tokens  TokenSource
	httpc   *http.Client
}

// NewClient creates a remote store client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		tokens:  cfg.Tokens,
		httpc:   &http.Client{Timeout: cfg.Timeout},
	}
}

// CreateTrip pushes a new trip. The idempotency key guarantees a retried
// push returns the originally created record instead of a duplicate.
func (c *Client) CreateTrip(ctx context.Context, req CreateTripRequest, idempotencyKey string) (*Trip, error) {
	var created Trip
	err := c.do(ctx, http.MethodPost, "/trips", nil, req, map[string]string{
		"Idempotency-Key": idempotencyKey,
	}, &created)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateTrip replaces the content of an existing remote trip.
func (c *Client) UpdateTrip(ctx context.Context, id string, req CreateTripRequest) (*Trip, error) {
	var updated Trip
	err := c.do(ctx, http.MethodPut, "/trips/"+url.PathEscape(id), nil, req, nil, &updated)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// ListTrips fetches one page of trips.
func (c *Client) ListTrips(ctx context.Context, q ListQuery) (*ListResponse, error) {
	vals := url.Values{}
	if q.Page > 0 {
		vals.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		vals.Set("limit", strconv.Itoa(q.Limit))
	}
	if !q.From.IsZero() {
		vals.Set("from", q.From.UTC().Format(time.RFC3339))
	}
	if !q.To.IsZero() {
		vals.Set("to", q.To.UTC().Format(time.RFC3339))
	}
	if q.Search != "" {
		vals.Set("search", q.Search)
	}
	if !q.UpdatedSince.IsZero() {
		vals.Set("updated_since", q.UpdatedSince.UTC().Format(time.RFC3339Nano))
	}

	var resp ListResponse
	if err := c.do(ctx, http.MethodGet, "/trips", vals, nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TripsSince pages through every trip modified after the given marker,
// with full locations.
func (c *Client) TripsSince(ctx context.Context, since time.Time) ([]Trip, error) {
	var all []Trip
	page := 1
	for {
		resp, err := c.ListTrips(ctx, ListQuery{
			Page:         page,
			Limit:        100,
			UpdatedSince: since,
		})
		if err != nil {
			return nil, err
		}
		all = append(all, resp.Routes...)
		if page >= resp.Pagination.Pages || len(resp.Routes) == 0 {
			return all, nil
		}
		page++
	}
}

// GetTrip fetches a single remote trip with its locations.
func (c *Client) GetTrip(ctx context.Context, id string) (*Trip, error) {
	var trip Trip
	if err := c.do(ctx, http.MethodGet, "/trips/"+url.PathEscape(id), nil, nil, nil, &trip); err != nil {
		return nil, err
	}
	return &trip, nil
}

// DeleteTrip removes a remote trip. Deleting an id that is already gone is
// treated as success; the remote contract is idempotent.
func (c *Client) DeleteTrip(ctx context.Context, id string) error {
	err := c.do(ctx, http.MethodDelete, "/trips/"+url.PathEscape(id), nil, nil, nil, nil)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// do runs one JSON request/response exchange.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}, headers map[string]string, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("obtain token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		if c.tokens != nil {
			c.tokens.Invalidate()
		}
		return fmt.Errorf("%s %s: %w", method, path, ErrUnauthorized)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		var body ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return fmt.Errorf("%s %s: %w: %s", method, path, ErrRejected, errorDetail(body))
	default:
		return fmt.Errorf("%s %s: server returned %d", method, path, resp.StatusCode)
	}
}

func errorDetail(body ErrorResponse) string {
	if len(body.Fields) > 0 {
		return fmt.Sprintf("%s (%s: %s)", body.Error, body.Fields[0].Field, body.Fields[0].Message)
	}
	if body.Error != "" {
		return body.Error
	}
	return "validation failed"
}
