// Package remote talks to a listkeep server: JSON writes over HTTP and
// full-list snapshots over WebSocket.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/listkeep/internal/collection"
	"github.com/sony/gobreaker/v2"
)

// ErrUnavailable is returned while the circuit breaker is refusing writes.
var ErrUnavailable = errors.New("server unavailable")

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Unwrap lets errors.Is(err, collection.ErrNotFound) match a 404.
func (e *APIError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return collection.ErrNotFound
	}
	return nil
}

type Options struct {
	HTTPClient *http.Client
	// Breaker trips after this many consecutive failed writes.
	FailureThreshold uint32
	// OpenTimeout is how long a tripped breaker refuses writes.
	OpenTimeout time.Duration
	MinBackoff  time.Duration
	MaxBackoff  time.Duration
}

func (o *Options) withDefaults() {
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if o.FailureThreshold == 0 {
		o.FailureThreshold = 5
	}
	if o.OpenTimeout == 0 {
		o.OpenTimeout = 30 * time.Second
	}
	if o.MinBackoff == 0 {
		o.MinBackoff = 500 * time.Millisecond
	}
	if o.MaxBackoff == 0 {
		o.MaxBackoff = 30 * time.Second
	}
}

// Client is an authenticated connection to one listkeep server.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[any]
	logger  *slog.Logger

	minBackoff time.Duration
	maxBackoff time.Duration
}

func New(baseURL, token string, logger *slog.Logger, opts Options) *Client {
	opts.withDefaults()
	logger = logger.With("component", "remote")

	settings := gobreaker.Settings{
		Name:        "listkeep-writes",
		MaxRequests: 1,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		// Only transport failures and 5xx count against the server.
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.Status < 500
			}
			return err == nil
		},
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		http:       opts.HTTPClient,
		breaker:    gobreaker.NewCircuitBreaker[any](settings),
		logger:     logger,
		minBackoff: opts.MinBackoff,
		maxBackoff: opts.MaxBackoff,
	}
}

func (c *Client) Todos() *Todos {
	return &Todos{c: c}
}

func (c *Client) Journals() *Journals {
	return &Journals{c: c}
}

func (c *Client) authHeader() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+c.token)
	return h
}

// do sends a JSON request and decodes a JSON response into out when out is
// non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header = c.authHeader()
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var payload struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&payload)
		return &APIError{Status: resp.StatusCode, Message: payload.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// write runs a mutating request through the circuit breaker.
func (c *Client) write(ctx context.Context, method, path string, body, out any) error {
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.do(ctx, method, path, body, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

// BreakerState reports the write circuit breaker state.
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}
