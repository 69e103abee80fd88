// Package httpclient is the outbound HTTP path to external collaborators:
// per-call timeout, client spans, a circuit breaker per peer and RED metrics.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/shoperr"
	"github.com/Zhima-Mochi/minishop-assistant/internal/observability"
	"github.com/Zhima-Mochi/minishop-assistant/internal/observability/logctx"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultTimeout = 10 * time.Second
	maxBodyBytes   = 4 << 20
)

type Config struct {
	Timeout time.Duration
	// ConsecutiveFailures opens the breaker; zero means 5.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing; zero means 30s.
	OpenTimeout time.Duration
	// Header is sent with every request, e.g. credentials.
	Header http.Header
	// Transport overrides the base round tripper, mostly for tests.
	Transport http.RoundTripper
}

type result struct {
	status int
	body   []byte
}

// StatusError is a collaborator answer outside 2xx.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("status %d", e.Status)
	}
	return fmt.Sprintf("status %d: %s", e.Status, e.Body)
}

// Client talks to one peer.
type Client struct {
	peer    string
	http    *http.Client
	timeout time.Duration
	header  http.Header
	breaker *gobreaker.CircuitBreaker[result]
	log     observability.Logger

	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

func New(peer string, cfg Config, tel observability.Observability) *Client {
	log, _, metrics := observability.Parts(tel)
	log = log.With(observability.F("component", "httpclient"), observability.F("peer", peer))

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	threshold := cfg.ConsecutiveFailures
	breaker := gobreaker.NewCircuitBreaker[result](gobreaker.Settings{
		Name:        peer,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit_state_changed",
				observability.F("from", from.String()),
				observability.F("to", to.String()),
			)
		},
	})

	return &Client{
		peer:         peer,
		http:         &http.Client{Transport: otelhttp.NewTransport(base)},
		timeout:      cfg.Timeout,
		header:       cfg.Header.Clone(),
		breaker:      breaker,
		log:          log,
		extCounter:   metrics.Counter(observability.MExternalRequests),
		extHistogram: metrics.Histogram(observability.MExternalRequestDuration),
	}
}

// GetJSON fetches url and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, endpoint, url string, out any) error {
	return c.do(ctx, endpoint, http.MethodGet, url, nil, out)
}

// PostJSON sends in as JSON and decodes the answer into out.
func (c *Client) PostJSON(ctx context.Context, endpoint, url string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("httpclient: encode %s request: %w", endpoint, err)
	}
	return c.do(ctx, endpoint, http.MethodPost, url, body, out)
}

func (c *Client) do(ctx context.Context, endpoint, method, url string, body []byte, out any) error {
	return c.observe(ctx, endpoint, func(ctx context.Context) (string, error) {
		res, err := c.breaker.Execute(func() (result, error) {
			return c.roundTrip(ctx, method, url, body)
		})
		if err != nil {
			return classify(c.peer, err)
		}
		if res.status < 200 || res.status > 299 {
			return "error", shoperr.Upstream(c.peer+" request failed", &StatusError{Status: res.status, Body: snippet(res.body)})
		}
		if out == nil || len(bytes.TrimSpace(res.body)) == 0 {
			return "success", nil
		}
		if err := json.Unmarshal(res.body, out); err != nil {
			return "bad_response", shoperr.Upstream(c.peer+" returned malformed JSON", err)
		}
		return "success", nil
	})
}

// Call runs fn under the peer's timeout, breaker and metrics. It serves
// collaborators reached through an SDK rather than plain JSON over HTTP.
func (c *Client) Call(ctx context.Context, endpoint string, fn func(ctx context.Context) error) error {
	return c.observe(ctx, endpoint, func(ctx context.Context) (string, error) {
		_, err := c.breaker.Execute(func() (result, error) {
			return result{}, fn(ctx)
		})
		if err != nil {
			return classify(c.peer, err)
		}
		return "success", nil
	})
}

func (c *Client) observe(ctx context.Context, endpoint string, fn func(ctx context.Context) (string, error)) error {
	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	outcome, err := fn(callCtx)
	cancel()

	c.extCounter.Add(1,
		observability.L("peer", c.peer),
		observability.L("endpoint", endpoint),
		observability.L("outcome", outcome),
	)
	c.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", c.peer),
		observability.L("endpoint", endpoint),
	)
	if err != nil {
		logctx.FromOr(ctx, c.log).Warn("external_request_failed",
			observability.F("endpoint", endpoint),
			observability.F("outcome", outcome),
			observability.F("error", err.Error()),
		)
	}
	return err
}

func classify(peer string, err error) (string, error) {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "circuit_open", shoperr.Upstream(peer+" unavailable", fmt.Errorf("%w: %w", shoperr.ErrCircuitOpen, err))
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout", shoperr.Upstream(peer+" timed out", err)
	default:
		return "error", shoperr.Upstream(peer+" request failed", err)
	}
}

// roundTrip reports server errors as failures so they count toward the breaker;
// client errors are the caller's fault and pass through as results.
func (c *Client) roundTrip(ctx context.Context, method, url string, body []byte) (result, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return result{}, err
	}
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return result{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return result{}, err
	}
	if resp.StatusCode >= 500 {
		return result{}, &StatusError{Status: resp.StatusCode, Body: snippet(data)}
	}
	return result{status: resp.StatusCode, body: data}, nil
}

func snippet(b []byte) string {
	const limit = 200
	s := string(bytes.TrimSpace(b))
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// State exposes the breaker state, e.g. for health reporting.
func (c *Client) State() string { return c.breaker.State().String() }

// HTTPClient returns the traced client, for SDKs that manage their own
// requests. Wrap their calls in Call.
func (c *Client) HTTPClient() *http.Client { return c.http }
