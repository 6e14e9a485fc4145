package resilience

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned without contacting the provider while its
// breaker is open or its half-open probes are used up.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// StatusError is a 5xx answer. The breaker counts it as a failure.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider answered %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// ClientConfig configures a provider Client.
type ClientConfig struct {
	// Name identifies the provider in the breaker and the Registry.
	Name string

	// Timeout bounds each attempt. Default 10s.
	Timeout time.Duration

	// MaxRetries is the number of attempts after the first. Zero sends once.
	MaxRetries uint64

	// InitialInterval and MaxInterval shape the exponential backoff between
	// attempts. Defaults 100ms and 5s.
	InitialInterval time.Duration
	MaxInterval     time.Duration

	// Breaker overrides DefaultBreakerConfig.
	Breaker *BreakerConfig

	// Registry, if set, tracks this client and its outcomes.
	Registry *Registry
}

// DefaultClientConfig returns a config with three retries.
func DefaultClientConfig(name string) ClientConfig {
	breaker := DefaultBreakerConfig()
	return ClientConfig{
		Name:            name,
		Timeout:         10 * time.Second,
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Breaker:         &breaker,
	}
}

// Client sends HTTP requests to one provider through its circuit breaker.
type Client struct {
	name     string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker[*http.Response]
	retries  uint64
	initial  time.Duration
	maxWait  time.Duration
	registry *Registry
}

// NewClient builds a Client and registers it when cfg.Registry is set.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 100 * time.Millisecond
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 5 * time.Second
	}
	breaker := DefaultBreakerConfig()
	if cfg.Breaker != nil {
		breaker = *cfg.Breaker
	}

	c := &Client{
		name:     cfg.Name,
		http:     &http.Client{Timeout: cfg.Timeout},
		retries:  cfg.MaxRetries,
		initial:  cfg.InitialInterval,
		maxWait:  cfg.MaxInterval,
		registry: cfg.Registry,
	}

	var onChange func(string, gobreaker.State, gobreaker.State)
	if c.registry != nil {
		onChange = func(name string, _, _ gobreaker.State) { c.registry.stateChanged(name) }
	}
	c.breaker = newBreaker(cfg.Name, breaker, onChange)

	if c.registry != nil {
		c.registry.track(c)
	}
	return c
}

// Name returns the provider name.
func (c *Client) Name() string { return c.name }

// State returns the breaker state.
func (c *Client) State() gobreaker.State { return c.breaker.State() }

// Counts returns the breaker counters for the current generation.
func (c *Client) Counts() gobreaker.Counts { return c.breaker.Counts() }

// Do sends req. Network errors and 5xx answers are retried up to MaxRetries
// times with exponential backoff. When every attempt got a 5xx, the last
// response is returned with a nil error so the caller can read it; the
// caller closes the body either way.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	var (
		last    *http.Response
		attempt int
	)
	keep := func(resp *http.Response) {
		if last != nil {
			discard(last)
		}
		last = resp
	}

	op := func() error {
		n := attempt
		attempt++
		resp, err := c.breaker.Execute(func() (*http.Response, error) {
			return c.send(ctx, req, n)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			keep(nil)
			return backoff.Permanent(ErrCircuitOpen)
		}
		keep(resp)
		return err
	}

	if err := backoff.Retry(op, c.policy(ctx)); err != nil {
		c.observe(err)
		if last != nil {
			return last, nil
		}
		return nil, err
	}

	c.observe(nil)
	return last, nil
}

func (c *Client) send(ctx context.Context, req *http.Request, attempt int) (*http.Response, error) {
	out := req.Clone(ctx)
	if attempt > 0 && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		out.Body = body
	}

	resp, err := c.http.Do(out)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return resp, &StatusError{StatusCode: resp.StatusCode}
	}
	return resp, nil
}

func (c *Client) policy(ctx context.Context) backoff.BackOffContext {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.initial
	exp.MaxInterval = c.maxWait
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, c.retries), ctx)
}

func (c *Client) observe(err error) {
	if c.registry != nil {
		c.registry.Observe(c.name, err)
	}
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}
