package resilience

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

// Predefined errors for guarded operations.
var (
	// ErrCircuitOpen is returned when the circuit breaker rejects a call.
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// ClientConfig holds configuration for the guarded HTTP client.
type ClientConfig struct {
	// Name identifies this client in the registry and the circuit breaker.
	Name string

	// Timeout is the request timeout for individual HTTP calls.
	// Default: 10 seconds
	Timeout time.Duration

	// MaxRetries is the maximum number of retry attempts after the first
	// call. Ignored when NoRetry is set.
	// Default: 3
	MaxRetries uint64

	// NoRetry makes every request a single attempt.
	NoRetry bool

	// InitialInterval is the initial retry backoff interval.
	// Default: 100ms
	InitialInterval time.Duration

	// MaxInterval is the maximum retry backoff interval.
	// Default: 5 seconds
	MaxInterval time.Duration

	// CircuitBreaker is the circuit breaker configuration.
	// If nil, uses DefaultCircuitBreakerConfig.
	CircuitBreaker *CircuitBreakerConfig

	// Registry receives the client and its call outcomes (optional).
	Registry *Registry
}

// DefaultClientConfig returns sensible defaults for the guarded client.
func DefaultClientConfig(name string) ClientConfig {
	cbConfig := DefaultCircuitBreakerConfig(name)
	return ClientConfig{
		Name:            name,
		Timeout:         10 * time.Second,
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		CircuitBreaker:  &cbConfig,
	}
}

// SingleAttemptConfig returns defaults for a provider whose every call must
// reach the server exactly once: no retries, and a breaker that never opens,
// so a failure is always the provider's own answer.
func SingleAttemptConfig(name string) ClientConfig {
	cfg := DefaultClientConfig(name)
	cfg.NoRetry = true
	cfg.MaxRetries = 0
	cfg.CircuitBreaker.ReadyToTrip = NeverTrip
	return cfg
}

// Client is an HTTP client guarded by a circuit breaker, with optional
// retries on transient failures.
type Client struct {
	httpClient     *http.Client
	circuitBreaker *gobreaker.CircuitBreaker[*http.Response]
	config         ClientConfig
	registry       *Registry
}

// NewClient creates a new guarded HTTP client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.NoRetry {
		cfg.MaxRetries = 0
	} else if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 100 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 5 * time.Second
	}

	cbConfig := DefaultCircuitBreakerConfig(cfg.Name)
	if cfg.CircuitBreaker != nil {
		cbConfig = *cfg.CircuitBreaker
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		circuitBreaker: NewCircuitBreaker[*http.Response](cbConfig), //nolint:bodyclose // type param, not response
		config:         cfg,
		registry:       cfg.Registry,
	}

	if c.registry != nil {
		c.registry.Register(cfg.Name, c)
	}

	return c
}

// Name returns the client name.
func (c *Client) Name() string {
	return c.config.Name
}

// Do executes an HTTP request with circuit breaker protection.
// Transient failures (5xx, network errors) are retried with exponential
// backoff unless the client was built with NoRetry. Returns immediately with
// ErrCircuitOpen if the circuit breaker is open.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.DoWithContext(req.Context(), req)
}

// DoWithContext executes an HTTP request with the given context.
func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.config.InitialInterval
	bo.MaxInterval = c.config.MaxInterval
	bo.MaxElapsedTime = 0 // attempts are bounded by WithMaxRetries

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.config.MaxRetries), ctx)

	var lastResp *http.Response

	operation := func() error {
		if lastResp != nil {
			// Drop the 5xx response of the previous attempt.
			lastResp.Body.Close()
			lastResp = nil
		}

		// 5xx responses are returned as errors so they count as breaker failures.
		resp, err := c.circuitBreaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // caller closes
			r, err := c.httpClient.Do(req.Clone(ctx))
			if err != nil {
				return nil, err
			}
			if r.StatusCode >= 500 {
				return r, &ServerError{StatusCode: r.StatusCode}
			}
			return r, nil
		})

		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(ErrCircuitOpen)
			}
			if resp != nil {
				lastResp = resp
			}
			return err
		}

		lastResp = resp
		return nil
	}

	err := backoff.Retry(operation, policy)
	if err != nil && lastResp == nil {
		c.record(err)
		return nil, err
	}

	if err != nil {
		// Exhausted on 5xx: hand the last response to the caller.
		c.record(err)
	} else {
		c.record(nil)
	}
	return lastResp, nil
}

func (c *Client) record(err error) {
	if c.registry == nil {
		return
	}
	if err != nil {
		c.registry.RecordFailure(c.config.Name, err)
		return
	}
	c.registry.RecordSuccess(c.config.Name)
}

// ServerError represents an HTTP 5xx server error.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return "server error: " + http.StatusText(e.StatusCode)
}

// CircuitBreakerState returns the current state of the circuit breaker.
func (c *Client) CircuitBreakerState() gobreaker.State {
	return c.circuitBreaker.State()
}

// CircuitBreakerCounts returns the current counts of the circuit breaker.
func (c *Client) CircuitBreakerCounts() gobreaker.Counts {
	return c.circuitBreaker.Counts()
}
