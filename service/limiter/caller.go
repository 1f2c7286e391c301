// Package limiter wraps external calls in a blocking requests-per-window
// throttle and an exponential-backoff retry discipline. No request is ever
// dropped for rate reasons: when the window quota is reached the caller
// sleeps until capacity frees up.
package limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/lestrrat-go/backoff/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Config controls the throttle window and the retry schedule.
type Config struct {
	MaxRequestsPerWindow int           `json:"maxRequestsPerWindow" yaml:"maxRequestsPerWindow"`
	Window               time.Duration `json:"window" yaml:"window"`
	InitialBackoff       time.Duration `json:"initialBackoff" yaml:"initialBackoff"`
	MaxBackoff           time.Duration `json:"maxBackoff" yaml:"maxBackoff"`
	BackoffMultiplier    float64       `json:"backoffMultiplier" yaml:"backoffMultiplier"`
	MaxAttempts          int           `json:"maxAttempts" yaml:"maxAttempts"`
}

// DefaultConfig mirrors the limits a polite API consumer would use.
func DefaultConfig() Config {
	return Config{
		MaxRequestsPerWindow: 60,
		Window:               time.Minute,
		InitialBackoff:       time.Second,
		MaxBackoff:           time.Minute,
		BackoffMultiplier:    2,
		MaxAttempts:          7,
	}
}

// Validate returns an error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c.MaxRequestsPerWindow <= 0 {
		return fmt.Errorf("maxRequestsPerWindow must be > 0")
	}
	if c.Window <= 0 {
		return fmt.Errorf("window must be > 0")
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("maxAttempts must be > 0")
	}
	return nil
}

// Option customises a Caller.
type Option func(*Caller)

// WithLogger sets the structured logger; the default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Caller) { c.logger = logger }
}

// Caller enforces the window quota and retry schedule around any external
// call. It never panics; exhausted retries surface ErrRetriesExhausted.
type Caller struct {
	config  Config
	limiter *rate.Limiter
	policy  backoff.Policy
	logger  zerolog.Logger
}

// New creates a Caller from config; zero fields inherit defaults.
func New(config Config, options ...Option) *Caller {
	defaults := DefaultConfig()
	if config.MaxRequestsPerWindow == 0 {
		config.MaxRequestsPerWindow = defaults.MaxRequestsPerWindow
	}
	if config.Window == 0 {
		config.Window = defaults.Window
	}
	if config.InitialBackoff == 0 {
		config.InitialBackoff = defaults.InitialBackoff
	}
	if config.MaxBackoff == 0 {
		config.MaxBackoff = defaults.MaxBackoff
	}
	if config.BackoffMultiplier == 0 {
		config.BackoffMultiplier = defaults.BackoffMultiplier
	}
	if config.MaxAttempts == 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}
	perSecond := float64(config.MaxRequestsPerWindow) / config.Window.Seconds()
	c := &Caller{
		config:  config,
		limiter: rate.NewLimiter(rate.Limit(perSecond), config.MaxRequestsPerWindow),
		policy: backoff.Exponential(
			backoff.WithMinInterval(config.InitialBackoff),
			backoff.WithMaxInterval(config.MaxBackoff),
			backoff.WithMultiplier(config.BackoffMultiplier),
			backoff.WithMaxRetries(config.MaxAttempts-1),
		),
		logger: zerolog.Nop(),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Call runs fn under the throttle, retrying retryable failures with
// exponential backoff up to the configured attempt ceiling. Terminal errors
// abort immediately; exhausting retries wraps the last error in
// ErrRetriesExhausted.
func (c *Caller) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	attempt := 0
	controller := c.policy.Start(ctx)
	for backoff.Continue(controller) {
		// Blocking throttle: sleeps for the remainder of the window when
		// the quota is reached.
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		lastErr = err
		c.logger.Warn().
			Int("attempt", attempt).
			Int("maxAttempts", c.config.MaxAttempts).
			Err(err).
			Msg("external call failed, backing off")
		// The attempt ceiling is enforced here as well: WithMaxRetries(0)
		// means unlimited in the backoff policy.
		if attempt >= c.config.MaxAttempts {
			break
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrRetriesExhausted, attempt, lastErr)
}
