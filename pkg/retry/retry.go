// Package retry runs fallible crawl operations in a bounded loop.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	errs "peoplescraper/pkg/errors"
	"peoplescraper/pkg/logger"
)

// Operation is a function that might need retrying. attempt starts at 1.
type Operation func(attempt int) error

// OperationWithResult is a function that returns a result and might need retrying
type OperationWithResult[T any] func(attempt int) (T, error)

// Config holds retry configuration
type Config struct {
	// Op names the operation in logs and in ExhaustedError
	Op string
	// Fields adds target/page context to logs and to ExhaustedError
	Fields map[string]interface{}
	// MaxAttempts is the maximum number of attempts, at least 1
	MaxAttempts int
	// Backoff strategy to use
	Backoff BackoffStrategy
	// RetryIf determines if an error should be retried
	RetryIf func(error) bool
	// OnRetry is called before each retry attempt
	OnRetry func(attempt int, err error, delay time.Duration)
	// Context for cancellation
	Context context.Context
	// Logger for retry attempts
	Logger logger.Logger
}

// DefaultConfig returns a retry configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		Backoff:     DefaultExponentialBackoff(),
		RetryIf:     DefaultRetryIf,
		Context:     context.Background(),
		Logger:      logger.GetLogger(),
	}
}

// ExhaustedError is returned once an operation failed MaxAttempts times.
type ExhaustedError struct {
	Op       string
	Attempts int
	Fields   map[string]interface{}
	Err      error
}

func (e *ExhaustedError) Error() string {
	msg := fmt.Sprintf("%s failed after %d attempts", e.Op, e.Attempts)
	if len(e.Fields) > 0 {
		msg += fmt.Sprintf(" %v", e.Fields)
	}
	return msg + ": " + e.Err.Error()
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// IsExhausted reports whether err is, or wraps, an ExhaustedError.
func IsExhausted(err error) bool {
	var ex *ExhaustedError
	return errors.As(err, &ex)
}

// DefaultRetryIf retries typed errors by their type and everything else
// except context cancellation.
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var typed *errs.Error
	if errors.As(err, &typed) {
		return errs.IsRetryable(typed.Type)
	}

	return true
}

// normalized fills the zero values Do relies on.
func (c *Config) normalized() Config {
	out := Config{MaxAttempts: 1, RetryIf: DefaultRetryIf, Context: context.Background(), Logger: logger.NewNopLogger()}
	if c == nil {
		c = DefaultConfig()
	}
	out.Op, out.Fields, out.Backoff, out.OnRetry = c.Op, c.Fields, c.Backoff, c.OnRetry
	if c.MaxAttempts > 1 {
		out.MaxAttempts = c.MaxAttempts
	}
	if c.RetryIf != nil {
		out.RetryIf = c.RetryIf
	}
	if c.Context != nil {
		out.Context = c.Context
	}
	if c.Logger != nil {
		out.Logger = c.Logger
	}
	return out
}

// Do runs op at most MaxAttempts times, sleeping by Backoff in between.
// Non-retryable errors come back unchanged; running out of attempts
// returns *ExhaustedError wrapping the last failure.
func Do(op Operation, cfg *Config) error {
	c := cfg.normalized()
	log := c.Logger.WithFields(contextFields(&c))

	var lastErr error
	for attempt := 1; ; attempt++ {
		lastErr = op(attempt)
		switch {
		case lastErr == nil:
			if attempt > 1 {
				log.WithField("attempt", attempt).Debug("operation succeeded after retry")
			}
			return nil
		case !c.RetryIf(lastErr):
			log.WithError(lastErr).Debug("error is not retryable")
			return lastErr
		case attempt == c.MaxAttempts:
			log.ErrorWithFields("max retry attempts exceeded", map[string]interface{}{
				"attempts":   attempt,
				"last_error": lastErr.Error(),
			})
			return &ExhaustedError{Op: c.Op, Attempts: attempt, Fields: c.Fields, Err: lastErr}
		}

		var delay time.Duration
		if c.Backoff != nil {
			delay = c.Backoff.NextDelay(attempt)
		}
		if c.OnRetry != nil {
			c.OnRetry(attempt, lastErr, delay)
		}
		log.WarnWithFields("retrying operation", map[string]interface{}{
			"attempt":      attempt,
			"max_attempts": c.MaxAttempts,
			"delay_ms":     delay.Milliseconds(),
			"error":        lastErr.Error(),
		})

		if err := Wait(c.Context, delay); err != nil {
			log.WithField("attempt", attempt).Warn("retry cancelled")
			return fmt.Errorf("retry cancelled: %w", err)
		}
	}
}

// DoWithResult is Do for operations that produce a value.
func DoWithResult[T any](op OperationWithResult[T], cfg *Config) (T, error) {
	var result T
	err := Do(func(attempt int) error {
		var opErr error
		result, opErr = op(attempt)
		return opErr
	}, cfg)
	return result, err
}

func contextFields(c *Config) map[string]interface{} {
	fields := make(map[string]interface{}, len(c.Fields)+1)
	for k, v := range c.Fields {
		fields[k] = v
	}
	if c.Op != "" {
		fields["op"] = c.Op
	}
	return fields
}

// Retrier provides a reusable retry configuration
type Retrier struct {
	config Config
}

// NewRetrier creates a new retrier with the given configuration
func NewRetrier(cfg *Config) *Retrier {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Retrier{config: *cfg}
}

// Do executes op with the retrier's configuration under the given name and context.
func (r *Retrier) Do(ctx context.Context, name string, fields map[string]interface{}, op Operation) error {
	cfg := r.config
	cfg.Context = ctx
	cfg.Op = name
	cfg.Fields = fields
	return Do(op, &cfg)
}

// MaxAttempts returns the configured attempt bound.
func (r *Retrier) MaxAttempts() int {
	return r.config.MaxAttempts
}

// WithRetryIf returns a new retrier with an updated retry predicate
func (r *Retrier) WithRetryIf(fn func(error) bool) *Retrier {
	cfg := r.config
	cfg.RetryIf = fn
	return &Retrier{config: cfg}
}

// WithLogger returns a new retrier logging through l
func (r *Retrier) WithLogger(l logger.Logger) *Retrier {
	cfg := r.config
	cfg.Logger = l
	return &Retrier{config: cfg}
}
