package limiter

import (
	"context"
	"errors"
	"fmt"
)

// ErrRetriesExhausted is surfaced when every retry attempt has failed.
var ErrRetriesExhausted = errors.New("retries exhausted")

// TerminalError marks an error that must not be retried (bad request, auth
// failure - any 4xx other than 429). Terminal errors abort immediately
// without consuming a retry attempt.
type TerminalError struct {
	Err error
}

func (e *TerminalError) Error() string { return fmt.Sprintf("terminal: %v", e.Err) }
func (e *TerminalError) Unwrap() error { return e.Err }

// Terminal wraps err so the caller aborts instead of retrying.
func Terminal(err error) error {
	if err == nil {
		return nil
	}
	return &TerminalError{Err: err}
}

// IsTerminal reports whether err carries a TerminalError anywhere in its
// chain.
func IsTerminal(err error) bool {
	var terminal *TerminalError
	return errors.As(err, &terminal)
}

// StatusError carries an upstream HTTP-style status code so the retry loop
// can split transient from terminal failures.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
}

// NewStatusError classifies a status code: 5xx and 429 stay retryable,
// any other 4xx is wrapped as terminal.
func NewStatusError(code int, message string) error {
	err := &StatusError{StatusCode: code, Message: message}
	if code >= 400 && code < 500 && code != 429 {
		return Terminal(err)
	}
	return err
}

// IsRetryable reports whether the caller should retry err. Timeouts, 5xx and
// rate-limit responses are retryable; terminal errors and context
// cancellation are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if IsTerminal(err) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}
