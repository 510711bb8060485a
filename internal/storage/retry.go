package storage

import (
	"errors"
	"net"
	"strings"
	"time"
)

// ErrRetryBudgetExhausted wraps the final failure after all attempts are
// spent.
var ErrRetryBudgetExhausted = errors.New("retry budget exhausted")

// WithBackoff runs op up to attempts times, sleeping between failures with
// the delay doubling each round (initial, 2*initial, ...). Only transient
// errors are retried; anything else fails immediately. sleep is injected so
// tests do not wait on real time.
func WithBackoff(attempts int, initial time.Duration, sleep func(time.Duration), op func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	delay := initial
	var lastErr error
	for i := 0; i < attempts; i++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !Transient(lastErr) {
			return lastErr
		}
		if i < attempts-1 {
			sleep(delay)
			delay *= 2
		}
	}
	return errors.Join(ErrRetryBudgetExhausted, lastErr)
}

// Transient classifies errors worth retrying: network failures and storage
// timeouts. Validation and constraint errors are permanent.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"timeout", "timed out", "connection refused", "connection reset", "broken pipe", "try again", "temporarily unavailable"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
