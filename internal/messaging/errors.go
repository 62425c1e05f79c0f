package messaging

import "errors"

// TerminalError marks a handler failure that redelivery can never fix. The
// consumer acknowledges such messages after routing them to the dead-letter
// queue instead of leaving them for retry.
type TerminalError struct {
	Err error
}

func (e *TerminalError) Error() string { return e.Err.Error() }

func (e *TerminalError) Unwrap() error { return e.Err }

// Terminal wraps err so the consumer treats it as non-retryable. A nil err
// stays nil.
func Terminal(err error) error {
	if err == nil {
		return nil
	}
	return &TerminalError{Err: err}
}

func IsTerminal(err error) bool {
	var t *TerminalError
	return errors.As(err, &t)
}
