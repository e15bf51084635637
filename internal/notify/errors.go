package notify

import "errors"

// SendError classifies a provider failure. Transient failures (network errors,
// rate limits) are retried on the backoff schedule; permanent ones (invalid
// recipient, template errors) are never retried.
type SendError struct {
	Permanent bool
	Err       error
}

func (e *SendError) Error() string {
	if e.Err == nil {
		return "send failed"
	}
	return e.Err.Error()
}

func (e *SendError) Unwrap() error { return e.Err }

func PermanentError(err error) error {
	return &SendError{Permanent: true, Err: err}
}

func TransientError(err error) error {
	return &SendError{Err: err}
}

// IsPermanent reports whether err is classified permanent. Unclassified errors
// default to transient so an over-eager provider wrapper cannot silently drop
// messages.
func IsPermanent(err error) bool {
	var se *SendError
	return errors.As(err, &se) && se.Permanent
}
