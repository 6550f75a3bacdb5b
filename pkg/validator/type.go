package validator

import "errors"

var (
	ErrMissingCounter    = errors.New("counter missing")
	ErrNonNumericCounter = errors.New("counter not numeric")
	ErrNegativeCounter   = errors.New("counter negative")
)

// Reason gives a short label for a rejection, for metrics and logs.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingCounter):
		return "missing"
	case errors.Is(err, ErrNonNumericCounter):
		return "non_numeric"
	case errors.Is(err, ErrNegativeCounter):
		return "negative"
	default:
		return "other"
	}
}
