package interpreter

import "errors"

var ErrMaxRetries = errors.New("interpreter api unreachable after max retries")
