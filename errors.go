package octgo

import "errors"

// ErrClosed is returned when a cache is closed more than once.
var ErrClosed = errors.New("octgo: cache closed")
