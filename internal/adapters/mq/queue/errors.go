package queue

import "errors"

// ErrBackpressure is reported when a notification cannot be queued.
var ErrBackpressure = errors.New("notification queue full")
