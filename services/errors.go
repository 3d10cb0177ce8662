package services

import "errors"

// ErrCalculationFailed wraps any failure while recomputing a table; jobs
// that return it are retried by the queue.
var ErrCalculationFailed = errors.New("table calculation failed")
