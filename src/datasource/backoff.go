package datasource

import "time"

const (
	baseDelay = time.Second
	maxDelay  = time.Minute
)

// Backoff doubles from one second per retry and caps at one minute.
func Backoff(retry int) time.Duration {
	if retry < 0 {
		return baseDelay
	}
	if retry > 30 {
		return maxDelay
	}
	delay := baseDelay * time.Duration(1<<retry)
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}
