package worker

import "time"

// Backoff returns the delay before retrying after the given attempt:
// min(max, base*attempts²). It is strictly increasing until it hits max.
func Backoff(attempts int, base, max time.Duration) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	if base <= 0 {
		return 0
	}
	sq := int64(attempts) * int64(attempts)
	if attempts > 1<<20 || int64(base) > int64(max)/sq {
		return max
	}
	return time.Duration(sq) * base
}
