package cache

import (
	"fmt"
	"time"
)

// RateLimitKey buckets a client's requests to one route group into a fixed
// one-minute window.
func RateLimitKey(scope, clientID string, now time.Time) string {
	return fmt.Sprintf("ratelimit:%s:%s:%d", scope, clientID, now.Unix()/60)
}
