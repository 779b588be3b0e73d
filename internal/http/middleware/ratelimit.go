package middleware

import (
	"sync"
	"time"
)

type clientInfo struct {
	last  time.Time
	count int64
}

// localWindows is the in-process fallback used when Redis is not configured.
// Counts are per process, so limits are only approximate behind a load balancer.
var (
	rlMu    sync.Mutex
	clients = make(map[string]*clientInfo)
)

// localIncr bumps the fixed-window counter for key and returns the new count.
func localIncr(key string, window time.Duration, now time.Time) int64 {
	rlMu.Lock()
	defer rlMu.Unlock()

	ci, ok := clients[key]
	if !ok || now.Sub(ci.last) > window {
		clients[key] = &clientInfo{last: now, count: 1}
		return 1
	}
	ci.count++
	return ci.count
}

// resetLocal clears the fallback counters.
func resetLocal() {
	rlMu.Lock()
	clients = make(map[string]*clientInfo)
	rlMu.Unlock()
}
