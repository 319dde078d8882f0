package utils

import (
	"context"
	"sync"
	"time"
)

type stateEntry struct {
	userID    uint
	expiresAt time.Time
}

var (
	stateStore   = map[string]stateEntry{}
	stateStoreMu sync.Mutex
)

// SaveOAuthState stores a single-use OAuth state token bound to the user who
// started the Strava connect flow, with TTL to mitigate CSRF.
func SaveOAuthState(state string, userID uint, ttl time.Duration) {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	// Prefer Redis for distributed consistency
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Set(ctx, "strava:oauth:state:"+state, userID, ttl).Err(); err == nil {
			return
		}
	}
	// Fallback to in-memory (single-instance only)
	stateStoreMu.Lock()
	stateStore[state] = stateEntry{userID: userID, expiresAt: time.Now().Add(ttl)}
	stateStoreMu.Unlock()
}

// ConsumeOAuthState validates and removes a state token, returning the user
// who owns the flow.
func ConsumeOAuthState(state string) (uint, bool) {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if v, err := rc.GetDel(ctx, "strava:oauth:state:"+state).Uint64(); err == nil {
			return uint(v), true
		}
	}
	stateStoreMu.Lock()
	entry, ok := stateStore[state]
	if ok {
		delete(stateStore, state)
	}
	stateStoreMu.Unlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return 0, false
	}
	return entry.userID, true
}
