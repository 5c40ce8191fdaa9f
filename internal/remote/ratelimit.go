package remote

import (
	"sync"
	"time"
)

// RateLimitInfo is the quota state parsed from a remote response.
type RateLimitInfo struct {
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Availability is the tracker's answer to "may I send this request now".
type Availability struct {
	Available  bool
	Remaining  int
	RetryAfter time.Duration
}

// RateTracker shares one quota per account across all concurrent executors.
// Every remote call consults it before sending and feeds the response
// headers back, so executors collectively respect a single limit instead of
// each tracking their own.
type RateTracker struct {
	mu       sync.Mutex
	accounts map[string]*accountQuota
	now      func() time.Time
}

type accountQuota struct {
	limit     int
	remaining int
	blockedTo time.Time
}

// NewRateTracker creates an empty tracker. Accounts are admitted freely
// until their first response reports quota state.
func NewRateTracker() *RateTracker {
	return &RateTracker{
		accounts: make(map[string]*accountQuota),
		now:      time.Now,
	}
}

// CheckAvailability reports whether a request of the given cost may be sent
// for the account right now.
func (t *RateTracker) CheckAvailability(accountID string, cost int) Availability {
	t.mu.Lock()
	defer t.mu.Unlock()

	q, ok := t.accounts[accountID]
	if !ok {
		return Availability{Available: true, Remaining: -1}
	}

	now := t.now()
	if q.blockedTo.After(now) {
		return Availability{Available: false, RetryAfter: q.blockedTo.Sub(now)}
	}
	if q.limit > 0 && q.remaining < cost {
		// Quota reported exhausted and no retry window known yet; back off
		// for a single default interval.
		return Availability{Available: false, RetryAfter: defaultBackoff}
	}
	return Availability{Available: true, Remaining: q.remaining}
}

// UpdateFromResponse records the quota state a response reported.
func (t *RateTracker) UpdateFromResponse(accountID string, info RateLimitInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()

	q, ok := t.accounts[accountID]
	if !ok {
		q = &accountQuota{}
		t.accounts[accountID] = q
	}
	if info.Limit > 0 {
		q.limit = info.Limit
	}
	q.remaining = info.Remaining
	if info.RetryAfter > 0 {
		q.blockedTo = t.now().Add(info.RetryAfter)
	}
}

const defaultBackoff = time.Second
