package remote

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateTrackerUnknownAccountIsAvailable(t *testing.T) {
	tracker := NewRateTracker()
	avail := tracker.CheckAvailability("acc-1", 1)
	assert.True(t, avail.Available)
}

func TestRateTrackerBlocksAfterRetryAfter(t *testing.T) {
	tracker := NewRateTracker()
	now := time.Now()
	tracker.now = func() time.Time { return now }

	tracker.UpdateFromResponse("acc-1", RateLimitInfo{Limit: 100, Remaining: 0, RetryAfter: 3 * time.Second})

	avail := tracker.CheckAvailability("acc-1", 1)
	assert.False(t, avail.Available)
	assert.Equal(t, 3*time.Second, avail.RetryAfter)

	// Window elapses.
	tracker.now = func() time.Time { return now.Add(4 * time.Second) }
	tracker.UpdateFromResponse("acc-1", RateLimitInfo{Limit: 100, Remaining: 50})
	avail = tracker.CheckAvailability("acc-1", 1)
	assert.True(t, avail.Available)
	assert.Equal(t, 50, avail.Remaining)
}

func TestRateTrackerExhaustedQuotaWithoutWindow(t *testing.T) {
	tracker := NewRateTracker()
	tracker.UpdateFromResponse("acc-1", RateLimitInfo{Limit: 10, Remaining: 0})

	avail := tracker.CheckAvailability("acc-1", 1)
	assert.False(t, avail.Available)
	assert.Equal(t, defaultBackoff, avail.RetryAfter)
}

func TestRateTrackerAccountsAreIndependent(t *testing.T) {
	tracker := NewRateTracker()
	tracker.UpdateFromResponse("acc-1", RateLimitInfo{Limit: 10, Remaining: 0, RetryAfter: time.Minute})

	assert.False(t, tracker.CheckAvailability("acc-1", 1).Available)
	assert.True(t, tracker.CheckAvailability("acc-2", 1).Available)
}

func TestRateTrackerConcurrentAccess(t *testing.T) {
	tracker := NewRateTracker()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			tracker.UpdateFromResponse("acc-1", RateLimitInfo{Limit: 100, Remaining: 10})
		}()
		go func() {
			defer wg.Done()
			tracker.CheckAvailability("acc-1", 1)
		}()
	}
	wg.Wait()

	assert.True(t, tracker.CheckAvailability("acc-1", 1).Available)
}
