package scraper

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var errQuotaReached = errors.New("quota reached")

// quotaCounter hands out sequence numbers to concurrent downloads without
// letting committed plus in-flight downloads exceed the quota. Released
// sequence numbers are handed out again, lowest first.
type quotaCounter struct {
	mu        sync.Mutex
	quota     int
	committed int
	inflight  int
	next      int
	free      []int
	changed   chan struct{}
}

func newQuotaCounter(quota int) *quotaCounter {
	return &quotaCounter{quota: quota, changed: make(chan struct{})}
}

// Reserve takes a sequence number if a slot is free
func (q *quotaCounter) Reserve() (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.reserveLocked()
}

func (q *quotaCounter) reserveLocked() (int, bool) {
	if q.committed+q.inflight >= q.quota {
		return 0, false
	}
	q.inflight++

	if len(q.free) > 0 {
		seq := q.free[0]
		q.free = q.free[1:]
		return seq, true
	}
	seq := q.next
	q.next++
	return seq, true
}

// Acquire reserves a sequence number, waiting for in-flight downloads when
// all slots are taken. It returns errQuotaReached once the quota is met.
func (q *quotaCounter) Acquire(ctx context.Context) (int, error) {
	for {
		q.mu.Lock()
		if q.committed >= q.quota {
			q.mu.Unlock()
			return 0, errQuotaReached
		}
		if seq, ok := q.reserveLocked(); ok {
			q.mu.Unlock()
			return seq, nil
		}
		wait := q.changed
		q.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// Commit turns one reservation into a counted download
func (q *quotaCounter) Commit() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.inflight--
	q.committed++
	q.notifyLocked()
}

// Release returns an unused reservation
func (q *quotaCounter) Release(seq int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.inflight--
	q.free = append(q.free, seq)
	sort.Ints(q.free)
	q.notifyLocked()
}

// Committed returns the number of counted downloads
func (q *quotaCounter) Committed() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.committed
}

// Full reports whether the quota is met
func (q *quotaCounter) Full() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.committed >= q.quota
}

func (q *quotaCounter) notifyLocked() {
	close(q.changed)
	q.changed = make(chan struct{})
}
