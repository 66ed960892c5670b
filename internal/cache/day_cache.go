// Package cache keeps recently resolved day schedules in an in-process LRU.
// Entries are only ever served between writes: every mutation path
// invalidates the touched doctor or day before returning, and stores are
// epoch-guarded so a read that resolved before an invalidation cannot
// repopulate the cache with pre-write state.
package cache

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"service-availability/internal/domain"
)

type DayCache struct {
	mu     sync.RWMutex
	lru    *lru.Cache[string, domain.DaySchedule]
	epochs map[uuid.UUID]uint64
}

func NewDayCache(size int) (*DayCache, error) {
	cache, err := lru.New[string, domain.DaySchedule](size)
	if err != nil {
		return nil, err
	}
	return &DayCache{lru: cache, epochs: make(map[uuid.UUID]uint64)}, nil
}

func (c *DayCache) Get(doctorID uuid.UUID, date domain.Date) (domain.DaySchedule, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.lru.Get(dayKey(doctorID, date))
}

// Epoch returns the doctor's current invalidation generation. Callers capture
// it before resolving and hand it back to Store.
func (c *DayCache) Epoch(doctorID uuid.UUID) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.epochs[doctorID]
}

// Store caches the day unless the doctor was invalidated after epoch was
// captured, in which case the resolution may predate a committed write and
// is dropped.
func (c *DayCache) Store(day domain.DaySchedule, epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.epochs[day.DoctorID] != epoch {
		return
	}
	c.lru.Add(dayKey(day.DoctorID, day.Date), day)
}

func (c *DayCache) InvalidateDay(doctorID uuid.UUID, date domain.Date) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epochs[doctorID]++
	c.lru.Remove(dayKey(doctorID, date))
}

// InvalidateDoctor drops every cached day for the doctor. Rule-level writes
// affect an unbounded set of dates, so the whole prefix goes.
func (c *DayCache) InvalidateDoctor(doctorID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epochs[doctorID]++
	prefix := doctorID.String() + "|"
	for _, key := range c.lru.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.lru.Remove(key)
		}
	}
}

func dayKey(doctorID uuid.UUID, date domain.Date) string {
	return doctorID.String() + "|" + date.String()
}
