package feed

import (
	"sync"
	"time"

	"github.com/pfrederiksen/vietnam-holidays/internal/holiday"
)

// Snapshot is one published version of the feed.
type Snapshot struct {
	ICS       []byte
	Records   []holiday.Record
	Years     []int
	UpdatedAt time.Time
}

// Cache holds the latest published snapshot. The zero value is empty and
// ready to use.
type Cache struct {
	mu   sync.RWMutex
	snap *Snapshot
}

// Load returns the current snapshot and whether there is one.
func (c *Cache) Load() (*Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap, c.snap != nil
}

// Store replaces the current snapshot.
func (c *Cache) Store(s *Snapshot) {
	c.mu.Lock()
	c.snap = s
	c.mu.Unlock()
}

// Status is a summary of the cache for health reporting.
type Status struct {
	HasData    bool      `json:"hasData"`
	LastUpdate time.Time `json:"lastUpdate,omitempty"`
	Records    int       `json:"records"`
	Years      []int     `json:"years"`
}

// Status summarizes the current snapshot.
func (c *Cache) Status() Status {
	snap, ok := c.Load()
	if !ok {
		return Status{Years: []int{}}
	}
	return Status{
		HasData:    true,
		LastUpdate: snap.UpdatedAt,
		Records:    len(snap.Records),
		Years:      snap.Years,
	}
}
