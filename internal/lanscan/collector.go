package lanscan

import (
	"context"
	"sync"
	"time"

	"github.com/zRains/msp/internal/mresult"
)

const (
	// DefaultCapacity bounds the number of distinct servers tracked at
	// once. It is a hard cap: once reached, new servers are rejected
	// rather than evicting an existing entry to make room.
	DefaultCapacity = 100
	// DefaultOfflineAfter is how long a server can go unseen before the
	// next eviction sweep drops it.
	DefaultOfflineAfter = 2 * time.Second
	// DefaultEvictInterval is how often the eviction sweep runs.
	DefaultEvictInterval = 4 * time.Second
)

type entry struct {
	server   mresult.LanServer
	lastSeen time.Time
}

// Collector maintains the current set of LAN servers observed on a
// discovery channel, evicting entries that have gone quiet for longer than
// OfflineAfter. Capacity is a hard cap on the tracked set, not a sliding
// window: once full, a new server is rejected rather than displacing one
// already tracked.
type Collector struct {
	Capacity      int
	OfflineAfter  time.Duration
	EvictInterval time.Duration

	mu      sync.Mutex
	entries map[string]*entry
	order   []string
}

// NewCollector builds a Collector with the default bounds.
func NewCollector() *Collector {
	return &Collector{
		Capacity:      DefaultCapacity,
		OfflineAfter:  DefaultOfflineAfter,
		EvictInterval: DefaultEvictInterval,
		entries:       make(map[string]*entry),
	}
}

// Ingest records or refreshes a server observation, reporting whether it was
// accepted. Capacity is a hard cap, not a sliding window: once the tracked
// set is full, a new key is rejected rather than evicting an existing entry
// to make room. A caller driving a producer off this Collector should stop
// that producer the first time Ingest returns false.
func (c *Collector) Ingest(server mresult.LanServer, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := server.Key()
	if e, ok := c.entries[key]; ok {
		e.server = server
		e.lastSeen = now
		return true
	}
	if len(c.order) >= c.Capacity {
		return false
	}
	c.entries[key] = &entry{server: server, lastSeen: now}
	c.order = append(c.order, key)
	return true
}

// Evict drops every entry not seen within OfflineAfter of now.
func (c *Collector) Evict(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.order[:0]
	for _, key := range c.order {
		if now.Sub(c.entries[key].lastSeen) > c.OfflineAfter {
			delete(c.entries, key)
			continue
		}
		kept = append(kept, key)
	}
	c.order = kept
}

// Snapshot returns the currently tracked servers.
func (c *Collector) Snapshot() []mresult.LanServer {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]mresult.LanServer, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, c.entries[key].server)
	}
	return out
}

// Run drains observations into the collector until ctx is done or the
// channel closes, running an eviction sweep every EvictInterval on its own
// ticker, whether or not traffic arrives. Observations without a Server
// (keep-alives and errors) are skipped. When the tracked set is full and a
// new server arrives,
// Run calls cancel to stop the producer instead of evicting an existing
// entry, then returns.
func (c *Collector) Run(ctx context.Context, observations <-chan Observation, cancel context.CancelFunc) {
	ticker := time.NewTicker(c.EvictInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Evict(time.Now())
		case obs, ok := <-observations:
			if !ok {
				return
			}
			if obs.Server == nil {
				continue
			}
			if !c.Ingest(*obs.Server, time.Now()) {
				cancel()
				return
			}
		}
	}
}
