package cache

import (
	"sync"
	"time"
)

// Kind identifies a cacheable collection.
type Kind string

const (
	KindLists   Kind = "lists"
	KindRecipes Kind = "recipes"
)

// DefaultSessionID is the partition used by callers that supply no session
// id. All such callers share it.
const DefaultSessionID = "default"

type entry struct {
	value     any
	expiresAt time.Time
}

type slot struct {
	sid  string
	kind Kind
}

// Generation identifies the invalidation state of one (session, kind)
// pair. A value loaded under one generation must not be stored under a
// later one.
type Generation struct {
	flush uint64
	n     uint64
}

// SessionCache holds at most one snapshot per (session, kind) pair, each
// expiring TTL after it was stored. Expired entries are dropped on the next
// access rather than swept. A TTL of zero or less disables the cache.
type SessionCache struct {
	mu        sync.Mutex
	ttl       time.Duration
	defaultID string
	now       func() time.Time
	sessions  map[string]map[Kind]*entry
	stats     Stats

	// gens counts invalidations per slot; flushes counts Flush calls,
	// which reset gens.
	gens    map[slot]uint64
	flushes uint64
}

// Option configures a SessionCache.
type Option func(*SessionCache)

// WithDefaultSessionID changes the partition used for empty session ids.
func WithDefaultSessionID(id string) Option {
	return func(c *SessionCache) { c.defaultID = id }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *SessionCache) { c.now = now }
}

// NewSessionCache creates a SessionCache with the given TTL.
func NewSessionCache(ttl time.Duration, opts ...Option) *SessionCache {
	c := &SessionCache{
		ttl:       ttl,
		defaultID: DefaultSessionID,
		now:       time.Now,
		sessions:  make(map[string]map[Kind]*entry),
		gens:      make(map[slot]uint64),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Enabled reports whether the cache stores anything.
func (c *SessionCache) Enabled() bool {
	return c.ttl > 0
}

// TTL returns the configured entry lifetime.
func (c *SessionCache) TTL() time.Duration {
	return c.ttl
}

// Get returns the value stored for (sessionID, kind) if it has not expired.
func (c *SessionCache) Get(sessionID string, kind Kind) (any, bool) {
	if !c.Enabled() {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	sid := c.normalize(sessionID)
	rec, ok := c.sessions[sid]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	e, ok := rec[kind]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		c.removeLocked(sid, kind)
		c.stats.Misses++
		c.stats.Evictions++
		return nil, false
	}
	c.stats.Hits++
	return e.value, true
}

// Set stores value for (sessionID, kind), replacing any previous entry.
func (c *SessionCache) Set(sessionID string, kind Kind, value any) {
	if !c.Enabled() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(c.normalize(sessionID), kind, value)
}

// Generation returns the current generation of (sessionID, kind). Take it
// before loading a value to store with SetIfGeneration.
func (c *SessionCache) Generation(sessionID string, kind Kind) Generation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generationLocked(slot{c.normalize(sessionID), kind})
}

// SetIfGeneration stores value only if (sessionID, kind) has not been
// invalidated or flushed since gen was taken. It reports whether the value
// was stored.
func (c *SessionCache) SetIfGeneration(sessionID string, kind Kind, gen Generation, value any) bool {
	if !c.Enabled() {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	sid := c.normalize(sessionID)
	if c.generationLocked(slot{sid, kind}) != gen {
		c.stats.StaleDrops++
		return false
	}
	c.setLocked(sid, kind, value)
	return true
}

func (c *SessionCache) generationLocked(s slot) Generation {
	return Generation{flush: c.flushes, n: c.gens[s]}
}

func (c *SessionCache) setLocked(sid string, kind Kind, value any) {
	rec, ok := c.sessions[sid]
	if !ok {
		rec = make(map[Kind]*entry, 2)
		c.sessions[sid] = rec
	}
	rec[kind] = &entry{value: value, expiresAt: c.now().Add(c.ttl)}
}

// Invalidate removes the given kinds for a session. With no kinds, the
// whole session is removed. A session left with no entries is dropped.
// Loads already in flight for those kinds will not be stored.
func (c *SessionCache) Invalidate(sessionID string, kinds ...Kind) {
	if !c.Enabled() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	sid := c.normalize(sessionID)
	bump := kinds
	if len(bump) == 0 {
		bump = []Kind{KindLists, KindRecipes}
	}
	for _, k := range bump {
		c.gens[slot{sid, k}]++
	}

	if _, ok := c.sessions[sid]; !ok {
		return
	}
	c.stats.Invalidations++
	if len(kinds) == 0 {
		delete(c.sessions, sid)
		return
	}
	for _, k := range kinds {
		c.removeLocked(sid, k)
	}
}

// Flush removes every session.
func (c *SessionCache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions = make(map[string]map[Kind]*entry)
	c.gens = make(map[slot]uint64)
	c.flushes++
}

// Sessions returns the number of sessions holding at least one entry.
func (c *SessionCache) Sessions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

// Stats returns a snapshot of cache statistics.
func (c *SessionCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Enabled = c.ttl > 0
	s.TTLMillis = c.ttl.Milliseconds()
	s.Sessions = len(c.sessions)
	for _, rec := range c.sessions {
		s.Entries += len(rec)
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

func (c *SessionCache) normalize(sessionID string) string {
	if sessionID == "" {
		return c.defaultID
	}
	return sessionID
}

func (c *SessionCache) removeLocked(sid string, kind Kind) {
	rec, ok := c.sessions[sid]
	if !ok {
		return
	}
	delete(rec, kind)
	if len(rec) == 0 {
		delete(c.sessions, sid)
	}
}
