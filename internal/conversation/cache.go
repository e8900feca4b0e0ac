// Package conversation caches ticket conversations fetched from the
// ticket service. Concurrent requests for the same ticket share a single
// fetch, and invalidation detaches in-flight fetches so their results
// never overwrite newer state.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/h1v3-io/inbox/internal/inbox"
	"github.com/h1v3-io/inbox/internal/metrics"
	"github.com/h1v3-io/inbox/pkg/protocol"
)

// DefaultFetchTimeout bounds a single conversation fetch.
const DefaultFetchTimeout = 15 * time.Second

var errDetached = errors.New("conversation: fetch detached by invalidation")

// Fetcher retrieves the ordered messages of one ticket.
type Fetcher interface {
	FetchConversation(ctx context.Context, id protocol.ID) ([]protocol.Message, error)
}

// State is the lifecycle of one cache entry.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateLoaded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Snapshot is a read-only view of one entry. Messages must not be modified.
// While a refetch is running after invalidation, Messages still holds the
// previous conversation and Stale is true.
type Snapshot struct {
	TicketID  protocol.ID
	State     State
	Messages  []protocol.Message
	Err       error
	Stale     bool
	FetchedAt time.Time
}

type entry struct {
	state     State
	messages  []protocol.Message
	err       error
	stale     bool
	fetchedAt time.Time

	// gen increases on every fetch start and every invalidation. A fetch
	// result is applied only while gen still equals the value it started with.
	gen      uint64
	inflight bool
}

// Cache holds conversations keyed by ticket id.
type Cache struct {
	fetcher Fetcher
	group   singleflight.Group
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time

	mu        sync.Mutex
	entries   map[protocol.ID]*entry
	observers []func(Snapshot)
}

// Option configures a Cache.
type Option func(*Cache)

// WithFetchTimeout sets the per-fetch timeout. Non-positive values are ignored.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a cache that reads through f.
func New(f Fetcher, opts ...Option) *Cache {
	c := &Cache{
		fetcher: f,
		timeout: DefaultFetchTimeout,
		logger:  slog.Default(),
		now:     time.Now,
		entries: make(map[protocol.ID]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnUpdate registers fn to be called after every state transition of an
// entry. Observers run outside the cache lock, on the goroutine that caused
// the transition.
func (c *Cache) OnUpdate(fn func(Snapshot)) {
	c.mu.Lock()
	c.observers = append(c.observers, fn)
	c.mu.Unlock()
}

// Get returns the current snapshot for id without blocking. A missing,
// stale or failed entry starts a fetch (unless one is already running) and
// the returned snapshot is in StateLoading.
func (c *Cache) Get(id protocol.ID) Snapshot {
	c.mu.Lock()
	e := c.entryLocked(id)
	switch {
	case e.state == StateLoaded && !e.stale:
		metrics.ConversationCache.WithLabelValues("hit").Inc()
		snap := e.snapshot(id)
		c.mu.Unlock()
		return snap
	case e.inflight:
		metrics.ConversationCache.WithLabelValues("joined").Inc()
		snap := e.snapshot(id)
		c.mu.Unlock()
		return snap
	}
	metrics.ConversationCache.WithLabelValues("miss").Inc()
	gen := c.startLocked(e)
	snap := e.snapshot(id)
	observers := c.observers
	c.mu.Unlock()

	notify(observers, snap)
	go c.group.Do(flightKey(id, gen), func() (any, error) {
		return c.fetch(id, gen)
	})
	return snap
}

// Load returns the conversation for id, fetching it if needed and waiting
// for the result. ctx bounds only this caller's wait; the fetch itself keeps
// running for other waiters. If the entry is invalidated while waiting, Load
// waits for the replacement fetch instead.
func (c *Cache) Load(ctx context.Context, id protocol.ID) ([]protocol.Message, error) {
	for {
		c.mu.Lock()
		e := c.entryLocked(id)
		if e.state == StateLoaded && !e.stale {
			metrics.ConversationCache.WithLabelValues("hit").Inc()
			msgs := e.messages
			c.mu.Unlock()
			return msgs, nil
		}
		var (
			gen     uint64
			started bool
			snap    Snapshot
		)
		if e.inflight {
			metrics.ConversationCache.WithLabelValues("joined").Inc()
			gen = e.gen
		} else {
			metrics.ConversationCache.WithLabelValues("miss").Inc()
			gen = c.startLocked(e)
			started = true
			snap = e.snapshot(id)
		}
		observers := c.observers
		c.mu.Unlock()

		if started {
			notify(observers, snap)
		}

		ch := c.group.DoChan(flightKey(id, gen), func() (any, error) {
			return c.fetch(id, gen)
		})
		var res singleflight.Result
		select {
		case res = <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		c.mu.Lock()
		detached := c.entries[id] == nil || c.entries[id].gen != gen
		c.mu.Unlock()
		if detached {
			continue
		}
		if res.Err != nil {
			return nil, res.Err
		}
		msgs, _ := res.Val.([]protocol.Message)
		return msgs, nil
	}
}

// Peek returns the snapshot for id without triggering a fetch.
func (c *Cache) Peek(id protocol.ID) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok {
		return Snapshot{TicketID: id, State: StateIdle}
	}
	return e.snapshot(id)
}

// Invalidate marks the entry for id stale. An in-flight fetch is detached:
// its result will be discarded and the next Get or Load refetches.
func (c *Cache) Invalidate(id protocol.ID) {
	c.mu.Lock()
	e, ok := c.entries[id]
	if !ok {
		c.mu.Unlock()
		return
	}
	if e.inflight {
		c.group.Forget(flightKey(id, e.gen))
		e.inflight = false
		if e.state == StateLoading {
			e.state = StateIdle
		}
	}
	e.gen++
	e.stale = true
	snap := e.snapshot(id)
	observers := c.observers
	c.mu.Unlock()

	c.logger.Debug("conversation invalidated", "ticket", id)
	notify(observers, snap)
}

// HandleEvent reacts to store events: a selection change invalidates the
// previously selected conversation and loads the new one, and a successful
// send invalidates and refetches the ticket it went to.
func (c *Cache) HandleEvent(ev inbox.Event) {
	switch ev.Kind {
	case inbox.EventSelectionChanged:
		if ev.Previous != "" {
			c.Invalidate(ev.Previous)
		}
		if ev.TicketID != "" {
			c.Get(ev.TicketID)
		}
	case inbox.EventSendSucceeded:
		if ev.TicketID == "" {
			return
		}
		c.Invalidate(ev.TicketID)
		c.Get(ev.TicketID)
	}
}

// Len returns the number of entries, including idle and failed ones.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) entryLocked(id protocol.ID) *entry {
	e, ok := c.entries[id]
	if !ok {
		e = &entry{}
		c.entries[id] = e
	}
	return e
}

// startLocked moves e into StateLoading under a new generation.
func (c *Cache) startLocked(e *entry) uint64 {
	e.gen++
	e.inflight = true
	e.state = StateLoading
	e.err = nil
	return e.gen
}

// fetch runs inside the singleflight call for (id, gen).
func (c *Cache) fetch(id protocol.ID, gen uint64) (any, error) {
	c.mu.Lock()
	e := c.entries[id]
	switch {
	case e == nil || e.gen != gen:
		c.mu.Unlock()
		return nil, errDetached
	case !e.inflight:
		// A waiter joined after this generation already completed.
		msgs, err := e.messages, e.err
		c.mu.Unlock()
		return msgs, err
	}
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	start := time.Now()
	msgs, err := c.fetcher.FetchConversation(ctx, id)
	if err == nil && msgs == nil {
		msgs = []protocol.Message{}
	}
	c.complete(id, gen, msgs, err, time.Since(start))
	return msgs, err
}

func (c *Cache) complete(id protocol.ID, gen uint64, msgs []protocol.Message, err error, took time.Duration) {
	c.mu.Lock()
	e := c.entries[id]
	if e == nil || e.gen != gen {
		c.mu.Unlock()
		metrics.ConversationFetches.WithLabelValues("discarded").Inc()
		c.logger.Debug("discarded detached conversation fetch", "ticket", id, "error", err)
		return
	}
	e.inflight = false
	if err != nil {
		e.state = StateFailed
		e.err = err
	} else {
		e.state = StateLoaded
		e.messages = msgs
		e.err = nil
		e.stale = false
		e.fetchedAt = c.now()
	}
	snap := e.snapshot(id)
	observers := c.observers
	c.mu.Unlock()

	if err != nil {
		metrics.ConversationFetches.WithLabelValues("error").Inc()
		c.logger.Warn("conversation fetch failed", "ticket", id, "error", err, "duration", took)
	} else {
		metrics.ConversationFetches.WithLabelValues("ok").Inc()
		c.logger.Debug("conversation fetched", "ticket", id, "messages", len(msgs), "duration", took)
	}
	notify(observers, snap)
}

func (e *entry) snapshot(id protocol.ID) Snapshot {
	return Snapshot{
		TicketID:  id,
		State:     e.state,
		Messages:  e.messages,
		Err:       e.err,
		Stale:     e.stale,
		FetchedAt: e.fetchedAt,
	}
}

func flightKey(id protocol.ID, gen uint64) string {
	return fmt.Sprintf("%s#%d", id, gen)
}

func notify(observers []func(Snapshot), snap Snapshot) {
	for _, fn := range observers {
		fn(snap)
	}
}
