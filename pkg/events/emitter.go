package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"sync"
	"time"
)

const (
	// DefaultMaxConcurrency bounds how many listeners may run at once
	// across all emits.
	DefaultMaxConcurrency = 50
	// DefaultMaxListenersPerType caps registrations per event type.
	DefaultMaxListenersPerType = 200

	defaultEmitQueueSize = 256
)

// Listener handles one delivered event. A returned error is counted and
// logged but never propagated; other listeners still run.
type Listener func(GameEvent) error

// ListenerLimitError reports that an event type is at its registration cap.
type ListenerLimitError struct {
	EventType string
	Limit     int
}

func (e *ListenerLimitError) Error() string {
	return fmt.Sprintf("listener limit reached for %q (max %d)", e.EventType, e.Limit)
}

// Handle identifies one registration and removes it on Remove.
type Handle struct {
	emitter   *Emitter
	eventType string
	id        uint64
}

// Remove deregisters the listener. Returns false when it was already gone.
func (h *Handle) Remove() bool {
	if h == nil || h.emitter == nil {
		return false
	}
	return h.emitter.removeListener(h.eventType, h.id)
}

type listenerEntry struct {
	id    uint64
	fnPtr uintptr
	fn    Listener
	once  bool
}

// EmitterStats is a snapshot of delivery counters.
type EmitterStats struct {
	Emits           int
	Invocations     int
	ListenerErrors  int
	AvgEmitDuration time.Duration
	MaxEmitDuration time.Duration
}

// EmitterConfig tunes the emitter. Zero values select the defaults.
type EmitterConfig struct {
	MaxConcurrency      int
	MaxListenersPerType int
	QueueSize           int
}

// Emitter is the pub/sub hub for game events. Emit never blocks on listener
// execution: a dispatcher goroutine fans each event out to its listeners,
// each run on its own goroutine gated by a fixed-width semaphore, so a
// blocking listener delays neither the dispatcher nor its siblings beyond
// the concurrency bound.
type Emitter struct {
	maxPerType int
	sem        chan struct{}

	mu        sync.Mutex
	listeners map[string][]*listenerEntry
	nextID    uint64

	queue    chan emission
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup // dispatcher
	inflight sync.WaitGroup // listener goroutines

	statsMu     sync.Mutex
	emits       int
	invocations int
	errCount    int
	totalDur    time.Duration
	maxDur      time.Duration
}

type emission struct {
	event GameEvent
	done  chan struct{}
}

// NewEmitter returns a stopped emitter; call Start before emitting.
func NewEmitter(cfg EmitterConfig) *Emitter {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultMaxConcurrency
	}
	if cfg.MaxListenersPerType <= 0 {
		cfg.MaxListenersPerType = DefaultMaxListenersPerType
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultEmitQueueSize
	}
	return &Emitter{
		maxPerType: cfg.MaxListenersPerType,
		sem:        make(chan struct{}, cfg.MaxConcurrency),
		listeners:  make(map[string][]*listenerEntry),
		queue:      make(chan emission, cfg.QueueSize),
		stopCh:     make(chan struct{}),
	}
}

// Start launches the dispatcher. The context bounds the emitter's lifetime;
// cancelling it is equivalent to Stop.
func (em *Emitter) Start(ctx context.Context) {
	em.wg.Add(1)
	go em.run(ctx)
	slog.Info("Event emitter started",
		"max_concurrency", cap(em.sem),
		"max_listeners_per_type", em.maxPerType)
}

// Stop halts the dispatcher and waits for in-flight listeners to finish.
func (em *Emitter) Stop() {
	em.stopOnce.Do(func() { close(em.stopCh) })
	em.wg.Wait()
	em.inflight.Wait()
	slog.Info("Event emitter stopped")
}

func (em *Emitter) run(ctx context.Context) {
	defer em.wg.Done()
	for {
		select {
		case <-em.stopCh:
			return
		case <-ctx.Done():
			em.stopOnce.Do(func() { close(em.stopCh) })
			return
		case job := <-em.queue:
			em.dispatch(job)
		}
	}
}

// On registers a persistent listener invoked on every event of eventType.
func (em *Emitter) On(eventType string, fn Listener) (*Handle, error) {
	return em.register(eventType, fn, false)
}

// Once registers a listener invoked for at most one event of eventType, then
// discarded.
func (em *Emitter) Once(eventType string, fn Listener) (*Handle, error) {
	return em.register(eventType, fn, true)
}

func (em *Emitter) register(eventType string, fn Listener, once bool) (*Handle, error) {
	if fn == nil {
		return nil, errors.New("listener must not be nil")
	}
	ptr := reflect.ValueOf(fn).Pointer()

	em.mu.Lock()
	defer em.mu.Unlock()

	entries := em.listeners[eventType]
	for _, en := range entries {
		if en.fnPtr == ptr {
			slog.Warn("Duplicate listener registration ignored",
				"event_type", eventType, "listener_id", en.id)
			return &Handle{emitter: em, eventType: eventType, id: en.id}, nil
		}
	}
	if len(entries) >= em.maxPerType {
		return nil, &ListenerLimitError{EventType: eventType, Limit: em.maxPerType}
	}

	em.nextID++
	en := &listenerEntry{id: em.nextID, fnPtr: ptr, fn: fn, once: once}
	em.listeners[eventType] = append(entries, en)
	return &Handle{emitter: em, eventType: eventType, id: en.id}, nil
}

func (em *Emitter) removeListener(eventType string, id uint64) bool {
	em.mu.Lock()
	defer em.mu.Unlock()
	entries := em.listeners[eventType]
	for i, en := range entries {
		if en.id == id {
			em.listeners[eventType] = append(entries[:i:i], entries[i+1:]...)
			if len(em.listeners[eventType]) == 0 {
				delete(em.listeners, eventType)
			}
			return true
		}
	}
	return false
}

// RemoveAllListeners drops every listener for eventType, or for all types
// when eventType is empty. Returns the number removed.
func (em *Emitter) RemoveAllListeners(eventType string) int {
	em.mu.Lock()
	defer em.mu.Unlock()
	if eventType == "" {
		n := 0
		for _, entries := range em.listeners {
			n += len(entries)
		}
		em.listeners = make(map[string][]*listenerEntry)
		return n
	}
	n := len(em.listeners[eventType])
	delete(em.listeners, eventType)
	return n
}

// ListenerCount is the number of listeners registered for eventType.
func (em *Emitter) ListenerCount(eventType string) int {
	em.mu.Lock()
	defer em.mu.Unlock()
	return len(em.listeners[eventType])
}

// EventNames returns the types with at least one listener, sorted.
func (em *Emitter) EventNames() []string {
	em.mu.Lock()
	defer em.mu.Unlock()
	out := make([]string, 0, len(em.listeners))
	for t := range em.listeners {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Emit schedules delivery of e to every matching listener and returns
// immediately. The returned channel closes once every listener has run,
// which callers may ignore.
func (em *Emitter) Emit(e GameEvent) <-chan struct{} {
	done := make(chan struct{})
	select {
	case em.queue <- emission{event: e, done: done}:
	case <-em.stopCh:
		close(done)
	}
	return done
}

func (em *Emitter) dispatch(job emission) {
	start := time.Now()
	entries := em.takeSnapshot(job.event.EventType())
	if len(entries) == 0 {
		em.recordEmit(time.Since(start))
		close(job.done)
		return
	}

	var pending sync.WaitGroup
	for _, entry := range entries {
		pending.Add(1)
		em.inflight.Add(1)
		go func(en *listenerEntry) {
			defer em.inflight.Done()
			defer pending.Done()
			select {
			case em.sem <- struct{}{}:
				defer func() { <-em.sem }()
			case <-em.stopCh:
				return
			}
			em.invoke(en, job.event)
		}(entry)
	}

	em.inflight.Add(1)
	go func() {
		defer em.inflight.Done()
		pending.Wait()
		em.recordEmit(time.Since(start))
		close(job.done)
	}()
}

// takeSnapshot copies the listener list for dispatch and drops fired
// one-shot registrations so they cannot run twice.
func (em *Emitter) takeSnapshot(eventType string) []*listenerEntry {
	em.mu.Lock()
	defer em.mu.Unlock()
	entries := em.listeners[eventType]
	if len(entries) == 0 {
		return nil
	}
	snapshot := make([]*listenerEntry, len(entries))
	copy(snapshot, entries)

	kept := entries[:0:0]
	removedOnce := false
	for _, en := range entries {
		if en.once {
			removedOnce = true
			continue
		}
		kept = append(kept, en)
	}
	if removedOnce {
		if len(kept) == 0 {
			delete(em.listeners, eventType)
		} else {
			em.listeners[eventType] = kept
		}
	}
	return snapshot
}

func (em *Emitter) invoke(en *listenerEntry, e GameEvent) {
	defer func() {
		if r := recover(); r != nil {
			em.countError()
			slog.Error("Event listener panicked",
				"event_type", e.EventType(), "listener_id", en.id, "panic", r)
		}
	}()

	em.statsMu.Lock()
	em.invocations++
	em.statsMu.Unlock()

	if err := en.fn(e); err != nil {
		em.countError()
		slog.Error("Event listener failed",
			"event_type", e.EventType(), "listener_id", en.id, "error", err)
	}
}

func (em *Emitter) countError() {
	em.statsMu.Lock()
	em.errCount++
	em.statsMu.Unlock()
}

func (em *Emitter) recordEmit(dur time.Duration) {
	em.statsMu.Lock()
	defer em.statsMu.Unlock()
	em.emits++
	em.totalDur += dur
	if dur > em.maxDur {
		em.maxDur = dur
	}
}

// Stats returns a snapshot of the delivery counters.
func (em *Emitter) Stats() EmitterStats {
	em.statsMu.Lock()
	defer em.statsMu.Unlock()
	s := EmitterStats{
		Emits:           em.emits,
		Invocations:     em.invocations,
		ListenerErrors:  em.errCount,
		MaxEmitDuration: em.maxDur,
	}
	if em.emits > 0 {
		s.AvgEmitDuration = em.totalDur / time.Duration(em.emits)
	}
	return s
}
