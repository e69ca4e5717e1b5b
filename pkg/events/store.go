package events

import "sync"

// DefaultStoreCapacity bounds the event store when no capacity is given.
const DefaultStoreCapacity = 500

// Store is a bounded FIFO of events in arrival order. When full, the oldest
// event is dropped.
type Store struct {
	mu   sync.RWMutex
	buf  []GameEvent
	head int // index of the oldest event
	size int
}

// NewStore returns a store bounded to capacity events. Non-positive
// capacities use DefaultStoreCapacity.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultStoreCapacity
	}
	return &Store{buf: make([]GameEvent, capacity)}
}

// Add appends e, evicting the oldest event when full.
func (s *Store) Add(e GameEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.size < len(s.buf) {
		s.buf[(s.head+s.size)%len(s.buf)] = e
		s.size++
		return
	}
	s.buf[s.head] = e
	s.head = (s.head + 1) % len(s.buf)
}

// Len is the number of stored events.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

// Recent returns the newest events in insertion order, at most limit.
// Non-positive limits return everything.
func (s *Store) Recent(limit int) []GameEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tail(func(GameEvent) bool { return true }, limit)
}

// ByType returns the newest events of the given type, at most limit.
func (s *Store) ByType(eventType string, limit int) []GameEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tail(func(e GameEvent) bool { return e.EventType() == eventType }, limit)
}

// ByPlayer returns the newest events concerning the named player, at most
// limit.
func (s *Store) ByPlayer(name string, limit int) []GameEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tail(func(e GameEvent) bool { return e.PlayerName() == name }, limit)
}

// Stats counts stored events per type.
func (s *Store) Stats() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int)
	for i := 0; i < s.size; i++ {
		e := s.buf[(s.head+i)%len(s.buf)]
		out[e.EventType()]++
	}
	return out
}

// tail collects the matching events and returns the last limit of them.
// Callers hold the lock.
func (s *Store) tail(match func(GameEvent) bool, limit int) []GameEvent {
	var all []GameEvent
	for i := 0; i < s.size; i++ {
		e := s.buf[(s.head+i)%len(s.buf)]
		if match(e) {
			all = append(all, e)
		}
	}
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all
}
