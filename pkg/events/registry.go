package events

import (
	"log/slog"
	"sort"
	"sync"
)

// Factory builds a typed event variant from a raw wire payload.
type Factory func(RawEvent) GameEvent

// Registry maps wire type strings to variant constructors. Given a payload
// whose type is unknown, CreateFromRaw falls back to the base event so no
// delivery is ever dropped for lack of a variant.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns a registry populated with every built-in variant.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	builtins := map[string]Factory{
		TypeChat:          newChatEvent,
		TypePlayerJoined:  newPlayerJoinedEvent,
		TypePlayerLeft:    newPlayerLeftEvent,
		TypePlayerMove:    newPlayerMoveEvent,
		TypePlayerRespawn: newPlayerRespawnEvent,
		TypeDeath:         newDeathEvent,
		TypeSpawn:         newSpawnEvent,
		TypeSpawnReset:    newSpawnResetEvent,
		TypeKicked:        newKickedEvent,
		TypeRain:          newRainEvent,
		TypeHealth:        newHealthEvent,
		TypeBreath:        newBreathEvent,
		TypeEntityHurt:    newEntityHurtEvent,
		TypeEntityDead:    newEntityDeadEvent,
		TypePlayerCollect: newPlayerCollectEvent,
		TypeItemDrop:      newItemDropEvent,
		TypeBlockBreak:    newBlockBreakEvent,
		TypeBlockPlace:    newBlockPlaceEvent,
		TypeForcedMove:    newForcedMoveEvent,
	}
	for t, fn := range builtins {
		r.factories[t] = fn
	}
	return r
}

// Register maps eventType to fn. Re-registration overwrites the previous
// constructor and logs a warning.
func (r *Registry) Register(eventType string, fn Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[eventType]; exists {
		slog.Warn("Event type re-registered, overwriting previous constructor",
			"event_type", eventType)
	}
	r.factories[eventType] = fn
}

// CreateFromRaw builds the typed variant for raw.Type, or a base event when
// the type is unknown.
func (r *Registry) CreateFromRaw(raw RawEvent) GameEvent {
	r.mu.RLock()
	fn, ok := r.factories[raw.Type]
	r.mu.RUnlock()
	if !ok {
		base := newBase(raw)
		return &base
	}
	return fn(raw)
}

// Known reports whether eventType has a registered constructor.
func (r *Registry) Known(eventType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[eventType]
	return ok
}

// Types returns the registered type strings, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for t := range r.factories {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
