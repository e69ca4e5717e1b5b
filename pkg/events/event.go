// Package events implements the game-event subsystem: typed event variants
// decoded from bridge payloads, a name→constructor registry, a bounded
// ring-buffered store, and a concurrency-bounded pub/sub emitter.
package events

import (
	"github.com/maicraft/maicraft-go/pkg/game"
)

// RawEvent is the wire shape the bridge delivers on its event stream.
type RawEvent struct {
	Type      string         `json:"type"`
	GameTick  int            `json:"gameTick"`
	Timestamp float64        `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

// GameEvent is implemented by every typed event variant. The base Event
// provides all of it; variants override Description and ContextString.
type GameEvent interface {
	// EventType is the wire type string ("chat", "entityHurt", ...).
	EventType() string
	// Tick is the game tick the event was produced at.
	Tick() int
	// TimestampS is the wire timestamp normalized to seconds.
	TimestampS() float64
	// EventData exposes the payload with typed field access.
	EventData() Data
	// PlayerName is the player the event concerns, or "" when none.
	PlayerName() string
	// Description is a human-readable feed line.
	Description() string
	// ContextString is the compact "[type] ..." form used as model context.
	ContextString() string
}

// Event is the common header shared by all variants. Unknown wire types are
// delivered as a bare Event with an opaque data map.
type Event struct {
	Type      string
	GameTick  int
	Timestamp float64
	Data      Data
}

func newBase(raw RawEvent) Event {
	return Event{
		Type:      raw.Type,
		GameTick:  raw.GameTick,
		Timestamp: raw.Timestamp,
		Data:      NewData(raw.Data),
	}
}

func (e *Event) EventType() string { return e.Type }
func (e *Event) Tick() int         { return e.GameTick }
func (e *Event) EventData() Data   { return e.Data }

// TimestampS normalizes the raw wire timestamp (ms above 1e10) to seconds.
func (e *Event) TimestampS() float64 {
	return game.NormalizeTimestamp(e.Timestamp)
}

// PlayerName digs the concerned player's name out of the payload. Events
// reference players under different keys, so several shapes are tried.
func (e *Event) PlayerName() string {
	if s, ok := e.Data.GetString("username"); ok && s != "" {
		return s
	}
	if s, ok := e.Data.GetString("playerName"); ok && s != "" {
		return s
	}
	if p, ok := e.Data.GetPlayer("player"); ok {
		return p.Username
	}
	if v, ok := e.Data.Get("entity"); ok {
		switch ev := v.(type) {
		case game.Player:
			return ev.Username
		case *game.PlayerEntity:
			return ev.Username
		}
	}
	return ""
}

func (e *Event) Description() string {
	return "游戏事件 " + e.Type
}

func (e *Event) ContextString() string {
	return "[" + e.Type + "]"
}
