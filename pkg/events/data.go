package events

import (
	"github.com/maicraft/maicraft-go/pkg/game"
)

// Data wraps an event payload and decodes recognizable shapes once, at
// construction: an exact {x,y,z} map becomes game.Position, a map carrying
// username or uuid becomes game.Player, and a map carrying type plus position
// or health becomes a game entity. Everything else stays the raw value.
// AsMap is the escape hatch back to the untouched payload.
type Data struct {
	raw     map[string]any
	decoded map[string]any
}

// NewData decodes raw payload fields into typed values where the shape is
// recognizable.
func NewData(raw map[string]any) Data {
	if raw == nil {
		raw = map[string]any{}
	}
	decoded := make(map[string]any, len(raw))
	for k, v := range raw {
		decoded[k] = decodeValue(v)
	}
	return Data{raw: raw, decoded: decoded}
}

func decodeValue(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	if isPositionShape(m) {
		if p, ok := game.PositionFromMap(m); ok {
			return p
		}
	}
	if isPlayerShape(m) {
		return game.PlayerFromMap(m)
	}
	if isEntityShape(m) {
		return game.EntityFromMap(m)
	}
	return m
}

// isPositionShape matches exactly {x,y,z}.
func isPositionShape(m map[string]any) bool {
	if len(m) != 3 {
		return false
	}
	_, hasX := m["x"]
	_, hasY := m["y"]
	_, hasZ := m["z"]
	return hasX && hasY && hasZ
}

// isPlayerShape matches maps carrying a username or uuid.
func isPlayerShape(m map[string]any) bool {
	if _, ok := m["username"]; ok {
		return true
	}
	_, ok := m["uuid"]
	return ok
}

// isEntityShape matches maps carrying a type plus a position or health.
func isEntityShape(m map[string]any) bool {
	if _, ok := m["type"]; !ok {
		return false
	}
	if _, ok := m["position"]; ok {
		return true
	}
	_, ok := m["health"]
	return ok
}

// Get returns the decoded value for name.
func (d Data) Get(name string) (any, bool) {
	v, ok := d.decoded[name]
	return v, ok
}

// GetString returns the field as a string.
func (d Data) GetString(name string) (string, bool) {
	v, ok := d.raw[name]
	if !ok {
		return "", false
	}
	return game.AsString(v)
}

// GetFloat returns the field as a float64, coercing integer shapes.
func (d Data) GetFloat(name string) (float64, bool) {
	v, ok := d.raw[name]
	if !ok {
		return 0, false
	}
	return game.AsFloat(v)
}

// GetInt returns the field as an int.
func (d Data) GetInt(name string) (int, bool) {
	v, ok := d.raw[name]
	if !ok {
		return 0, false
	}
	return game.AsInt(v)
}

// GetBool returns the field as a bool.
func (d Data) GetBool(name string) (bool, bool) {
	v, ok := d.raw[name]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// GetPosition returns the field when it decoded to a Position.
func (d Data) GetPosition(name string) (game.Position, bool) {
	v, ok := d.decoded[name]
	if !ok {
		return game.Position{}, false
	}
	p, ok := v.(game.Position)
	return p, ok
}

// GetPlayer returns the field when it decoded to a Player.
func (d Data) GetPlayer(name string) (game.Player, bool) {
	v, ok := d.decoded[name]
	if !ok {
		return game.Player{}, false
	}
	p, ok := v.(game.Player)
	return p, ok
}

// GetEntity returns the field when it decoded to an entity variant.
func (d Data) GetEntity(name string) (game.EntityInfo, bool) {
	v, ok := d.decoded[name]
	if !ok {
		return nil, false
	}
	e, ok := v.(game.EntityInfo)
	return e, ok
}

// GetMap returns the raw field when it is a map. Useful for payloads whose
// decoded form dropped fields the caller still needs.
func (d Data) GetMap(name string) (map[string]any, bool) {
	v, ok := d.raw[name]
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}

// AsMap returns a shallow copy of the untouched payload.
func (d Data) AsMap() map[string]any {
	out := make(map[string]any, len(d.raw))
	for k, v := range d.raw {
		out[k] = v
	}
	return out
}

// Len is the number of payload fields.
func (d Data) Len() int { return len(d.raw) }
