package game

import (
	"fmt"
	"strconv"
	"strings"
)

// Player identifies a player known from the server tab list. Identity only;
// live state for the bot itself lives in the environment model.
type Player struct {
	UUID        string `json:"uuid"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Ping        int    `json:"ping"`
	Gamemode    string `json:"gamemode"`
}

// PlayerFromMap decodes the player shapes the bridge emits. Gamemode arrives
// either as a string or as a numeric mode id.
func PlayerFromMap(m map[string]any) Player {
	p := Player{}
	p.UUID, _ = AsString(m["uuid"])
	p.Username, _ = AsString(m["username"])
	p.DisplayName, _ = AsString(m["displayName"])
	if p.DisplayName == "" {
		p.DisplayName = p.Username
	}
	if ping, ok := AsInt(m["ping"]); ok {
		p.Ping = ping
	}
	if s, ok := AsString(m["gamemode"]); ok {
		p.Gamemode = s
	} else if n, ok := AsInt(m["gamemode"]); ok {
		p.Gamemode = strconv.Itoa(n)
	}
	return p
}

func (p Player) String() string {
	name := p.DisplayName
	if name == "" {
		name = p.Username
	}
	return name
}

// Entity is the common portion of every nearby-entity record. Optional wire
// fields stay nil when absent.
type Entity struct {
	ID        *int      `json:"id,omitempty"`
	Type      string    `json:"type"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind,omitempty"`
	Position  *Position `json:"position,omitempty"`
	Distance  *float64  `json:"distance,omitempty"`
	Health    *float64  `json:"health,omitempty"`
	MaxHealth *float64  `json:"maxHealth,omitempty"`
}

// EntityInfo is implemented by every nearby-entity variant. Base exposes the
// shared fields; Describe renders a one-line summary for feeds and prompts.
type EntityInfo interface {
	Base() *Entity
	Describe() string
}

// PlayerEntity is another player observed in range.
type PlayerEntity struct {
	Entity
	Username string `json:"username"`
}

// AnimalEntity is a passive mob observed in range.
type AnimalEntity struct {
	Entity
}

// ItemEntity is a dropped item stack observed in range.
type ItemEntity struct {
	Entity
	ItemName string `json:"itemName"`
	Count    int    `json:"count"`
}

// Base returns the entity's shared fields.
func (e *Entity) Base() *Entity { return e }

// Describe renders "name" plus whatever position, distance, and health the
// observation carried.
func (e *Entity) Describe() string {
	var b strings.Builder
	name := e.Name
	if name == "" {
		name = e.Type
	}
	b.WriteString(name)
	if e.Position != nil {
		fmt.Fprintf(&b, " at %s", e.Position.Block())
	}
	if e.Distance != nil {
		fmt.Fprintf(&b, ", %.1f blocks away", *e.Distance)
	}
	if e.Health != nil {
		if e.MaxHealth != nil {
			fmt.Fprintf(&b, ", health %.0f/%.0f", *e.Health, *e.MaxHealth)
		} else {
			fmt.Fprintf(&b, ", health %.0f", *e.Health)
		}
	}
	return b.String()
}

func (e *PlayerEntity) Describe() string {
	name := e.Username
	if name == "" {
		name = e.Name
	}
	out := "player " + name
	if e.Position != nil {
		out += fmt.Sprintf(" at %s", e.Position.Block())
	}
	if e.Distance != nil {
		out += fmt.Sprintf(", %.1f blocks away", *e.Distance)
	}
	return out
}

func (e *ItemEntity) Describe() string {
	out := fmt.Sprintf("dropped %s x%d", e.ItemName, e.Count)
	if e.Position != nil {
		out += fmt.Sprintf(" at %s", e.Position.Block())
	}
	return out
}

// EntityFromMap decodes one nearby-entity record, dispatching to the variant
// the payload indicates: type "player" carries a username, type "animal" is
// passive, name "item" is a dropped stack described by itemsInfo[0].
// Positions arrive as [x,y,z] arrays or {x,y,z} maps.
func EntityFromMap(m map[string]any) EntityInfo {
	base := Entity{}
	base.Type, _ = AsString(m["type"])
	base.Name, _ = AsString(m["name"])
	base.Kind, _ = AsString(m["kind"])
	if id, ok := AsInt(m["id"]); ok {
		base.ID = &id
	}
	if pos, ok := decodePosition(m["position"]); ok {
		base.Position = &pos
	}
	if d, ok := AsFloat(m["distance"]); ok {
		base.Distance = &d
	}
	if h, ok := AsFloat(m["health"]); ok {
		base.Health = &h
	}
	if mh, ok := AsFloat(m["maxHealth"]); ok {
		base.MaxHealth = &mh
	}

	switch {
	case base.Type == "player":
		p := &PlayerEntity{Entity: base}
		p.Username, _ = AsString(m["username"])
		return p
	case base.Type == "animal":
		return &AnimalEntity{Entity: base}
	case base.Name == "item":
		it := &ItemEntity{Entity: base, Count: 1}
		if infos, ok := m["itemsInfo"].([]any); ok && len(infos) > 0 {
			if info, ok := infos[0].(map[string]any); ok {
				it.ItemName, _ = AsString(info["name"])
				if it.ItemName == "" {
					it.ItemName, _ = AsString(info["itemName"])
				}
				if c, ok := AsInt(info["count"]); ok {
					it.Count = c
				}
			}
		}
		return it
	default:
		return &base
	}
}

func decodePosition(v any) (Position, bool) {
	switch pv := v.(type) {
	case []any:
		return PositionFromArray(pv)
	case map[string]any:
		return PositionFromMap(pv)
	default:
		return Position{}, false
	}
}
