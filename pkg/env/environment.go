// Package env tracks the bot's view of itself and its surroundings: the
// status snapshot polled from the bridge, nearby entities, recent events,
// and the movement monitor that flags falls and teleports.
package env

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/maicraft/maicraft-go/pkg/events"
	"github.com/maicraft/maicraft-go/pkg/game"
)

// Update types published to the mode system and environment listeners.
const (
	UpdateStatus   = "status_update"
	UpdateEntities = "entity_update"
)

// recentEventCapacity bounds the environment's own event buffer.
const recentEventCapacity = 80

// Update is the payload fanned out after each environment refresh.
type Update struct {
	Type      string
	Entities  []game.EntityInfo
	Timestamp float64
}

// Item is an inventory or equipment stack.
type Item struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Count       int    `json:"count"`
	Slot        int    `json:"slot"`
	Damage      int    `json:"damage,omitempty"`
	MaxDamage   int    `json:"maxDamage,omitempty"`
}

// HealthState mirrors the bridge health block.
type HealthState struct {
	Current    float64 `json:"current"`
	Max        float64 `json:"max"`
	Percentage float64 `json:"percentage"`
}

// FoodState mirrors the bridge food block.
type FoodState struct {
	Current    float64 `json:"current"`
	Max        float64 `json:"max"`
	Saturation float64 `json:"saturation"`
	Percentage float64 `json:"percentage"`
}

// ExperienceState mirrors the bridge experience block.
type ExperienceState struct {
	Points int `json:"points"`
	Level  int `json:"level"`
}

// InventoryState mirrors the bridge inventory block.
type InventoryState struct {
	Slots          []Item `json:"slots"`
	FullSlotCount  int    `json:"fullSlotCount"`
	EmptySlotCount int    `json:"emptySlotCount"`
	SlotCount      int    `json:"slotCount"`
}

// Snapshot is one coherent copy of the environment state.
type Snapshot struct {
	Username      string
	Gamemode      string
	Dimension     string
	Biome         string
	Weather       string
	TimeOfDay     int
	OnlinePlayers []string

	Position   *game.Position
	Velocity   *game.Position
	Yaw        float64
	Pitch      float64
	OnGround   bool
	IsSleeping bool

	Health     HealthState
	Food       FoodState
	Experience ExperienceState
	Oxygen     float64
	Armor      float64

	Equipment      map[string]Item
	HeldItem       *Item
	UsingHeldItem  bool
	BlockAtCursor  string
	EntityAtCursor string

	Inventory InventoryState

	OverviewImage string
	OverviewText  string
}

// Environment holds the latest snapshot plus bounded recent events and the
// last nearby-entity list. Each refresh publishes an Update through the
// sink registered by the composition root.
type Environment struct {
	mu       sync.RWMutex
	snap     Snapshot
	recent   []events.GameEvent
	entities []game.EntityInfo
	sink     func(Update)
	now      func() float64
}

// New returns an empty environment.
func New() *Environment {
	return &Environment{now: game.Now}
}

// SetSink registers the fan-out target for refresh updates (the mode
// manager's NotifyEnvironmentUpdated). The sink is invoked outside the
// environment lock.
func (e *Environment) SetSink(sink func(Update)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sink = sink
}

// Snapshot returns a copy of the current state. Slices and maps are copied
// so callers can hold the result across refreshes.
func (e *Environment) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.copySnapshotLocked()
}

func (e *Environment) copySnapshotLocked() Snapshot {
	s := e.snap
	if len(s.OnlinePlayers) > 0 {
		s.OnlinePlayers = append([]string(nil), s.OnlinePlayers...)
	}
	if len(s.Equipment) > 0 {
		eq := make(map[string]Item, len(s.Equipment))
		for k, v := range s.Equipment {
			eq[k] = v
		}
		s.Equipment = eq
	}
	if len(s.Inventory.Slots) > 0 {
		s.Inventory.Slots = append([]Item(nil), s.Inventory.Slots...)
	}
	if s.HeldItem != nil {
		held := *s.HeldItem
		s.HeldItem = &held
	}
	if s.Position != nil {
		p := *s.Position
		s.Position = &p
	}
	if s.Velocity != nil {
		v := *s.Velocity
		s.Velocity = &v
	}
	return s
}

// Username returns the bot's own username from the last observation.
func (e *Environment) Username() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snap.Username
}

// Position returns the last known position, if any.
func (e *Environment) Position() (game.Position, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.snap.Position == nil {
		return game.Position{}, false
	}
	return *e.snap.Position, true
}

// OnGround reports the last observed on-ground flag.
func (e *Environment) OnGround() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snap.OnGround
}

// Health returns the last observed health block.
func (e *Environment) Health() HealthState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snap.Health
}

// UpdateFromObservation folds a query_player_status payload into the
// snapshot. Fields absent from the payload keep their previous values;
// malformed positions reset to nil with a warning. An accepted update is
// published as a status_update.
func (e *Environment) UpdateFromObservation(payload map[string]any) error {
	okFlag, _ := payload["ok"].(bool)
	if !okFlag {
		return fmt.Errorf("observation payload not ok")
	}
	data, ok := payload["data"].(map[string]any)
	if !ok {
		return fmt.Errorf("observation payload has no data object")
	}

	e.mu.Lock()
	s := &e.snap
	setString(data, "weather", &s.Weather)
	setString(data, "dimension", &s.Dimension)
	setString(data, "biome", &s.Biome)
	setString(data, "username", &s.Username)
	setString(data, "gamemode", &s.Gamemode)
	if v, ok := data["timeOfDay"]; ok {
		if n, ok := game.AsInt(v); ok {
			s.TimeOfDay = n
		}
	}
	if v, ok := data["onlinePlayers"]; ok {
		if arr, ok := v.([]any); ok {
			players := make([]string, 0, len(arr))
			for _, p := range arr {
				if name, ok := game.AsString(p); ok {
					players = append(players, name)
				}
			}
			s.OnlinePlayers = players
		}
	}

	updatePosition(data, "position", &s.Position)
	updatePosition(data, "velocity", &s.Velocity)
	setFloat(data, "yaw", &s.Yaw)
	setFloat(data, "pitch", &s.Pitch)
	setBool(data, "onGround", &s.OnGround)
	setBool(data, "isSleeping", &s.IsSleeping)

	if block, ok := data["health"].(map[string]any); ok {
		setFloat(block, "current", &s.Health.Current)
		setFloat(block, "max", &s.Health.Max)
		setFloat(block, "percentage", &s.Health.Percentage)
	}
	if block, ok := data["food"].(map[string]any); ok {
		setFloat(block, "current", &s.Food.Current)
		setFloat(block, "max", &s.Food.Max)
		setFloat(block, "saturation", &s.Food.Saturation)
		setFloat(block, "percentage", &s.Food.Percentage)
	}
	if block, ok := data["experience"].(map[string]any); ok {
		if n, ok := game.AsInt(block["points"]); ok {
			s.Experience.Points = n
		}
		if n, ok := game.AsInt(block["level"]); ok {
			s.Experience.Level = n
		}
	}
	setFloat(data, "oxygen", &s.Oxygen)
	setFloat(data, "armor", &s.Armor)

	if v, ok := data["equipment"].(map[string]any); ok {
		eq := make(map[string]Item, len(v))
		for slot, raw := range v {
			if item, ok := decodeItem(raw); ok {
				eq[slot] = item
			}
		}
		s.Equipment = eq
	}
	if v, ok := data["heldItem"]; ok {
		if item, decoded := decodeItem(v); decoded {
			s.HeldItem = &item
		} else {
			s.HeldItem = nil
		}
	}
	setBool(data, "usingHeldItem", &s.UsingHeldItem)
	if name, ok := cursorName(data, "blockAtCursor", "blockAtEntityCursor"); ok {
		s.BlockAtCursor = name
	}
	if name, ok := cursorName(data, "entityAtCursor"); ok {
		s.EntityAtCursor = name
	}

	if inv, ok := data["inventory"].(map[string]any); ok {
		if arr, ok := inv["slots"].([]any); ok {
			slots := make([]Item, 0, len(arr))
			for _, raw := range arr {
				if item, ok := decodeItem(raw); ok {
					slots = append(slots, item)
				}
			}
			s.Inventory.Slots = slots
		}
		if n, ok := game.AsInt(inv["fullSlotCount"]); ok {
			s.Inventory.FullSlotCount = n
		}
		if n, ok := game.AsInt(inv["emptySlotCount"]); ok {
			s.Inventory.EmptySlotCount = n
		}
		if n, ok := game.AsInt(inv["slotCount"]); ok {
			s.Inventory.SlotCount = n
		}
	}
	sink := e.sink
	ts := e.now()
	e.mu.Unlock()

	if sink != nil {
		sink(Update{Type: UpdateStatus, Timestamp: ts})
	}
	return nil
}

// UpdateNearbyEntities replaces the nearby-entity list and publishes an
// entity_update carrying the decoded entities.
func (e *Environment) UpdateNearbyEntities(list []any) {
	decoded := make([]game.EntityInfo, 0, len(list))
	for _, raw := range list {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		decoded = append(decoded, game.EntityFromMap(m))
	}

	e.mu.Lock()
	e.entities = decoded
	sink := e.sink
	ts := e.now()
	e.mu.Unlock()

	if sink != nil {
		out := make([]game.EntityInfo, len(decoded))
		copy(out, decoded)
		sink(Update{Type: UpdateEntities, Entities: out, Timestamp: ts})
	}
}

// NearbyEntities returns the last decoded entity list.
func (e *Environment) NearbyEntities() []game.EntityInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]game.EntityInfo, len(e.entities))
	copy(out, e.entities)
	return out
}

// AddRecentEvent appends to the bounded recent-event buffer.
func (e *Environment) AddRecentEvent(ev events.GameEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recent = append(e.recent, ev)
	if len(e.recent) > recentEventCapacity {
		e.recent = e.recent[len(e.recent)-recentEventCapacity:]
	}
}

// RecentEvents returns up to limit recent events, oldest first. limit <= 0
// returns all.
func (e *Environment) RecentEvents(limit int) []events.GameEvent {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if limit <= 0 || limit > len(e.recent) {
		limit = len(e.recent)
	}
	out := make([]events.GameEvent, limit)
	copy(out, e.recent[len(e.recent)-limit:])
	return out
}

// SetOverview stores the latest vision capture and its text description.
func (e *Environment) SetOverview(imageB64, text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.snap.OverviewImage = imageB64
	e.snap.OverviewText = text
}

// InventoryCounts tallies inventory items by name for the crafting planner.
func (e *Environment) InventoryCounts() map[string]int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	counts := make(map[string]int, len(e.snap.Inventory.Slots))
	for _, item := range e.snap.Inventory.Slots {
		counts[item.Name] += item.Count
	}
	return counts
}

// StatusText renders the snapshot as prompt context.
func (e *Environment) StatusText() string {
	s := e.Snapshot()
	var b strings.Builder
	fmt.Fprintf(&b, "玩家: %s (%s)\n", s.Username, s.Gamemode)
	fmt.Fprintf(&b, "生命值: %.1f/%.1f (%.0f%%)  饥饿值: %.1f/%.1f (饱和 %.1f)\n",
		s.Health.Current, s.Health.Max, s.Health.Percentage,
		s.Food.Current, s.Food.Max, s.Food.Saturation)
	fmt.Fprintf(&b, "氧气: %.0f  护甲: %.0f  经验: 等级 %d (%d 点)\n",
		s.Oxygen, s.Armor, s.Experience.Level, s.Experience.Points)
	if s.Position != nil {
		fmt.Fprintf(&b, "位置: %s", s.Position)
		if s.OnGround {
			b.WriteString(" (在地面上)")
		}
		b.WriteString("\n")
	} else {
		b.WriteString("位置: 未知\n")
	}
	fmt.Fprintf(&b, "维度: %s  群系: %s\n", s.Dimension, s.Biome)
	fmt.Fprintf(&b, "天气: %s  时间: %s (%d)\n", weatherLabel(s.Weather), timeOfDayLabel(s.TimeOfDay), s.TimeOfDay)
	if len(s.OnlinePlayers) > 0 {
		fmt.Fprintf(&b, "在线玩家: %s\n", strings.Join(s.OnlinePlayers, ", "))
	}
	if s.HeldItem != nil {
		fmt.Fprintf(&b, "手持: %s x%d\n", s.HeldItem.Name, s.HeldItem.Count)
	}
	if s.BlockAtCursor != "" {
		fmt.Fprintf(&b, "准星方块: %s\n", s.BlockAtCursor)
	}
	if s.EntityAtCursor != "" {
		fmt.Fprintf(&b, "准星实体: %s\n", s.EntityAtCursor)
	}
	if s.IsSleeping {
		b.WriteString("正在睡觉\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// InventoryText renders the inventory grouped by item name plus tool advice.
func (e *Environment) InventoryText() string {
	s := e.Snapshot()
	var b strings.Builder
	if len(s.Inventory.Slots) == 0 {
		b.WriteString("背包是空的")
	} else {
		counts := map[string]int{}
		order := []string{}
		for _, item := range s.Inventory.Slots {
			if _, seen := counts[item.Name]; !seen {
				order = append(order, item.Name)
			}
			counts[item.Name] += item.Count
		}
		fmt.Fprintf(&b, "背包 (%d/%d 格):\n", s.Inventory.FullSlotCount, s.Inventory.SlotCount)
		for _, name := range order {
			fmt.Fprintf(&b, "- %s x%d\n", name, counts[name])
		}
	}
	advice := ToolAdvice(s.Inventory.Slots)
	if advice != "" {
		b.WriteString("\n")
		b.WriteString(advice)
	}
	return strings.TrimRight(b.String(), "\n")
}

// NearbyEntitiesText renders one line per nearby entity.
func (e *Environment) NearbyEntitiesText() string {
	entities := e.NearbyEntities()
	if len(entities) == 0 {
		return "附近没有实体"
	}
	var b strings.Builder
	for _, ent := range entities {
		b.WriteString("- ")
		b.WriteString(ent.Describe())
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// RecentEventsText renders up to limit recent events as context lines.
func (e *Environment) RecentEventsText(limit int) string {
	recent := e.RecentEvents(limit)
	if len(recent) == 0 {
		return "(暂无事件)"
	}
	var b strings.Builder
	for _, ev := range recent {
		fmt.Fprintf(&b, "[%s] %s\n", game.FormatClock(ev.TimestampS()), ev.Description())
	}
	return strings.TrimRight(b.String(), "\n")
}

func setString(m map[string]any, key string, dst *string) {
	if v, ok := m[key]; ok {
		if s, ok := game.AsString(v); ok {
			*dst = s
		}
	}
}

func setFloat(m map[string]any, key string, dst *float64) {
	if v, ok := m[key]; ok {
		if f, ok := game.AsFloat(v); ok {
			*dst = f
		}
	}
}

func setBool(m map[string]any, key string, dst *bool) {
	if v, ok := m[key]; ok {
		if b, ok := v.(bool); ok {
			*dst = b
		}
	}
}

// updatePosition applies the missing-keeps-previous rule: an absent key
// keeps the old value, a malformed value resets to nil with a warning.
func updatePosition(m map[string]any, key string, dst **game.Position) {
	v, ok := m[key]
	if !ok {
		return
	}
	pm, ok := v.(map[string]any)
	if !ok {
		slog.Warn("Ignoring malformed position in observation", "field", key)
		*dst = nil
		return
	}
	pos, ok := game.PositionFromMap(pm)
	if !ok {
		slog.Warn("Ignoring malformed position in observation", "field", key)
		*dst = nil
		return
	}
	*dst = &pos
}

// cursorName reads the first present key as either a bare name string or an
// object with a name field.
func cursorName(m map[string]any, keys ...string) (string, bool) {
	for _, key := range keys {
		v, ok := m[key]
		if !ok {
			continue
		}
		if s, ok := game.AsString(v); ok {
			return s, true
		}
		if obj, ok := v.(map[string]any); ok {
			if s, ok := game.AsString(obj["name"]); ok {
				return s, true
			}
		}
		return "", true
	}
	return "", false
}

func decodeItem(v any) (Item, bool) {
	m, ok := v.(map[string]any)
	if !ok || m == nil {
		return Item{}, false
	}
	item := Item{Count: 1}
	item.Name, _ = game.AsString(m["name"])
	if item.Name == "" {
		return Item{}, false
	}
	item.DisplayName, _ = game.AsString(m["displayName"])
	if c, ok := game.AsInt(m["count"]); ok {
		item.Count = c
	}
	if s, ok := game.AsInt(m["slot"]); ok {
		item.Slot = s
	}
	if d, ok := game.AsInt(m["damage"]); ok {
		item.Damage = d
	}
	if md, ok := game.AsInt(m["maxDamage"]); ok {
		item.MaxDamage = md
	}
	return item, true
}

func weatherLabel(w string) string {
	switch w {
	case "clear", "":
		return "晴"
	case "rain":
		return "雨"
	case "thunder":
		return "雷暴"
	}
	return w
}

func timeOfDayLabel(t int) string {
	t = ((t % 24000) + 24000) % 24000
	switch {
	case t < 12000:
		return "白天"
	case t < 13800:
		return "黄昏"
	case t < 22200:
		return "夜晚"
	default:
		return "黎明"
	}
}
