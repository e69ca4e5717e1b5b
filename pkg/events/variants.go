package events

import (
	"fmt"

	"github.com/maicraft/maicraft-go/pkg/game"
)

// Wire type strings for the known event variants.
const (
	TypeChat          = "chat"
	TypePlayerJoined  = "playerJoined"
	TypePlayerLeft    = "playerLeft"
	TypePlayerMove    = "playerMove"
	TypePlayerRespawn = "playerRespawn"
	TypeDeath         = "death"
	TypeSpawn         = "spawn"
	TypeSpawnReset    = "spawnReset"
	TypeKicked        = "kicked"
	TypeRain          = "rain"
	TypeHealth        = "health"
	TypeBreath        = "breath"
	TypeEntityHurt    = "entityHurt"
	TypeEntityDead    = "entityDead"
	TypePlayerCollect = "playerCollect"
	TypeItemDrop      = "itemDrop"
	TypeBlockBreak    = "blockBreak"
	TypeBlockPlace    = "blockPlace"
	TypeForcedMove    = "forcedMove"
)

// ChatEvent is a chat line relayed from the server.
type ChatEvent struct {
	Event
	Username string
	Message  string
}

func newChatEvent(raw RawEvent) GameEvent {
	e := &ChatEvent{Event: newBase(raw)}
	e.Username, _ = e.Data.GetString("username")
	e.Message, _ = e.Data.GetString("message")
	return e
}

func (e *ChatEvent) Description() string {
	return fmt.Sprintf("%s 说: %s", e.Username, e.Message)
}

func (e *ChatEvent) ContextString() string {
	return fmt.Sprintf("[chat] %s: %s", e.Username, e.Message)
}

// PlayerJoinedEvent fires when a player appears on the tab list.
type PlayerJoinedEvent struct {
	Event
	Player game.Player
}

func newPlayerJoinedEvent(raw RawEvent) GameEvent {
	e := &PlayerJoinedEvent{Event: newBase(raw)}
	e.Player, _ = e.Data.GetPlayer("player")
	return e
}

func (e *PlayerJoinedEvent) Description() string {
	return fmt.Sprintf("%s 加入了游戏", e.Player)
}

func (e *PlayerJoinedEvent) ContextString() string {
	return fmt.Sprintf("[playerJoined] %s", e.Player.Username)
}

// PlayerLeftEvent fires when a player disappears from the tab list.
type PlayerLeftEvent struct {
	Event
	Player game.Player
}

func newPlayerLeftEvent(raw RawEvent) GameEvent {
	e := &PlayerLeftEvent{Event: newBase(raw)}
	e.Player, _ = e.Data.GetPlayer("player")
	return e
}

func (e *PlayerLeftEvent) Description() string {
	return fmt.Sprintf("%s 离开了游戏", e.Player)
}

func (e *PlayerLeftEvent) ContextString() string {
	return fmt.Sprintf("[playerLeft] %s", e.Player.Username)
}

// PlayerMoveEvent reports another player's movement.
type PlayerMoveEvent struct {
	Event
	Player   game.Player
	Position *game.Position
}

func newPlayerMoveEvent(raw RawEvent) GameEvent {
	e := &PlayerMoveEvent{Event: newBase(raw)}
	e.Player, _ = e.Data.GetPlayer("player")
	if p, ok := e.Data.GetPosition("position"); ok {
		e.Position = &p
	} else if p, ok := e.Data.GetPosition("newPosition"); ok {
		e.Position = &p
	}
	return e
}

func (e *PlayerMoveEvent) Description() string {
	if e.Position != nil {
		return fmt.Sprintf("%s 移动到了 %s", e.Player, e.Position.Block())
	}
	return fmt.Sprintf("%s 移动了", e.Player)
}

func (e *PlayerMoveEvent) ContextString() string {
	if e.Position != nil {
		return fmt.Sprintf("[playerMove] %s -> %s", e.Player.Username, e.Position.Block())
	}
	return fmt.Sprintf("[playerMove] %s", e.Player.Username)
}

// PlayerRespawnEvent fires when a player respawns.
type PlayerRespawnEvent struct {
	Event
	Player game.Player
}

func newPlayerRespawnEvent(raw RawEvent) GameEvent {
	e := &PlayerRespawnEvent{Event: newBase(raw)}
	e.Player, _ = e.Data.GetPlayer("player")
	return e
}

func (e *PlayerRespawnEvent) Description() string {
	return fmt.Sprintf("%s 重生了", e.Player)
}

func (e *PlayerRespawnEvent) ContextString() string {
	return fmt.Sprintf("[playerRespawn] %s", e.Player.Username)
}

// DeathEvent fires when the bot (or a named player) dies.
type DeathEvent struct {
	Event
}

func newDeathEvent(raw RawEvent) GameEvent {
	return &DeathEvent{Event: newBase(raw)}
}

func (e *DeathEvent) Description() string {
	if name := e.PlayerName(); name != "" {
		return fmt.Sprintf("%s 死亡了", name)
	}
	return "你死亡了"
}

func (e *DeathEvent) ContextString() string {
	if name := e.PlayerName(); name != "" {
		return fmt.Sprintf("[death] %s", name)
	}
	return "[death] 你死亡了"
}

// SpawnEvent fires when the bot finishes spawning into the world.
type SpawnEvent struct {
	Event
}

func newSpawnEvent(raw RawEvent) GameEvent {
	return &SpawnEvent{Event: newBase(raw)}
}

func (e *SpawnEvent) Description() string   { return "已在世界中生成" }
func (e *SpawnEvent) ContextString() string { return "[spawn] 已在世界中生成" }

// SpawnResetEvent fires when the respawn point changes.
type SpawnResetEvent struct {
	Event
}

func newSpawnResetEvent(raw RawEvent) GameEvent {
	return &SpawnResetEvent{Event: newBase(raw)}
}

func (e *SpawnResetEvent) Description() string   { return "重生点已更新" }
func (e *SpawnResetEvent) ContextString() string { return "[spawnReset] 重生点已更新" }

// KickedEvent fires when the server disconnects the bot.
type KickedEvent struct {
	Event
	Reason string
}

func newKickedEvent(raw RawEvent) GameEvent {
	e := &KickedEvent{Event: newBase(raw)}
	e.Reason, _ = e.Data.GetString("reason")
	return e
}

func (e *KickedEvent) Description() string {
	if e.Reason != "" {
		return fmt.Sprintf("被服务器踢出: %s", e.Reason)
	}
	return "被服务器踢出"
}

func (e *KickedEvent) ContextString() string {
	return fmt.Sprintf("[kicked] %s", e.Reason)
}

// RainEvent fires when rain starts or stops.
type RainEvent struct {
	Event
	Raining bool
}

func newRainEvent(raw RawEvent) GameEvent {
	e := &RainEvent{Event: newBase(raw), Raining: true}
	if b, ok := e.Data.GetBool("raining"); ok {
		e.Raining = b
	}
	return e
}

func (e *RainEvent) Description() string {
	if e.Raining {
		return "开始下雨了"
	}
	return "雨停了"
}

func (e *RainEvent) ContextString() string {
	if e.Raining {
		return "[rain] 开始下雨"
	}
	return "[rain] 雨停了"
}

// HealthEvent reports the bot's health and food state.
type HealthEvent struct {
	Event
	Health     float64
	Food       float64
	Saturation float64
}

func newHealthEvent(raw RawEvent) GameEvent {
	e := &HealthEvent{Event: newBase(raw)}
	e.Health, _ = e.Data.GetFloat("health")
	e.Food, _ = e.Data.GetFloat("food")
	e.Saturation, _ = e.Data.GetFloat("saturation")
	return e
}

func (e *HealthEvent) Description() string {
	return fmt.Sprintf("生命值 %.1f, 饥饿值 %.1f", e.Health, e.Food)
}

func (e *HealthEvent) ContextString() string {
	return fmt.Sprintf("[health] 生命 %.1f 饥饿 %.1f", e.Health, e.Food)
}

// BreathEvent reports the bot's remaining oxygen.
type BreathEvent struct {
	Event
	Breath int
}

func newBreathEvent(raw RawEvent) GameEvent {
	e := &BreathEvent{Event: newBase(raw)}
	e.Breath, _ = e.Data.GetInt("breath")
	return e
}

func (e *BreathEvent) Description() string {
	return fmt.Sprintf("氧气值 %d", e.Breath)
}

func (e *BreathEvent) ContextString() string {
	return fmt.Sprintf("[breath] 氧气 %d", e.Breath)
}

// EntityHurtEvent reports damage to an entity. Victim and source are decoded
// from the raw payload because recognizable shapes lose fields the hurt
// pipeline needs (a {username, health} victim decodes to a Player, which has
// no health).
type EntityHurtEvent struct {
	Event
	VictimName string
	Health     *float64
	Damage     *float64
	SourceType string
	SourceKind string
	SourceName string
}

func newEntityHurtEvent(raw RawEvent) GameEvent {
	e := &EntityHurtEvent{Event: newBase(raw)}
	if victim, ok := e.Data.GetMap("entity"); ok {
		if s, ok := game.AsString(victim["username"]); ok && s != "" {
			e.VictimName = s
		} else if s, ok := game.AsString(victim["name"]); ok {
			e.VictimName = s
		}
		if h, ok := game.AsFloat(victim["health"]); ok {
			e.Health = &h
		}
	}
	if e.Health == nil {
		if h, ok := e.Data.GetFloat("health"); ok {
			e.Health = &h
		}
	}
	if d, ok := e.Data.GetFloat("damage"); ok {
		e.Damage = &d
	}
	if src, ok := e.Data.GetMap("source"); ok {
		e.SourceType, _ = game.AsString(src["type"])
		e.SourceKind, _ = game.AsString(src["kind"])
		if s, ok := game.AsString(src["username"]); ok && s != "" {
			e.SourceName = s
		} else if s, ok := game.AsString(src["name"]); ok {
			e.SourceName = s
		}
	}
	return e
}

func (e *EntityHurtEvent) Description() string {
	who := e.VictimName
	if who == "" {
		who = "某个实体"
	}
	out := fmt.Sprintf("%s 受到了伤害", who)
	if e.SourceName != "" {
		out = fmt.Sprintf("%s 受到了 %s 的攻击", who, e.SourceName)
	}
	if e.Health != nil {
		out += fmt.Sprintf(" (生命值 %.1f)", *e.Health)
	}
	return out
}

func (e *EntityHurtEvent) ContextString() string {
	if e.SourceName != "" {
		return fmt.Sprintf("[entityHurt] %s <- %s", e.VictimName, e.SourceName)
	}
	return fmt.Sprintf("[entityHurt] %s", e.VictimName)
}

// EntityDeadEvent reports an entity's death.
type EntityDeadEvent struct {
	Event
	Name string
}

func newEntityDeadEvent(raw RawEvent) GameEvent {
	e := &EntityDeadEvent{Event: newBase(raw)}
	if victim, ok := e.Data.GetMap("entity"); ok {
		if s, ok := game.AsString(victim["username"]); ok && s != "" {
			e.Name = s
		} else if s, ok := game.AsString(victim["name"]); ok {
			e.Name = s
		}
	}
	return e
}

func (e *EntityDeadEvent) Description() string {
	if e.Name == "" {
		return "一个实体死了"
	}
	return fmt.Sprintf("%s 死了", e.Name)
}

func (e *EntityDeadEvent) ContextString() string {
	return fmt.Sprintf("[entityDead] %s", e.Name)
}

// PlayerCollectEvent fires when a player picks up a dropped item.
type PlayerCollectEvent struct {
	Event
	Collector string
	ItemName  string
}

func newPlayerCollectEvent(raw RawEvent) GameEvent {
	e := &PlayerCollectEvent{Event: newBase(raw)}
	if col, ok := e.Data.GetMap("collector"); ok {
		if s, ok := game.AsString(col["username"]); ok && s != "" {
			e.Collector = s
		} else {
			e.Collector, _ = game.AsString(col["name"])
		}
	}
	if item, ok := e.Data.GetMap("collected"); ok {
		if s, ok := game.AsString(item["itemName"]); ok && s != "" {
			e.ItemName = s
		} else {
			e.ItemName, _ = game.AsString(item["name"])
		}
	}
	return e
}

func (e *PlayerCollectEvent) Description() string {
	return fmt.Sprintf("%s 捡起了 %s", e.Collector, e.ItemName)
}

func (e *PlayerCollectEvent) ContextString() string {
	return fmt.Sprintf("[playerCollect] %s <- %s", e.Collector, e.ItemName)
}

// ItemDropEvent fires when an item stack appears on the ground.
type ItemDropEvent struct {
	Event
	ItemName string
	Count    int
}

func newItemDropEvent(raw RawEvent) GameEvent {
	e := &ItemDropEvent{Event: newBase(raw), Count: 1}
	if item, ok := e.Data.GetMap("item"); ok {
		if s, ok := game.AsString(item["itemName"]); ok && s != "" {
			e.ItemName = s
		} else {
			e.ItemName, _ = game.AsString(item["name"])
		}
		if c, ok := game.AsInt(item["count"]); ok {
			e.Count = c
		}
	}
	return e
}

func (e *ItemDropEvent) Description() string {
	return fmt.Sprintf("掉落物 %s x%d 出现了", e.ItemName, e.Count)
}

func (e *ItemDropEvent) ContextString() string {
	return fmt.Sprintf("[itemDrop] %s x%d", e.ItemName, e.Count)
}

// BlockBreakEvent fires when a block is broken.
type BlockBreakEvent struct {
	Event
	BlockName string
	Position  *game.Position
}

func newBlockBreakEvent(raw RawEvent) GameEvent {
	e := &BlockBreakEvent{Event: newBase(raw)}
	e.BlockName, e.Position = decodeBlockRef(e.Data)
	return e
}

func (e *BlockBreakEvent) Description() string {
	if e.Position != nil {
		return fmt.Sprintf("方块 %s 在 %s 被破坏", e.BlockName, e.Position.Block())
	}
	return fmt.Sprintf("方块 %s 被破坏", e.BlockName)
}

func (e *BlockBreakEvent) ContextString() string {
	if e.Position != nil {
		return fmt.Sprintf("[blockBreak] %s %s", e.BlockName, e.Position.Block())
	}
	return fmt.Sprintf("[blockBreak] %s", e.BlockName)
}

// BlockPlaceEvent fires when a block is placed.
type BlockPlaceEvent struct {
	Event
	BlockName string
	Position  *game.Position
}

func newBlockPlaceEvent(raw RawEvent) GameEvent {
	e := &BlockPlaceEvent{Event: newBase(raw)}
	e.BlockName, e.Position = decodeBlockRef(e.Data)
	return e
}

func (e *BlockPlaceEvent) Description() string {
	if e.Position != nil {
		return fmt.Sprintf("方块 %s 在 %s 被放置", e.BlockName, e.Position.Block())
	}
	return fmt.Sprintf("方块 %s 被放置", e.BlockName)
}

func (e *BlockPlaceEvent) ContextString() string {
	if e.Position != nil {
		return fmt.Sprintf("[blockPlace] %s %s", e.BlockName, e.Position.Block())
	}
	return fmt.Sprintf("[blockPlace] %s", e.BlockName)
}

// decodeBlockRef reads the {block:{name,position}} or flat {name,position}
// shapes block events arrive in.
func decodeBlockRef(d Data) (string, *game.Position) {
	name := ""
	var pos *game.Position
	if block, ok := d.GetMap("block"); ok {
		name, _ = game.AsString(block["name"])
		if pm, ok := block["position"].(map[string]any); ok {
			if p, ok := game.PositionFromMap(pm); ok {
				pos = &p
			}
		}
	}
	if name == "" {
		name, _ = d.GetString("name")
	}
	if pos == nil {
		if p, ok := d.GetPosition("position"); ok {
			pos = &p
		}
	}
	return name, pos
}

// ForcedMoveEvent fires when the server corrects the bot's position.
type ForcedMoveEvent struct {
	Event
	Position *game.Position
}

func newForcedMoveEvent(raw RawEvent) GameEvent {
	e := &ForcedMoveEvent{Event: newBase(raw)}
	if p, ok := e.Data.GetPosition("position"); ok {
		e.Position = &p
	}
	return e
}

func (e *ForcedMoveEvent) Description() string {
	if e.Position != nil {
		return fmt.Sprintf("位置被强制修正到 %s", e.Position.Block())
	}
	return "位置被强制修正"
}

func (e *ForcedMoveEvent) ContextString() string {
	if e.Position != nil {
		return fmt.Sprintf("[forcedMove] -> %s", e.Position.Block())
	}
	return "[forcedMove]"
}
