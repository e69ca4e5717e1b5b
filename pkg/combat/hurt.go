package combat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/maicraft/maicraft-go/pkg/bridge"
	"github.com/maicraft/maicraft-go/pkg/config"
	"github.com/maicraft/maicraft-go/pkg/env"
	"github.com/maicraft/maicraft-go/pkg/events"
	"github.com/maicraft/maicraft-go/pkg/game"
	"github.com/maicraft/maicraft-go/pkg/journal"
	"github.com/maicraft/maicraft-go/pkg/llm"
	"github.com/maicraft/maicraft-go/pkg/world"
)

// Interrupt reasons raised by the hurt pipeline.
const (
	ReasonCriticalHealth = "critical_health_interrupt"
	ReasonDamage         = "damage"
)

const (
	// criticalHealth forces a distress call regardless of the source.
	criticalHealth = 3.0
	// retreatHealth makes the hostile path cry for help instead of fighting.
	retreatHealth = 6.0
	// responseTimeout bounds one LLM round plus the chat call.
	responseTimeout = 90 * time.Second
	// unknownAttacker stands in when the damage source carries no name.
	unknownAttacker = "有人"
)

// ResponderDeps bundles the subsystems the hurt pipeline reads and drives.
type ResponderDeps struct {
	Tools    bridge.ToolCaller
	Brain    llm.Client
	Fast     llm.Client
	Env      *env.Environment
	Movement *env.MovementMonitor
	Blocks   *world.Cache
	Thinking *journal.ThinkingLog
	Tasks    *journal.TaskList
	Chat     *journal.ChatHistory
}

// Responder turns entityHurt events into movement interrupts and a reaction:
// negotiation with players, counterattack or distress against hostiles.
type Responder struct {
	bot  config.BotConfig
	cfg  config.ThreatDetectionConfig
	deps ResponderDeps

	ctx    context.Context
	handle *events.Handle
}

// NewResponder creates the pipeline; Start wires it to the emitter.
func NewResponder(bot config.BotConfig, cfg config.ThreatDetectionConfig, deps ResponderDeps) *Responder {
	return &Responder{bot: bot, cfg: cfg, deps: deps}
}

// Start subscribes to entityHurt when damage interrupts are enabled. The
// context bounds every reaction spawned by later events.
func (r *Responder) Start(ctx context.Context, emitter *events.Emitter) error {
	if !r.cfg.EnableDamageInterrupt {
		slog.Info("Damage interrupt disabled, hurt pipeline not subscribed")
		return nil
	}
	r.ctx = ctx
	handle, err := emitter.On(events.TypeEntityHurt, r.onEntityHurt)
	if err != nil {
		return fmt.Errorf("subscribe entityHurt: %w", err)
	}
	r.handle = handle
	return nil
}

// Stop removes the subscription.
func (r *Responder) Stop() {
	if r.handle != nil {
		r.handle.Remove()
		r.handle = nil
	}
}

// onEntityHurt runs on the emitter's dispatch pool.
func (r *Responder) onEntityHurt(e events.GameEvent) error {
	hurt, ok := e.(*events.EntityHurtEvent)
	if !ok {
		return nil
	}
	if !r.isBotVictim(hurt.VictimName) {
		return nil
	}
	health := r.healthAfter(hurt)
	slog.Info("Bot hurt", "health", health,
		"source", hurt.SourceName, "source_type", hurt.SourceType)

	ctx := r.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, responseTimeout)
	defer cancel()

	if health <= criticalHealth {
		r.deps.Movement.Interrupt(ReasonCriticalHealth)
		r.think(fmt.Sprintf("生命值危急 (%.1f)，中断当前行动求救", health), journal.KindNotice)
		r.distress(ctx, health, hurt.SourceName)
		return nil
	}

	r.deps.Movement.Interrupt(ReasonDamage)
	switch {
	case hurt.SourceType == "player" || hurt.SourceKind == "player":
		attacker := hurt.SourceName
		if attacker == "" {
			attacker = unknownAttacker
		}
		r.negotiate(ctx, attacker)
	case hurt.SourceName != "" && IsHostileName(hurt.SourceName, hurt.SourceType, hurt.SourceKind):
		r.fightBack(ctx, hurt.SourceName, health)
	default:
		r.negotiate(ctx, unknownAttacker)
	}
	return nil
}

// isBotVictim matches the victim against the configured username, its
// alternates, and the live observation username.
func (r *Responder) isBotVictim(victim string) bool {
	v := strings.ToLower(strings.TrimSpace(victim))
	if v == "" {
		return false
	}
	if name := strings.ToLower(r.bot.Username); name != "" && v == name {
		return true
	}
	for _, alt := range r.bot.AlternateNames {
		if v == strings.ToLower(alt) {
			return true
		}
	}
	if r.deps.Env != nil {
		if name := strings.ToLower(r.deps.Env.Username()); name != "" && v == name {
			return true
		}
	}
	return false
}

// healthAfter prefers the event's own health reading over the (possibly
// stale) environment snapshot.
func (r *Responder) healthAfter(hurt *events.EntityHurtEvent) float64 {
	if hurt.Health != nil {
		return *hurt.Health
	}
	if r.deps.Env != nil {
		return r.deps.Env.Health().Current
	}
	return 0
}

// negotiate asks the model for a chat reply to the attacker, falling back to
// a fixed line when the model returns nothing.
func (r *Responder) negotiate(ctx context.Context, attacker string) {
	r.think(fmt.Sprintf("被 %s 攻击，尝试沟通", attacker), journal.KindNotice)
	reply := ""
	if r.deps.Brain != nil {
		prompt := r.negotiationPrompt(attacker)
		out, err := r.deps.Brain.Chat(ctx, prompt)
		if err != nil {
			slog.Warn("Negotiation reply failed", "attacker", attacker, "error", err)
		} else {
			reply = strings.TrimSpace(out)
		}
	}
	if reply == "" {
		reply = fmt.Sprintf("%s，别打我！有什么事可以好好说。", attacker)
	}
	r.sendChat(ctx, reply)
}

// distress sends a short help call generated by the fast model.
func (r *Responder) distress(ctx context.Context, health float64, attacker string) {
	reply := ""
	if r.deps.Fast != nil {
		out, err := r.deps.Fast.Chat(ctx, r.distressPrompt(health, attacker))
		if err != nil {
			slog.Warn("Distress reply failed", "error", err)
		} else {
			reply = strings.TrimSpace(out)
		}
	}
	if reply == "" {
		reply = "救命！我的生命值很低，谁来帮帮我！"
	}
	r.sendChat(ctx, reply)
}

// fightBack counterattacks a hostile source, or calls for help when too weak.
// A failed counterattack asks the model for a fallback strategy and records
// it in the thinking log.
func (r *Responder) fightBack(ctx context.Context, mob string, health float64) {
	if health <= retreatHealth {
		r.think(fmt.Sprintf("生命值过低 (%.1f)，不与 %s 交战", health, mob), journal.KindNotice)
		r.distress(ctx, health, mob)
		return
	}
	r.think(fmt.Sprintf("被 %s 攻击，发起反击", mob), journal.KindAction)
	res, err := bridge.KillMob(ctx, r.deps.Tools, mob)
	if err == nil && res.OK {
		r.think(fmt.Sprintf("反击成功，击败了 %s", mob), journal.KindAction)
		return
	}
	if err != nil {
		slog.Warn("Counterattack failed", "mob", mob, "error", err)
	} else {
		slog.Warn("Counterattack rejected", "mob", mob, "reason", res.Reason)
	}
	if r.deps.Brain == nil {
		return
	}
	strategy, serr := r.deps.Brain.Chat(ctx, r.strategyPrompt(mob, health))
	if serr != nil {
		slog.Warn("Combat strategy query failed", "error", serr)
		return
	}
	if s := strings.TrimSpace(strategy); s != "" {
		r.think("战斗策略: "+s, journal.KindThinking)
		r.executeStrategy(ctx, s)
	}
}

// executeStrategy runs the model's suggested action when its first line is a
// kill_mob or chat command; any other reply stays advisory text in the log.
func (r *Responder) executeStrategy(ctx context.Context, strategy string) {
	line := strings.TrimSpace(strings.SplitN(strategy, "\n", 2)[0])
	tool, rest, _ := strings.Cut(line, " ")
	args := bridge.ParseToolArgs(rest)
	switch tool {
	case bridge.ToolKillMob:
		mob, ok := game.AsString(args["mob"])
		if !ok || mob == "" {
			return
		}
		if res, err := bridge.KillMob(ctx, r.deps.Tools, mob); err != nil {
			slog.Warn("Strategy attack failed", "mob", mob, "error", err)
		} else if !res.OK {
			slog.Warn("Strategy attack rejected", "mob", mob, "reason", res.Reason)
		}
	case bridge.ToolChat:
		if msg, ok := game.AsString(args["message"]); ok && msg != "" {
			r.sendChat(ctx, msg)
		}
	}
}

// sendChat sends the line in game and records it as our own chat message.
func (r *Responder) sendChat(ctx context.Context, message string) {
	if r.deps.Tools != nil {
		if res, err := bridge.Chat(ctx, r.deps.Tools, message); err != nil {
			slog.Warn("Chat send failed", "error", err)
		} else if !res.OK {
			slog.Warn("Chat send rejected", "reason", res.Reason)
		}
	}
	if r.deps.Chat != nil {
		sender := r.bot.Username
		if sender == "" {
			sender = "bot"
		}
		r.deps.Chat.Add(message, sender, journal.ChatKindBot)
	}
}

func (r *Responder) think(text string, kind journal.Kind) {
	if r.deps.Thinking != nil {
		r.deps.Thinking.Add(text, kind)
	}
}
