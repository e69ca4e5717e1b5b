// Package combat reacts to hostile mobs and incoming damage: a mode handler
// that drives combat_mode from nearby-entity updates and an entityHurt
// pipeline that interrupts movement and answers attackers.
package combat

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/maicraft/maicraft-go/pkg/bridge"
	"github.com/maicraft/maicraft-go/pkg/config"
	"github.com/maicraft/maicraft-go/pkg/env"
	"github.com/maicraft/maicraft-go/pkg/journal"
	"github.com/maicraft/maicraft-go/pkg/mode"
)

// listenerName identifies the handler in the environment fan-out registry.
const listenerName = "combat_handler"

const (
	// killRetries is how many extra kill_mob calls follow a failed one.
	killRetries    = 2
	killRetryDelay = 500 * time.Millisecond
	// maxNamedThreats caps both the threat notice and each attack round.
	maxNamedThreats = 3
)

// threat is one classified hostile with its last observed distance.
// Distance -1 means the observation carried none.
type threat struct {
	name     string
	distance float64
}

// Handler owns combat_mode: it watches entity updates for hostiles, switches
// modes, and runs the attack loop while the mode is active.
type Handler struct {
	commander mode.Commander
	tools     bridge.ToolCaller
	thinking  *journal.ThinkingLog
	cfg       config.ThreatDetectionConfig

	mu         sync.Mutex
	inCombat   bool
	enteredAt  time.Time
	threats    map[string]threat
	attempts   map[string]int
	loopCancel context.CancelFunc

	retryDelay time.Duration
	now        func() time.Time
}

var (
	_ mode.Handler             = (*Handler)(nil)
	_ mode.EnvironmentListener = (*Handler)(nil)
)

// NewHandler creates the combat handler. The caller registers it for
// combat_mode and adds it as an environment listener.
func NewHandler(commander mode.Commander, tools bridge.ToolCaller, thinking *journal.ThinkingLog, cfg config.ThreatDetectionConfig) *Handler {
	return &Handler{
		commander:  commander,
		tools:      tools,
		thinking:   thinking,
		cfg:        cfg,
		threats:    make(map[string]threat),
		attempts:   make(map[string]int),
		retryDelay: killRetryDelay,
		now:        time.Now,
	}
}

// Name implements mode.EnvironmentListener.
func (h *Handler) Name() string { return listenerName }

// OnEnvironmentUpdated classifies the entity update and switches modes.
// Runs outside the manager lock, so calling back into the commander is safe.
func (h *Handler) OnEnvironmentUpdated(u env.Update) {
	if !h.cfg.IsEnabled() {
		return
	}
	// The combat registration can be dropped by runtime re-registration of
	// the mode table; restore it so SetMode keeps working.
	if !h.commander.HasMode(mode.CombatMode) {
		h.commander.Register(mode.CombatMode, mode.BuiltinConfigs()[mode.CombatMode], h)
	}
	if u.Type != env.UpdateEntities {
		return
	}

	inRange := make(map[string]threat)
	allBeyondMin := true
	for _, ent := range u.Entities {
		if !IsHostileEntity(ent) {
			continue
		}
		b := ent.Base()
		name := b.Name
		if name == "" {
			name = b.Type
		}
		dist := -1.0
		if b.Distance != nil {
			dist = *b.Distance
		}
		if dist >= 0 && dist <= h.cfg.MinDistance {
			allBeyondMin = false
		}
		// Unknown distance counts as in range: the entity query is already
		// range-limited and missing a threat is worse than a false alarm.
		if dist < 0 || dist <= h.cfg.Range {
			prev, seen := inRange[name]
			if !seen || (dist >= 0 && (prev.distance < 0 || dist < prev.distance)) {
				inRange[name] = threat{name: name, distance: dist}
			}
		}
	}

	h.mu.Lock()
	h.threats = inRange
	inCombat := h.inCombat
	h.mu.Unlock()

	switch {
	case len(inRange) > 0 && !inCombat:
		h.noticeThreats(inRange)
		if !h.commander.SetMode(mode.CombatMode, "检测到敌对生物", listenerName) {
			slog.Warn("Combat mode switch rejected", "threats", len(inRange))
		}
	case len(inRange) == 0 && inCombat && allBeyondMin:
		h.commander.SetMode(mode.MainMode, "威胁已解除", listenerName)
	}
}

// noticeThreats records a threat_detected notice naming the nearest hostiles.
func (h *Handler) noticeThreats(threats map[string]threat) {
	names := nearestNames(threats, maxNamedThreats)
	if len(names) == 0 || h.thinking == nil {
		return
	}
	h.thinking.Add(fmt.Sprintf("检测到威胁: %s", strings.Join(names, "、")), journal.KindNotice)
}

// CanEnter implements mode.Handler.
func (h *Handler) CanEnter(string) bool { return h.cfg.IsEnabled() }

// OnEnter starts the attack loop. Runs with the manager lock held, so it only
// mutates local state and spawns the goroutine.
func (h *Handler) OnEnter(reason, triggeredBy string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.loopCancel != nil {
		h.loopCancel()
	}
	h.inCombat = true
	h.enteredAt = h.now()
	ctx, cancel := context.WithCancel(context.Background())
	h.loopCancel = cancel
	go h.runAttackLoop(ctx)
	slog.Info("Entered combat", "reason", reason, "triggered_by", triggeredBy)
}

// CanExit implements mode.Handler.
func (h *Handler) CanExit(string) bool { return true }

// OnExit cancels the attack loop and clears combat state.
func (h *Handler) OnExit(reason, triggeredBy string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.loopCancel != nil {
		h.loopCancel()
		h.loopCancel = nil
	}
	h.inCombat = false
	h.threats = make(map[string]threat)
	h.attempts = make(map[string]int)
	slog.Info("Left combat", "reason", reason, "triggered_by", triggeredBy)
}

// CheckTransitions suggests returning to main_mode once threats are gone or
// the combat timeout has elapsed.
func (h *Handler) CheckTransitions() []mode.Transition {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.inCombat {
		return nil
	}
	if len(h.threats) == 0 {
		return []mode.Transition{{Target: mode.MainMode, Priority: 10, Reason: "威胁已解除"}}
	}
	if h.now().Sub(h.enteredAt) > h.timeout() {
		return []mode.Transition{{Target: mode.MainMode, Priority: 10, Reason: "战斗超时"}}
	}
	return nil
}

// runAttackLoop attacks the nearest hostiles once per attack interval until
// the mode exits or the combat timeout forces a restore.
func (h *Handler) runAttackLoop(ctx context.Context) {
	ticker := time.NewTicker(h.attackInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if h.timedOut() {
				slog.Warn("Combat timeout, forcing main mode", "timeout", h.timeout())
				h.commander.ForceRestoreMainMode("战斗超时")
				return
			}
			h.attackOnce(ctx)
		}
	}
}

func (h *Handler) timedOut() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.inCombat && h.now().Sub(h.enteredAt) > h.timeout()
}

// attackOnce attacks up to maxNamedThreats of the nearest hostiles, skipping
// names that already exhausted their attempts.
func (h *Handler) attackOnce(ctx context.Context) {
	h.mu.Lock()
	targets := nearestThreats(h.threats, maxNamedThreats)
	maxAttempts := h.maxAttempts()
	exhausted := make(map[string]bool, len(targets))
	for _, t := range targets {
		exhausted[t.name] = h.attempts[t.name] >= maxAttempts
	}
	h.mu.Unlock()

	for _, t := range targets {
		if ctx.Err() != nil {
			return
		}
		if exhausted[t.name] {
			slog.Debug("Skipping exhausted target", "mob", t.name)
			continue
		}
		if h.killWithRetry(ctx, t.name) {
			h.mu.Lock()
			delete(h.attempts, t.name)
			delete(h.threats, t.name)
			h.mu.Unlock()
			if h.thinking != nil {
				h.thinking.Add(fmt.Sprintf("击败了 %s", t.name), journal.KindAction)
			}
		} else {
			h.mu.Lock()
			h.attempts[t.name]++
			h.mu.Unlock()
		}
	}
}

// killWithRetry calls kill_mob up to 1+killRetries times with a fixed backoff.
func (h *Handler) killWithRetry(ctx context.Context, name string) bool {
	for attempt := 0; attempt <= killRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return false
			case <-time.After(h.retryDelay):
			}
		}
		res, err := bridge.KillMob(ctx, h.tools, name)
		if err == nil && res.OK {
			return true
		}
		if err != nil {
			slog.Warn("kill_mob call failed", "mob", name, "attempt", attempt+1, "error", err)
		} else {
			slog.Warn("kill_mob rejected", "mob", name, "attempt", attempt+1, "reason", res.Reason)
		}
	}
	return false
}

func (h *Handler) attackInterval() time.Duration {
	if h.cfg.AttackIntervalMS <= 0 {
		return 1500 * time.Millisecond
	}
	return time.Duration(h.cfg.AttackIntervalMS) * time.Millisecond
}

func (h *Handler) maxAttempts() int {
	if h.cfg.MaxAttackAttempts <= 0 {
		return 3
	}
	return h.cfg.MaxAttackAttempts
}

func (h *Handler) timeout() time.Duration {
	if h.cfg.ThreatTimeout <= 0 {
		return 300 * time.Second
	}
	return time.Duration(h.cfg.ThreatTimeout) * time.Second
}

// nearestThreats sorts by distance (unknown last) and caps the list.
func nearestThreats(m map[string]threat, limit int) []threat {
	out := make([]threat, 0, len(m))
	for _, t := range m {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		di, dj := out[i].distance, out[j].distance
		if di < 0 {
			return false
		}
		if dj < 0 {
			return true
		}
		if di != dj {
			return di < dj
		}
		return out[i].name < out[j].name
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func nearestNames(m map[string]threat, limit int) []string {
	ts := nearestThreats(m, limit)
	names := make([]string, 0, len(ts))
	for _, t := range ts {
		if t.distance >= 0 {
			names = append(names, fmt.Sprintf("%s (%.1f 格)", t.name, t.distance))
		} else {
			names = append(names, t.name)
		}
	}
	return names
}
