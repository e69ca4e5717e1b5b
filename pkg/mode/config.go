// Package mode implements the agent's mode state machine: a registry of
// mode handlers with priority-gated transitions, bounded history,
// auto-restore timers, and environment-update fan-out to listeners.
package mode

import (
	"time"

	"github.com/maicraft/maicraft-go/pkg/env"
)

// Built-in mode keys.
const (
	MainMode   = "main_mode"
	CombatMode = "combat_mode"
	FurnaceGUI = "furnace_gui"
	ChestGUI   = "chest_gui"
)

// Config describes one mode's switching behavior.
type Config struct {
	Name             string
	DisplayName      string
	Description      string
	AllowLLMDecision bool
	Priority         int
	// MaxDuration caps how long handlers should stay in the mode;
	// 0 means unlimited. Enforced by the handlers, not the manager.
	MaxDuration time.Duration
	// AutoRestore schedules a switch back to main_mode RestoreDelay after
	// entering this mode.
	AutoRestore  bool
	RestoreDelay time.Duration
}

// BuiltinConfigs returns the closed built-in mode set. The registry stays
// runtime-extensible through Register.
func BuiltinConfigs() map[string]Config {
	return map[string]Config{
		MainMode: {
			Name:             MainMode,
			DisplayName:      "主模式",
			Description:      "常规的探索、采集与建造",
			AllowLLMDecision: true,
			Priority:         0,
		},
		CombatMode: {
			Name:             CombatMode,
			DisplayName:      "战斗模式",
			Description:      "应对敌对生物的威胁",
			AllowLLMDecision: false,
			Priority:         100,
			MaxDuration:      300 * time.Second,
			AutoRestore:      true,
			RestoreDelay:     10 * time.Second,
		},
		FurnaceGUI: {
			Name:             FurnaceGUI,
			DisplayName:      "熔炉界面模式",
			Description:      "操作打开的熔炉界面",
			AllowLLMDecision: true,
			Priority:         10,
		},
		ChestGUI: {
			Name:             ChestGUI,
			DisplayName:      "箱子界面模式",
			Description:      "操作打开的箱子界面",
			AllowLLMDecision: true,
			Priority:         10,
		},
	}
}

// Transition is a mode switch suggested by a handler's CheckTransitions.
type Transition struct {
	Target   string
	Priority int
	Reason   string
}

// Handler receives mode lifecycle callbacks. Callbacks run with the manager
// lock held and must not call back into the manager synchronously; suggest
// switches through CheckTransitions or from a separate goroutine.
type Handler interface {
	CanEnter(reason string) bool
	OnEnter(reason, triggeredBy string)
	CanExit(reason string) bool
	OnExit(reason, triggeredBy string)
	CheckTransitions() []Transition
}

// NopHandler accepts every transition and suggests none. Modes without
// dedicated behavior (main, GUI modes) register it.
type NopHandler struct{}

func (NopHandler) CanEnter(string) bool          { return true }
func (NopHandler) OnEnter(string, string)        {}
func (NopHandler) CanExit(string) bool           { return true }
func (NopHandler) OnExit(string, string)         {}
func (NopHandler) CheckTransitions() []Transition { return nil }

// Commander is the narrow manager surface handed to mode handlers.
type Commander interface {
	Current() string
	HasMode(key string) bool
	Register(key string, cfg Config, h Handler)
	SetMode(target, reason, triggeredBy string) bool
	ForceRestoreMainMode(reason string)
}

// EnvironmentListener receives each environment update fanned out by the
// manager.
type EnvironmentListener interface {
	Name() string
	OnEnvironmentUpdated(u env.Update)
}
