// Package agent is the composition root: it owns every subsystem, wires
// them together explicitly, and drives the bridge poll loops that keep the
// environment model and the event stores fresh. Nothing in here is a global;
// consumers receive references at construction time.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/maicraft/maicraft-go/pkg/api"
	"github.com/maicraft/maicraft-go/pkg/bridge"
	"github.com/maicraft/maicraft-go/pkg/combat"
	"github.com/maicraft/maicraft-go/pkg/config"
	"github.com/maicraft/maicraft-go/pkg/crafting"
	"github.com/maicraft/maicraft-go/pkg/env"
	"github.com/maicraft/maicraft-go/pkg/events"
	"github.com/maicraft/maicraft-go/pkg/journal"
	"github.com/maicraft/maicraft-go/pkg/llm"
	"github.com/maicraft/maicraft-go/pkg/mode"
	"github.com/maicraft/maicraft-go/pkg/world"
)

// Persisted state file names under game.data_dir.
const (
	thinkingFile  = "thinking_log.json"
	tasksFile     = "todo_list.json"
	locationsFile = "locations.json"
)

// eventStoreCapacity bounds the global event ring. The environment keeps
// its own shorter recent-events window on top of this.
const eventStoreCapacity = 500

// Agent owns the full subsystem graph. Construction wires everything;
// Start connects the bridge and launches the background loops; Stop tears
// them down in reverse order.
type Agent struct {
	cfg *config.Config

	bridge *bridge.Client
	// tools is the calling surface the loops and sub-services use. It is
	// the bridge client in production; tests substitute a stub.
	tools bridge.ToolCaller

	brain llm.Client
	fast  llm.Client
	// vision is nil unless the visual overview feature is enabled.
	vision llm.Client

	registry *events.Registry
	store    *events.Store
	emitter  *events.Emitter

	environment *env.Environment
	movement    *env.MovementMonitor
	blocks      *world.Cache
	locations   *world.LocationStore

	thinking *journal.ThinkingLog
	tasks    *journal.TaskList
	chat     *journal.ChatHistory

	modes    *mode.Manager
	combat   *combat.Handler
	hurt     *combat.Responder
	crafting *crafting.Service

	server *api.Server

	cancel context.CancelFunc
	wg     sync.WaitGroup

	// lastTick is the newest game tick seen on the event poll; the next
	// poll asks only for events after it. Guarded by tickMu.
	tickMu   sync.Mutex
	lastTick int
}

// New builds the subsystem graph from the loaded configuration. No I/O
// happens here beyond reading the persisted journal files.
func New(cfg *config.Config) *Agent {
	a := &Agent{
		cfg:      cfg,
		registry: events.NewRegistry(),
		store:    events.NewStore(eventStoreCapacity),
		emitter:  events.NewEmitter(events.EmitterConfig{}),
		blocks:   world.NewCache(),
		chat:     journal.NewChatHistory(0),
		modes:    mode.NewManager(),
	}

	a.bridge = bridge.NewClient(cfg.Game)
	a.tools = a.bridge

	a.brain = llm.NewHTTPClient(cfg.LLM)
	a.fast = llm.NewHTTPClient(cfg.LLMFast)
	if cfg.Visual.Enable {
		a.vision = llm.NewHTTPClient(cfg.VLM)
	}

	dataDir := cfg.Game.DataDir
	a.thinking = journal.NewThinkingLog(filepath.Join(dataDir, thinkingFile))
	a.tasks = journal.NewTaskList(filepath.Join(dataDir, tasksFile))
	a.locations = world.NewLocationStore(filepath.Join(dataDir, locationsFile))
	if cfg.Bot.Goal != "" {
		a.tasks.SetGoal(cfg.Bot.Goal)
	}

	a.environment = env.New()
	a.movement = env.NewMovementMonitor(a.environment)

	// Each environment refresh notifies the mode system, which fans out to
	// listeners and then evaluates auto transitions on the active handler.
	a.environment.SetSink(func(u env.Update) {
		a.modes.NotifyEnvironmentUpdated(u)
		a.modes.CheckAutoTransitions()
	})

	a.combat = combat.NewHandler(a.modes, a.tools, a.thinking, cfg.ThreatDetection)
	a.modes.Register(mode.CombatMode, mode.BuiltinConfigs()[mode.CombatMode], a.combat)
	a.modes.AddEnvironmentListener(a.combat)

	a.hurt = combat.NewResponder(cfg.Bot, cfg.ThreatDetection, combat.ResponderDeps{
		Tools:    a.tools,
		Brain:    a.brain,
		Fast:     a.fast,
		Env:      a.environment,
		Movement: a.movement,
		Blocks:   a.blocks,
		Thinking: a.thinking,
		Tasks:    a.tasks,
		Chat:     a.chat,
	})

	a.crafting = crafting.NewService(a.tools, a.environment, a.blocks)

	if cfg.API.IsEnabled() {
		a.server = api.NewServer(cfg.API, a.tasks, a.modes, a.environment, a.store, a.bridge)
	}

	return a
}

// Start connects the bridge and launches the background loops. The context
// bounds the agent's lifetime; Stop cancels the derived context and waits.
func (a *Agent) Start(ctx context.Context) error {
	if err := a.bridge.Connect(ctx); err != nil {
		return fmt.Errorf("start agent: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.emitter.Start(runCtx)
	a.modes.Start(runCtx)

	if err := a.hurt.Start(runCtx, a.emitter); err != nil {
		cancel()
		return fmt.Errorf("start hurt responder: %w", err)
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.movement.Run(runCtx)
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.runEnvironmentLoop(runCtx)
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.runEventLoop(runCtx)
	}()

	slog.Info("Agent started",
		"username", a.cfg.Bot.Username,
		"poll_interval", a.cfg.Game.PollInterval(),
		"api_enabled", a.cfg.API.IsEnabled())
	return nil
}

// Stop cancels the background loops, waits for them, and closes the bridge.
// Safe to call once after a successful Start.
func (a *Agent) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()
	a.hurt.Stop()
	a.emitter.Stop()
	if err := a.bridge.Close(); err != nil {
		slog.Warn("Bridge close failed", "error", err)
	}
	slog.Info("Agent stopped")
}

// Server returns the API server, or nil when the API is disabled.
func (a *Agent) Server() *api.Server { return a.server }

// Crafting returns the crafting service.
func (a *Agent) Crafting() *crafting.Service { return a.crafting }

// Tasks returns the goal and task list.
func (a *Agent) Tasks() *journal.TaskList { return a.tasks }

// Modes returns the mode manager.
func (a *Agent) Modes() *mode.Manager { return a.modes }

// Environment returns the live environment model.
func (a *Agent) Environment() *env.Environment { return a.environment }

// pollInterval returns the configured poll period with a floor so a zero
// config cannot spin the loop.
func (a *Agent) pollInterval() time.Duration {
	if d := a.cfg.Game.PollInterval(); d > 0 {
		return d
	}
	return time.Second
}
