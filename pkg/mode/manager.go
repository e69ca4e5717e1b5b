package mode

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/maicraft/maicraft-go/pkg/env"
)

// historyCapacity bounds the transition history.
const historyCapacity = 50

// TransitionRecord is one line of the bounded mode history.
type TransitionRecord struct {
	From        string
	To          string
	Reason      string
	TriggeredBy string
	Timestamp   time.Time
}

// Manager owns the mode registry, the active mode, and the environment
// fan-out. All public mutators serialize on one mutex; handler lifecycle
// callbacks run under it.
type Manager struct {
	mu        sync.Mutex
	configs   map[string]Config
	handlers  map[string]Handler
	current   string
	modeStart time.Time
	history   []TransitionRecord
	listeners []EnvironmentListener
	lastEnv   *env.Update

	ctx          context.Context
	restoreTimer *time.Timer
	restoreGen   uint64

	clock func() time.Time
}

// NewManager returns a manager seeded with the built-in modes (NopHandler
// each) and main_mode active.
func NewManager() *Manager {
	m := &Manager{
		configs:  map[string]Config{},
		handlers: map[string]Handler{},
		current:  MainMode,
		clock:    time.Now,
	}
	for key, cfg := range BuiltinConfigs() {
		m.configs[key] = cfg
		m.handlers[key] = NopHandler{}
	}
	m.modeStart = m.clock()
	return m
}

// Start hands the manager the lifecycle context used to gate auto-restore
// timers. Until Start is called, auto-restore scheduling only warns.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctx = ctx
}

// Register adds or replaces a mode. Re-registration overwrites handler and
// config.
func (m *Manager) Register(key string, cfg Config, h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.configs[key]; exists {
		slog.Debug("Replacing registered mode", "mode", key)
	}
	if cfg.Name == "" {
		cfg.Name = key
	}
	m.configs[key] = cfg
	if h == nil {
		h = NopHandler{}
	}
	m.handlers[key] = h
}

// HasMode reports whether key is registered.
func (m *Manager) HasMode(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.configs[key]
	return ok
}

// Current returns the active mode key.
func (m *Manager) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// CurrentConfig returns the active mode's config.
func (m *Manager) CurrentConfig() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.configs[m.current]
}

// Elapsed reports how long the active mode has been active.
func (m *Manager) Elapsed() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clock().Sub(m.modeStart)
}

// History returns a copy of the transition history, oldest first.
func (m *Manager) History() []TransitionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TransitionRecord, len(m.history))
	copy(out, m.history)
	return out
}

// SetMode switches the active mode. It refuses unknown targets, the already
// active mode, and lower-priority targets unless the target is main_mode.
// Gate refusals (canExit/canEnter false) leave the previous mode active
// with no history record; handler panics are logged and do not abort.
func (m *Manager) SetMode(target, reason, triggeredBy string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setModeLocked(target, reason, triggeredBy, false)
}

// ForceRestoreMainMode switches to main_mode bypassing priority checks.
func (m *Manager) ForceRestoreMainMode(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setModeLocked(MainMode, reason, "force_restore", true)
}

func (m *Manager) setModeLocked(target, reason, triggeredBy string, force bool) bool {
	cfg, known := m.configs[target]
	if !known {
		slog.Warn("Rejecting switch to unknown mode", "target", target, "reason", reason)
		return false
	}
	if target == m.current {
		slog.Debug("Mode already active", "mode", target)
		return false
	}
	currentCfg := m.configs[m.current]
	if !force && currentCfg.Priority > cfg.Priority && target != MainMode {
		slog.Info("Rejecting lower-priority mode switch",
			"from", m.current, "to", target,
			"fromPriority", currentCfg.Priority, "toPriority", cfg.Priority)
		return false
	}

	exiting := m.handlers[m.current]
	entering := m.handlers[target]
	if !safeCanExit(exiting, reason) {
		slog.Info("Current mode refused to exit", "mode", m.current, "reason", reason)
		return false
	}
	if !safeCanEnter(entering, reason) {
		slog.Info("Target mode refused entry", "mode", target, "reason", reason)
		return false
	}

	safeOnExit(exiting, reason, triggeredBy)

	from := m.current
	m.history = append(m.history, TransitionRecord{
		From:        from,
		To:          target,
		Reason:      reason,
		TriggeredBy: triggeredBy,
		Timestamp:   m.clock(),
	})
	if len(m.history) > historyCapacity {
		m.history = m.history[len(m.history)-historyCapacity:]
	}
	m.current = target
	m.modeStart = m.clock()

	m.cancelRestoreLocked()
	if cfg.AutoRestore && cfg.RestoreDelay > 0 {
		m.scheduleRestoreLocked(cfg.RestoreDelay)
	}

	safeOnEnter(entering, reason, triggeredBy)
	slog.Info("Mode switched", "from", from, "to", target, "reason", reason, "triggeredBy", triggeredBy)
	return true
}

// CheckAutoTransitions asks the active handler for suggestions and applies
// the highest-priority one SetMode accepts. Reports whether a switch
// happened.
func (m *Manager) CheckAutoTransitions() bool {
	m.mu.Lock()
	h := m.handlers[m.current]
	m.mu.Unlock()
	if h == nil {
		return false
	}
	suggestions := safeCheckTransitions(h)
	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Priority > suggestions[j].Priority
	})
	for _, tr := range suggestions {
		if m.SetMode(tr.Target, tr.Reason, "auto_transition") {
			return true
		}
	}
	return false
}

// AddEnvironmentListener registers a listener; re-adding the same name is a
// no-op.
func (m *Manager) AddEnvironmentListener(l EnvironmentListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.listeners {
		if existing.Name() == l.Name() {
			return
		}
	}
	m.listeners = append(m.listeners, l)
}

// RemoveEnvironmentListener drops the listener with the given name.
func (m *Manager) RemoveEnvironmentListener(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, l := range m.listeners {
		if l.Name() == name {
			m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
			return true
		}
	}
	return false
}

// HasEnvironmentListener reports whether a listener with the name is
// registered.
func (m *Manager) HasEnvironmentListener(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.listeners {
		if l.Name() == name {
			return true
		}
	}
	return false
}

// NotifyEnvironmentUpdated retains the payload for pull access and fans it
// out to every listener. Listeners run outside the manager lock, each under
// its own recover.
func (m *Manager) NotifyEnvironmentUpdated(u env.Update) {
	m.mu.Lock()
	m.lastEnv = &u
	snapshot := make([]EnvironmentListener, len(m.listeners))
	copy(snapshot, m.listeners)
	m.mu.Unlock()

	for _, l := range snapshot {
		notifyOne(l, u)
	}
}

// LastEnvironmentUpdate returns the most recent fan-out payload.
func (m *Manager) LastEnvironmentUpdate() (env.Update, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastEnv == nil {
		return env.Update{}, false
	}
	return *m.lastEnv, true
}

func notifyOne(l EnvironmentListener, u env.Update) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Environment listener panicked", "listener", l.Name(), "panic", r)
		}
	}()
	l.OnEnvironmentUpdated(u)
}

// cancelRestoreLocked stops any pending auto-restore and invalidates its
// in-flight callback.
func (m *Manager) cancelRestoreLocked() {
	m.restoreGen++
	if m.restoreTimer != nil {
		m.restoreTimer.Stop()
		m.restoreTimer = nil
	}
}

func (m *Manager) scheduleRestoreLocked(delay time.Duration) {
	if m.ctx == nil || m.ctx.Err() != nil {
		slog.Warn("Mode manager not running; skipping auto-restore timer", "mode", m.current)
		return
	}
	m.restoreGen++
	gen := m.restoreGen
	from := m.current
	m.restoreTimer = time.AfterFunc(delay, func() {
		m.autoRestore(gen, from)
	})
}

func (m *Manager) autoRestore(gen uint64, from string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.restoreGen || m.current != from {
		return
	}
	if m.ctx != nil && m.ctx.Err() != nil {
		return
	}
	slog.Info("Auto-restoring main mode", "from", from)
	m.setModeLocked(MainMode, "自动恢复", "auto_restore", true)
}

// The safe* wrappers isolate handler panics so a broken handler cannot
// wedge the state machine.

func safeCanExit(h Handler, reason string) bool {
	if h == nil {
		return true
	}
	ok := true
	func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Mode handler canExit panicked", "panic", r)
				ok = true
			}
		}()
		ok = h.CanExit(reason)
	}()
	return ok
}

func safeCanEnter(h Handler, reason string) bool {
	if h == nil {
		return true
	}
	ok := true
	func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Mode handler canEnter panicked", "panic", r)
				ok = true
			}
		}()
		ok = h.CanEnter(reason)
	}()
	return ok
}

func safeOnExit(h Handler, reason, triggeredBy string) {
	if h == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Mode handler onExit panicked", "panic", r)
		}
	}()
	h.OnExit(reason, triggeredBy)
}

func safeOnEnter(h Handler, reason, triggeredBy string) {
	if h == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Mode handler onEnter panicked", "panic", r)
		}
	}()
	h.OnEnter(reason, triggeredBy)
}

func safeCheckTransitions(h Handler) []Transition {
	var out []Transition
	func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Mode handler checkTransitions panicked", "panic", r)
			}
		}()
		out = h.CheckTransitions()
	}()
	return out
}
