package env

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/maicraft/maicraft-go/pkg/game"
)

const (
	// fallingVSpeed is the vertical speed below which a fall is flagged.
	fallingVSpeed = -13.0
	// teleportSpeed is the total speed above which a teleport is flagged.
	teleportSpeed = 30.0
	// superviseInterval paces the supervisory loop.
	superviseInterval = 500 * time.Millisecond
)

// Interrupt reasons raised by the supervisor.
const (
	ReasonFell       = "recently fell"
	ReasonTeleported = "recently teleported"
)

// MovementMonitor derives velocity from consecutive position samples and
// flags falls and teleports. A supervisory loop turns the flags into action
// interrupts once the bot is back on solid ground.
type MovementMonitor struct {
	env *Environment

	mu         sync.Mutex
	prev       *game.Position
	prevT      float64
	horizontal float64
	vertical   float64
	total      float64
	falling    bool
	teleported bool

	interrupted bool
	reason      string

	now func() float64
}

// NewMovementMonitor creates a monitor reading onGround from env.
func NewMovementMonitor(environment *Environment) *MovementMonitor {
	return &MovementMonitor{env: environment, now: game.Now}
}

// Sample records a position observation and updates the derived speeds and
// flags. t is epoch seconds; pass game.Now() for live samples.
func (m *MovementMonitor) Sample(pos game.Position, t float64) {
	t = game.NormalizeTimestamp(t)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.prev != nil {
		dt := t - m.prevT
		if dt > 0 {
			delta := pos.Sub(*m.prev)
			v, err := delta.DivScalar(dt)
			if err == nil {
				m.horizontal = math.Sqrt(v.X*v.X + v.Z*v.Z)
				m.vertical = v.Y
				m.total = math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
				if m.vertical < fallingVSpeed {
					m.falling = true
				}
				if m.total > teleportSpeed {
					m.teleported = true
				}
			}
		}
	}
	p := pos
	m.prev = &p
	m.prevT = t
}

// Speeds returns the last derived horizontal, vertical, and total speeds.
func (m *MovementMonitor) Speeds() (horizontal, vertical, total float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.horizontal, m.vertical, m.total
}

// Run drives the supervisory loop until ctx is cancelled.
func (m *MovementMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(superviseInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.supervise()
		}
	}
}

// supervise resolves pending flags against the current onGround state.
func (m *MovementMonitor) supervise() {
	onGround := m.env.OnGround()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.falling {
		if onGround {
			m.falling = false
			m.interruptLocked(ReasonFell)
			slog.Info("Fall ended, interrupting current action", "reason", ReasonFell)
		} else {
			slog.Info("Still falling", "verticalSpeed", m.vertical)
		}
	}
	if m.teleported {
		m.teleported = false
		m.interruptLocked(ReasonTeleported)
		slog.Info("Teleport detected, interrupting current action", "reason", ReasonTeleported)
	}
}

// Interrupt raises the shared interrupted flag with a reason. Later reasons
// overwrite earlier ones until the flag is consumed.
func (m *MovementMonitor) Interrupt(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interruptLocked(reason)
}

func (m *MovementMonitor) interruptLocked(reason string) {
	m.interrupted = true
	m.reason = reason
}

// Interrupted reports the flag without clearing it.
func (m *MovementMonitor) Interrupted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.interrupted
}

// ConsumeInterrupt returns and clears the pending interrupt, if any. The
// action layer polls this between steps.
func (m *MovementMonitor) ConsumeInterrupt() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.interrupted {
		return "", false
	}
	reason := m.reason
	m.interrupted = false
	m.reason = ""
	return reason, true
}
