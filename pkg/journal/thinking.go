// Package journal keeps the agent's working memory: the thinking log the
// model narrates into, the goal and task list it works from, and the chat
// history it reasons over. Each store persists to its own JSON file after
// every mutation so a restart resumes where the agent left off.
package journal

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/maicraft/maicraft-go/pkg/events"
	"github.com/maicraft/maicraft-go/pkg/game"
)

// Kind classifies a thinking-log entry and drives its display budget.
type Kind string

const (
	KindThinking Kind = "thinking"
	KindAction   Kind = "action"
	KindNotice   Kind = "notice"
	KindEvent    Kind = "event"
)

func (k Kind) label() string {
	switch k {
	case KindThinking:
		return "思考"
	case KindAction:
		return "行动"
	case KindNotice:
		return "提示"
	case KindEvent:
		return "事件"
	}
	return string(k)
}

// thinkingCapacity bounds the primary buffer.
const thinkingCapacity = 20

// Per-kind line budgets for the short rendered view; the full view allows
// fullViewBudget of each kind.
var shortViewBudgets = map[Kind]int{
	KindThinking: 3,
	KindAction:   8,
	KindNotice:   8,
	KindEvent:    5,
}

const fullViewBudget = 10

// Entry is one thinking-log line.
type Entry struct {
	Text      string
	Kind      Kind
	Timestamp float64
}

// MarshalJSON writes the on-disk triple form [text, kind, timestamp_s].
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{e.Text, string(e.Kind), e.Timestamp})
}

// UnmarshalJSON reads the on-disk triple form.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	if len(parts) != 3 {
		return fmt.Errorf("thinking entry must have 3 elements, got %d", len(parts))
	}
	if err := json.Unmarshal(parts[0], &e.Text); err != nil {
		return err
	}
	var kind string
	if err := json.Unmarshal(parts[1], &kind); err != nil {
		return err
	}
	e.Kind = Kind(kind)
	var ts float64
	if err := json.Unmarshal(parts[2], &ts); err != nil {
		return err
	}
	e.Timestamp = game.NormalizeTimestamp(ts)
	return nil
}

// ThinkingLog is the bounded buffer of the agent's own narration lines.
// An empty path keeps the log memory-only.
type ThinkingLog struct {
	mu      sync.Mutex
	path    string
	entries []Entry
	now     func() float64
}

// NewThinkingLog loads the log from path. A missing or unreadable file
// starts empty.
func NewThinkingLog(path string) *ThinkingLog {
	l := &ThinkingLog{path: path, now: game.Now}
	if path == "" {
		return l
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Failed to read thinking log, starting empty", "path", path, "error", err)
		}
		return l
	}
	if err := json.Unmarshal(data, &l.entries); err != nil {
		slog.Warn("Failed to parse thinking log, starting empty", "path", path, "error", err)
		l.entries = nil
	}
	if len(l.entries) > thinkingCapacity {
		l.entries = l.entries[len(l.entries)-thinkingCapacity:]
	}
	return l
}

// Add appends an entry, evicts past the 20-entry bound, and persists.
func (l *ThinkingLog) Add(text string, kind Kind) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, Entry{Text: text, Kind: kind, Timestamp: l.now()})
	if len(l.entries) > thinkingCapacity {
		l.entries = l.entries[len(l.entries)-thinkingCapacity:]
	}
	if err := l.save(); err != nil {
		slog.Warn("Failed to persist thinking log", "path", l.path, "error", err)
	}
}

// Entries returns a copy of the buffer, oldest first.
func (l *ThinkingLog) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len reports the number of buffered entries.
func (l *ThinkingLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Render merges the log with the event store into one chronologically
// sorted view. Store events count against the same budget as kind-"event"
// log entries. full=false applies the short per-kind budgets.
func (l *ThinkingLog) Render(store *events.Store, full bool) string {
	merged := l.Entries()
	if store != nil {
		budget := fullViewBudget
		if !full {
			budget = shortViewBudgets[KindEvent]
		}
		for _, e := range store.Recent(budget) {
			merged = append(merged, Entry{
				Text:      e.Description(),
				Kind:      KindEvent,
				Timestamp: e.TimestampS(),
			})
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})

	// Walk newest-first so each kind keeps its most recent lines, then
	// restore chronological order for display.
	budgetFor := func(k Kind) int {
		if full {
			return fullViewBudget
		}
		if b, ok := shortViewBudgets[k]; ok {
			return b
		}
		return fullViewBudget
	}
	used := map[Kind]int{}
	var kept []Entry
	for i := len(merged) - 1; i >= 0; i-- {
		e := merged[i]
		if used[e.Kind] >= budgetFor(e.Kind) {
			continue
		}
		used[e.Kind]++
		kept = append(kept, e)
	}
	var b strings.Builder
	for i := len(kept) - 1; i >= 0; i-- {
		e := kept[i]
		fmt.Fprintf(&b, "[%s] [%s] %s\n", game.FormatClock(game.NormalizeTimestamp(e.Timestamp)), e.Kind.label(), e.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}

// save requires the caller to hold the lock.
func (l *ThinkingLog) save() error {
	if l.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(l.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode thinking log: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write thinking log: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("failed to replace thinking log file: %w", err)
	}
	return nil
}
