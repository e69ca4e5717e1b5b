package journal

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"
)

// Task is one entry on the agent's todo list.
type Task struct {
	Details      string `json:"details"`
	DoneCriteria string `json:"done_criteria"`
	Progress     string `json:"progress"`
	Done         bool   `json:"done"`
	ID           string `json:"id"`
}

// TaskList holds the goal string and the ordered task list, persisted to a
// JSON file after every mutation. Ids are the 1-based insertion index as a
// string and stay stable once assigned; deletions do not renumber.
type TaskList struct {
	mu       sync.Mutex
	path     string
	goal     string
	items    []Task
	needEdit bool
}

// NewTaskList loads the list from path. A missing or unreadable file starts
// empty. An empty path keeps the list memory-only.
func NewTaskList(path string) *TaskList {
	t := &TaskList{path: path}
	if path == "" {
		return t
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Failed to read task list, starting empty", "path", path, "error", err)
		}
		return t
	}
	if err := json.Unmarshal(data, &t.items); err != nil {
		slog.Warn("Failed to parse task list, starting empty", "path", path, "error", err)
		t.items = nil
	}
	return t
}

// SetGoal replaces the goal string.
func (t *TaskList) SetGoal(goal string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.goal = goal
}

// Goal returns the current goal string.
func (t *TaskList) Goal() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.goal
}

// SetNeedEdit flags the list as needing a rewrite; while set, CheckIfAllDone
// reports false even when every task is done.
func (t *TaskList) SetNeedEdit(v bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.needEdit = v
}

// Add appends a task with id = str(len+1) and persists.
func (t *TaskList) Add(details, doneCriteria string) (Task, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	task := Task{
		Details:      details,
		DoneCriteria: doneCriteria,
		ID:           fmt.Sprintf("%d", len(t.items)+1),
	}
	t.items = append(t.items, task)
	return task, t.save()
}

// List returns a copy of the tasks in insertion order.
func (t *TaskList) List() []Task {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Task, len(t.items))
	copy(out, t.items)
	return out
}

// GetByID finds a task by id. Non-numeric input is tolerated by extracting
// the first digit run ("task 12!" finds id "12").
func (t *TaskList) GetByID(id string) (Task, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i := t.indexOf(id); i >= 0 {
		return t.items[i], true
	}
	return Task{}, false
}

// UpdateProgress replaces a task's progress string and persists.
func (t *TaskList) UpdateProgress(id, progress string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := t.indexOf(id)
	if i < 0 {
		return fmt.Errorf("task %q not found", id)
	}
	t.items[i].Progress = progress
	return t.save()
}

// MarkDone sets a task's done flag and persists.
func (t *TaskList) MarkDone(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := t.indexOf(id)
	if i < 0 {
		return fmt.Errorf("task %q not found", id)
	}
	t.items[i].Done = true
	return t.save()
}

// DeleteByID removes a task and persists. Remaining ids keep their values.
func (t *TaskList) DeleteByID(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := t.indexOf(id)
	if i < 0 {
		return fmt.Errorf("task %q not found", id)
	}
	t.items = append(t.items[:i], t.items[i+1:]...)
	return t.save()
}

// CheckIfAllDone reports whether every task is done and the list is not
// flagged as needing an edit. An empty list counts as done.
func (t *TaskList) CheckIfAllDone() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.needEdit {
		return false
	}
	for _, task := range t.items {
		if !task.Done {
			return false
		}
	}
	return true
}

// Counts returns total, completed, and pending task counts.
func (t *TaskList) Counts() (total, completed, pending int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	total = len(t.items)
	for _, task := range t.items {
		if task.Done {
			completed++
		}
	}
	return total, completed, total - completed
}

// Render lists the tasks one per line for prompt context.
func (t *TaskList) Render() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.items) == 0 {
		return "(无任务)"
	}
	var b strings.Builder
	for _, task := range t.items {
		state := "进行中"
		if task.Done {
			state = "已完成"
		}
		fmt.Fprintf(&b, "[%s] (%s) %s", task.ID, state, task.Details)
		if task.Progress != "" {
			fmt.Fprintf(&b, " | 进度: %s", task.Progress)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// indexOf requires the caller to hold the lock.
func (t *TaskList) indexOf(id string) int {
	key := firstDigitRun(id)
	if key == "" {
		key = strings.TrimSpace(id)
	}
	for i, task := range t.items {
		if task.ID == key {
			return i
		}
	}
	return -1
}

func firstDigitRun(s string) string {
	start := -1
	for i, r := range s {
		if unicode.IsDigit(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			return s[start:i]
		}
	}
	if start >= 0 {
		return s[start:]
	}
	return ""
}

// save requires the caller to hold the lock.
func (t *TaskList) save() error {
	if t.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(t.items, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode task list: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	tmp := t.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write task list: %w", err)
	}
	if err := os.Rename(tmp, t.path); err != nil {
		return fmt.Errorf("failed to replace task list file: %w", err)
	}
	return nil
}
