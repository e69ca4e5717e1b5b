package api

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/maicraft/maicraft-go/pkg/game"
	"github.com/maicraft/maicraft-go/pkg/journal"
)

// Accepted bounds for the subscribe frame's update_interval. The value is
// validated but does not schedule anything; updates are event-driven.
const (
	minUpdateInterval = 1000 * time.Millisecond
	maxUpdateInterval = 30000 * time.Millisecond
)

// TaskSnapshot is the task-list state sent on the WebSocket channel and the
// REST endpoint.
type TaskSnapshot struct {
	Tasks     []journal.Task `json:"tasks"`
	Total     int            `json:"total"`
	Completed int            `json:"completed"`
	Pending   int            `json:"pending"`
	Goal      string         `json:"goal"`
	IsDone    bool           `json:"is_done"`
}

func buildTaskSnapshot(l *journal.TaskList) TaskSnapshot {
	total, completed, pending := l.Counts()
	return TaskSnapshot{
		Tasks:     l.List(),
		Total:     total,
		Completed: completed,
		Pending:   pending,
		Goal:      l.Goal(),
		IsDone:    l.CheckIfAllDone(),
	}
}

type tasksUpdate struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	TaskSnapshot
}

// TasksChannel is the /ws/tasks protocol: subscription management plus task
// mutations. Mutations ack to the originator and broadcast a tasks_update to
// every other subscriber; there is no periodic push.
type TasksChannel struct {
	tasks *journal.TaskList

	mu   sync.RWMutex
	subs map[string]*Conn
}

// NewTasksChannel creates the channel over the shared task list.
func NewTasksChannel(tasks *journal.TaskList) *TasksChannel {
	return &TasksChannel{
		tasks: tasks,
		subs:  make(map[string]*Conn),
	}
}

func (t *TasksChannel) Name() string { return "tasks" }

// OnDisconnect drops the connection's subscription.
func (t *TasksChannel) OnDisconnect(c *Conn) {
	t.mu.Lock()
	delete(t.subs, c.ID)
	t.mu.Unlock()
}

func (t *TasksChannel) HandleMessage(_ context.Context, c *Conn, msgType string, msg map[string]any) {
	switch msgType {
	case "subscribe":
		t.handleSubscribe(c, msg)
	case "unsubscribe":
		t.mu.Lock()
		delete(t.subs, c.ID)
		t.mu.Unlock()
	case "get_tasks":
		c.SendJSON(t.update())
	case "add_task":
		t.handleAdd(c, msg)
	case "update_task":
		t.handleUpdate(c, msg)
	case "delete_task":
		t.handleDelete(c, msg)
	case "mark_done":
		t.handleMarkDone(c, msg)
	default:
		c.SendJSON(errorEnvelope("UNKNOWN_MESSAGE_TYPE", fmt.Sprintf("未知消息类型: %s", msgType)))
	}
}

// handleSubscribe validates the optional update_interval, records the
// subscription, and immediately pushes one snapshot.
func (t *TasksChannel) handleSubscribe(c *Conn, msg map[string]any) {
	if raw, ok := msg["update_interval"]; ok {
		n, numeric := game.AsInt(raw)
		if !numeric {
			c.SendJSON(errorEnvelope("INVALID_INTERVAL", "update_interval 必须是数字"))
			return
		}
		iv := time.Duration(n) * time.Millisecond
		if iv < minUpdateInterval || iv > maxUpdateInterval {
			c.SendJSON(errorEnvelope("INVALID_INTERVAL",
				fmt.Sprintf("update_interval 必须在 %d-%d 毫秒之间", minUpdateInterval.Milliseconds(), maxUpdateInterval.Milliseconds())))
			return
		}
	}

	t.mu.Lock()
	t.subs[c.ID] = c
	t.mu.Unlock()

	c.SendJSON(t.update())
}

func (t *TasksChannel) handleAdd(c *Conn, msg map[string]any) {
	details := stringField(msg, "details")
	criteria := stringField(msg, "done_criteria")
	if details == "" {
		c.SendJSON(errorEnvelope("VALIDATION_ERROR", "details 不能为空"))
		return
	}
	task, err := t.tasks.Add(details, criteria)
	if err != nil {
		c.SendJSON(errorEnvelope("VALIDATION_ERROR", err.Error()))
		return
	}
	c.SendJSON(map[string]any{
		"type":      "task_added",
		"timestamp": time.Now().UnixMilli(),
		"task":      task,
	})
	t.broadcastUpdate(c)
}

func (t *TasksChannel) handleUpdate(c *Conn, msg map[string]any) {
	id := stringField(msg, "task_id")
	progress := stringField(msg, "progress")
	if id == "" {
		c.SendJSON(errorEnvelope("VALIDATION_ERROR", "task_id 不能为空"))
		return
	}
	if err := t.tasks.UpdateProgress(id, progress); err != nil {
		c.SendJSON(errorEnvelope("VALIDATION_ERROR", err.Error()))
		return
	}
	task, _ := t.tasks.GetByID(id)
	c.SendJSON(map[string]any{
		"type":      "task_updated",
		"timestamp": time.Now().UnixMilli(),
		"task":      task,
	})
	t.broadcastUpdate(c)
}

func (t *TasksChannel) handleDelete(c *Conn, msg map[string]any) {
	id := stringField(msg, "task_id")
	if id == "" {
		c.SendJSON(errorEnvelope("VALIDATION_ERROR", "task_id 不能为空"))
		return
	}
	if err := t.tasks.DeleteByID(id); err != nil {
		c.SendJSON(errorEnvelope("VALIDATION_ERROR", err.Error()))
		return
	}
	c.SendJSON(map[string]any{
		"type":      "task_deleted",
		"timestamp": time.Now().UnixMilli(),
		"task_id":   id,
	})
	t.broadcastUpdate(c)
}

func (t *TasksChannel) handleMarkDone(c *Conn, msg map[string]any) {
	id := stringField(msg, "task_id")
	if id == "" {
		c.SendJSON(errorEnvelope("VALIDATION_ERROR", "task_id 不能为空"))
		return
	}
	if err := t.tasks.MarkDone(id); err != nil {
		c.SendJSON(errorEnvelope("VALIDATION_ERROR", err.Error()))
		return
	}
	task, _ := t.tasks.GetByID(id)
	c.SendJSON(map[string]any{
		"type":      "task_marked_done",
		"timestamp": time.Now().UnixMilli(),
		"task":      task,
	})
	t.broadcastUpdate(c)
}

func (t *TasksChannel) update() tasksUpdate {
	return tasksUpdate{
		Type:         "tasks_update",
		Timestamp:    time.Now().UnixMilli(),
		TaskSnapshot: buildTaskSnapshot(t.tasks),
	}
}

// broadcastUpdate pushes the current snapshot to every subscriber except the
// originator. Subscribers are snapshotted under the lock, sends run outside.
func (t *TasksChannel) broadcastUpdate(except *Conn) {
	t.mu.RLock()
	targets := make([]*Conn, 0, len(t.subs))
	for _, conn := range t.subs {
		if except == nil || conn.ID != except.ID {
			targets = append(targets, conn)
		}
	}
	t.mu.RUnlock()

	if len(targets) == 0 {
		return
	}
	update := t.update()
	for _, conn := range targets {
		conn.SendJSON(update)
	}
}

// subscriberCount is polled by tests instead of sleeping.
func (t *TasksChannel) subscriberCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subs)
}

func stringField(msg map[string]any, key string) string {
	s, _ := msg[key].(string)
	return strings.TrimSpace(s)
}
