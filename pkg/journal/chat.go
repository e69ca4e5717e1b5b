package journal

import (
	"fmt"
	"strings"
	"sync"

	"github.com/maicraft/maicraft-go/pkg/game"
)

// Chat record kinds. Callers decide the kind; the history itself does not
// know the bot's username.
const (
	ChatKindPlayer = "player"
	ChatKindBot    = "bot"
)

// DefaultChatCapacity bounds the chat history buffer.
const DefaultChatCapacity = 100

// ChatRecord is one chat line, ours or theirs.
type ChatRecord struct {
	Message   string  `json:"message"`
	Sender    string  `json:"sender"`
	Kind      string  `json:"type"`
	Timestamp float64 `json:"timestamp"`
}

// ChatHistory is a bounded in-memory chat buffer used to build the
// recent-chat block of negotiation prompts.
type ChatHistory struct {
	mu       sync.Mutex
	capacity int
	records  []ChatRecord
	now      func() float64
}

// NewChatHistory creates a history bounded to capacity records; capacity
// <= 0 uses DefaultChatCapacity.
func NewChatHistory(capacity int) *ChatHistory {
	if capacity <= 0 {
		capacity = DefaultChatCapacity
	}
	return &ChatHistory{capacity: capacity, now: game.Now}
}

// Add appends a record, evicting the oldest past capacity.
func (h *ChatHistory) Add(message, sender, kind string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, ChatRecord{
		Message:   message,
		Sender:    sender,
		Kind:      kind,
		Timestamp: h.now(),
	})
	if len(h.records) > h.capacity {
		h.records = h.records[len(h.records)-h.capacity:]
	}
}

// Recent returns up to limit records, oldest first.
func (h *ChatHistory) Recent(limit int) []ChatRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	if limit <= 0 || limit > len(h.records) {
		limit = len(h.records)
	}
	out := make([]ChatRecord, limit)
	copy(out, h.records[len(h.records)-limit:])
	return out
}

// Len reports the number of buffered records.
func (h *ChatHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}

// RenderRecent formats up to limit records as "[HH:MM:SS] sender: message"
// lines, oldest first.
func (h *ChatHistory) RenderRecent(limit int) string {
	records := h.Recent(limit)
	if len(records) == 0 {
		return "(暂无聊天记录)"
	}
	var b strings.Builder
	for _, r := range records {
		fmt.Fprintf(&b, "[%s] %s: %s\n", game.FormatClock(game.NormalizeTimestamp(r.Timestamp)), r.Sender, r.Message)
	}
	return strings.TrimRight(b.String(), "\n")
}
