package agent

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/maicraft/maicraft-go/pkg/bridge"
	"github.com/maicraft/maicraft-go/pkg/events"
	"github.com/maicraft/maicraft-go/pkg/game"
	"github.com/maicraft/maicraft-go/pkg/journal"
)

// runEventLoop drains the bridge event buffer on the poll interval. Every
// fetched event flows to the ring store, the environment's recent window,
// the chat history, and the emitter fan-out, in arrival order.
func (a *Agent) runEventLoop(ctx context.Context) {
	ticker := time.NewTicker(a.pollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.ingestEvents(ctx)
		}
	}
}

// ingestEvents fetches events newer than the last seen tick and dispatches
// them. A failed fetch is retried on the next tick with the same watermark.
func (a *Agent) ingestEvents(ctx context.Context) {
	res, err := bridge.QueryGameEvents(ctx, a.tools, a.sinceTick())
	if err != nil {
		slog.Warn("Event query failed", "error", err)
		return
	}
	if !res.OK {
		slog.Warn("Event query rejected", "reason", res.Reason)
		return
	}
	for _, raw := range decodeRawEvents(res) {
		a.dispatchEvent(raw)
	}
}

// dispatchEvent routes one wire event through the full pipeline: typed
// construction, storage, environment window, chat history, then pub/sub.
func (a *Agent) dispatchEvent(raw events.RawEvent) {
	ev := a.registry.CreateFromRaw(raw)
	a.store.Add(ev)
	a.environment.AddRecentEvent(ev)

	if chatEv, ok := ev.(*events.ChatEvent); ok {
		kind := journal.ChatKindPlayer
		if a.isBotName(chatEv.Username) {
			kind = journal.ChatKindBot
		}
		a.chat.Add(chatEv.Message, chatEv.Username, kind)
	}

	a.emitter.Emit(ev)
	a.advanceTick(raw.GameTick)
}

func (a *Agent) sinceTick() int {
	a.tickMu.Lock()
	defer a.tickMu.Unlock()
	return a.lastTick
}

// advanceTick raises the event watermark; ticks never move backwards.
func (a *Agent) advanceTick(tick int) {
	a.tickMu.Lock()
	defer a.tickMu.Unlock()
	if tick > a.lastTick {
		a.lastTick = tick
	}
}

// isBotName matches a chat sender against the configured username and its
// alternates.
func (a *Agent) isBotName(name string) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return false
	}
	if u := strings.ToLower(a.cfg.Bot.Username); u != "" && n == u {
		return true
	}
	for _, alt := range a.cfg.Bot.AlternateNames {
		if n == strings.ToLower(alt) {
			return true
		}
	}
	return false
}

// decodeRawEvents reads a query_game_events payload. Both the bare-array
// and {events:[...]} shapes are accepted; entries without a type string are
// dropped.
func decodeRawEvents(r bridge.Result) []events.RawEvent {
	list, ok := r.DataList()
	if !ok {
		m, isMap := r.DataMap()
		if !isMap {
			return nil
		}
		list, _ = m["events"].([]any)
	}

	out := make([]events.RawEvent, 0, len(list))
	for _, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		raw := events.RawEvent{}
		raw.Type, _ = game.AsString(entry["type"])
		if raw.Type == "" {
			continue
		}
		if n, ok := game.AsInt(entry["gameTick"]); ok {
			raw.GameTick = n
		}
		if f, ok := game.AsFloat(entry["timestamp"]); ok {
			raw.Timestamp = f
		}
		if d, ok := entry["data"].(map[string]any); ok {
			raw.Data = d
		}
		out = append(out, raw)
	}
	return out
}
