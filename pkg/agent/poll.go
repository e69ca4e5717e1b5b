package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/maicraft/maicraft-go/pkg/bridge"
	"github.com/maicraft/maicraft-go/pkg/game"
)

const (
	// blockRefreshRadius is the half-extent of the cube scanned around the
	// player on each block refresh.
	blockRefreshRadius = 8
	// blockRefreshEvery runs the heavier area scan once per this many poll
	// ticks; status and entity queries run on every tick.
	blockRefreshEvery = 4
	// blockRefreshMaxBlocks caps one query_area_blocks reply.
	blockRefreshMaxBlocks = 4096

	// overviewRefreshEvery runs the vision capture once per this many poll
	// ticks.
	overviewRefreshEvery = 12

	defaultEntityRange = 32.0
)

// overviewPrompt asks the vision model for a short scene description the
// situation report can embed.
const overviewPrompt = "这是 Minecraft 游戏画面的第一人称截图。请用两三句话描述画面中值得注意的环境信息（地形、建筑、生物、光照、潜在危险）。"

// runEnvironmentLoop polls the bridge on the configured interval and folds
// the observations into the environment model and block cache. Each
// accepted update fans out to the mode system through the environment sink.
func (a *Agent) runEnvironmentLoop(ctx context.Context) {
	ticker := time.NewTicker(a.pollInterval())
	defer ticker.Stop()

	tick := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.refreshEnvironment(ctx)
			if tick%blockRefreshEvery == 0 {
				a.refreshBlocks(ctx)
			}
			if a.vision != nil && tick%overviewRefreshEvery == 0 {
				a.refreshOverview(ctx)
			}
			tick++
		}
	}
}

// refreshEnvironment runs one poll cycle: player status, then nearby
// entities. Bridge failures are logged and skipped; the next tick retries.
func (a *Agent) refreshEnvironment(ctx context.Context) {
	res, err := bridge.QueryPlayerStatus(ctx, a.tools)
	switch {
	case err != nil:
		slog.Warn("Player status query failed", "error", err)
	case !res.OK:
		slog.Warn("Player status query rejected", "reason", res.Reason)
	default:
		payload := map[string]any{"ok": true, "data": res.Data}
		if err := a.environment.UpdateFromObservation(payload); err != nil {
			slog.Warn("Observation rejected", "error", err)
			break
		}
		snap := a.environment.Snapshot()
		if snap.Position != nil {
			a.movement.Sample(*snap.Position, game.Now())
			a.blocks.UpdatePlayerPosition(snap.Username, *snap.Position, snap.Yaw, snap.Pitch)
		}
	}

	res, err = bridge.QueryNearbyEntities(ctx, a.tools, a.entityRange())
	switch {
	case err != nil:
		slog.Warn("Nearby entity query failed", "error", err)
	case !res.OK:
		slog.Warn("Nearby entity query rejected", "reason", res.Reason)
	default:
		a.environment.UpdateNearbyEntities(decodeEntityList(res))
	}
}

// refreshBlocks scans the cube around the player and merges the reply into
// the block cache. Without a known position there is nothing to scan.
func (a *Agent) refreshBlocks(ctx context.Context) {
	snap := a.environment.Snapshot()
	if snap.Position == nil {
		return
	}
	center := snap.Position.Block()
	q := bridge.AreaQuery{
		Start: game.BlockPosition{
			X: center.X - blockRefreshRadius,
			Y: center.Y - blockRefreshRadius,
			Z: center.Z - blockRefreshRadius,
		},
		End: game.BlockPosition{
			X: center.X + blockRefreshRadius,
			Y: center.Y + blockRefreshRadius,
			Z: center.Z + blockRefreshRadius,
		},
		MaxBlocks: blockRefreshMaxBlocks,
	}

	res, err := bridge.QueryAreaBlocks(ctx, a.tools, q)
	if err != nil {
		slog.Warn("Area block query failed", "error", err)
		return
	}
	if !res.OK {
		slog.Warn("Area block query rejected", "reason", res.Reason)
		return
	}
	for _, cb := range bridge.DecodeCompressedBlocks(res) {
		for _, pos := range cb.Positions {
			a.blocks.Add(cb.Name, pos.Block(), cb.CanSee)
		}
	}
}

// refreshOverview captures a first-person render through the bridge and has
// the vision model describe it. Both halves are best-effort.
func (a *Agent) refreshOverview(ctx context.Context) {
	res, err := bridge.QueryOverview(ctx, a.tools)
	if err != nil {
		slog.Warn("Overview capture failed", "error", err)
		return
	}
	if !res.OK {
		slog.Warn("Overview capture rejected", "reason", res.Reason)
		return
	}
	m, ok := res.DataMap()
	if !ok {
		return
	}
	image, ok := game.AsString(m["image"])
	if !ok || image == "" {
		return
	}
	text, err := a.vision.Vision(ctx, overviewPrompt, image)
	if err != nil {
		slog.Warn("Overview description failed", "error", err)
		return
	}
	a.environment.SetOverview(image, text)
}

func (a *Agent) entityRange() float64 {
	if r := a.cfg.Game.EntityRange; r > 0 {
		return r
	}
	return defaultEntityRange
}

// decodeEntityList accepts both the bare-array and {entities:[...]} reply
// shapes of query_nearby_entities.
func decodeEntityList(r bridge.Result) []any {
	if list, ok := r.DataList(); ok {
		return list
	}
	if m, ok := r.DataMap(); ok {
		if list, ok := m["entities"].([]any); ok {
			return list
		}
	}
	return nil
}
