package bridge

import (
	"context"

	"github.com/maicraft/maicraft-go/pkg/game"
)

// Bridge tool names.
const (
	ToolQueryAreaBlocks     = "query_area_blocks"
	ToolMineBlock           = "mine_block"
	ToolKillMob             = "kill_mob"
	ToolChat                = "chat"
	ToolQueryRawRecipe      = "query_raw_recipe"
	ToolCraftWithRecipe     = "craft_with_recipe"
	ToolQueryPlayerStatus   = "query_player_status"
	ToolQueryNearbyEntities = "query_nearby_entities"
	ToolQueryGameEvents     = "query_game_events"
	ToolQueryOverview       = "query_overview"
)

// KillMob attacks the named mob until it dies or the bridge gives up.
func KillMob(ctx context.Context, tc ToolCaller, mob string) (Result, error) {
	return tc.Call(ctx, ToolKillMob, map[string]any{"mob": mob})
}

// Chat sends a chat message as the bot.
func Chat(ctx context.Context, tc ToolCaller, message string) (Result, error) {
	return tc.Call(ctx, ToolChat, map[string]any{"message": message})
}

// QueryRawRecipe fetches the raw recipe list for an item. The data payload
// is an array of recipe objects in the game's native shape.
func QueryRawRecipe(ctx context.Context, tc ToolCaller, item string, useCraftingTable bool) (Result, error) {
	return tc.Call(ctx, ToolQueryRawRecipe, map[string]any{
		"item":             item,
		"useCraftingTable": useCraftingTable,
	})
}

// CraftWithRecipe crafts count batches of a previously queried raw recipe.
func CraftWithRecipe(ctx context.Context, tc ToolCaller, recipe map[string]any, count int, withoutCraftingTable bool) (Result, error) {
	args := map[string]any{
		"recipe": recipe,
		"count":  count,
	}
	if withoutCraftingTable {
		args["withoutCraftingTable"] = true
	}
	return tc.Call(ctx, ToolCraftWithRecipe, args)
}

// QueryPlayerStatus fetches the full observation payload consumed by
// env.UpdateFromObservation.
func QueryPlayerStatus(ctx context.Context, tc ToolCaller) (Result, error) {
	return tc.Call(ctx, ToolQueryPlayerStatus, map[string]any{})
}

// QueryNearbyEntities lists entities within rng blocks.
func QueryNearbyEntities(ctx context.Context, tc ToolCaller, rng float64) (Result, error) {
	return tc.Call(ctx, ToolQueryNearbyEntities, map[string]any{"range": rng})
}

// QueryGameEvents drains the bridge's event buffer. sinceTick fetches only
// events newer than that game tick; 0 fetches the whole buffer. The data
// payload is {events:[{type,gameTick,timestamp,data}]}.
func QueryGameEvents(ctx context.Context, tc ToolCaller, sinceTick int) (Result, error) {
	return tc.Call(ctx, ToolQueryGameEvents, map[string]any{"sinceTick": sinceTick})
}

// QueryOverview captures a first-person render of the bot's surroundings.
// The data payload is {image: <base64 PNG>}.
func QueryOverview(ctx context.Context, tc ToolCaller) (Result, error) {
	return tc.Call(ctx, ToolQueryOverview, map[string]any{})
}

// AreaQuery describes a query_area_blocks request.
type AreaQuery struct {
	Start              game.BlockPosition
	End                game.BlockPosition
	UseRelativeCoords  bool
	MaxBlocks          int
	IncludeBlockCounts bool
}

// QueryAreaBlocks scans a block volume. Compression is always requested;
// the reply is decoded with DecodeCompressedBlocks.
func QueryAreaBlocks(ctx context.Context, tc ToolCaller, q AreaQuery) (Result, error) {
	return tc.Call(ctx, ToolQueryAreaBlocks, map[string]any{
		"startX":             q.Start.X,
		"startY":             q.Start.Y,
		"startZ":             q.Start.Z,
		"endX":               q.End.X,
		"endY":               q.End.Y,
		"endZ":               q.End.Z,
		"useRelativeCoords":  q.UseRelativeCoords,
		"maxBlocks":          q.MaxBlocks,
		"compressionMode":    true,
		"includeBlockCounts": q.IncludeBlockCounts,
	})
}

// MineRequest selects one of mine_block's three invocation shapes: by
// name+count, by exact position, or bare (direction-timeout dig).
type MineRequest struct {
	Name       string
	Count      int
	Position   *game.BlockPosition
	DigOnly    bool
	EnableXRay bool
}

// MineBlock mines per the request shape.
func MineBlock(ctx context.Context, tc ToolCaller, req MineRequest) (Result, error) {
	args := map[string]any{
		"digOnly":     req.DigOnly,
		"enable_xray": req.EnableXRay,
	}
	switch {
	case req.Position != nil:
		args["x"] = req.Position.X
		args["y"] = req.Position.Y
		args["z"] = req.Position.Z
	case req.Name != "":
		count := req.Count
		if count <= 0 {
			count = 1
		}
		args["name"] = req.Name
		args["count"] = count
	}
	return tc.Call(ctx, ToolMineBlock, args)
}

// CompressedBlock is one entry of a query_area_blocks reply.
type CompressedBlock struct {
	Name      string
	CanSee    bool
	Positions []game.Position
}

// DecodeCompressedBlocks reads {compressedBlocks:[{name,canSee,positions:
// [{x,y,z}]}]} from a query_area_blocks result. Entries with no usable
// positions are dropped.
func DecodeCompressedBlocks(r Result) []CompressedBlock {
	data, ok := r.DataMap()
	if !ok {
		return nil
	}
	rawList, ok := data["compressedBlocks"].([]any)
	if !ok {
		return nil
	}
	out := make([]CompressedBlock, 0, len(rawList))
	for _, raw := range rawList {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		block := CompressedBlock{}
		block.Name, _ = game.AsString(entry["name"])
		if b, ok := entry["canSee"].(bool); ok {
			block.CanSee = b
		}
		positions, _ := entry["positions"].([]any)
		for _, p := range positions {
			pm, ok := p.(map[string]any)
			if !ok {
				continue
			}
			pos, ok := game.PositionFromMap(pm)
			if !ok {
				continue
			}
			block.Positions = append(block.Positions, pos)
		}
		if block.Name == "" || len(block.Positions) == 0 {
			continue
		}
		out = append(out, block)
	}
	return out
}
