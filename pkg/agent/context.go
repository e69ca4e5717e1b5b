package agent

import (
	"fmt"
	"strings"

	"github.com/maicraft/maicraft-go/pkg/game"
	"github.com/maicraft/maicraft-go/pkg/mode"
	"github.com/maicraft/maicraft-go/pkg/world"
)

// chatContextLimit is how many chat lines the report quotes.
const chatContextLimit = 10

// Scan radius and render cap for the placement/stand report section.
const (
	placementRadius    = 4.0
	placementLineLimit = 12
)

// SituationReport composes the sectioned context text a planner prompt is
// built from: mode, goal and tasks, player status, inventory, surroundings,
// saved locations, the merged thinking/event log, and recent chat.
// full=false keeps the thinking log on its short per-kind budgets.
func (a *Agent) SituationReport(full bool) string {
	var b strings.Builder

	current := a.modes.Current()
	fmt.Fprintf(&b, "## 当前模式\n%s", current)
	if current != mode.MainMode {
		fmt.Fprintf(&b, " (已持续 %.0f 秒)", a.modes.Elapsed().Seconds())
	}
	b.WriteString("\n\n")

	b.WriteString("## 目标与任务\n")
	if goal := a.tasks.Goal(); goal != "" {
		fmt.Fprintf(&b, "目标: %s\n", goal)
	}
	b.WriteString(a.tasks.Render())
	b.WriteString("\n\n")

	b.WriteString("## 玩家状态\n")
	b.WriteString(a.environment.StatusText())
	b.WriteString("\n\n")

	b.WriteString("## 背包\n")
	b.WriteString(a.environment.InventoryText())
	b.WriteString("\n\n")

	b.WriteString("## 附近实体\n")
	b.WriteString(a.environment.NearbyEntitiesText())
	b.WriteString("\n\n")

	if pos, ok := a.environment.Position(); ok {
		if blocks := a.blocks.NearbyBlocksText(pos, 0, 0); blocks != "" {
			b.WriteString("## 周围方块\n")
			b.WriteString(blocks)
			b.WriteString("\n\n")
		}
		if text := a.placementText(pos); text != "" {
			b.WriteString("## 可放置与可站立\n")
			b.WriteString(text)
			b.WriteString("\n\n")
		}
	}

	if overview := a.environment.Snapshot().OverviewText; overview != "" {
		b.WriteString("## 视野描述\n")
		b.WriteString(overview)
		b.WriteString("\n\n")
	}

	if points := a.locations.List(); len(points) > 0 {
		b.WriteString("## 已保存地点\n")
		for _, p := range points {
			fmt.Fprintf(&b, "- %s (%d, %d, %d)", p.Name, p.Position.X, p.Position.Y, p.Position.Z)
			if p.Info != "" {
				fmt.Fprintf(&b, ": %s", p.Info)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("## 思考与事件记录\n")
	b.WriteString(a.thinking.Render(a.store, full))
	b.WriteString("\n\n")

	b.WriteString("## 最近聊天\n")
	b.WriteString(a.chat.RenderRecent(chatContextLimit))

	return strings.TrimRight(b.String(), "\n")
}

// placementText lists where a block could be placed and where the bot could
// stand, drawn from the block cache around the player.
func (a *Agent) placementText(pos game.Position) string {
	var parts []string

	placements := a.blocks.PlacementCandidates(pos, placementRadius)
	if len(placements) > placementLineLimit {
		placements = placements[:placementLineLimit]
	}
	if len(placements) > 0 {
		parts = append(parts, world.RenderPlacements(placements))
	}

	if stands := a.blocks.StandCandidates(pos, placementRadius); len(stands) > 0 {
		if len(stands) > placementLineLimit {
			stands = stands[:placementLineLimit]
		}
		coords := make([]string, 0, len(stands))
		for _, p := range stands {
			coords = append(coords, p.String())
		}
		parts = append(parts, "可站立: "+strings.Join(coords, " "))
	}

	return strings.Join(parts, "\n")
}
