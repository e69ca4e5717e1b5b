package crafting

import (
	"context"
	"errors"
	"fmt"

	"github.com/maicraft/maicraft-go/pkg/bridge"
	"github.com/maicraft/maicraft-go/pkg/env"
	"github.com/maicraft/maicraft-go/pkg/world"
)

// tableScanRadius bounds the crafting-table search in the block cache.
const tableScanRadius = 10.0

// Service is the agent-facing craft operation: it derives inventory and
// table availability from the live environment, plans, and executes.
type Service struct {
	planner *Planner
	exec    *Executor
	env     *env.Environment
	blocks  *world.Cache
}

// NewService wires the planner and executor over the bridge.
func NewService(tools bridge.ToolCaller, environment *env.Environment, blocks *world.Cache) *Service {
	return &Service{
		planner: NewPlanner(NewBridgeSource(tools), nil),
		exec:    NewExecutor(tools),
		env:     environment,
		blocks:  blocks,
	}
}

// HasCraftingTableNearby scans the cached blocks around the bot.
func (s *Service) HasCraftingTableNearby() bool {
	pos, ok := s.env.Position()
	if !ok {
		return false
	}
	return s.blocks.CountTypeInRange("crafting_table", pos, tableScanRadius) > 0
}

// Craft plans and executes target×qty. The returned text is the execution
// log on success, or the feasibility report when no plan exists.
func (s *Service) Craft(ctx context.Context, target string, qty int) (bool, string) {
	plan, err := s.planner.Plan(ctx, target, qty, s.env.InventoryCounts(), s.HasCraftingTableNearby())
	if err != nil {
		var perr *PlanError
		if errors.As(err, &perr) {
			return false, perr.Report()
		}
		return false, fmt.Sprintf("合成规划失败: %v", err)
	}
	if len(plan.Steps) == 0 {
		return true, fmt.Sprintf("背包中已有足够的 %s，无需合成", plan.Target)
	}
	return s.exec.Execute(ctx, plan)
}
