package crafting

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maicraft/maicraft-go/pkg/bridge"
)

// Executor runs a plan's steps through the bridge in order, stopping at the
// first failure and returning an aggregate textual log either way.
type Executor struct {
	tools bridge.ToolCaller
}

// NewExecutor creates an executor over the given tool caller.
func NewExecutor(tools bridge.ToolCaller) *Executor {
	return &Executor{tools: tools}
}

// Execute invokes craft_with_recipe per step with count = ceil(qty/yield).
func (e *Executor) Execute(ctx context.Context, plan *Plan) (bool, string) {
	if plan == nil || len(plan.Steps) == 0 {
		return true, "无需合成：背包已满足需求"
	}
	var log []string
	total := len(plan.Steps)
	for i, step := range plan.Steps {
		count := ceilDiv(step.Quantity, step.Recipe.Result.Count)
		res, err := bridge.CraftWithRecipe(ctx, e.tools, step.Recipe.Payload, count, !step.UseTable)
		if err != nil {
			log = append(log, fmt.Sprintf("步骤 %d/%d: 合成 %s x%d 失败: %v", i+1, total, step.Item, step.Quantity, err))
			slog.Warn("Craft step failed", "item", step.Item, "step", i+1, "error", err)
			return false, strings.Join(log, "\n")
		}
		if !res.OK {
			log = append(log, fmt.Sprintf("步骤 %d/%d: 合成 %s x%d 失败: %s", i+1, total, step.Item, step.Quantity, res.Sentence()))
			slog.Warn("Craft step rejected", "item", step.Item, "step", i+1, "reason", res.Reason)
			return false, strings.Join(log, "\n")
		}
		log = append(log, fmt.Sprintf("步骤 %d/%d: 合成 %s x%d (%d 批) 成功", i+1, total, step.Item, step.Quantity, count))
	}
	return true, strings.Join(log, "\n")
}
