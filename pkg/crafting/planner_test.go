package crafting

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedSource serves canned recipes keyed by (item, mode) and records
// every query.
type scriptedSource struct {
	mu      sync.Mutex
	recipes map[recipeKey][]RawRecipe
	queries []recipeKey
	err     error
}

func (s *scriptedSource) Recipes(_ context.Context, item string, useTable bool) ([]RawRecipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := recipeKey{item: item, useTable: useTable}
	s.queries = append(s.queries, key)
	if s.err != nil {
		return nil, s.err
	}
	return s.recipes[key], nil
}

func (s *scriptedSource) add(item string, useTable bool, recipes ...RawRecipe) {
	if s.recipes == nil {
		s.recipes = make(map[recipeKey][]RawRecipe)
	}
	key := recipeKey{item: item, useTable: useTable}
	s.recipes[key] = append(s.recipes[key], recipes...)
}

// recipeOf builds a flat-ingredient recipe with a minimal payload.
func recipeOf(result string, yield int, ingredients map[string]int) RawRecipe {
	items := make([]RecipeItem, 0, len(ingredients))
	for name, count := range ingredients {
		items = append(items, RecipeItem{Name: name, Count: count})
	}
	return RawRecipe{
		Result:      RecipeItem{Name: result, Count: yield},
		Ingredients: items,
		Payload:     map[string]any{"result": map[string]any{"name": result, "count": yield}},
	}
}

func TestPriorityItemSatisfiedFromInventory(t *testing.T) {
	src := &scriptedSource{}
	p := NewPlanner(src, nil)

	plan, err := p.Plan(context.Background(), "coal_block", 1, map[string]int{"coal_block": 2}, false)
	require.NoError(t, err)
	assert.Empty(t, plan.Steps, "inventory already satisfies the target")
	assert.Empty(t, src.queries, "priority items never consult recipes")
}

func TestPriorityItemShortfallDoesNotRecurse(t *testing.T) {
	src := &scriptedSource{}
	// Even a tempting coal→coal_block recipe must stay untouched.
	src.add("coal_block", false, recipeOf("coal_block", 1, map[string]int{"coal": 9}))
	p := NewPlanner(src, nil)

	_, err := p.Plan(context.Background(), "coal_block", 5, map[string]int{"coal_block": 2}, false)
	require.Error(t, err)

	var perr *PlanError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Report(), "missing coal_block x3")
	assert.Equal(t, map[string]int{"coal_block": 3}, perr.Missing)
	assert.Empty(t, src.queries, "planner must not recurse into coal")
}

func TestPlanRecursesIntoMissingIngredients(t *testing.T) {
	src := &scriptedSource{}
	src.add("crafting_table", false, recipeOf("crafting_table", 1, map[string]int{"oak_planks": 4}))
	src.add("oak_planks", false, recipeOf("oak_planks", 4, map[string]int{"oak_log": 1}))
	p := NewPlanner(src, nil)

	plan, err := p.Plan(context.Background(), "crafting_table", 1, map[string]int{"oak_log": 1}, false)
	require.NoError(t, err)
	require.Len(t, plan.Steps, 2)
	// Dependencies come first so sequential execution works.
	assert.Equal(t, "oak_planks", plan.Steps[0].Item)
	assert.Equal(t, 4, plan.Steps[0].Quantity)
	assert.Equal(t, "crafting_table", plan.Steps[1].Item)
	assert.Equal(t, 1, plan.Steps[1].Quantity)
}

func TestCheapestRecipeWins(t *testing.T) {
	src := &scriptedSource{}
	expensive := recipeOf("stick", 4, map[string]int{"bamboo": 4})
	cheap := recipeOf("stick", 4, map[string]int{"oak_planks": 2})
	src.add("stick", false, expensive, cheap)
	p := NewPlanner(src, nil)

	plan, err := p.Plan(context.Background(), "stick", 4,
		map[string]int{"oak_planks": 2, "bamboo": 4}, false)
	require.NoError(t, err)
	require.Len(t, plan.Steps, 1)
	ings := plan.Steps[0].Recipe.EffectiveIngredients()
	require.Len(t, ings, 1)
	assert.Equal(t, "oak_planks", ings[0].Name)
}

func TestNextRecipeTriedWhenBranchFails(t *testing.T) {
	src := &scriptedSource{}
	// Cheapest first by cost: 4 iron vs 8 planks. The iron branch dead-ends
	// (no iron recipe, none in inventory) so the planner falls back.
	ironBased := recipeOf("chest", 1, map[string]int{"iron_ingot": 4})
	plankBased := recipeOf("chest", 1, map[string]int{"oak_planks": 8})
	src.add("chest", false, ironBased, plankBased)
	p := NewPlanner(src, nil)

	plan, err := p.Plan(context.Background(), "chest", 1, map[string]int{"oak_planks": 8}, false)
	require.NoError(t, err)
	require.Len(t, plan.Steps, 1)
	ings := plan.Steps[0].Recipe.EffectiveIngredients()
	require.Len(t, ings, 1)
	assert.Equal(t, "oak_planks", ings[0].Name)
}

func TestPreferredModeFallsBackToOther(t *testing.T) {
	src := &scriptedSource{}
	src.add("chest", false, recipeOf("chest", 1, map[string]int{"oak_planks": 8}))
	p := NewPlanner(src, nil)

	plan, err := p.Plan(context.Background(), "chest", 1, map[string]int{"oak_planks": 8}, true)
	require.NoError(t, err)
	require.Len(t, plan.Steps, 1)
	assert.False(t, plan.Steps[0].UseTable, "recipe came from the no-table mode")
	require.Len(t, src.queries, 2)
	assert.Equal(t, recipeKey{item: "chest", useTable: true}, src.queries[0])
	assert.Equal(t, recipeKey{item: "chest", useTable: false}, src.queries[1])
}

func TestBatchCountFromResultYield(t *testing.T) {
	src := &scriptedSource{}
	src.add("stick", false, recipeOf("stick", 4, map[string]int{"oak_planks": 2}))
	p := NewPlanner(src, nil)

	// 10 sticks at 4 per batch = 3 batches = 6 planks.
	plan, err := p.Plan(context.Background(), "stick", 10, map[string]int{"oak_planks": 6}, false)
	require.NoError(t, err)
	require.Len(t, plan.Steps, 1)

	_, err = p.Plan(context.Background(), "stick", 10, nil, false)
	require.Error(t, err)
	var perr *PlanError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Report(), "missing oak_planks x6")
}

func TestDepthLimitRefusesCycles(t *testing.T) {
	src := &scriptedSource{}
	// A self-referential recipe recurses until the depth guard fires.
	src.add("magic", false, recipeOf("magic", 1, map[string]int{"magic": 1}))
	p := NewPlanner(src, nil)

	_, err := p.Plan(context.Background(), "magic", 1, nil, false)
	require.Error(t, err)
	var perr *PlanError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Report(), "递归深度")
}

func TestSamePairIngredientNeverRecursed(t *testing.T) {
	src := &scriptedSource{}
	src.add("coal", false, recipeOf("coal", 9, map[string]int{"coal_block": 1}))
	p := NewPlanner(src, nil)

	_, err := p.Plan(context.Background(), "coal", 9, nil, false)
	require.Error(t, err)
	var perr *PlanError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Report(), "missing coal_block x1")
	assert.Contains(t, perr.Report(), "转换组")
	require.Len(t, src.queries, 1, "coal_block itself is never queried")
	assert.Equal(t, "coal", src.queries[0].item)
}

func TestFeasibilityReportBreakdown(t *testing.T) {
	src := &scriptedSource{}
	src.add("chest", false, recipeOf("chest", 1, map[string]int{"oak_planks": 8}))
	p := NewPlanner(src, nil)

	_, err := p.Plan(context.Background(), "chest", 1, nil, false)
	require.Error(t, err)
	var perr *PlanError
	require.ErrorAs(t, err, &perr)
	report := perr.Report()
	assert.Contains(t, report, "无法合成 chest x1")
	assert.Contains(t, report, "chest 配方 1: 每批产出 1，共需 1 批")
	assert.Contains(t, report, "missing oak_planks x8")
	assert.Contains(t, report, "汇总缺口")
}

func TestPlanNormalizesNamesAndAliases(t *testing.T) {
	src := &scriptedSource{}
	src.add("crafting_table", false, recipeOf("crafting_table", 1, map[string]int{"oak_planks": 4}))
	p := NewPlanner(src, nil)

	// Alias "workbench" and a namespaced inventory key both normalize.
	plan, err := p.Plan(context.Background(), "Workbench", 1,
		map[string]int{"minecraft:oak_planks": 4}, false)
	require.NoError(t, err)
	require.Len(t, plan.Steps, 1)
	assert.Equal(t, "crafting_table", plan.Steps[0].Item)
}

func TestRecipeQueryErrorSurfacesInReport(t *testing.T) {
	src := &scriptedSource{err: errors.New("bridge down")}
	p := NewPlanner(src, nil)

	_, err := p.Plan(context.Background(), "chest", 1, nil, false)
	require.Error(t, err)
	var perr *PlanError
	require.ErrorAs(t, err, &perr)
	assert.True(t, strings.Contains(perr.Report(), "bridge down"))
}
