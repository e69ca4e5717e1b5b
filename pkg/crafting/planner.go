// Package crafting plans and executes multi-step recipe chains: a recursive
// resolver over bridge-queried raw recipes with conversion-pair loop
// prevention, plus a sequential executor for the resulting step list.
package crafting

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// maxPlanDepth bounds the recursion; hitting it fails the branch.
const maxPlanDepth = 128

// RecipeSource fetches raw recipes for an item in one crafting mode. The
// bridge-backed implementation lives in source.go; tests script their own.
type RecipeSource interface {
	Recipes(ctx context.Context, item string, useTable bool) ([]RawRecipe, error)
}

// Step is one craft_with_recipe invocation: make Quantity of Item using
// Recipe, with or without a crafting table.
type Step struct {
	Item     string
	Quantity int
	UseTable bool
	Recipe   RawRecipe
}

// Plan is an ordered step list; dependencies come before their consumers.
type Plan struct {
	Target   string
	Quantity int
	Steps    []Step
}

// PlanError is the feasibility report for an unplannable target.
type PlanError struct {
	Target   string
	Quantity int
	// Missing aggregates the shortfall of the best failing branch.
	Missing map[string]int
	// Lines is the per-recipe breakdown.
	Lines []string
}

func (e *PlanError) Error() string {
	out := fmt.Sprintf("无法合成 %s x%d", e.Target, e.Quantity)
	if roll := renderMissing(e.Missing); roll != "" {
		out += ": " + roll
	}
	return out
}

// Report renders the full multi-line feasibility breakdown.
func (e *PlanError) Report() string {
	var b strings.Builder
	fmt.Fprintf(&b, "无法合成 %s x%d\n", e.Target, e.Quantity)
	for _, line := range e.Lines {
		b.WriteString(line)
		b.WriteString("\n")
	}
	if roll := renderMissing(e.Missing); roll != "" {
		fmt.Fprintf(&b, "汇总缺口: %s", roll)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderMissing(m map[string]int) string {
	if len(m) == 0 {
		return ""
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("missing %s x%d", name, m[name]))
	}
	return strings.Join(parts, ", ")
}

// Planner resolves craft requests into step lists.
type Planner struct {
	source RecipeSource
	pairs  *PairSet
}

// NewPlanner creates a planner; nil pairs selects the default set.
func NewPlanner(source RecipeSource, pairs *PairSet) *Planner {
	if pairs == nil {
		pairs = NewPairSet(DefaultPairs())
	}
	return &Planner{source: source, pairs: pairs}
}

// Plan resolves target×qty against the given inventory. hasTable selects the
// preferred recipe mode. Inventory is read-only: every decision is evaluated
// against this original snapshot. On failure the error is a *PlanError.
func (p *Planner) Plan(ctx context.Context, target string, qty int, inventory map[string]int, hasTable bool) (*Plan, error) {
	target = Normalize(target)
	if qty <= 0 {
		qty = 1
	}
	inv := make(map[string]int, len(inventory))
	for name, count := range inventory {
		inv[Normalize(name)] += count
	}
	run := &planRun{
		p:        p,
		inv:      inv,
		hasTable: hasTable,
		cache:    make(map[recipeKey][]RawRecipe),
	}
	if fail := run.tryCraft(ctx, target, qty, 0); fail != nil {
		return nil, &PlanError{
			Target:   target,
			Quantity: qty,
			Missing:  fail.missing,
			Lines:    fail.lines,
		}
	}
	return &Plan{Target: target, Quantity: qty, Steps: run.steps}, nil
}

type recipeKey struct {
	item     string
	useTable bool
}

// planRun is the state of one Plan call: the immutable inventory snapshot,
// the growing step list, and a per-run recipe cache.
type planRun struct {
	p        *Planner
	inv      map[string]int
	hasTable bool
	steps    []Step
	cache    map[recipeKey][]RawRecipe
}

// failure describes why a branch could not be planned.
type failure struct {
	missing map[string]int
	lines   []string
}

func singleMissing(item string, n int, note string) *failure {
	f := &failure{
		missing: map[string]int{item: n},
		lines:   []string{fmt.Sprintf("missing %s x%d", item, n)},
	}
	if note != "" {
		f.lines = append(f.lines, note)
	}
	return f
}

// tryCraft plans qty of item. nil return means the branch succeeded and its
// steps were appended.
func (run *planRun) tryCraft(ctx context.Context, item string, qty, depth int) *failure {
	if depth >= maxPlanDepth {
		return &failure{
			missing: map[string]int{item: qty},
			lines:   []string{fmt.Sprintf("%s: 递归深度达到 %d，放弃该分支", item, maxPlanDepth)},
		}
	}
	have := run.inv[item]

	// Priority items are terminal: inventory decides, no recipe lookup.
	if run.p.pairs.IsPriority(item) {
		if have >= qty {
			return nil
		}
		return singleMissing(item, qty-have, fmt.Sprintf("(%s 是优先物品，仅从背包获取)", item))
	}

	recipes, useTable, err := run.fetchRecipes(ctx, item)
	if err != nil {
		return &failure{
			missing: map[string]int{item: qty},
			lines:   []string{fmt.Sprintf("查询 %s 配方失败: %v", item, err)},
		}
	}
	if len(recipes) == 0 {
		if have >= qty {
			return nil
		}
		return singleMissing(item, qty-have, fmt.Sprintf("(%s 没有可用配方)", item))
	}

	// Cheapest recipe first; later ones are fallbacks.
	sort.SliceStable(recipes, func(i, j int) bool {
		return recipes[i].ingredientCost() < recipes[j].ingredientCost()
	})
	var agg *failure
	for idx, rec := range recipes {
		fail := run.tryRecipe(ctx, item, qty, depth, rec, useTable)
		if fail == nil {
			return nil
		}
		if agg == nil {
			agg = &failure{missing: fail.missing}
		}
		agg.lines = append(agg.lines, fmt.Sprintf("%s 配方 %d: 每批产出 %d，共需 %d 批",
			item, idx+1, rec.Result.Count, ceilDiv(qty, rec.Result.Count)))
		agg.lines = append(agg.lines, indent(fail.lines)...)
	}
	return agg
}

// tryRecipe plans qty of item through one recipe. Child steps appended by a
// partially successful attempt are rolled back on failure.
func (run *planRun) tryRecipe(ctx context.Context, item string, qty, depth int, rec RawRecipe, useTable bool) *failure {
	mark := len(run.steps)
	batches := ceilDiv(qty, rec.Result.Count)
	for _, ing := range rec.EffectiveIngredients() {
		name := ing.Name
		if name == "" {
			name = fmt.Sprintf("item_%d", ing.ID)
		}
		need := ing.Count * batches
		have := run.inv[name]
		if have >= need {
			continue
		}
		short := need - have

		// Members of one conversion pair never craft each other; that is
		// the A→B→A loop the pair exists to break.
		if run.p.pairs.SamePair(item, name) {
			run.steps = run.steps[:mark]
			return singleMissing(name, short, fmt.Sprintf("(%s 与 %s 同属一个转换组，不递归合成)", name, item))
		}
		if fail := run.tryCraft(ctx, name, short, depth+1); fail != nil {
			run.steps = run.steps[:mark]
			lines := append([]string{fmt.Sprintf("missing %s x%d", name, short)}, indent(fail.lines)...)
			return &failure{missing: fail.missing, lines: lines}
		}
	}
	run.steps = append(run.steps, Step{Item: item, Quantity: qty, UseTable: useTable, Recipe: rec})
	return nil
}

// fetchRecipes queries the preferred mode and falls back to the other when
// the preferred one has no valid recipe. Returns the mode that was used.
func (run *planRun) fetchRecipes(ctx context.Context, item string) ([]RawRecipe, bool, error) {
	prefer := run.hasTable
	recipes, err := run.fetch(ctx, item, prefer)
	if err != nil {
		return nil, prefer, err
	}
	if len(recipes) > 0 {
		return recipes, prefer, nil
	}
	recipes, err = run.fetch(ctx, item, !prefer)
	if err != nil {
		return nil, !prefer, err
	}
	return recipes, !prefer, nil
}

// fetch returns the valid recipes for one (item, mode), cached per run.
func (run *planRun) fetch(ctx context.Context, item string, useTable bool) ([]RawRecipe, error) {
	key := recipeKey{item: item, useTable: useTable}
	if cached, ok := run.cache[key]; ok {
		return cached, nil
	}
	all, err := run.p.source.Recipes(ctx, item, useTable)
	if err != nil {
		return nil, err
	}
	valid := make([]RawRecipe, 0, len(all))
	for _, r := range all {
		if r.Valid() {
			valid = append(valid, r)
		}
	}
	run.cache[key] = valid
	return valid, nil
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		b = 1
	}
	return (a + b - 1) / b
}

func indent(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = "  " + l
	}
	return out
}
