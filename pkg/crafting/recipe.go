package crafting

import (
	"fmt"
	"sort"

	"github.com/maicraft/maicraft-go/pkg/game"
)

// RecipeItem is one slot of a raw recipe: result, shape cell, or ingredient.
type RecipeItem struct {
	ID       int
	Name     string
	Metadata int
	Count    int
}

// key tallies shape cells and ingredients by identity.
func (it RecipeItem) key() string {
	return fmt.Sprintf("%d|%s|%d", it.ID, it.Name, it.Metadata)
}

// RawRecipe is one recipe in the game's native shape. Payload keeps the
// original object so craft_with_recipe receives exactly what the bridge
// returned.
type RawRecipe struct {
	Result        RecipeItem
	RequiresTable bool
	InShape       [][]*RecipeItem
	Ingredients   []RecipeItem
	Payload       map[string]any
}

// emptyMarkers are the cell values that mean "no item here".
var emptyMarkers = map[string]struct{}{
	"":      {},
	"empty": {},
	"air":   {},
}

// DecodeRecipe parses one element of a query_raw_recipe data array.
func DecodeRecipe(v any) (RawRecipe, bool) {
	m, ok := v.(map[string]any)
	if !ok || m == nil {
		return RawRecipe{}, false
	}
	r := RawRecipe{Payload: m}
	if item, ok := decodeRecipeItem(m["result"]); ok {
		r.Result = *item
	}
	if r.Result.Count < 1 {
		r.Result.Count = 1
	}
	if b, ok := m["requiresTable"].(bool); ok {
		r.RequiresTable = b
	}
	if shape, ok := m["inShape"].([]any); ok {
		for _, rowRaw := range shape {
			row, ok := rowRaw.([]any)
			if !ok {
				continue
			}
			cells := make([]*RecipeItem, 0, len(row))
			for _, cell := range row {
				item, _ := decodeRecipeItem(cell)
				cells = append(cells, item)
			}
			r.InShape = append(r.InShape, cells)
		}
	}
	if list, ok := m["ingredients"].([]any); ok {
		for _, raw := range list {
			if item, ok := decodeRecipeItem(raw); ok {
				r.Ingredients = append(r.Ingredients, *item)
			}
		}
	}
	return r, true
}

// decodeRecipeItem parses one cell. Returns nil for the empty markers
// (null, "", "empty", "air") and for air-id objects named like a marker.
func decodeRecipeItem(v any) (*RecipeItem, bool) {
	switch cell := v.(type) {
	case nil:
		return nil, false
	case string:
		if _, empty := emptyMarkers[Normalize(cell)]; empty {
			return nil, false
		}
		return &RecipeItem{Name: Normalize(cell), Count: 1}, true
	case map[string]any:
		item := &RecipeItem{Count: 1}
		if id, ok := game.AsInt(cell["id"]); ok {
			item.ID = id
		}
		if name, ok := game.AsString(cell["name"]); ok {
			item.Name = Normalize(name)
		}
		if meta, ok := game.AsInt(cell["metadata"]); ok {
			item.Metadata = meta
		}
		if c, ok := game.AsInt(cell["count"]); ok && c > 0 {
			item.Count = c
		}
		if _, empty := emptyMarkers[item.Name]; empty && item.ID <= 0 {
			return nil, false
		}
		return item, true
	default:
		return nil, false
	}
}

// EffectiveIngredients flattens the recipe into per-batch ingredient totals:
// the flat list when present, otherwise the shape grid, tallied by
// (id, name, metadata). Deterministic order: by name, then id.
func (r RawRecipe) EffectiveIngredients() []RecipeItem {
	tally := make(map[string]*RecipeItem)
	add := func(it RecipeItem) {
		c := it.Count
		if c < 1 {
			c = 1
		}
		k := it.key()
		if cur, ok := tally[k]; ok {
			cur.Count += c
			return
		}
		cp := it
		cp.Count = c
		tally[k] = &cp
	}
	if len(r.Ingredients) > 0 {
		for _, it := range r.Ingredients {
			add(it)
		}
	} else {
		for _, row := range r.InShape {
			for _, cell := range row {
				if cell != nil {
					add(*cell)
				}
			}
		}
	}
	out := make([]RecipeItem, 0, len(tally))
	for _, it := range tally {
		out = append(out, *it)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Valid reports whether the recipe has at least one effective ingredient.
func (r RawRecipe) Valid() bool {
	return len(r.EffectiveIngredients()) > 0
}

// ingredientCost is the summed per-batch ingredient count used to rank
// recipes cheapest-first.
func (r RawRecipe) ingredientCost() int {
	total := 0
	for _, it := range r.EffectiveIngredients() {
		total += it.Count
	}
	return total
}
