package crafting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRecipeFlattensShape(t *testing.T) {
	raw := map[string]any{
		"result":        map[string]any{"id": float64(278), "name": "diamond_pickaxe", "count": float64(1)},
		"requiresTable": true,
		"inShape": []any{
			[]any{map[string]any{"name": "diamond"}, map[string]any{"name": "diamond"}, map[string]any{"name": "diamond"}},
			[]any{nil, map[string]any{"name": "stick"}, "empty"},
			[]any{"", map[string]any{"name": "stick"}, "air"},
		},
	}

	rec, ok := DecodeRecipe(raw)
	require.True(t, ok)
	assert.Equal(t, "diamond_pickaxe", rec.Result.Name)
	assert.True(t, rec.RequiresTable)
	require.True(t, rec.Valid())

	ings := rec.EffectiveIngredients()
	require.Len(t, ings, 2)
	assert.Equal(t, RecipeItem{Name: "diamond", Count: 3}, ings[0])
	assert.Equal(t, RecipeItem{Name: "stick", Count: 2}, ings[1])
}

func TestDecodeRecipePrefersFlatIngredients(t *testing.T) {
	raw := map[string]any{
		"result": map[string]any{"name": "torch", "count": float64(4)},
		"inShape": []any{
			[]any{map[string]any{"name": "coal"}},
		},
		"ingredients": []any{
			map[string]any{"name": "coal", "count": float64(1)},
			map[string]any{"name": "stick", "count": float64(1)},
		},
	}

	rec, ok := DecodeRecipe(raw)
	require.True(t, ok)
	assert.Equal(t, 4, rec.Result.Count)

	ings := rec.EffectiveIngredients()
	require.Len(t, ings, 2, "flat list wins over the shape grid")
	assert.Equal(t, "coal", ings[0].Name)
	assert.Equal(t, "stick", ings[1].Name)
}

func TestDecodeRecipeKeepsOriginalPayload(t *testing.T) {
	raw := map[string]any{
		"result":      map[string]any{"name": "chest"},
		"ingredients": []any{map[string]any{"name": "oak_planks", "count": float64(8)}},
		"delta":       []any{map[string]any{"id": float64(-1)}},
	}

	rec, ok := DecodeRecipe(raw)
	require.True(t, ok)
	// The executor hands the untouched object back to the bridge.
	assert.Equal(t, raw, rec.Payload)
	assert.Contains(t, rec.Payload, "delta")
}

func TestDecodeRecipeEmptyAndInvalid(t *testing.T) {
	_, ok := DecodeRecipe("not a map")
	assert.False(t, ok)

	rec, ok := DecodeRecipe(map[string]any{
		"result":  map[string]any{"name": "mystery"},
		"inShape": []any{[]any{nil, "", "empty", "air"}},
	})
	require.True(t, ok)
	assert.False(t, rec.Valid(), "all-empty shape has no ingredients")

	// Result count defaults to one batch.
	assert.Equal(t, 1, rec.Result.Count)
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"  Coal_Block ":          "coal_block",
		"minecraft:iron_ingot":   "iron_ingot",
		"Craft Table":            "crafting_table",
		"workbench":              "crafting_table",
		"planks":                 "oak_planks",
		"furnance":               "furnace",
		"Minecraft:Diamond":      "diamond",
		"already_canonical_name": "already_canonical_name",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), "input %q", in)
	}
}
