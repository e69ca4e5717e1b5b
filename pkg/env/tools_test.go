package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBestToolLevels(t *testing.T) {
	items := []Item{
		{Name: "wooden_pickaxe", Count: 1},
		{Name: "iron_pickaxe", Count: 1},
		{Name: "stone_sword", Count: 1},
		{Name: "golden_axe", Count: 1},
		{Name: "cobblestone", Count: 40},
	}

	best := BestToolLevels(items)

	assert.Equal(t, 4, best["_pickaxe"], "iron outranks wooden")
	assert.Equal(t, 3, best["_sword"])
	assert.Equal(t, 2, best["_axe"])
	assert.Equal(t, 0, best["_shovel"])
	assert.Equal(t, 0, best["_hoe"])
}

func TestBestToolLevelsIgnoresUnknownMaterials(t *testing.T) {
	best := BestToolLevels([]Item{{Name: "copper_pickaxe", Count: 1}})
	assert.Equal(t, 0, best["_pickaxe"])
}

func TestToolAdviceKeyedByBestLevel(t *testing.T) {
	advice := ToolAdvice(nil)
	assert.Contains(t, advice, "工具建议:")
	assert.Contains(t, advice, "你还没有镐")
	assert.Contains(t, advice, "你还没有剑")

	advice = ToolAdvice([]Item{{Name: "iron_pickaxe", Count: 1}})
	assert.Contains(t, advice, "铁镐可以挖钻石")
	assert.NotContains(t, advice, "你还没有镐")

	// One line per category regardless of ownership.
	for _, label := range []string{"- 镐:", "- 斧:", "- 锹:", "- 锄:", "- 剑:"} {
		assert.Contains(t, advice, label)
	}
}
