package crafting

import "strings"

// aliases maps shorthand item names to canonical registry names. Applied
// after lowercasing and space folding, so "Craft Table" hits "craft_table".
var aliases = map[string]string{
	"plank":       "oak_planks",
	"planks":      "oak_planks",
	"wood_plank":  "oak_planks",
	"wood_planks": "oak_planks",
	"log":         "oak_log",
	"wood":        "oak_log",
	"cobble":      "cobblestone",
	"iron":        "iron_ingot",
	"gold":        "gold_ingot",
	"copper":      "copper_ingot",
	"lapis":       "lapis_lazuli",
	"redstone_dust": "redstone",
	"workbench":   "crafting_table",
	"craft_table": "crafting_table",
	"table":       "crafting_table",
	"furnance":    "furnace",
	"wheat_block": "hay_block",
}

// Normalize canonicalizes an item name: trim, lowercase, spaces to
// underscores, strip the minecraft: namespace, then apply the alias table.
// All planner comparisons run on normalized names.
func Normalize(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.ReplaceAll(n, " ", "_")
	n = strings.TrimPrefix(n, "minecraft:")
	if canonical, ok := aliases[n]; ok {
		return canonical
	}
	return n
}
