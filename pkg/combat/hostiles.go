package combat

import (
	"strings"

	"github.com/maicraft/maicraft-go/pkg/game"
)

// hostileNames is the closed set of mob names treated as hostile regardless
// of what the bridge classifies them as.
var hostileNames = map[string]struct{}{
	"zombie":          {},
	"husk":            {},
	"drowned":         {},
	"zombie_villager": {},
	"skeleton":        {},
	"stray":           {},
	"wither_skeleton": {},
	"creeper":         {},
	"spider":          {},
	"cave_spider":     {},
	"enderman":        {},
	"witch":           {},
	"slime":           {},
	"magma_cube":      {},
	"blaze":           {},
	"ghast":           {},
	"phantom":         {},
	"pillager":        {},
	"vindicator":      {},
	"evoker":          {},
	"ravager":         {},
	"vex":             {},
	"guardian":        {},
	"elder_guardian":  {},
	"shulker":         {},
	"silverfish":      {},
}

// hostileFragments catches modded or namespaced variants whose names embed a
// vanilla hostile family.
var hostileFragments = []string{"zombie", "skeleton", "creeper", "spider"}

// IsHostileName classifies by name with type/kind fallbacks: a mob is hostile
// when its name is in the closed set, the bridge typed it "hostile", or its
// name contains a hostile family fragment.
func IsHostileName(name, entityType, kind string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	if _, ok := hostileNames[lower]; ok {
		return true
	}
	if entityType == "hostile" || kind == "hostile" {
		return true
	}
	for _, frag := range hostileFragments {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}

// IsHostileEntity classifies one nearby-entity record. Players are never
// hostile here; the hurt pipeline handles player attackers separately.
func IsHostileEntity(e game.EntityInfo) bool {
	if _, isPlayer := e.(*game.PlayerEntity); isPlayer {
		return false
	}
	b := e.Base()
	return IsHostileName(b.Name, b.Type, b.Kind)
}
