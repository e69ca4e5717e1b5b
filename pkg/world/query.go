package world

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/maicraft/maicraft-go/pkg/game"
)

// Default radii for the nearby-block query.
const (
	DefaultFullDistance   = 16.0
	DefaultCanSeeDistance = 32.0
)

// NearbyBlocks gathers the remembered blocks around center: every non-air
// block within fullDistance, plus every visible block within canSeeDistance.
// Non-positive radii select the defaults.
func (c *Cache) NearbyBlocks(center game.Position, fullDistance, canSeeDistance float64) []CachedBlock {
	if fullDistance <= 0 {
		fullDistance = DefaultFullDistance
	}
	if canSeeDistance <= 0 {
		canSeeDistance = DefaultCanSeeDistance
	}
	outer := math.Max(fullDistance, canSeeDistance)

	var out []CachedBlock
	for _, b := range c.BlocksInRange(center.X, center.Y, center.Z, outer) {
		d := center.Distance(blockPoint(b.Position))
		switch {
		case d <= fullDistance && !game.IsEmptyBlockName(b.BlockType):
			out = append(out, b)
		case b.CanSee && d <= canSeeDistance:
			out = append(out, b)
		}
	}
	return out
}

// RenderBlockGroups groups blocks by type and renders one line per type with
// the positions in their shortest encoding.
func RenderBlockGroups(blocks []CachedBlock) string {
	byType := make(map[string][]game.BlockPosition)
	for _, b := range blocks {
		byType[b.BlockType] = append(byType[b.BlockType], b.Position)
	}

	names := make([]string, 0, len(byType))
	for name := range byType {
		names = append(names, name)
	}
	sort.Strings(names)

	var lines []string
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("%s: %s", name, CompressPositions(byType[name])))
	}
	return strings.Join(lines, "\n")
}

// NearbyBlocksText is the composed query: gather around center, group by
// type, compress each group.
func (c *Cache) NearbyBlocksText(center game.Position, fullDistance, canSeeDistance float64) string {
	return RenderBlockGroups(c.NearbyBlocks(center, fullDistance, canSeeDistance))
}
