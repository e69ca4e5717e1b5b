package world

import (
	"fmt"
	"sort"
	"strings"

	"github.com/maicraft/maicraft-go/pkg/game"
)

// Placement is a cell a block could be placed into. Displaces names the
// liquid the placement would push out, or "" for plain air.
type Placement struct {
	Position  game.BlockPosition
	Displaces string
}

var neighborOffsets = [6][3]int{
	{1, 0, 0}, {-1, 0, 0},
	{0, 1, 0}, {0, -1, 0},
	{0, 0, 1}, {0, 0, -1},
}

// PlacementCandidates finds cells within radius of center where a block can
// be placed: the cell holds air, water, or lava, and between one and five of
// its six axis neighbors are known non-empty blocks. Cells the cache has
// never seen are skipped, as are cells fully enclosed or floating free.
func (c *Cache) PlacementCandidates(center game.Position, radius float64) []Placement {
	var out []Placement
	for _, b := range c.BlocksInRange(center.X, center.Y, center.Z, radius) {
		displaces := ""
		switch b.BlockType {
		case game.BlockAir:
		case game.BlockWater:
			displaces = game.BlockWater
		case game.BlockLava:
			displaces = game.BlockLava
		default:
			continue
		}

		solid := 0
		for _, off := range neighborOffsets {
			nb, ok := c.Get(b.Position.Offset(off[0], off[1], off[2]))
			if ok && !game.IsEmptyBlockName(nb.BlockType) {
				solid++
			}
		}
		if solid >= 1 && solid <= 5 {
			out = append(out, Placement{Position: b.Position, Displaces: displaces})
		}
	}
	sortPositions(out)
	return out
}

// StandCandidates finds positions usable as Move targets: air at the body
// cell, a known non-air block below, and air above.
func (c *Cache) StandCandidates(center game.Position, radius float64) []game.BlockPosition {
	var out []game.BlockPosition
	for _, b := range c.BlocksInRange(center.X, center.Y, center.Z, radius) {
		if b.BlockType != game.BlockAir {
			continue
		}
		below, ok := c.Get(b.Position.Offset(0, -1, 0))
		if !ok || below.BlockType == game.BlockAir {
			continue
		}
		above, ok := c.Get(b.Position.Offset(0, 1, 0))
		if !ok || above.BlockType != game.BlockAir {
			continue
		}
		out = append(out, b.Position)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		if out[i].Z != out[j].Z {
			return out[i].Z < out[j].Z
		}
		return out[i].X < out[j].X
	})
	return out
}

func sortPositions(ps []Placement) {
	sort.Slice(ps, func(i, j int) bool {
		a, b := ps[i].Position, ps[j].Position
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		if a.Z != b.Z {
			return a.Z < b.Z
		}
		return a.X < b.X
	})
}

// RenderPlacements writes the placement report lines used in prompts.
func RenderPlacements(ps []Placement) string {
	var lines []string
	for _, p := range ps {
		switch p.Displaces {
		case game.BlockWater:
			lines = append(lines, fmt.Sprintf("%s 可放置方块 (将排开水)", p.Position))
		case game.BlockLava:
			lines = append(lines, fmt.Sprintf("%s 可放置方块 (将排开岩浆)", p.Position))
		default:
			lines = append(lines, fmt.Sprintf("%s 可放置方块", p.Position))
		}
	}
	return strings.Join(lines, "\n")
}
