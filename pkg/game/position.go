// Package game defines the primitive world types shared across the agent:
// positions, blocks, players, entities, and clock helpers. Everything here is
// a plain value type decoded from bridge payloads; no package in the agent is
// below this one.
package game

import (
	"errors"
	"fmt"
	"math"
)

// ErrBadOperand reports an arithmetic operation with an unusable operand,
// such as dividing a position by zero.
var ErrBadOperand = errors.New("bad operand")

// Position is a point in world space with float components.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// NewPosition constructs a Position from raw coordinates.
func NewPosition(x, y, z float64) Position {
	return Position{X: x, Y: y, Z: z}
}

// PositionFromMap decodes {x,y,z} with numeric values. Returns false when any
// coordinate is missing or non-numeric.
func PositionFromMap(m map[string]any) (Position, bool) {
	x, okX := AsFloat(m["x"])
	y, okY := AsFloat(m["y"])
	z, okZ := AsFloat(m["z"])
	if !okX || !okY || !okZ {
		return Position{}, false
	}
	return Position{X: x, Y: y, Z: z}, true
}

// PositionFromArray decodes a [x,y,z] array as delivered by the bridge's
// nearby-entity payloads.
func PositionFromArray(a []any) (Position, bool) {
	if len(a) != 3 {
		return Position{}, false
	}
	x, okX := AsFloat(a[0])
	y, okY := AsFloat(a[1])
	z, okZ := AsFloat(a[2])
	if !okX || !okY || !okZ {
		return Position{}, false
	}
	return Position{X: x, Y: y, Z: z}, true
}

// Sub returns p − o component-wise.
func (p Position) Sub(o Position) Position {
	return Position{X: p.X - o.X, Y: p.Y - o.Y, Z: p.Z - o.Z}
}

// DivScalar returns p scaled by 1/s. Zero and non-finite divisors are
// rejected with ErrBadOperand.
func (p Position) DivScalar(s float64) (Position, error) {
	if s == 0 || math.IsNaN(s) || math.IsInf(s, 0) {
		return Position{}, fmt.Errorf("%w: division by %v", ErrBadOperand, s)
	}
	return Position{X: p.X / s, Y: p.Y / s, Z: p.Z / s}, nil
}

// Distance is the Euclidean distance between p and o.
func (p Position) Distance(o Position) float64 {
	dx := p.X - o.X
	dy := p.Y - o.Y
	dz := p.Z - o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Block floor-quantizes p to the containing block position.
func (p Position) Block() BlockPosition {
	return BlockPosition{
		X: int(math.Floor(p.X)),
		Y: int(math.Floor(p.Y)),
		Z: int(math.Floor(p.Z)),
	}
}

func (p Position) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", p.X, p.Y, p.Z)
}

// BlockPosition is an integer block coordinate. Comparisons are exact, so it
// is usable as a map key.
type BlockPosition struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// BlockPositionFromMap decodes {x,y,z}, flooring fractional values.
func BlockPositionFromMap(m map[string]any) (BlockPosition, bool) {
	p, ok := PositionFromMap(m)
	if !ok {
		return BlockPosition{}, false
	}
	return p.Block(), true
}

// BlockPositionFromArray decodes a [x,y,z] array, flooring fractional values.
func BlockPositionFromArray(a []any) (BlockPosition, bool) {
	p, ok := PositionFromArray(a)
	if !ok {
		return BlockPosition{}, false
	}
	return p.Block(), true
}

// Distance is the Euclidean distance between b and o.
func (b BlockPosition) Distance(o BlockPosition) float64 {
	dx := float64(b.X - o.X)
	dy := float64(b.Y - o.Y)
	dz := float64(b.Z - o.Z)
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Offset returns b shifted by (dx, dy, dz).
func (b BlockPosition) Offset(dx, dy, dz int) BlockPosition {
	return BlockPosition{X: b.X + dx, Y: b.Y + dy, Z: b.Z + dz}
}

func (b BlockPosition) String() string {
	return fmt.Sprintf("(%d, %d, %d)", b.X, b.Y, b.Z)
}
