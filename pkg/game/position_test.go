package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionBlockFloorsComponents(t *testing.T) {
	tests := []struct {
		name string
		pos  Position
		want BlockPosition
	}{
		{"positive fractions", Position{X: 1.7, Y: 64.2, Z: 3.999}, BlockPosition{X: 1, Y: 64, Z: 3}},
		{"exact integers", Position{X: 5, Y: 70, Z: -2}, BlockPosition{X: 5, Y: 70, Z: -2}},
		{"negative fractions floor down", Position{X: -0.5, Y: -1.01, Z: -2.999}, BlockPosition{X: -1, Y: -2, Z: -3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pos.Block())
		})
	}
}

func TestPositionDistance(t *testing.T) {
	a := Position{X: 0, Y: 0, Z: 0}
	b := Position{X: 3, Y: 4, Z: 0}
	assert.InDelta(t, 5.0, a.Distance(b), 1e-9)
	assert.InDelta(t, 5.0, b.Distance(a), 1e-9)
}

func TestPositionSubAndDiv(t *testing.T) {
	p := Position{X: 10, Y: 20, Z: 30}
	q := Position{X: 1, Y: 2, Z: 3}

	assert.Equal(t, Position{X: 9, Y: 18, Z: 27}, p.Sub(q))

	half, err := p.DivScalar(2)
	require.NoError(t, err)
	assert.Equal(t, Position{X: 5, Y: 10, Z: 15}, half)

	_, err = p.DivScalar(0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadOperand)
}

func TestPositionFromMap(t *testing.T) {
	pos, ok := PositionFromMap(map[string]any{"x": 1.5, "y": 64, "z": -3})
	require.True(t, ok)
	assert.Equal(t, Position{X: 1.5, Y: 64, Z: -3}, pos)

	_, ok = PositionFromMap(map[string]any{"x": 1.5, "y": 64})
	assert.False(t, ok)

	_, ok = PositionFromMap(map[string]any{"x": "east", "y": 64, "z": 0})
	assert.False(t, ok)
}

func TestBlockPositionDistanceIsExact(t *testing.T) {
	a := BlockPosition{X: 0, Y: 64, Z: 0}
	b := BlockPosition{X: 0, Y: 64, Z: 7}
	assert.InDelta(t, 7.0, a.Distance(b), 1e-9)
	assert.Equal(t, a, BlockPosition{X: 0, Y: 64, Z: 0})
}

func TestBlockPositionFromWireForms(t *testing.T) {
	pos, ok := BlockPositionFromMap(map[string]any{"x": 1.7, "y": 64.0, "z": -2.3})
	require.True(t, ok)
	assert.Equal(t, BlockPosition{X: 1, Y: 64, Z: -3}, pos)

	_, ok = BlockPositionFromMap(map[string]any{"x": 1, "y": 64})
	assert.False(t, ok)

	pos, ok = BlockPositionFromArray([]any{3.0, 70.0, 5.9})
	require.True(t, ok)
	assert.Equal(t, BlockPosition{X: 3, Y: 70, Z: 5}, pos)

	_, ok = BlockPositionFromArray([]any{3.0, 70.0})
	assert.False(t, ok)
}

func TestEntityFromMapDispatch(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
		check   func(t *testing.T, e EntityInfo)
	}{
		{
			name:    "player entity carries username",
			payload: map[string]any{"type": "player", "name": "player", "username": "Alice", "position": []any{1.0, 64.0, 2.0}},
			check: func(t *testing.T, e EntityInfo) {
				p, ok := e.(*PlayerEntity)
				require.True(t, ok)
				assert.Equal(t, "Alice", p.Username)
				require.NotNil(t, p.Position)
				assert.Equal(t, BlockPosition{X: 1, Y: 64, Z: 2}, p.Position.Block())
			},
		},
		{
			name:    "animal entity",
			payload: map[string]any{"type": "animal", "name": "cow"},
			check: func(t *testing.T, e EntityInfo) {
				_, ok := e.(*AnimalEntity)
				assert.True(t, ok)
			},
		},
		{
			name: "item entity reads first itemsInfo entry",
			payload: map[string]any{
				"type": "object", "name": "item",
				"itemsInfo": []any{map[string]any{"name": "oak_log", "count": 3.0}},
			},
			check: func(t *testing.T, e EntityInfo) {
				it, ok := e.(*ItemEntity)
				require.True(t, ok)
				assert.Equal(t, "oak_log", it.ItemName)
				assert.Equal(t, 3, it.Count)
			},
		},
		{
			name:    "generic entity keeps health",
			payload: map[string]any{"type": "hostile", "name": "zombie", "health": 10.0, "maxHealth": 20.0},
			check: func(t *testing.T, e EntityInfo) {
				base := e.Base()
				require.NotNil(t, base.Health)
				assert.Equal(t, 10.0, *base.Health)
				assert.Contains(t, e.Describe(), "zombie")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, EntityFromMap(tt.payload))
		})
	}
}
