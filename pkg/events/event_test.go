package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maicraft/maicraft-go/pkg/game"
)

func TestDataDecodesRecognizableShapes(t *testing.T) {
	d := NewData(map[string]any{
		"position": map[string]any{"x": 1.0, "y": 64.0, "z": 2.0},
		"player":   map[string]any{"username": "Alice", "uuid": "u-1"},
		"entity":   map[string]any{"type": "hostile", "name": "zombie", "health": 10.0},
		"plain":    map[string]any{"foo": "bar"},
		"count":    3.0,
	})

	pos, ok := d.GetPosition("position")
	require.True(t, ok)
	assert.Equal(t, game.Position{X: 1, Y: 64, Z: 2}, pos)

	player, ok := d.GetPlayer("player")
	require.True(t, ok)
	assert.Equal(t, "Alice", player.Username)

	entity, ok := d.GetEntity("entity")
	require.True(t, ok)
	assert.Equal(t, "zombie", entity.Base().Name)

	raw, ok := d.Get("plain")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"foo": "bar"}, raw)

	n, ok := d.GetInt("count")
	require.True(t, ok)
	assert.Equal(t, 3, n)
}

func TestDataPlayerShapeWinsOverEntityShape(t *testing.T) {
	// A map with a username is player-like even when it also carries health.
	d := NewData(map[string]any{
		"entity": map[string]any{"username": "Mai", "health": 14.0},
	})

	p, ok := d.GetPlayer("entity")
	require.True(t, ok)
	assert.Equal(t, "Mai", p.Username)

	// The raw map keeps the health field the typed form dropped.
	m, ok := d.GetMap("entity")
	require.True(t, ok)
	assert.Equal(t, 14.0, m["health"])
}

func TestDataAsMapReturnsRawPayload(t *testing.T) {
	raw := map[string]any{"position": map[string]any{"x": 1.0, "y": 2.0, "z": 3.0}}
	d := NewData(raw)
	out := d.AsMap()
	assert.Equal(t, raw, out)
}

func TestEventTimestampNormalization(t *testing.T) {
	ms := newBase(RawEvent{Type: "chat", Timestamp: 1700000000123})
	assert.InDelta(t, 1700000000.123, ms.TimestampS(), 1e-6)

	s := newBase(RawEvent{Type: "chat", Timestamp: 1700000000})
	assert.Equal(t, 1700000000.0, s.TimestampS())
}

func TestEventPlayerName(t *testing.T) {
	tests := []struct {
		name string
		data map[string]any
		want string
	}{
		{"username field", map[string]any{"username": "Alice"}, "Alice"},
		{"player object", map[string]any{"player": map[string]any{"username": "Bob", "uuid": "u"}}, "Bob"},
		{"none", map[string]any{"message": "hi"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newBase(RawEvent{Type: "x", Data: tt.data})
			assert.Equal(t, tt.want, e.PlayerName())
		})
	}
}
