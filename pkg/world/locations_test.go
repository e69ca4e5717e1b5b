package world

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maicraft/maicraft-go/pkg/game"
)

func locationsPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "locations.json")
}

func TestLocationAddSuffixesDuplicateNames(t *testing.T) {
	s := NewLocationStore("")

	first, err := s.Add("家", "基地", game.BlockPosition{X: 1, Y: 64, Z: 2})
	require.NoError(t, err)
	second, err := s.Add("家", "矿洞入口", game.BlockPosition{X: 9, Y: 30, Z: -4})
	require.NoError(t, err)
	third, err := s.Add("家", "", game.BlockPosition{X: 0, Y: 0, Z: 0})
	require.NoError(t, err)

	assert.Equal(t, "家", first)
	assert.Equal(t, "家-1", second)
	assert.Equal(t, "家-2", third)

	points := s.List()
	require.Len(t, points, 3)
	assert.Equal(t, "矿洞入口", points[1].Info)
}

func TestLocationGetAndRemove(t *testing.T) {
	s := NewLocationStore("")
	_, err := s.Add("熔炉", "三台并排", game.BlockPosition{X: 5, Y: 64, Z: 5})
	require.NoError(t, err)

	p, ok := s.Get("熔炉")
	require.True(t, ok)
	assert.Equal(t, game.BlockPosition{X: 5, Y: 64, Z: 5}, p.Position)

	_, ok = s.Get("不存在")
	assert.False(t, ok)

	removed, err := s.Remove("熔炉")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.Remove("熔炉")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Empty(t, s.List())
}

func TestLocationPersistenceRoundTrip(t *testing.T) {
	path := locationsPath(t)

	s := NewLocationStore(path)
	_, err := s.Add("家", "基地", game.BlockPosition{X: 1, Y: 64, Z: 2})
	require.NoError(t, err)
	_, err = s.Add("村庄", "", game.BlockPosition{X: -120, Y: 70, Z: 388})
	require.NoError(t, err)

	// On-disk form is an array of [name, info, {x,y,z}] triples.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var entries [][3]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &entries))
	require.Len(t, entries, 2)
	var name string
	require.NoError(t, json.Unmarshal(entries[0][0], &name))
	assert.Equal(t, "家", name)
	var pos map[string]int
	require.NoError(t, json.Unmarshal(entries[0][2], &pos))
	assert.Equal(t, map[string]int{"x": 1, "y": 64, "z": 2}, pos)

	reloaded := NewLocationStore(path)
	points := reloaded.List()
	require.Len(t, points, 2)
	assert.Equal(t, s.List(), points)
}

func TestLocationLoadToleratesMissingFile(t *testing.T) {
	s := NewLocationStore(locationsPath(t))
	assert.Empty(t, s.List())
}
