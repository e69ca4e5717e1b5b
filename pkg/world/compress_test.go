package world

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maicraft/maicraft-go/pkg/game"
)

func sortedPositions(ps []game.BlockPosition) []game.BlockPosition {
	out := make([]game.BlockPosition, len(ps))
	copy(out, ps)
	sort.Slice(out, func(i, j int) bool {
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].Z < out[j].Z
	})
	return out
}

func compressionFixtures() map[string][]game.BlockPosition {
	line := []game.BlockPosition{}
	for x := 1; x <= 5; x++ {
		line = append(line, game.BlockPosition{X: x, Y: 64, Z: 0})
	}
	lineWithStray := append(append([]game.BlockPosition{}, line...), game.BlockPosition{X: 3, Y: 65, Z: 0})

	slab := []game.BlockPosition{}
	for x := 0; x < 4; x++ {
		for z := 0; z < 3; z++ {
			slab = append(slab, game.BlockPosition{X: x, Y: 60, Z: z})
		}
	}

	cube := []game.BlockPosition{}
	for x := -1; x <= 1; x++ {
		for y := 63; y <= 65; y++ {
			for z := 10; z <= 12; z++ {
				cube = append(cube, game.BlockPosition{X: x, Y: y, Z: z})
			}
		}
	}

	scattered := []game.BlockPosition{
		{X: 7, Y: 64, Z: -2}, {X: -3, Y: 70, Z: 9}, {X: 0, Y: 0, Z: 0}, {X: 12, Y: 64, Z: -2},
	}

	column := []game.BlockPosition{}
	for y := 60; y <= 70; y++ {
		column = append(column, game.BlockPosition{X: 4, Y: y, Z: 4})
	}

	return map[string][]game.BlockPosition{
		"single point":    {{X: 1, Y: 2, Z: 3}},
		"x line":          line,
		"line with stray": lineWithStray,
		"flat slab":       slab,
		"solid cube":      cube,
		"scattered":       scattered,
		"y column":        column,
	}
}

func TestCompressPositionsPicksShortestCandidate(t *testing.T) {
	for name, ps := range compressionFixtures() {
		t.Run(name, func(t *testing.T) {
			chosen := CompressPositions(ps)
			require.NotEmpty(t, chosen)

			candidates := []string{
				encodeRaw(dedupPositions(ps)),
				encodeAxisRuns(ps, axisX),
				encodeAxisRuns(ps, axisY),
				encodeAxisRuns(ps, axisZ),
				encodeFactored(ps, axisZ),
				encodeFactored(ps, axisY),
				encodeFactored(ps, axisX),
				encodeBoxes(ps),
			}
			for _, c := range candidates {
				assert.LessOrEqual(t, len(chosen), len(c))
			}
		})
	}
}

func TestEveryCandidateEncodingRoundTrips(t *testing.T) {
	for name, ps := range compressionFixtures() {
		t.Run(name, func(t *testing.T) {
			want := sortedPositions(dedupPositions(ps))

			encoders := map[string]string{
				"raw":     encodeRaw(dedupPositions(ps)),
				"xruns":   encodeAxisRuns(ps, axisX),
				"yruns":   encodeAxisRuns(ps, axisY),
				"zruns":   encodeAxisRuns(ps, axisZ),
				"zfactor": encodeFactored(ps, axisZ),
				"yfactor": encodeFactored(ps, axisY),
				"xfactor": encodeFactored(ps, axisX),
				"boxes":   encodeBoxes(ps),
				"chosen":  CompressPositions(ps),
			}
			for encName, encoded := range encoders {
				got, err := ParseCompressed(encoded)
				require.NoError(t, err, "%s: %q", encName, encoded)
				assert.Equal(t, want, sortedPositions(got),
					"%s does not round-trip: %q", encName, encoded)
			}
		})
	}
}

func TestCompressLineWithStrayRendering(t *testing.T) {
	ps := []game.BlockPosition{
		{X: 1, Y: 64, Z: 0}, {X: 2, Y: 64, Z: 0}, {X: 3, Y: 64, Z: 0},
		{X: 4, Y: 64, Z: 0}, {X: 5, Y: 64, Z: 0}, {X: 3, Y: 65, Z: 0},
	}

	got := CompressPositions(ps)
	assert.Equal(t, "(x=1~5,z=0,y=64),(x=3,z=0,y=65)", got)

	back, err := ParseCompressed(got)
	require.NoError(t, err)
	assert.Equal(t, sortedPositions(ps), sortedPositions(back))
}

func TestCompressSolidCubeCollapsesToOneBox(t *testing.T) {
	var ps []game.BlockPosition
	for x := 0; x <= 2; x++ {
		for y := 64; y <= 66; y++ {
			for z := 5; z <= 7; z++ {
				ps = append(ps, game.BlockPosition{X: x, Y: y, Z: z})
			}
		}
	}

	assert.Equal(t, "(x=0~2,y=64~66,z=5~7)", encodeBoxes(ps))
	assert.Equal(t, "(x=0~2,y=64~66,z=5~7)", CompressPositions(ps))
}

func TestCompressDeduplicatesInput(t *testing.T) {
	ps := []game.BlockPosition{
		{X: 1, Y: 64, Z: 0}, {X: 1, Y: 64, Z: 0}, {X: 2, Y: 64, Z: 0},
	}
	got, err := ParseCompressed(CompressPositions(ps))
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestParseCompressedRejectsGarbage(t *testing.T) {
	for _, bad := range []string{"x=1", "(x=1,y=2)", "(q=1,y=2,z=3)", "(x=a,y=2,z=3)"} {
		_, err := ParseCompressed(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestRenderBlockGroups(t *testing.T) {
	blocks := []CachedBlock{
		{BlockType: "stone", Position: game.BlockPosition{X: 1, Y: 64, Z: 0}},
		{BlockType: "stone", Position: game.BlockPosition{X: 2, Y: 64, Z: 0}},
		{BlockType: "dirt", Position: game.BlockPosition{X: 9, Y: 65, Z: 1}},
	}

	out := RenderBlockGroups(blocks)
	assert.Contains(t, out, "stone: (x=1~2,z=0,y=64)")
	assert.Contains(t, out, "dirt: (x=9,y=65,z=1)")
}
