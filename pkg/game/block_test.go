package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlockNameClasses(t *testing.T) {
	assert.True(t, IsEmptyBlockName(BlockAir))
	assert.True(t, IsEmptyBlockName(BlockCaveAir))
	assert.False(t, IsEmptyBlockName("stone"))
	assert.False(t, IsEmptyBlockName(BlockWater))

	assert.True(t, IsNondiggableName(BlockWater))
	assert.True(t, IsNondiggableName(BlockLava))
	assert.True(t, IsNondiggableName(BlockBedrock))
	assert.False(t, IsNondiggableName(BlockAir))
	assert.False(t, IsNondiggableName("stone"))
}
