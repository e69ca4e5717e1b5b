// Package world holds the agent's model of the game world: the block cache
// fed by observations, the nearby-block query and compression engine used to
// render surroundings as compact text, placement and stand-candidate
// analysis, and the named-location index.
package world

import (
	"sync"

	"github.com/maicraft/maicraft-go/pkg/game"
)

// CachedBlock is one remembered block observation. Identity is the position;
// repeated observations update the bookkeeping fields in place.
type CachedBlock struct {
	BlockType string             `json:"blockType"`
	Position  game.BlockPosition `json:"position"`
	CanSee    bool               `json:"canSee"`
	FirstSeen float64            `json:"firstSeen"`
	LastSeen  float64            `json:"lastSeen"`
	SeenCount int                `json:"seenCount"`
}

// Cache is the coordinate-indexed block memory. One writer (the environment
// refresh) and many readers (nearby-block queries, planners) share it, so
// reads take the read lock and all returned blocks are copies.
type Cache struct {
	mu     sync.RWMutex
	blocks map[game.BlockPosition]*CachedBlock
	now    func() float64

	playerName string
	playerPos  *game.Position
	yaw        float64
	pitch      float64
}

// NewCache returns an empty block cache.
func NewCache() *Cache {
	return &Cache{
		blocks: make(map[game.BlockPosition]*CachedBlock),
		now:    game.Now,
	}
}

// Add records one observation. A new position is inserted with a seen count
// of one; an existing position bumps the count, refreshes lastSeen, ORs in
// visibility, and overwrites the type when it changed.
func (c *Cache) Add(blockType string, pos game.BlockPosition, canSee bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if b, ok := c.blocks[pos]; ok {
		b.LastSeen = now
		b.SeenCount++
		if canSee {
			b.CanSee = true
		}
		if b.BlockType != blockType {
			b.BlockType = blockType
		}
		return
	}
	c.blocks[pos] = &CachedBlock{
		BlockType: blockType,
		Position:  pos,
		CanSee:    canSee,
		FirstSeen: now,
		LastSeen:  now,
		SeenCount: 1,
	}
}

// Get returns a copy of the cached block at pos.
func (c *Cache) Get(pos game.BlockPosition) (CachedBlock, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.blocks[pos]
	if !ok {
		return CachedBlock{}, false
	}
	return *b, true
}

// TypeAt returns the block type at pos, or "" when unknown.
func (c *Cache) TypeAt(pos game.BlockPosition) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.blocks[pos]
	if !ok {
		return "", false
	}
	return b.BlockType, true
}

// BlocksInRange returns copies of every cached block within Euclidean
// distance r of (cx, cy, cz).
func (c *Cache) BlocksInRange(cx, cy, cz, r float64) []CachedBlock {
	c.mu.RLock()
	defer c.mu.RUnlock()
	center := game.Position{X: cx, Y: cy, Z: cz}
	var out []CachedBlock
	for _, b := range c.blocks {
		if center.Distance(blockPoint(b.Position)) <= r {
			out = append(out, *b)
		}
	}
	return out
}

// blockPoint treats the integer block coordinate as a point for distance
// checks.
func blockPoint(p game.BlockPosition) game.Position {
	return game.Position{X: float64(p.X), Y: float64(p.Y), Z: float64(p.Z)}
}

// CountTypeInRange counts cached blocks of the named type within radius r of
// center. The crafting planner uses it to detect a nearby crafting table.
func (c *Cache) CountTypeInRange(blockType string, center game.Position, r float64) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, b := range c.blocks {
		if b.BlockType == blockType && center.Distance(blockPoint(b.Position)) <= r {
			n++
		}
	}
	return n
}

// UpdatePlayerPosition records where the player is and where they look.
func (c *Cache) UpdatePlayerPosition(name string, pos game.Position, yaw, pitch float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerName = name
	p := pos
	c.playerPos = &p
	c.yaw = yaw
	c.pitch = pitch
}

// PlayerPosition returns the last recorded player position.
func (c *Cache) PlayerPosition() (string, game.Position, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.playerPos == nil {
		return c.playerName, game.Position{}, false
	}
	return c.playerName, *c.playerPos, true
}

// Len is the number of cached positions.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.blocks)
}
