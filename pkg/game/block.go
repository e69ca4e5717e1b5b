package game

// Block is a single block observation as reported by the bridge.
type Block struct {
	Type     int      `json:"type"`
	Name     string   `json:"name"`
	Position Position `json:"position"`
}

// Block names with special world-model semantics: air variants count as
// empty space, and water, lava, and bedrock cannot be mined away.
const (
	BlockAir     = "air"
	BlockCaveAir = "cave_air"
	BlockWater   = "water"
	BlockLava    = "lava"
	BlockBedrock = "bedrock"
)

// IsEmptyBlockName reports whether name denotes empty space.
func IsEmptyBlockName(name string) bool {
	return name == BlockAir || name == BlockCaveAir
}

// IsNondiggableName reports whether name denotes a block that mining cannot
// remove.
func IsNondiggableName(name string) bool {
	return name == BlockWater || name == BlockLava || name == BlockBedrock
}
