package crafting

// ConversionPair groups items that convert into each other (ingot ↔ block).
// Priority names the terminal storage form: the planner treats it as a leaf
// and never crafts it from the pair's own members, which is what breaks
// A→B→A recipe loops. Ratio records each member's value in base units.
type ConversionPair struct {
	Items    []string
	Priority string
	Ratio    map[string]float64
}

// PairSet indexes conversion pairs by member name.
type PairSet struct {
	byItem map[string]*ConversionPair
}

// NewPairSet builds the index. Later pairs win on duplicate member names.
func NewPairSet(pairs []ConversionPair) *PairSet {
	s := &PairSet{byItem: make(map[string]*ConversionPair)}
	for i := range pairs {
		p := &pairs[i]
		for _, item := range p.Items {
			s.byItem[Normalize(item)] = p
		}
	}
	return s
}

// PairFor returns the conversion pair the item belongs to, if any.
func (s *PairSet) PairFor(item string) (*ConversionPair, bool) {
	p, ok := s.byItem[Normalize(item)]
	return p, ok
}

// IsPriority reports whether item is the terminal form of its pair.
func (s *PairSet) IsPriority(item string) bool {
	p, ok := s.PairFor(item)
	return ok && Normalize(p.Priority) == Normalize(item)
}

// SamePair reports whether two items belong to the same conversion pair.
func (s *PairSet) SamePair(a, b string) bool {
	pa, oka := s.PairFor(a)
	pb, okb := s.PairFor(b)
	return oka && okb && pa == pb
}

// nineToOne is the standard 9:1 compression ratio.
func nineToOne(unit, block string) ConversionPair {
	return ConversionPair{
		Items:    []string{unit, block},
		Priority: block,
		Ratio:    map[string]float64{unit: 1, block: 9},
	}
}

// DefaultPairs covers the vanilla storage-block compressions.
func DefaultPairs() []ConversionPair {
	return []ConversionPair{
		nineToOne("coal", "coal_block"),
		nineToOne("iron_ingot", "iron_block"),
		nineToOne("gold_ingot", "gold_block"),
		nineToOne("copper_ingot", "copper_block"),
		nineToOne("redstone", "redstone_block"),
		nineToOne("lapis_lazuli", "lapis_block"),
		nineToOne("diamond", "diamond_block"),
		nineToOne("emerald", "emerald_block"),
		nineToOne("slime_ball", "slime_block"),
		nineToOne("wheat", "hay_block"),
	}
}
