package world

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/maicraft/maicraft-go/pkg/game"
)

// The compressor renders a set of block positions as text. Every candidate
// encoding shares one grammar: parenthesized groups of axis=value terms,
// where a value is one or more runs joined by "|" and a run is "a" or "a~b".
// A group denotes the Cartesian product of its axis values, the whole string
// the union of its groups. The shortest candidate wins.

type axis int

const (
	axisX axis = iota
	axisY
	axisZ
)

func (a axis) String() string {
	switch a {
	case axisX:
		return "x"
	case axisY:
		return "y"
	default:
		return "z"
	}
}

type span struct{ lo, hi int }

func (s span) String() string {
	if s.lo == s.hi {
		return strconv.Itoa(s.lo)
	}
	return fmt.Sprintf("%d~%d", s.lo, s.hi)
}

// spansOf merges integer values into maximal consecutive runs. The input is
// deduplicated and sorted here.
func spansOf(vals []int) []span {
	if len(vals) == 0 {
		return nil
	}
	uniq := make([]int, 0, len(vals))
	seen := make(map[int]bool, len(vals))
	for _, v := range vals {
		if !seen[v] {
			seen[v] = true
			uniq = append(uniq, v)
		}
	}
	sort.Ints(uniq)

	out := []span{{lo: uniq[0], hi: uniq[0]}}
	for _, v := range uniq[1:] {
		last := &out[len(out)-1]
		if v == last.hi+1 {
			last.hi = v
			continue
		}
		out = append(out, span{lo: v, hi: v})
	}
	return out
}

func formatSpans(spans []span) string {
	parts := make([]string, len(spans))
	for i, s := range spans {
		parts[i] = s.String()
	}
	return strings.Join(parts, "|")
}

func component(p game.BlockPosition, a axis) int {
	switch a {
	case axisX:
		return p.X
	case axisY:
		return p.Y
	default:
		return p.Z
	}
}

// CompressPositions renders the position set in whichever candidate encoding
// is shortest: the raw point list, per-axis run merging, per-slab factoring,
// or full 3D box merging. Ties keep the earliest candidate.
func CompressPositions(ps []game.BlockPosition) string {
	if len(ps) == 0 {
		return ""
	}
	ps = dedupPositions(ps)

	candidates := []string{
		encodeRaw(ps),
		encodeAxisRuns(ps, axisX),
		encodeAxisRuns(ps, axisY),
		encodeAxisRuns(ps, axisZ),
		encodeFactored(ps, axisZ),
		encodeFactored(ps, axisY),
		encodeFactored(ps, axisX),
		encodeBoxes(ps),
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if len(c) < len(best) {
			best = c
		}
	}
	return best
}

func dedupPositions(ps []game.BlockPosition) []game.BlockPosition {
	seen := make(map[game.BlockPosition]bool, len(ps))
	out := make([]game.BlockPosition, 0, len(ps))
	for _, p := range ps {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
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

// encodeRaw lists every point.
func encodeRaw(ps []game.BlockPosition) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = fmt.Sprintf("(x=%d,y=%d,z=%d)", p.X, p.Y, p.Z)
	}
	return strings.Join(parts, ",")
}

// encodeAxisRuns holds the other two axes fixed and merges consecutive
// values of the run axis. Each run becomes its own group.
func encodeAxisRuns(ps []game.BlockPosition, runAxis axis) string {
	fixedA, fixedB := otherAxes(runAxis)

	type key struct{ a, b int }
	groups := make(map[key][]int)
	for _, p := range ps {
		k := key{a: component(p, fixedA), b: component(p, fixedB)}
		groups[k] = append(groups[k], component(p, runAxis))
	}

	keys := make([]key, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].b != keys[j].b {
			return keys[i].b < keys[j].b
		}
		return keys[i].a < keys[j].a
	})

	var parts []string
	for _, k := range keys {
		for _, s := range spansOf(groups[k]) {
			parts = append(parts, fmt.Sprintf("(%s=%s,%s=%d,%s=%d)",
				runAxis, s, fixedA, k.a, fixedB, k.b))
		}
	}
	return strings.Join(parts, ",")
}

// otherAxes returns the two axes besides a, ordered for rendering:
// x-runs render as (x=…,z=…,y=…).
func otherAxes(a axis) (axis, axis) {
	switch a {
	case axisX:
		return axisZ, axisY
	case axisY:
		return axisX, axisZ
	default:
		return axisX, axisY
	}
}

// factoring rotates the axes: slabbing on z runs over y with an x signature,
// slabbing on y runs over x with a z signature, slabbing on x runs over z
// with a y signature.
func factorAxes(slab axis) (runAxis, sigAxis axis) {
	switch slab {
	case axisZ:
		return axisY, axisX
	case axisY:
		return axisX, axisZ
	default:
		return axisZ, axisY
	}
}

// encodeFactored fixes one slab coordinate per group, merges consecutive
// run-axis values sharing an identical signature on the third axis.
func encodeFactored(ps []game.BlockPosition, slab axis) string {
	runAxis, sigAxis := factorAxes(slab)

	// slab value -> run value -> signature axis values
	rows := make(map[int]map[int][]int)
	for _, p := range ps {
		sv := component(p, slab)
		rv := component(p, runAxis)
		if rows[sv] == nil {
			rows[sv] = make(map[int][]int)
		}
		rows[sv][rv] = append(rows[sv][rv], component(p, sigAxis))
	}

	slabs := make([]int, 0, len(rows))
	for sv := range rows {
		slabs = append(slabs, sv)
	}
	sort.Ints(slabs)

	var parts []string
	for _, sv := range slabs {
		// group run values by signature, then merge consecutive ones
		bySig := make(map[string][]int)
		for rv, sigVals := range rows[sv] {
			sig := formatSpans(spansOf(sigVals))
			bySig[sig] = append(bySig[sig], rv)
		}

		type segment struct {
			runs span
			sig  string
		}
		var segments []segment
		for sig, rvs := range bySig {
			for _, s := range spansOf(rvs) {
				segments = append(segments, segment{runs: s, sig: sig})
			}
		}
		sort.Slice(segments, func(i, j int) bool {
			if segments[i].runs.lo != segments[j].runs.lo {
				return segments[i].runs.lo < segments[j].runs.lo
			}
			return segments[i].sig < segments[j].sig
		})

		for _, seg := range segments {
			parts = append(parts, fmt.Sprintf("(%s=%d,%s=%s,%s=%s)",
				slab, sv, runAxis, seg.runs, sigAxis, seg.sig))
		}
	}
	return strings.Join(parts, ",")
}

// encodeBoxes merges per-(y,z) x-runs into boxes: adjacent y rows with an
// identical run set merge within a z slab, then identical (y-segment, runs)
// units merge across adjacent z.
func encodeBoxes(ps []game.BlockPosition) string {
	// (z, y) -> x signature
	type rowKey struct{ z, y int }
	rowVals := make(map[rowKey][]int)
	for _, p := range ps {
		k := rowKey{z: p.Z, y: p.Y}
		rowVals[k] = append(rowVals[k], p.X)
	}
	rowSig := make(map[rowKey]string, len(rowVals))
	for k, xs := range rowVals {
		rowSig[k] = formatSpans(spansOf(xs))
	}

	// within each z, merge adjacent y sharing a signature
	byZ := make(map[int]map[string][]int) // z -> sig -> y values
	for k, sig := range rowSig {
		if byZ[k.z] == nil {
			byZ[k.z] = make(map[string][]int)
		}
		byZ[k.z][sig] = append(byZ[k.z][sig], k.y)
	}

	// (y segment, sig) -> z values, then merge consecutive z
	type unit struct {
		ySeg span
		sig  string
	}
	unitZs := make(map[unit][]int)
	for z, sigs := range byZ {
		for sig, ys := range sigs {
			for _, seg := range spansOf(ys) {
				u := unit{ySeg: seg, sig: sig}
				unitZs[u] = append(unitZs[u], z)
			}
		}
	}

	type box struct {
		sig  string
		ySeg span
		zSeg span
	}
	var boxes []box
	for u, zs := range unitZs {
		for _, zSeg := range spansOf(zs) {
			boxes = append(boxes, box{sig: u.sig, ySeg: u.ySeg, zSeg: zSeg})
		}
	}
	sort.Slice(boxes, func(i, j int) bool {
		if boxes[i].zSeg.lo != boxes[j].zSeg.lo {
			return boxes[i].zSeg.lo < boxes[j].zSeg.lo
		}
		if boxes[i].ySeg.lo != boxes[j].ySeg.lo {
			return boxes[i].ySeg.lo < boxes[j].ySeg.lo
		}
		return boxes[i].sig < boxes[j].sig
	})

	parts := make([]string, len(boxes))
	for i, b := range boxes {
		parts[i] = fmt.Sprintf("(x=%s,y=%s,z=%s)", b.sig, b.ySeg, b.zSeg)
	}
	return strings.Join(parts, ",")
}

// ParseCompressed expands any candidate encoding back into the position set
// it denotes.
func ParseCompressed(s string) ([]game.BlockPosition, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return nil, fmt.Errorf("compressed positions must be parenthesized groups, got %q", s)
	}

	groups := strings.Split(s[1:len(s)-1], "),(")
	seen := make(map[game.BlockPosition]bool)
	var out []game.BlockPosition
	for _, g := range groups {
		xs, ys, zs, err := parseGroup(g)
		if err != nil {
			return nil, err
		}
		for _, z := range zs {
			for _, y := range ys {
				for _, x := range xs {
					p := game.BlockPosition{X: x, Y: y, Z: z}
					if !seen[p] {
						seen[p] = true
						out = append(out, p)
					}
				}
			}
		}
	}
	return out, nil
}

func parseGroup(g string) (xs, ys, zs []int, err error) {
	for _, term := range strings.Split(g, ",") {
		name, spec, ok := strings.Cut(term, "=")
		if !ok {
			return nil, nil, nil, fmt.Errorf("malformed term %q", term)
		}
		vals, err := parseSpans(spec)
		if err != nil {
			return nil, nil, nil, err
		}
		switch name {
		case "x":
			xs = vals
		case "y":
			ys = vals
		case "z":
			zs = vals
		default:
			return nil, nil, nil, fmt.Errorf("unknown axis %q", name)
		}
	}
	if len(xs) == 0 || len(ys) == 0 || len(zs) == 0 {
		return nil, nil, nil, fmt.Errorf("group %q is missing an axis", g)
	}
	return xs, ys, zs, nil
}

func parseSpans(spec string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(spec, "|") {
		lo, hi, found := strings.Cut(part, "~")
		a, err := strconv.Atoi(lo)
		if err != nil {
			return nil, fmt.Errorf("bad run %q: %w", part, err)
		}
		if !found {
			out = append(out, a)
			continue
		}
		b, err := strconv.Atoi(hi)
		if err != nil {
			return nil, fmt.Errorf("bad run %q: %w", part, err)
		}
		for v := a; v <= b; v++ {
			out = append(out, v)
		}
	}
	return out, nil
}
