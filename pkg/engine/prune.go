package engine

import (
	"cmp"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/metadata"
	"github.com/apache/arrow-go/v18/parquet/schema"
)

// pruneRowGroups inspects parquet column statistics and drops every row
// group that provably contains no matching row for the conjunction. It
// returns the row group indices to read (nil when nothing was pruned, which
// reads everything) and the number pruned. Pruning is best-effort: a group
// without usable statistics is always kept, so results never change.
func (e *Engine) pruneRowGroups(pf *file.Reader, preds []Predicate) ([]int, int) {
	if len(preds) == 0 {
		return nil, 0
	}

	md := pf.MetaData()
	n := pf.NumRowGroups()
	keep := make([]int, 0, n)
	pruned := 0

	for rg := 0; rg < n; rg++ {
		if rowGroupCanMatch(md.RowGroup(rg), md.Schema, preds) {
			keep = append(keep, rg)
		} else {
			pruned++
		}
	}

	if pruned == 0 {
		return nil, 0
	}
	return keep, pruned
}

func rowGroupCanMatch(rg *metadata.RowGroupMetaData, sc *schema.Schema, preds []Predicate) bool {
	for _, p := range preds {
		idx := sc.ColumnIndexByName(p.Column)
		if idx < 0 {
			continue
		}
		cc, err := rg.ColumnChunk(idx)
		if err != nil {
			continue
		}
		set, err := cc.StatsSet()
		if err != nil || !set {
			continue
		}
		stats, err := cc.Statistics()
		if err != nil || stats == nil {
			continue
		}
		if !statsCanMatch(stats, p) {
			return false
		}
	}
	return true
}

// statsCanMatch reports whether a predicate could match any value in the
// min/max range. Unknown statistics kinds or literal/physical mismatches
// conservatively report true.
func statsCanMatch(stats metadata.TypedStatistics, p Predicate) bool {
	switch st := stats.(type) {
	case *metadata.Int64Statistics:
		if !st.HasMinMax() {
			return true
		}
		switch lit := p.Value.(type) {
		case int64:
			return rangeCanMatch(p.Op, st.Min(), st.Max(), lit)
		case arrow.Timestamp:
			return rangeCanMatch(p.Op, st.Min(), st.Max(), int64(lit))
		}
	case *metadata.Int32Statistics:
		if !st.HasMinMax() {
			return true
		}
		if lit, ok := p.Value.(int32); ok {
			return rangeCanMatch(p.Op, st.Min(), st.Max(), lit)
		}
	case *metadata.Float64Statistics:
		if !st.HasMinMax() {
			return true
		}
		if lit, ok := p.Value.(float64); ok {
			return rangeCanMatch(p.Op, st.Min(), st.Max(), lit)
		}
	case *metadata.Float32Statistics:
		if !st.HasMinMax() {
			return true
		}
		if lit, ok := p.Value.(float32); ok {
			return rangeCanMatch(p.Op, st.Min(), st.Max(), lit)
		}
	}
	return true
}

func rangeCanMatch[T cmp.Ordered](op Op, min, max, lit T) bool {
	switch op {
	case OpEq:
		return lit >= min && lit <= max
	case OpNe:
		// Only a constant column equal to the literal excludes every row.
		return !(min == max && min == lit)
	case OpLt:
		return min < lit
	case OpLe:
		return min <= lit
	case OpGt:
		return max > lit
	case OpGe:
		return max >= lit
	default:
		return true
	}
}
