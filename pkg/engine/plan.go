package engine

import (
	"context"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/parquet/file"
	"go.uber.org/zap"

	"github.com/frameport/frameport/pkg/errors"
)

// Op is a filter comparison operator. The set is closed; the numeric values
// are part of the C ABI.
type Op int32

const (
	// OpEq compares for equality
	OpEq Op = iota
	// OpNe compares for inequality
	OpNe
	// OpLt compares for less-than
	OpLt
	// OpLe compares for less-than-or-equal
	OpLe
	// OpGt compares for greater-than
	OpGt
	// OpGe compares for greater-than-or-equal
	OpGe
)

// String returns the operator's display form
func (op Op) String() string {
	switch op {
	case OpEq:
		return "=="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	default:
		return "?"
	}
}

// Valid reports whether op is one of the six supported comparisons
func (op Op) Valid() bool {
	return op >= OpEq && op <= OpGe
}

// Predicate is one column comparison. Value must be a typed scalar matching
// the column's type: int64, int32, uint64, float64, float32, string, bool,
// or arrow.Timestamp for datetime columns (milliseconds since epoch).
type Predicate struct {
	Column string
	Op     Op
	Value  interface{}
}

// ValidLiteral reports whether v is one of the supported literal scalar types
func ValidLiteral(v interface{}) bool {
	switch v.(type) {
	case int64, int32, uint64, float64, float32, string, bool, arrow.Timestamp:
		return true
	default:
		return false
	}
}

// Plan is an inert description of a deferred read: a projection and a
// conjunction of predicates over a source path. Execute materializes it in a
// single pass.
type Plan struct {
	Path       string
	Projection []string
	Predicates []Predicate
	Limit      int64 // 0 means no limit
}

// Execute runs a plan: projection pushdown first, then row-group pruning
// from column statistics, then each predicate in accumulation order, then
// the limit. The caller owns the returned table.
func (e *Engine) Execute(ctx context.Context, plan Plan) (arrow.Table, error) {
	for _, p := range plan.Predicates {
		if !p.Op.Valid() {
			return nil, errors.Newf(errors.ErrorTypeEngine, "unsupported filter operator %d", p.Op)
		}
		if !ValidLiteral(p.Value) {
			return nil, errors.Newf(errors.ErrorTypeEngine,
				"unsupported filter literal type %T for column %q", p.Value, p.Column)
		}
	}

	// The scan projection includes filter columns even when the caller did
	// not select them; they are trimmed again after filtering.
	scanCols := plan.Projection
	if len(plan.Projection) > 0 {
		scanCols = append([]string(nil), plan.Projection...)
		for _, p := range plan.Predicates {
			if !contains(scanCols, p.Column) {
				scanCols = append(scanCols, p.Column)
			}
		}
	}

	f, err := os.Open(plan.Path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "open parquet file")
	}
	defer f.Close()

	pf, err := file.NewParquetReader(f)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "read parquet footer")
	}
	defer pf.Close()

	rowGroups, pruned := e.pruneRowGroups(pf, plan.Predicates)
	if pruned > 0 {
		e.logger().Debug("pruned row groups from statistics",
			zap.Int("pruned", pruned),
			zap.Int("kept", len(rowGroups)))
	}

	tbl, err := e.readTable(ctx, pf, scanCols, rowGroups)
	if err != nil {
		return nil, err
	}

	if len(plan.Predicates) > 0 || plan.Limit > 0 {
		filtered, err := e.filter(tbl, plan.Predicates, plan.Limit)
		tbl.Release()
		if err != nil {
			return nil, err
		}
		tbl = filtered
	}

	if len(plan.Projection) > 0 && tbl.NumCols() != int64(len(plan.Projection)) {
		trimmed, err := selectColumns(tbl, plan.Projection)
		tbl.Release()
		if err != nil {
			return nil, err
		}
		tbl = trimmed
	}

	e.logger().Debug("executed plan",
		zap.String("path", plan.Path),
		zap.Int("predicates", len(plan.Predicates)),
		zap.Int64("result_rows", tbl.NumRows()))
	return tbl, nil
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
