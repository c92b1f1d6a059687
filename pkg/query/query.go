// Package query implements the deferred query builder.
//
// A Query accumulates an inert plan, a projection plus a conjunction of
// filter predicates over a source path, and executes it as one optimized
// pass on Collect. Projection and predicate pushdown are the engine's job;
// this package only gathers the plan and invokes execution exactly once.
package query

import (
	"context"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"go.uber.org/zap"

	"github.com/frameport/frameport/pkg/engine"
	"github.com/frameport/frameport/pkg/errors"
	"github.com/frameport/frameport/pkg/frame"
	"github.com/frameport/frameport/pkg/logger"
)

// Query is a deferred read plan. Builder calls mutate it until Collect
// consumes it; afterwards the query is unusable. Filters combine as a
// logical AND. There is no OR or grouping, so a caller wanting OR
// semantics issues multiple queries and merges results itself.
type Query struct {
	eng      *engine.Engine
	plan     engine.Plan
	executed bool
	err      error
}

// New creates a query over a parquet file. Construction fails outright
// when the source does not exist; an invalid-path query is never produced.
func New(path string) (*Query, error) {
	return NewWith(engine.Default, path)
}

// NewWith creates a query bound to a specific engine
func NewWith(eng *engine.Engine, path string) (*Query, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "query source")
	}
	return &Query{eng: eng, plan: engine.Plan{Path: path}}, nil
}

// Err returns the first builder error recorded so far, if any. Collect
// also returns it, so chained callers may check only once.
func (q *Query) Err() error {
	return q.err
}

// Select sets the projection. An empty projection reads every column.
// Calling Select again replaces the previous projection.
func (q *Query) Select(columns ...string) *Query {
	q.plan.Projection = append([]string(nil), columns...)
	return q
}

// Filter appends one predicate to the conjunction. The literal must be a
// supported typed scalar matching the column's type; unsupported operators
// and literal types are rejected here, at the call site.
func (q *Query) Filter(column string, op engine.Op, value interface{}) *Query {
	if err := q.AddFilter(column, op, value); err != nil && q.err == nil {
		q.err = err
	}
	return q
}

// AddFilter is the non-chaining form of Filter, used where the caller
// needs the rejection immediately (the C surface reports it per call).
func (q *Query) AddFilter(column string, op engine.Op, value interface{}) error {
	if q.executed {
		return errors.New(errors.ErrorTypeEngine, "query already executed")
	}
	if !op.Valid() {
		return errors.Newf(errors.ErrorTypeEngine, "unsupported filter operator %d", op)
	}
	if !engine.ValidLiteral(value) {
		return errors.Newf(errors.ErrorTypeEngine,
			"unsupported filter literal type %T for column %q", value, column)
	}
	q.plan.Predicates = append(q.plan.Predicates, engine.Predicate{
		Column: column, Op: op, Value: value,
	})
	return nil
}

// FilterInt64 filters an int64 column
func (q *Query) FilterInt64(column string, op engine.Op, value int64) *Query {
	return q.Filter(column, op, value)
}

// FilterInt32 filters an int32 column
func (q *Query) FilterInt32(column string, op engine.Op, value int32) *Query {
	return q.Filter(column, op, value)
}

// FilterUint64 filters a uint64 column
func (q *Query) FilterUint64(column string, op engine.Op, value uint64) *Query {
	return q.Filter(column, op, value)
}

// FilterFloat64 filters a float64 column
func (q *Query) FilterFloat64(column string, op engine.Op, value float64) *Query {
	return q.Filter(column, op, value)
}

// FilterFloat32 filters a float32 column
func (q *Query) FilterFloat32(column string, op engine.Op, value float32) *Query {
	return q.Filter(column, op, value)
}

// FilterString filters a string column
func (q *Query) FilterString(column string, op engine.Op, value string) *Query {
	return q.Filter(column, op, value)
}

// FilterBool filters a bool column; false orders before true
func (q *Query) FilterBool(column string, op engine.Op, value bool) *Query {
	return q.Filter(column, op, value)
}

// FilterDateTime filters a datetime column by milliseconds since the epoch
func (q *Query) FilterDateTime(column string, op engine.Op, ms int64) *Query {
	return q.Filter(column, op, arrow.Timestamp(ms))
}

// Limit caps the number of result rows. Zero or negative removes the cap.
func (q *Query) Limit(n int64) *Query {
	if n < 0 {
		n = 0
	}
	q.plan.Limit = n
	return q
}

// Collect executes the plan and consumes the query: ownership of the plan
// transfers into execution, and any further call fails, including a
// second Collect. Predicates apply in accumulation order after the
// engine's projection pass.
func (q *Query) Collect(ctx context.Context) (*frame.Frame, error) {
	if q.executed {
		return nil, errors.New(errors.ErrorTypeEngine, "query already executed")
	}
	q.executed = true
	if q.err != nil {
		return nil, q.err
	}

	tbl, err := q.eng.Execute(ctx, q.plan)
	if err != nil {
		return nil, err
	}
	logger.Debug("collected query",
		zap.String("path", q.plan.Path),
		zap.Int64("rows", tbl.NumRows()))
	return frame.FromTable(tbl, q.eng.Allocator()), nil
}
