// Package testutil provides testing utilities for frameport
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/frameport/frameport/pkg/engine"
	"github.com/frameport/frameport/pkg/writer"
)

// TestLogger creates a test logger that writes to the test output.
// The logger is automatically cleaned up when the test completes.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a test context with a 30-second timeout.
// The caller must call the returned cancel function to avoid leaks.
func TestContext(_ *testing.T) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// Sample data used by fixture files across the test suite.
var (
	SampleIDs    = []int64{1, 2, 3, 4, 5}
	SampleNames  = []string{"alice", "bob", "charlie", "diana", "eve"}
	SampleScores = []float64{85.5, 92.0, 78.5, 95.0, 88.5}
	SampleActive = []bool{true, false, true, true, false}
	SampleTimes  = []int64{1700000000000, 1700000060000, 1700000120000, 1700000180000, 1700000240000}
)

// WriteSample writes the canonical five-row fixture table
// (id/name/score/active/ts) into the test's temp dir and returns its path.
func WriteSample(t *testing.T, opts engine.Options) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.parquet")

	w := writer.New(path, opts)
	if err := w.AddInt64s("id", SampleIDs); err != nil {
		t.Fatalf("add id column: %v", err)
	}
	if err := w.AddStrings("name", SampleNames); err != nil {
		t.Fatalf("add name column: %v", err)
	}
	if err := w.AddFloat64s("score", SampleScores); err != nil {
		t.Fatalf("add score column: %v", err)
	}
	if err := w.AddBools("active", SampleActive); err != nil {
		t.Fatalf("add active column: %v", err)
	}
	if err := w.AddDateTimes("ts", SampleTimes); err != nil {
		t.Fatalf("add ts column: %v", err)
	}
	if err := w.Finish(context.Background()); err != nil {
		t.Fatalf("finish writer: %v", err)
	}
	return path
}
