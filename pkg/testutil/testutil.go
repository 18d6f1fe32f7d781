// Package testutil provides testing utilities for bintable
package testutil

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/bintable/pkg/table"
	"github.com/ajitpratap0/bintable/pkg/units"
)

// TestLogger creates a test logger that writes to the test output.
// The logger is automatically cleaned up when the test completes.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// SampleTable builds the canonical three-column test table: an int32 id
// column, a text name column, and a masked float64 flux column in janskys.
func SampleTable(t *testing.T) *table.Table {
	t.Helper()

	tbl := table.New()
	tbl.Meta = map[string]interface{}{
		"origin":  "testutil",
		"release": float64(3),
	}

	mustAdd(t, tbl, &table.Column{
		Name: "id",
		Data: table.NumericData[int32]{1, 2, 3},
	})
	mustAdd(t, tbl, &table.Column{
		Name: "name",
		Data: table.TextData{"a", "b", "c"},
	})
	mustAdd(t, tbl, &table.Column{
		Name: "flux",
		Data: table.NumericData[float64]{1.5, 2.5, 0},
		Mask: []bool{false, false, true},
		Unit: units.Resolve("Jy"),
	})
	return tbl
}

// mustAdd appends a column or fails the test
func mustAdd(t *testing.T, tbl *table.Table, col *table.Column) {
	t.Helper()
	if err := tbl.AddColumn(col); err != nil {
		t.Fatalf("failed to add column %q: %v", col.Name, err)
	}
}

// AddColumn exposes mustAdd for tests in other packages
func AddColumn(t *testing.T, tbl *table.Table, col *table.Column) {
	t.Helper()
	mustAdd(t, tbl, col)
}
