// Package table provides the logical in-memory model of a columnar table:
// an ordered set of named, typed columns with optional validity masks,
// optional units, and free-form table metadata. The on-disk representation
// lives in pkg/bintable; foreign interchange formats live under pkg/formats.
package table

import (
	"github.com/ajitpratap0/bintable/pkg/errors"
	"github.com/ajitpratap0/bintable/pkg/units"
)

// Column is a single named column of homogeneous values
type Column struct {
	// Name identifies the column, unique within a table
	Name string
	// Data holds the typed values
	Data Data
	// Unit is the optional resolved unit, nil when the column carries none
	Unit *units.Unit
	// Mask marks invalid entries (true = invalid). Either nil or the same
	// length as Data.
	Mask []bool
}

// HasMask reports whether the column has at least one invalid entry
func (c *Column) HasMask() bool {
	for _, m := range c.Mask {
		if m {
			return true
		}
	}
	return false
}

// Len returns the number of rows in the column
func (c *Column) Len() int {
	if c.Data == nil {
		return 0
	}
	return c.Data.Len()
}

// Table is an ordered sequence of columns plus table-wide metadata.
// Meta is opaque to the storage core and round-trips verbatim.
type Table struct {
	columns []*Column
	byName  map[string]int

	// Meta is the free-form table metadata mapping
	Meta map[string]interface{}
	// Masked indicates whether any column may carry invalidity information
	Masked bool
}

// New creates an empty table
func New() *Table {
	return &Table{
		byName: make(map[string]int),
		Meta:   make(map[string]interface{}),
	}
}

// AddColumn appends a column to the table. Column names must be unique and
// all columns must have the same number of rows.
func (t *Table) AddColumn(col *Column) error {
	if col.Name == "" {
		return errors.New(errors.ErrorTypeValidation, "column name must not be empty")
	}
	if _, exists := t.byName[col.Name]; exists {
		return errors.Newf(errors.ErrorTypeConflict, "column %q already exists", col.Name)
	}
	if col.Mask != nil && len(col.Mask) != col.Len() {
		return errors.Newf(errors.ErrorTypeValidation,
			"column %q mask length %d does not match data length %d", col.Name, len(col.Mask), col.Len())
	}
	if len(t.columns) > 0 && col.Len() != t.Rows() {
		return errors.Newf(errors.ErrorTypeValidation,
			"column %q has %d rows, table has %d", col.Name, col.Len(), t.Rows())
	}
	t.byName[col.Name] = len(t.columns)
	t.columns = append(t.columns, col)
	if col.Mask != nil {
		t.Masked = true
	}
	return nil
}

// Columns returns the columns in table order
func (t *Table) Columns() []*Column {
	return t.columns
}

// Column looks up a column by name
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.byName[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// Names returns the column names in table order
func (t *Table) Names() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Rows returns the number of rows
func (t *Table) Rows() int {
	if len(t.columns) == 0 {
		return 0
	}
	return t.columns[0].Len()
}
