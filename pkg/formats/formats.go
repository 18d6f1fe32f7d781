// Package formats defines the foreign table format front-ends: named
// reader/writer pairs that translate between interchange formats and the
// logical table model. The storage core never depends on this package;
// front-ends are alternative entry points over the same tables.
package formats

import (
	"io"

	"github.com/ajitpratap0/bintable/pkg/table"
)

// Reader parses a foreign format stream into a logical table
type Reader interface {
	Read(r io.Reader) (*table.Table, error)
}

// Writer serializes a logical table into a foreign format stream
type Writer interface {
	Write(w io.Writer, t *table.Table) error
}

// ReaderFunc adapts a function to the Reader interface
type ReaderFunc func(r io.Reader) (*table.Table, error)

func (f ReaderFunc) Read(r io.Reader) (*table.Table, error) { return f(r) }

// WriterFunc adapts a function to the Writer interface
type WriterFunc func(w io.Writer, t *table.Table) error

func (f WriterFunc) Write(w io.Writer, t *table.Table) error { return f(w, t) }
