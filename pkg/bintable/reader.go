package bintable

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/bintable/pkg/dtype"
	"github.com/ajitpratap0/bintable/pkg/errors"
	"github.com/ajitpratap0/bintable/pkg/json"
	"github.com/ajitpratap0/bintable/pkg/logger"
	"github.com/ajitpratap0/bintable/pkg/metrics"
	"github.com/ajitpratap0/bintable/pkg/mmap"
	"github.com/ajitpratap0/bintable/pkg/npy"
	"github.com/ajitpratap0/bintable/pkg/table"
	"github.com/ajitpratap0/bintable/pkg/units"
)

// readOptions collects per-call read options
type readOptions struct {
	columns []string
}

// ReadOption customizes a Read call
type ReadOption func(*readOptions)

// WithColumns restricts the read to the named columns. The requested order
// defines the output column order, and backing files referenced only by
// unrequested columns are never opened. Unknown names fail the read.
func WithColumns(names ...string) ReadOption {
	return func(o *readOptions) {
		o.columns = names
	}
}

// Result is a table reconstructed from a dataset. Numeric column payloads
// and masks alias read-only memory mappings owned by the Result, so the
// table is only valid until Close.
type Result struct {
	Table *table.Table

	closers []io.Closer
}

// Close releases every backing file mapping opened by the read call
func (r *Result) Close() error {
	var err error
	for _, c := range r.closers {
		if closeErr := c.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	r.closers = nil
	return err
}

// backing is one opened backing buffer: a memory mapping for npy files, a
// fully parsed value list for the text file.
type backing struct {
	mapped *mmap.File
	header npy.Header
	values []interface{}
}

// reader holds the per-call state of one Read: the lazily built cache of
// opened backing buffers. Nothing is shared across calls, so concurrent
// reads of a committed dataset are independent.
type reader struct {
	dir     string
	cache   map[string]*backing
	mask    *backing
	closers []io.Closer
}

// Read reconstructs the logical table from a committed dataset directory.
// Each referenced backing file is opened exactly once per call, memory-mapped
// read-only, and sliced per column by manifest offset and length. On success
// the caller owns the returned Result and must Close it; on failure every
// mapping opened so far is released before returning.
func Read(path string, opts ...ReadOption) (*Result, error) {
	timer := metrics.NewTimer(metrics.ReadDuration)
	defer timer.Stop()

	var o readOptions
	for _, opt := range opts {
		opt(&o)
	}

	m, err := loadManifest(path)
	if err != nil {
		return nil, err
	}

	columns := m.Columns
	if o.columns != nil {
		byName := make(map[string]ColumnEntry, len(m.Columns))
		for _, c := range m.Columns {
			byName[c.Name] = c
		}
		columns = make([]ColumnEntry, 0, len(o.columns))
		for _, name := range o.columns {
			entry, ok := byName[name]
			if !ok {
				return nil, errors.Newf(errors.ErrorTypeNotFound, "column %q not found in %s", name, path)
			}
			columns = append(columns, entry)
		}
	}

	r := &reader{dir: path, cache: make(map[string]*backing)}

	t := table.New()
	for _, entry := range columns {
		col, err := r.column(entry)
		if err != nil {
			r.close()
			return nil, err
		}
		if err := t.AddColumn(col); err != nil {
			r.close()
			return nil, err
		}
	}
	t.Meta = m.Meta
	t.Masked = m.Masked

	logger.Debug("dataset read",
		zap.String("dataset", path),
		zap.Int("columns", len(columns)),
		zap.Int("rows", t.Rows()))

	return &Result{Table: t, closers: r.closers}, nil
}

// column reconstructs one column from its manifest entry
func (r *reader) column(entry ColumnEntry) (*table.Column, error) {
	b, err := r.open(entry.File)
	if err != nil {
		return nil, err
	}

	col := &table.Column{Name: entry.Name}

	if b.values != nil {
		if entry.Offset+entry.Length > len(b.values) {
			return nil, errors.Newf(errors.ErrorTypeData,
				"column %q extent [%d, %d) exceeds %s length %d",
				entry.Name, entry.Offset, entry.Offset+entry.Length, entry.File, len(b.values))
		}
		text := make(table.TextData, entry.Length)
		for i, v := range b.values[entry.Offset : entry.Offset+entry.Length] {
			switch s := v.(type) {
			case string:
				text[i] = s
			case nil:
				// null-for-missing; validity comes from the mask
			default:
				return nil, errors.Newf(errors.ErrorTypeData, "non-string value %v in %s", v, entry.File)
			}
		}
		col.Data = text
		metrics.RowsRead.WithLabelValues(dtype.Text.String()).Add(float64(entry.Length))
	} else {
		data, err := sliceNumeric(b, entry.Name, entry.Offset, entry.Length)
		if err != nil {
			return nil, err
		}
		col.Data = data
		metrics.RowsRead.WithLabelValues(b.header.DType.String()).Add(float64(entry.Length))
	}

	if entry.MaskOffset != nil {
		mask, err := r.maskRange(*entry.MaskOffset, entry.Length)
		if err != nil {
			return nil, err
		}
		col.Mask = mask
	}

	if entry.Unit != "" {
		col.Unit = units.Resolve(entry.Unit)
	}
	return col, nil
}

// open returns the backing buffer for a file name, opening and caching it on
// first use. A given file is mapped at most once per read call.
func (r *reader) open(name string) (*backing, error) {
	if b, ok := r.cache[name]; ok {
		return b, nil
	}
	if strings.ContainsAny(name, `/\`) {
		return nil, errors.Newf(errors.ErrorTypeData, "invalid backing file name %q", name)
	}

	path := filepath.Join(r.dir, name)
	b := &backing{}

	switch {
	case strings.HasSuffix(name, ".npy"):
		f, err := mmap.Open(path)
		if err != nil {
			return nil, err
		}
		h, err := npy.ParseHeader(f.Bytes())
		if err != nil {
			f.Close()
			return nil, errors.Wrapf(err, errors.ErrorTypeData, "invalid backing file %s", name)
		}
		b.mapped = f
		b.header = h
		r.closers = append(r.closers, f)
	case strings.HasSuffix(name, ".json"):
		data, err := os.ReadFile(path) //nolint:gosec // G304: validated manifest file name
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrorTypeFile, "failed to read %s", name)
		}
		if err := json.Unmarshal(data, &b.values); err != nil {
			return nil, errors.Wrapf(err, errors.ErrorTypeData, "malformed text payload %s", name)
		}
		if b.values == nil {
			b.values = []interface{}{}
		}
	default:
		return nil, errors.Newf(errors.ErrorTypeData, "unknown backing file type %q", name)
	}

	r.cache[name] = b
	return b, nil
}

// maskRange slices one column's mask out of the shared mask buffer, opening
// the buffer on first use.
func (r *reader) maskRange(offset, length int) ([]bool, error) {
	if r.mask == nil {
		b, err := r.open(MaskFilename)
		if err != nil {
			return nil, err
		}
		if b.header.DType != dtype.Bool {
			return nil, errors.Newf(errors.ErrorTypeData, "mask buffer has dtype %s, want bool", b.header.DType)
		}
		r.mask = b
	}

	data, err := sliceNumeric(r.mask, "mask", offset, length)
	if err != nil {
		return nil, err
	}
	return data.(table.BoolData), nil
}

// sliceNumeric takes the half-open element range [offset, offset+length) of
// a mapped npy backing buffer as a zero-copy typed view.
func sliceNumeric(b *backing, name string, offset, length int) (table.Data, error) {
	if offset+length > b.header.Count {
		return nil, errors.Newf(errors.ErrorTypeData,
			"column %q extent [%d, %d) exceeds backing file length %d",
			name, offset, offset+length, b.header.Count)
	}
	size := b.header.DType.ItemSize()
	raw, err := b.mapped.Range(int64(b.header.DataOffset+offset*size), int64(length*size))
	if err != nil {
		return nil, err
	}
	return table.ViewBytes(b.header.DType, raw, length)
}

func (r *reader) close() {
	for _, c := range r.closers {
		_ = c.Close()
	}
	r.closers = nil
}
