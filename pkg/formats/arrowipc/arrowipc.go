// Package arrowipc implements an Arrow IPC file front-end. Tables map to a
// single record batch; validity bitmaps carry the masks and unit strings ride
// along as field metadata under the "unit" key.
package arrowipc

import (
	"bytes"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/bintable/pkg/dtype"
	"github.com/ajitpratap0/bintable/pkg/errors"
	"github.com/ajitpratap0/bintable/pkg/formats"
	"github.com/ajitpratap0/bintable/pkg/table"
	"github.com/ajitpratap0/bintable/pkg/units"
)

// FormatName is the registry key for this front-end
const FormatName = "arrow"

// unitKey is the field metadata key carrying the unit string
const unitKey = "unit"

func init() {
	_ = formats.RegisterReader(FormatName, formats.ReaderFunc(Read))
	_ = formats.RegisterWriter(FormatName, formats.WriterFunc(Write))
}

var arrowTypes = map[dtype.DType]arrow.DataType{
	dtype.Int8:    arrow.PrimitiveTypes.Int8,
	dtype.Int16:   arrow.PrimitiveTypes.Int16,
	dtype.Int32:   arrow.PrimitiveTypes.Int32,
	dtype.Int64:   arrow.PrimitiveTypes.Int64,
	dtype.Uint8:   arrow.PrimitiveTypes.Uint8,
	dtype.Uint16:  arrow.PrimitiveTypes.Uint16,
	dtype.Uint32:  arrow.PrimitiveTypes.Uint32,
	dtype.Uint64:  arrow.PrimitiveTypes.Uint64,
	dtype.Float32: arrow.PrimitiveTypes.Float32,
	dtype.Float64: arrow.PrimitiveTypes.Float64,
	dtype.Bool:    arrow.FixedWidthTypes.Boolean,
	dtype.Text:    arrow.BinaryTypes.String,
}

// Write serializes a logical table as an Arrow IPC file with one record batch
func Write(w io.Writer, t *table.Table) error {
	cols := t.Columns()
	fields := make([]arrow.Field, len(cols))
	for i, col := range cols {
		at, ok := arrowTypes[col.Data.DType()]
		if !ok {
			return errors.Newf(errors.ErrorTypeInternal,
				"column %q has unmapped storage key %s", col.Name, col.Data.DType())
		}
		f := arrow.Field{Name: col.Name, Type: at, Nullable: true}
		if col.Unit != nil {
			f.Metadata = arrow.NewMetadata([]string{unitKey}, []string{col.Unit.String()})
		}
		fields[i] = f
	}
	schema := arrow.NewSchema(fields, nil)

	pool := memory.NewGoAllocator()
	rb := array.NewRecordBuilder(pool, schema)
	defer rb.Release()

	for i, col := range cols {
		if err := appendColumn(rb.Field(i), col); err != nil {
			return err
		}
	}

	rec := rb.NewRecord()
	defer rec.Release()

	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(pool))
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "creating Arrow file writer")
	}
	if err := fw.Write(rec); err != nil {
		fw.Close()
		return errors.Wrap(err, errors.ErrorTypeFile, "writing Arrow record batch")
	}
	if err := fw.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "closing Arrow file writer")
	}
	return nil
}

func appendColumn(bld array.Builder, col *table.Column) error {
	n := col.Len()
	for i := 0; i < n; i++ {
		if col.Mask != nil && col.Mask[i] {
			bld.AppendNull()
			continue
		}
		v := col.Data.Value(i)
		switch b := bld.(type) {
		case *array.Int8Builder:
			b.Append(v.(int8))
		case *array.Int16Builder:
			b.Append(v.(int16))
		case *array.Int32Builder:
			b.Append(v.(int32))
		case *array.Int64Builder:
			b.Append(v.(int64))
		case *array.Uint8Builder:
			b.Append(v.(uint8))
		case *array.Uint16Builder:
			b.Append(v.(uint16))
		case *array.Uint32Builder:
			b.Append(v.(uint32))
		case *array.Uint64Builder:
			b.Append(v.(uint64))
		case *array.Float32Builder:
			b.Append(v.(float32))
		case *array.Float64Builder:
			b.Append(v.(float64))
		case *array.BooleanBuilder:
			b.Append(v.(bool))
		case *array.StringBuilder:
			b.Append(v.(string))
		default:
			return errors.Newf(errors.ErrorTypeInternal,
				"column %q has unsupported builder %T", col.Name, bld)
		}
	}
	return nil
}

var fieldKeys = map[arrow.Type]dtype.DType{
	arrow.INT8:    dtype.Int8,
	arrow.INT16:   dtype.Int16,
	arrow.INT32:   dtype.Int32,
	arrow.INT64:   dtype.Int64,
	arrow.UINT8:   dtype.Uint8,
	arrow.UINT16:  dtype.Uint16,
	arrow.UINT32:  dtype.Uint32,
	arrow.UINT64:  dtype.Uint64,
	arrow.FLOAT32: dtype.Float32,
	arrow.FLOAT64: dtype.Float64,
	arrow.BOOL:    dtype.Bool,
	arrow.STRING:  dtype.Text,
}

// Read parses an Arrow IPC file into a logical table, concatenating all
// record batches. Nulls become masked entries.
func Read(r io.Reader) (*table.Table, error) {
	// The IPC file layout keeps its footer at the end, so reading needs a
	// seekable view of the full payload.
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "reading Arrow payload")
	}
	fr, err := ipc.NewFileReader(bytes.NewReader(raw), ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "malformed Arrow file")
	}
	defer fr.Close()

	schema := fr.Schema()
	total := 0
	recs := make([]arrow.Record, 0, fr.NumRecords())
	for i := 0; i < fr.NumRecords(); i++ {
		rec, err := fr.Record(i)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrorTypeData, "reading Arrow record batch %d", i)
		}
		recs = append(recs, rec)
		total += int(rec.NumRows())
	}

	t := table.New()
	for fi, f := range schema.Fields() {
		dt, ok := fieldKeys[f.Type.ID()]
		if !ok {
			return nil, errors.Newf(errors.ErrorTypeData,
				"field %q has unsupported Arrow type %s", f.Name, f.Type)
		}
		chunks := make([]arrow.Array, len(recs))
		for ri, rec := range recs {
			chunks[ri] = rec.Column(fi)
		}
		data, mask := buildColumn(dt, chunks, total)
		col := &table.Column{Name: f.Name, Data: data, Mask: mask}
		if u, ok := f.Metadata.GetValue(unitKey); ok && u != "" {
			col.Unit = units.Resolve(u)
		}
		if err := t.AddColumn(col); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func buildColumn(dt dtype.DType, chunks []arrow.Array, total int) (table.Data, []bool) {
	switch dt {
	case dtype.Int8:
		return fillNumeric(total, chunks, func(a arrow.Array, i int) int8 {
			return a.(*array.Int8).Value(i)
		})
	case dtype.Int16:
		return fillNumeric(total, chunks, func(a arrow.Array, i int) int16 {
			return a.(*array.Int16).Value(i)
		})
	case dtype.Int32:
		return fillNumeric(total, chunks, func(a arrow.Array, i int) int32 {
			return a.(*array.Int32).Value(i)
		})
	case dtype.Int64:
		return fillNumeric(total, chunks, func(a arrow.Array, i int) int64 {
			return a.(*array.Int64).Value(i)
		})
	case dtype.Uint8:
		return fillNumeric(total, chunks, func(a arrow.Array, i int) uint8 {
			return a.(*array.Uint8).Value(i)
		})
	case dtype.Uint16:
		return fillNumeric(total, chunks, func(a arrow.Array, i int) uint16 {
			return a.(*array.Uint16).Value(i)
		})
	case dtype.Uint32:
		return fillNumeric(total, chunks, func(a arrow.Array, i int) uint32 {
			return a.(*array.Uint32).Value(i)
		})
	case dtype.Uint64:
		return fillNumeric(total, chunks, func(a arrow.Array, i int) uint64 {
			return a.(*array.Uint64).Value(i)
		})
	case dtype.Float32:
		return fillNumeric(total, chunks, func(a arrow.Array, i int) float32 {
			return a.(*array.Float32).Value(i)
		})
	case dtype.Float64:
		return fillNumeric(total, chunks, func(a arrow.Array, i int) float64 {
			return a.(*array.Float64).Value(i)
		})
	case dtype.Bool:
		out := make(table.BoolData, total)
		mask := fillChunks(chunks, func(idx int, a arrow.Array, i int) {
			out[idx] = a.(*array.Boolean).Value(i)
		})
		return out, mask
	default:
		out := make(table.TextData, total)
		mask := fillChunks(chunks, func(idx int, a arrow.Array, i int) {
			out[idx] = a.(*array.String).Value(i)
		})
		return out, mask
	}
}

func fillNumeric[T table.Element](total int, chunks []arrow.Array, value func(arrow.Array, int) T) (table.Data, []bool) {
	out := make(table.NumericData[T], total)
	mask := fillChunks(chunks, func(idx int, a arrow.Array, i int) {
		out[idx] = value(a, i)
	})
	return out, mask
}

// fillChunks walks the chunk sequence calling set for each present element
// and returns the mask, or nil when every element is present.
func fillChunks(chunks []arrow.Array, set func(idx int, a arrow.Array, i int)) []bool {
	var mask []bool
	idx := 0
	for _, a := range chunks {
		for i := 0; i < a.Len(); i++ {
			if a.IsNull(i) {
				if mask == nil {
					mask = make([]bool, totalLen(chunks))
				}
				mask[idx] = true
			} else {
				set(idx, a, i)
			}
			idx++
		}
	}
	return mask
}

func totalLen(chunks []arrow.Array) int {
	n := 0
	for _, a := range chunks {
		n += a.Len()
	}
	return n
}
