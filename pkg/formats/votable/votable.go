// Package votable implements a VOTable TABLEDATA front-end: a reader and
// writer for the VOTABLE > RESOURCE > TABLE subset with FIELD declarations
// and TR/TD rows, plus a byte-budget truncation helper that keeps the
// document well-formed. Arrays, GROUPs, PARAMs and BINARY serializations are
// out of scope; only scalar TABLEDATA cells are handled.
package votable

import (
	"bytes"
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/ajitpratap0/bintable/pkg/dtype"
	"github.com/ajitpratap0/bintable/pkg/errors"
	"github.com/ajitpratap0/bintable/pkg/formats"
	"github.com/ajitpratap0/bintable/pkg/table"
	"github.com/ajitpratap0/bintable/pkg/units"
)

// FormatName is the registry key for this front-end
const FormatName = "votable"

func init() {
	_ = formats.RegisterReader(FormatName, formats.ReaderFunc(Read))
	_ = formats.RegisterWriter(FormatName, formats.WriterFunc(Write))
}

type xmlDocument struct {
	XMLName  xml.Name    `xml:"VOTABLE"`
	Version  string      `xml:"version,attr"`
	Resource xmlResource `xml:"RESOURCE"`
}

type xmlResource struct {
	Table xmlTable `xml:"TABLE"`
}

type xmlTable struct {
	Fields []xmlField `xml:"FIELD"`
	Rows   []xmlRow   `xml:"DATA>TABLEDATA>TR"`
}

type xmlField struct {
	Name      string `xml:"name,attr"`
	Datatype  string `xml:"datatype,attr"`
	Arraysize string `xml:"arraysize,attr,omitempty"`
	Unit      string `xml:"unit,attr,omitempty"`
}

type xmlRow struct {
	Cells []string `xml:"TD"`
}

// fieldTypes maps VOTable scalar datatypes to storage keys. Widening on the
// write side means a round trip through VOTable may not preserve the exact
// key, only the value domain.
var fieldTypes = map[string]dtype.DType{
	"boolean":      dtype.Bool,
	"unsignedByte": dtype.Uint8,
	"short":        dtype.Int16,
	"int":          dtype.Int32,
	"long":         dtype.Int64,
	"float":        dtype.Float32,
	"double":       dtype.Float64,
	"char":         dtype.Text,
	"unicodeChar":  dtype.Text,
}

// Read parses a VOTable TABLEDATA document into a logical table. Empty or
// absent TD cells become masked entries.
func Read(r io.Reader) (*table.Table, error) {
	var doc xmlDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "malformed VOTable document")
	}

	fields := doc.Resource.Table.Fields
	if len(fields) == 0 {
		return nil, errors.New(errors.ErrorTypeData, "VOTable carries no FIELD declarations")
	}

	cells := make([][]string, len(fields))
	missing := make([][]bool, len(fields))
	for ri, row := range doc.Resource.Table.Rows {
		if len(row.Cells) > len(fields) {
			return nil, errors.Newf(errors.ErrorTypeData,
				"row %d has %d cells for %d fields", ri, len(row.Cells), len(fields))
		}
		for fi := range fields {
			if fi >= len(row.Cells) || row.Cells[fi] == "" {
				cells[fi] = append(cells[fi], "")
				missing[fi] = append(missing[fi], true)
				continue
			}
			cells[fi] = append(cells[fi], row.Cells[fi])
			missing[fi] = append(missing[fi], false)
		}
	}

	t := table.New()
	for fi, f := range fields {
		dt, ok := fieldTypes[f.Datatype]
		if !ok {
			return nil, errors.Newf(errors.ErrorTypeData,
				"field %q has unsupported datatype %q", f.Name, f.Datatype)
		}
		data, err := buildData(dt, f.Name, cells[fi], missing[fi])
		if err != nil {
			return nil, err
		}
		col := &table.Column{Name: f.Name, Data: data}
		if f.Unit != "" {
			col.Unit = units.Resolve(f.Unit)
		}
		if anyTrue(missing[fi]) {
			col.Mask = missing[fi]
		}
		if err := t.AddColumn(col); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func anyTrue(b []bool) bool {
	for _, v := range b {
		if v {
			return true
		}
	}
	return false
}

func buildData(dt dtype.DType, name string, cells []string, missing []bool) (table.Data, error) {
	switch dt {
	case dtype.Text:
		return table.TextData(cells), nil
	case dtype.Bool:
		out := make(table.BoolData, len(cells))
		for i, c := range cells {
			if missing[i] {
				continue
			}
			v, err := parseBool(c)
			if err != nil {
				return nil, errors.Wrapf(err, errors.ErrorTypeData,
					"field %q row %d", name, i)
			}
			out[i] = v
		}
		return out, nil
	case dtype.Uint8:
		return buildInt[uint8](name, cells, missing, 8)
	case dtype.Int16:
		return buildInt[int16](name, cells, missing, 16)
	case dtype.Int32:
		return buildInt[int32](name, cells, missing, 32)
	case dtype.Int64:
		return buildInt[int64](name, cells, missing, 64)
	case dtype.Float32:
		return buildFloat[float32](name, cells, missing, 32)
	case dtype.Float64:
		return buildFloat[float64](name, cells, missing, 64)
	}
	return nil, errors.Newf(errors.ErrorTypeInternal, "unhandled storage key %s", dt)
}

func buildInt[T int16 | int32 | int64 | uint8](name string, cells []string, missing []bool, bits int) (table.Data, error) {
	out := make(table.NumericData[T], len(cells))
	for i, c := range cells {
		if missing[i] {
			continue
		}
		v, err := strconv.ParseInt(strings.TrimSpace(c), 10, bits)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrorTypeData,
				"field %q row %d", name, i)
		}
		out[i] = T(v)
	}
	return out, nil
}

func buildFloat[T float32 | float64](name string, cells []string, missing []bool, bits int) (table.Data, error) {
	out := make(table.NumericData[T], len(cells))
	for i, c := range cells {
		if missing[i] {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(c), bits)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrorTypeData,
				"field %q row %d", name, i)
		}
		out[i] = T(v)
	}
	return out, nil
}

func parseBool(s string) (bool, error) {
	switch strings.TrimSpace(s) {
	case "T", "t", "true", "TRUE", "True", "1":
		return true, nil
	case "F", "f", "false", "FALSE", "False", "0":
		return false, nil
	}
	return false, errors.Newf(errors.ErrorTypeData, "invalid boolean cell %q", s)
}

// cellTypes maps storage keys to the VOTable datatype they serialize as.
// Signed and unsigned widths without an exact VOTable scalar are widened.
var cellTypes = map[dtype.DType]string{
	dtype.Bool:    "boolean",
	dtype.Int8:    "short",
	dtype.Int16:   "short",
	dtype.Int32:   "int",
	dtype.Int64:   "long",
	dtype.Uint8:   "unsignedByte",
	dtype.Uint16:  "int",
	dtype.Uint32:  "long",
	dtype.Uint64:  "long",
	dtype.Float32: "float",
	dtype.Float64: "double",
	dtype.Text:    "char",
}

// Write serializes a logical table as a VOTable TABLEDATA document. Masked
// cells are written empty.
func Write(w io.Writer, t *table.Table) error {
	doc := xmlDocument{Version: "1.4"}
	cols := t.Columns()

	for _, col := range cols {
		f := xmlField{Name: col.Name, Datatype: cellTypes[col.Data.DType()]}
		if f.Datatype == "char" {
			f.Arraysize = "*"
		}
		if col.Unit != nil {
			f.Unit = col.Unit.String()
		}
		doc.Resource.Table.Fields = append(doc.Resource.Table.Fields, f)
	}

	rows := t.Rows()
	for ri := 0; ri < rows; ri++ {
		row := xmlRow{Cells: make([]string, len(cols))}
		for ci, col := range cols {
			if col.Mask != nil && col.Mask[ri] {
				continue
			}
			row.Cells[ci] = formatCell(col.Data.DType(), col.Data.Value(ri))
		}
		doc.Resource.Table.Rows = append(doc.Resource.Table.Rows, row)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "writing VOTable header")
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", " ")
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "encoding VOTable document")
	}
	if err := enc.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "flushing VOTable document")
	}
	return nil
}

func formatCell(dt dtype.DType, v interface{}) string {
	switch dt {
	case dtype.Text:
		return v.(string)
	case dtype.Bool:
		if v.(bool) {
			return "T"
		}
		return "F"
	case dtype.Float32:
		return strconv.FormatFloat(float64(v.(float32)), 'g', -1, 32)
	case dtype.Float64:
		return strconv.FormatFloat(v.(float64), 'g', -1, 64)
	case dtype.Int8:
		return strconv.FormatInt(int64(v.(int8)), 10)
	case dtype.Int16:
		return strconv.FormatInt(int64(v.(int16)), 10)
	case dtype.Int32:
		return strconv.FormatInt(int64(v.(int32)), 10)
	case dtype.Int64:
		return strconv.FormatInt(v.(int64), 10)
	case dtype.Uint8:
		return strconv.FormatUint(uint64(v.(uint8)), 10)
	case dtype.Uint16:
		return strconv.FormatUint(uint64(v.(uint16)), 10)
	case dtype.Uint32:
		return strconv.FormatUint(uint64(v.(uint32)), 10)
	case dtype.Uint64:
		return strconv.FormatUint(v.(uint64), 10)
	}
	return ""
}

var rowClose = []byte("</TR>")

var tableClose = []byte("</TR></TABLEDATA></DATA></TABLE></RESOURCE></VOTABLE>")

// Truncate cuts a serialized VOTable document down to at most budget bytes of
// original content at a row boundary, then re-closes the structural wrapper
// so the result still parses. Rows after the cut are discarded.
func Truncate(data []byte, budget int) ([]byte, error) {
	if budget >= len(data) {
		return data, nil
	}
	if budget < 0 {
		budget = 0
	}
	i := bytes.LastIndex(data[:budget], rowClose)
	if i < 0 {
		return nil, errors.New(errors.ErrorTypeData,
			"no complete table row within the byte budget")
	}
	out := make([]byte, 0, i+len(tableClose))
	out = append(out, data[:i]...)
	out = append(out, tableClose...)
	return out, nil
}
