// Package csv implements a delimited-text front-end. The first record is the
// header row; column types are inferred per column by trying int64, then
// float64, then falling back to text. Empty cells are treated as missing and
// produce masked entries.
package csv

import (
	stdcsv "encoding/csv"
	"io"
	"strconv"

	"github.com/ajitpratap0/bintable/pkg/dtype"
	"github.com/ajitpratap0/bintable/pkg/errors"
	"github.com/ajitpratap0/bintable/pkg/formats"
	"github.com/ajitpratap0/bintable/pkg/table"
)

// FormatName is the registry key for this front-end
const FormatName = "csv"

func init() {
	_ = formats.RegisterReader(FormatName, formats.ReaderFunc(Read))
	_ = formats.RegisterWriter(FormatName, formats.WriterFunc(Write))
}

// Read parses a CSV stream with a header row into a logical table
func Read(r io.Reader) (*table.Table, error) {
	cr := stdcsv.NewReader(r)
	cr.FieldsPerRecord = 0

	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "malformed CSV stream")
	}
	if len(records) == 0 {
		return nil, errors.New(errors.ErrorTypeData, "CSV stream carries no header row")
	}

	header := records[0]
	rows := records[1:]

	t := table.New()
	for ci, name := range header {
		cells := make([]string, len(rows))
		missing := make([]bool, len(rows))
		for ri, rec := range rows {
			cells[ri] = rec[ci]
			missing[ri] = rec[ci] == ""
		}
		col := &table.Column{Name: name, Data: inferData(cells, missing)}
		if anyTrue(missing) {
			col.Mask = missing
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

// inferData picks the narrowest type that parses every present cell. The
// ladder is int64, float64, text; a column of nothing but missing cells
// infers as text.
func inferData(cells []string, missing []bool) table.Data {
	isInt, isFloat := true, true
	present := false
	for i, c := range cells {
		if missing[i] {
			continue
		}
		present = true
		if isInt {
			if _, err := strconv.ParseInt(c, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat {
			if _, err := strconv.ParseFloat(c, 64); err != nil {
				isFloat = false
			}
		}
	}

	switch {
	case present && isInt:
		out := make(table.NumericData[int64], len(cells))
		for i, c := range cells {
			if missing[i] {
				continue
			}
			out[i], _ = strconv.ParseInt(c, 10, 64)
		}
		return out
	case present && isFloat:
		out := make(table.NumericData[float64], len(cells))
		for i, c := range cells {
			if missing[i] {
				continue
			}
			out[i], _ = strconv.ParseFloat(c, 64)
		}
		return out
	}
	return table.TextData(cells)
}

// Write serializes a logical table as CSV with a header row. Masked cells
// are rendered empty.
func Write(w io.Writer, t *table.Table) error {
	cw := stdcsv.NewWriter(w)

	cols := t.Columns()
	header := make([]string, len(cols))
	for i, col := range cols {
		header[i] = col.Name
	}
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "writing CSV header")
	}

	rows := t.Rows()
	record := make([]string, len(cols))
	for ri := 0; ri < rows; ri++ {
		for ci, col := range cols {
			if col.Mask != nil && col.Mask[ri] {
				record[ci] = ""
				continue
			}
			record[ci] = formatCell(col.Data.DType(), col.Data.Value(ri))
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrapf(err, errors.ErrorTypeFile, "writing CSV row %d", ri)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "flushing CSV stream")
	}
	return nil
}

func formatCell(dt dtype.DType, v interface{}) string {
	switch dt {
	case dtype.Text:
		return v.(string)
	case dtype.Bool:
		return strconv.FormatBool(v.(bool))
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
