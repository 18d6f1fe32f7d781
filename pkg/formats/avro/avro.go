// Package avro implements an Avro object container file front-end. The table
// maps to a record schema; masked columns become nullable unions and masked
// cells null. Avro has no scalar types narrower than "int", so 8 and 16 bit
// columns widen on the way out and read back as int32. Unit strings have no
// home in the canonical schema and are dropped.
package avro

import (
	"io"

	"github.com/linkedin/goavro/v2"

	"github.com/ajitpratap0/bintable/pkg/dtype"
	"github.com/ajitpratap0/bintable/pkg/errors"
	"github.com/ajitpratap0/bintable/pkg/formats"
	"github.com/ajitpratap0/bintable/pkg/json"
	"github.com/ajitpratap0/bintable/pkg/table"
)

// FormatName is the registry key for this front-end
const FormatName = "avro"

func init() {
	_ = formats.RegisterReader(FormatName, formats.ReaderFunc(Read))
	_ = formats.RegisterWriter(FormatName, formats.WriterFunc(Write))
}

var avroTypes = map[dtype.DType]string{
	dtype.Int8:    "int",
	dtype.Int16:   "int",
	dtype.Int32:   "int",
	dtype.Int64:   "long",
	dtype.Uint8:   "int",
	dtype.Uint16:  "int",
	dtype.Uint32:  "long",
	dtype.Uint64:  "long",
	dtype.Float32: "float",
	dtype.Float64: "double",
	dtype.Bool:    "boolean",
	dtype.Text:    "string",
}

func buildSchema(cols []*table.Column) (string, error) {
	fields := make([]map[string]interface{}, len(cols))
	for i, col := range cols {
		at, ok := avroTypes[col.Data.DType()]
		if !ok {
			return "", errors.Newf(errors.ErrorTypeInternal,
				"column %q has unmapped storage key %s", col.Name, col.Data.DType())
		}
		f := map[string]interface{}{"name": col.Name}
		if col.Mask != nil {
			f["type"] = []interface{}{"null", at}
		} else {
			f["type"] = at
		}
		fields[i] = f
	}
	doc := map[string]interface{}{
		"type":   "record",
		"name":   "table",
		"fields": fields,
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeInternal, "encoding Avro schema")
	}
	return string(raw), nil
}

// nativeValue converts a cell value to the Go native form goavro encodes for
// the mapped Avro type
func nativeValue(dt dtype.DType, v interface{}) interface{} {
	switch dt {
	case dtype.Int8:
		return int32(v.(int8))
	case dtype.Int16:
		return int32(v.(int16))
	case dtype.Int32:
		return v.(int32)
	case dtype.Int64:
		return v.(int64)
	case dtype.Uint8:
		return int32(v.(uint8))
	case dtype.Uint16:
		return int32(v.(uint16))
	case dtype.Uint32:
		return int64(v.(uint32))
	case dtype.Uint64:
		return int64(v.(uint64))
	}
	// float32, float64, bool and string already match the native form
	return v
}

// Write serializes a logical table as an Avro object container file
func Write(w io.Writer, t *table.Table) error {
	cols := t.Columns()
	schemaJSON, err := buildSchema(cols)
	if err != nil {
		return err
	}
	codec, err := goavro.NewCodec(schemaJSON)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "building Avro codec")
	}
	ocfw, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:     w,
		Codec: codec,
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "creating Avro container writer")
	}

	rows := t.Rows()
	batch := make([]interface{}, rows)
	for ri := 0; ri < rows; ri++ {
		rec := make(map[string]interface{}, len(cols))
		for _, col := range cols {
			dt := col.Data.DType()
			if col.Mask == nil {
				rec[col.Name] = nativeValue(dt, col.Data.Value(ri))
				continue
			}
			if col.Mask[ri] {
				rec[col.Name] = nil
			} else {
				rec[col.Name] = map[string]interface{}{
					avroTypes[dt]: nativeValue(dt, col.Data.Value(ri)),
				}
			}
		}
		batch[ri] = rec
	}
	if err := ocfw.Append(batch); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "appending Avro records")
	}
	return nil
}

// avroField is one parsed schema field: its name, scalar type and whether it
// sits inside a nullable union
type avroField struct {
	name     string
	avroType string
	nullable bool
}

func parseSchema(schemaJSON string) ([]avroField, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(schemaJSON), &doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "parsing Avro schema")
	}
	raw, ok := doc["fields"].([]interface{})
	if !ok {
		return nil, errors.New(errors.ErrorTypeData, "Avro schema is not a record")
	}
	fields := make([]avroField, 0, len(raw))
	for _, fv := range raw {
		fm, ok := fv.(map[string]interface{})
		if !ok {
			return nil, errors.New(errors.ErrorTypeData, "malformed Avro schema field")
		}
		f := avroField{name: fm["name"].(string)}
		switch t := fm["type"].(type) {
		case string:
			f.avroType = t
		case []interface{}:
			f.nullable = true
			for _, ut := range t {
				if s, ok := ut.(string); ok && s != "null" {
					f.avroType = s
				}
			}
		}
		if f.avroType == "" {
			return nil, errors.Newf(errors.ErrorTypeData,
				"field %q has no usable scalar type", f.name)
		}
		fields = append(fields, f)
	}
	return fields, nil
}

var fieldKeys = map[string]dtype.DType{
	"int":     dtype.Int32,
	"long":    dtype.Int64,
	"float":   dtype.Float32,
	"double":  dtype.Float64,
	"boolean": dtype.Bool,
	"string":  dtype.Text,
}

// Read parses an Avro object container file into a logical table
func Read(r io.Reader) (*table.Table, error) {
	ocfr, err := goavro.NewOCFReader(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "malformed Avro container")
	}
	fields, err := parseSchema(ocfr.Codec().Schema())
	if err != nil {
		return nil, err
	}

	var rows []map[string]interface{}
	for ocfr.Scan() {
		datum, err := ocfr.Read()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "decoding Avro record")
		}
		rec, ok := datum.(map[string]interface{})
		if !ok {
			return nil, errors.Newf(errors.ErrorTypeData, "Avro datum is %T, not a record", datum)
		}
		rows = append(rows, rec)
	}
	if err := ocfr.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "scanning Avro container")
	}

	t := table.New()
	for _, f := range fields {
		dt, ok := fieldKeys[f.avroType]
		if !ok {
			return nil, errors.Newf(errors.ErrorTypeData,
				"field %q has unsupported Avro type %q", f.name, f.avroType)
		}
		col, err := buildColumn(f, dt, rows)
		if err != nil {
			return nil, err
		}
		if err := t.AddColumn(col); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func buildColumn(f avroField, dt dtype.DType, rows []map[string]interface{}) (*table.Column, error) {
	values := make([]interface{}, len(rows))
	var mask []bool
	for ri, rec := range rows {
		v, present := rec[f.name]
		if !present {
			return nil, errors.Newf(errors.ErrorTypeData,
				"record %d is missing field %q", ri, f.name)
		}
		if f.nullable {
			if v == nil {
				if mask == nil {
					mask = make([]bool, len(rows))
				}
				mask[ri] = true
				continue
			}
			um, ok := v.(map[string]interface{})
			if !ok {
				return nil, errors.Newf(errors.ErrorTypeData,
					"field %q row %d is not in union form", f.name, ri)
			}
			v = um[f.avroType]
		}
		values[ri] = v
	}

	data, err := assemble(dt, f.name, values, mask)
	if err != nil {
		return nil, err
	}
	return &table.Column{Name: f.name, Data: data, Mask: mask}, nil
}

func assemble(dt dtype.DType, name string, values []interface{}, mask []bool) (table.Data, error) {
	bad := func(i int, v interface{}) error {
		return errors.Newf(errors.ErrorTypeData,
			"field %q row %d holds %T, want %s", name, i, v, dt)
	}
	switch dt {
	case dtype.Int32:
		out := make(table.NumericData[int32], len(values))
		for i, v := range values {
			if mask != nil && mask[i] {
				continue
			}
			c, ok := v.(int32)
			if !ok {
				return nil, bad(i, v)
			}
			out[i] = c
		}
		return out, nil
	case dtype.Int64:
		out := make(table.NumericData[int64], len(values))
		for i, v := range values {
			if mask != nil && mask[i] {
				continue
			}
			c, ok := v.(int64)
			if !ok {
				return nil, bad(i, v)
			}
			out[i] = c
		}
		return out, nil
	case dtype.Float32:
		out := make(table.NumericData[float32], len(values))
		for i, v := range values {
			if mask != nil && mask[i] {
				continue
			}
			c, ok := v.(float32)
			if !ok {
				return nil, bad(i, v)
			}
			out[i] = c
		}
		return out, nil
	case dtype.Float64:
		out := make(table.NumericData[float64], len(values))
		for i, v := range values {
			if mask != nil && mask[i] {
				continue
			}
			c, ok := v.(float64)
			if !ok {
				return nil, bad(i, v)
			}
			out[i] = c
		}
		return out, nil
	case dtype.Bool:
		out := make(table.BoolData, len(values))
		for i, v := range values {
			if mask != nil && mask[i] {
				continue
			}
			c, ok := v.(bool)
			if !ok {
				return nil, bad(i, v)
			}
			out[i] = c
		}
		return out, nil
	default:
		out := make(table.TextData, len(values))
		for i, v := range values {
			if mask != nil && mask[i] {
				continue
			}
			c, ok := v.(string)
			if !ok {
				return nil, bad(i, v)
			}
			out[i] = c
		}
		return out, nil
	}
}
