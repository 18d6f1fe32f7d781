package table

import (
	"unsafe"

	"github.com/ajitpratap0/bintable/pkg/dtype"
	"github.com/ajitpratap0/bintable/pkg/errors"
)

// Data is a homogeneous column payload. Numeric and bool payloads expose a
// zero-copy native-endian byte view for serialization; text payloads are
// boxed values serialized through JSON.
type Data interface {
	// DType returns the storage-type key of the payload
	DType() dtype.DType
	// Len returns the number of elements
	Len() int
	// Value returns the element at index i
	Value(i int) interface{}
}

// Bytes is implemented by fixed-width payloads that can be serialized as a
// raw byte view without copying.
type Bytes interface {
	// Bytes returns the raw native-endian byte view of the payload. The
	// view aliases the underlying storage and must not be mutated.
	Bytes() []byte
}

// Element is the set of fixed-width numeric element types
type Element interface {
	~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// NumericData wraps a typed slice as a column payload
type NumericData[T Element] []T

func (d NumericData[T]) DType() dtype.DType {
	var z T
	switch any(z).(type) {
	case int8:
		return dtype.Int8
	case int16:
		return dtype.Int16
	case int32:
		return dtype.Int32
	case int64:
		return dtype.Int64
	case uint8:
		return dtype.Uint8
	case uint16:
		return dtype.Uint16
	case uint32:
		return dtype.Uint32
	case uint64:
		return dtype.Uint64
	case float32:
		return dtype.Float32
	default:
		return dtype.Float64
	}
}

func (d NumericData[T]) Len() int                 { return len(d) }
func (d NumericData[T]) Value(i int) interface{}  { return d[i] }
func (d NumericData[T]) Values() []T              { return d }

// Bytes returns the raw little-endian view of the slice without copying
func (d NumericData[T]) Bytes() []byte {
	if len(d) == 0 {
		return nil
	}
	var z T
	return unsafe.Slice((*byte)(unsafe.Pointer(&d[0])), len(d)*int(unsafe.Sizeof(z)))
}

// BoolData is a boolean column payload, one byte per element on disk
type BoolData []bool

func (d BoolData) DType() dtype.DType        { return dtype.Bool }
func (d BoolData) Len() int                  { return len(d) }
func (d BoolData) Value(i int) interface{}   { return d[i] }
func (d BoolData) Values() []bool            { return d }

func (d BoolData) Bytes() []byte {
	if len(d) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&d[0])), len(d))
}

// TextData is a variable-width string column payload
type TextData []string

func (d TextData) DType() dtype.DType      { return dtype.Text }
func (d TextData) Len() int                { return len(d) }
func (d TextData) Value(i int) interface{} { return d[i] }
func (d TextData) Values() []string        { return d }

// ViewBytes reinterprets a raw native-endian byte buffer as a typed payload
// of n elements without copying. The returned payload aliases b, so b must
// stay mapped for the payload's lifetime. The buffer must hold at least
// n elements of the dtype's item size.
func ViewBytes(d dtype.DType, b []byte, n int) (Data, error) {
	if !d.Numeric() {
		return nil, errors.Newf(errors.ErrorTypeValidation, "cannot view %s payload as bytes", d)
	}
	if need := n * d.ItemSize(); len(b) < need {
		return nil, errors.Newf(errors.ErrorTypeData,
			"backing buffer too short: need %d bytes for %d %s elements, have %d", need, n, d, len(b))
	}
	if n == 0 {
		return emptyData(d), nil
	}
	p := unsafe.Pointer(&b[0])
	switch d {
	case dtype.Int8:
		return NumericData[int8](unsafe.Slice((*int8)(p), n)), nil
	case dtype.Int16:
		return NumericData[int16](unsafe.Slice((*int16)(p), n)), nil
	case dtype.Int32:
		return NumericData[int32](unsafe.Slice((*int32)(p), n)), nil
	case dtype.Int64:
		return NumericData[int64](unsafe.Slice((*int64)(p), n)), nil
	case dtype.Uint8:
		return NumericData[uint8](unsafe.Slice((*uint8)(p), n)), nil
	case dtype.Uint16:
		return NumericData[uint16](unsafe.Slice((*uint16)(p), n)), nil
	case dtype.Uint32:
		return NumericData[uint32](unsafe.Slice((*uint32)(p), n)), nil
	case dtype.Uint64:
		return NumericData[uint64](unsafe.Slice((*uint64)(p), n)), nil
	case dtype.Float32:
		return NumericData[float32](unsafe.Slice((*float32)(p), n)), nil
	case dtype.Float64:
		return NumericData[float64](unsafe.Slice((*float64)(p), n)), nil
	case dtype.Bool:
		return BoolData(unsafe.Slice((*bool)(p), n)), nil
	default:
		return nil, errors.Newf(errors.ErrorTypeValidation, "unsupported dtype %s", d)
	}
}

func emptyData(d dtype.DType) Data {
	switch d {
	case dtype.Int8:
		return NumericData[int8](nil)
	case dtype.Int16:
		return NumericData[int16](nil)
	case dtype.Int32:
		return NumericData[int32](nil)
	case dtype.Int64:
		return NumericData[int64](nil)
	case dtype.Uint8:
		return NumericData[uint8](nil)
	case dtype.Uint16:
		return NumericData[uint16](nil)
	case dtype.Uint32:
		return NumericData[uint32](nil)
	case dtype.Uint64:
		return NumericData[uint64](nil)
	case dtype.Float32:
		return NumericData[float32](nil)
	case dtype.Float64:
		return NumericData[float64](nil)
	case dtype.Bool:
		return BoolData(nil)
	default:
		return TextData(nil)
	}
}
