// Package dtype classifies column element types into the storage-type keys
// used by the bintable on-disk layout. Every fixed-width numeric type maps to
// its own key; all string types collapse into the single "text" key. Keys
// never encode endianness: the format is native little-endian only.
package dtype

import (
	"strings"

	"github.com/ajitpratap0/bintable/pkg/errors"
)

// DType identifies a storage-type key
type DType string

const (
	Int8    DType = "int8"
	Int16   DType = "int16"
	Int32   DType = "int32"
	Int64   DType = "int64"
	Uint8   DType = "uint8"
	Uint16  DType = "uint16"
	Uint32  DType = "uint32"
	Uint64  DType = "uint64"
	Float32 DType = "float32"
	Float64 DType = "float64"
	Bool    DType = "bool"

	// Text is the sentinel key for string columns of any declared width.
	// Text payloads are stored boxed in JSON rather than fixed-width slots.
	Text DType = "text"
)

// itemSizes maps each fixed-width dtype to its element size in bytes
var itemSizes = map[DType]int{
	Int8: 1, Int16: 2, Int32: 4, Int64: 8,
	Uint8: 1, Uint16: 2, Uint32: 4, Uint64: 8,
	Float32: 4, Float64: 8,
	Bool: 1,
}

// descrs maps each fixed-width dtype to its NPY header type descriptor.
// Multi-byte descriptors are marked little-endian, single-byte types carry
// the no-order marker.
var descrs = map[DType]string{
	Int8: "|i1", Int16: "<i2", Int32: "<i4", Int64: "<i8",
	Uint8: "|u1", Uint16: "<u2", Uint32: "<u4", Uint64: "<u8",
	Float32: "<f4", Float64: "<f8",
	Bool: "|b1",
}

// String returns the storage key name
func (d DType) String() string {
	return string(d)
}

// Valid reports whether d is a known storage-type key
func (d DType) Valid() bool {
	if d == Text {
		return true
	}
	_, ok := itemSizes[d]
	return ok
}

// Numeric reports whether d maps to a fixed-width binary backing file
func (d DType) Numeric() bool {
	_, ok := itemSizes[d]
	return ok
}

// ItemSize returns the element size in bytes for fixed-width dtypes.
// Text has no fixed item size and returns 0.
func (d DType) ItemSize() int {
	return itemSizes[d]
}

// Descr returns the NPY header type descriptor for fixed-width dtypes
func (d DType) Descr() string {
	return descrs[d]
}

// Filename returns the backing file name for a storage-type key.
// Reader and writer must agree on this convention.
func (d DType) Filename() string {
	if d == Text {
		return "data.text.json"
	}
	return "data." + string(d) + ".npy"
}

// ParseDescr resolves an NPY type descriptor to a dtype. A big-endian order
// marker is a validation error: the format stores native little-endian data
// and never negotiates byte order.
func ParseDescr(descr string) (DType, error) {
	if strings.HasPrefix(descr, ">") {
		return "", errors.Newf(errors.ErrorTypeValidation,
			"big-endian type descriptor %q not supported", descr)
	}
	base := strings.TrimLeft(descr, "<|=")
	for d, s := range descrs {
		if strings.TrimLeft(s, "<|=") == base {
			return d, nil
		}
	}
	// Fixed-width bytes (S) and unicode (U) descriptors are text
	if strings.HasPrefix(base, "S") || strings.HasPrefix(base, "U") {
		return Text, nil
	}
	return "", errors.Newf(errors.ErrorTypeValidation, "unsupported type descriptor %q", descr)
}

// Parse resolves a storage key name as it appears in backing file names
func Parse(name string) (DType, error) {
	d := DType(name)
	if !d.Valid() {
		return "", errors.Newf(errors.ErrorTypeValidation, "unknown storage type %q", name)
	}
	return d, nil
}
