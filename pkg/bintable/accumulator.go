package bintable

import (
	"github.com/ajitpratap0/bintable/pkg/dtype"
	"github.com/ajitpratap0/bintable/pkg/errors"
	"github.com/ajitpratap0/bintable/pkg/table"
)

// bufferAccumulator collects the payloads of every column that shares one
// storage-type key, in write order. The running length is the element offset
// at which the next appended column will start.
type bufferAccumulator struct {
	key      dtype.DType
	filename string

	// chunks holds raw byte payloads for numeric keys
	chunks [][]byte
	// values holds boxed values for the text key
	values []interface{}

	length int
}

func newBufferAccumulator(key dtype.DType) *bufferAccumulator {
	return &bufferAccumulator{key: key, filename: key.Filename()}
}

// append records a column payload and returns the element offset at which
// it begins. Ranges of successive columns are contiguous and gapless.
func (a *bufferAccumulator) append(data table.Data) (int, error) {
	offset := a.length
	n := data.Len()

	if a.key == dtype.Text {
		text, ok := data.(table.TextData)
		if !ok {
			return 0, errors.Newf(errors.ErrorTypeInternal, "%T grouped into text buffer", data)
		}
		for _, v := range text {
			a.values = append(a.values, v)
		}
	} else {
		raw, ok := data.(table.Bytes)
		if !ok {
			return 0, errors.Newf(errors.ErrorTypeInternal, "%T has no raw byte view", data)
		}
		a.chunks = append(a.chunks, raw.Bytes())
	}

	a.length += n
	return offset, nil
}

// maskAccumulator collects the full per-row masks of every masked column
// into the single shared mask buffer. Unlike bufferAccumulator it spans the
// whole table: one running offset shared by all storage-type keys.
type maskAccumulator struct {
	chunks [][]bool
	length int
}

// append records a column's full mask and returns its element offset within
// the shared mask buffer.
func (a *maskAccumulator) append(mask []bool) int {
	offset := a.length
	a.chunks = append(a.chunks, mask)
	a.length += len(mask)
	return offset
}

func (a *maskAccumulator) empty() bool {
	return len(a.chunks) == 0
}
