// Package npy reads and writes the NPY binary array container used for the
// numeric backing files of a bintable dataset. Only version 1.0 headers with
// one-dimensional, C-ordered, native-endian payloads are produced; parsing
// additionally accepts version 2.0 headers.
package npy

import (
	"encoding/binary"
	"io"
	"strconv"
	"strings"

	"github.com/ajitpratap0/bintable/pkg/dtype"
	"github.com/ajitpratap0/bintable/pkg/errors"
)

var magic = []byte("\x93NUMPY")

// headerAlign pads the header so the payload starts on a 64-byte boundary,
// which keeps memory-mapped element access aligned.
const headerAlign = 64

// Header describes a parsed NPY file
type Header struct {
	// DType is the storage type of the payload
	DType dtype.DType
	// Count is the number of elements in the one-dimensional payload
	Count int
	// DataOffset is the byte offset of the payload within the file
	DataOffset int
}

// Encode writes a complete NPY file: header followed by the raw payload.
// count is the element count declared in the shape; payload is the raw
// native-endian bytes and must be count*itemsize long.
func Encode(w io.Writer, d dtype.DType, count int, payload []byte) error {
	if want := count * d.ItemSize(); len(payload) != want {
		return errors.Newf(errors.ErrorTypeValidation,
			"payload is %d bytes, %d %s elements need %d", len(payload), count, d, want)
	}
	if err := EncodeHeader(w, d, count); err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write npy payload")
	}
	return nil
}

// EncodeHeader writes only the NPY header for a one-dimensional array of
// count elements. The caller writes exactly count*itemsize payload bytes
// afterwards; this allows streaming concatenated column chunks without
// materializing one contiguous buffer.
func EncodeHeader(w io.Writer, d dtype.DType, count int) error {
	if !d.Numeric() {
		return errors.Newf(errors.ErrorTypeValidation, "dtype %s has no binary representation", d)
	}

	header := "{'descr': '" + d.Descr() + "', 'fortran_order': False, 'shape': (" +
		strconv.Itoa(count) + ",), }"

	// magic + version + 2-byte length prefix
	preamble := len(magic) + 2 + 2
	total := preamble + len(header) + 1 // trailing newline
	pad := (headerAlign - total%headerAlign) % headerAlign
	header += strings.Repeat(" ", pad) + "\n"

	buf := make([]byte, 0, preamble+len(header))
	buf = append(buf, magic...)
	buf = append(buf, 1, 0) // version 1.0
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(header)))
	buf = append(buf, header...)

	if _, err := w.Write(buf); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write npy header")
	}
	return nil
}

// ParseHeader parses the header of an NPY file held in b, typically a
// memory-mapped backing file. The payload is b[h.DataOffset:] and is not
// copied or validated beyond its declared length.
func ParseHeader(b []byte) (Header, error) {
	var h Header

	if len(b) < len(magic)+4 || string(b[:len(magic)]) != string(magic) {
		return h, errors.New(errors.ErrorTypeData, "not an npy file")
	}
	major := b[len(magic)]
	pos := len(magic) + 2

	var headerLen int
	switch major {
	case 1:
		if len(b) < pos+2 {
			return h, errors.New(errors.ErrorTypeData, "truncated npy header")
		}
		headerLen = int(binary.LittleEndian.Uint16(b[pos:]))
		pos += 2
	case 2:
		if len(b) < pos+4 {
			return h, errors.New(errors.ErrorTypeData, "truncated npy header")
		}
		headerLen = int(binary.LittleEndian.Uint32(b[pos:]))
		pos += 4
	default:
		return h, errors.Newf(errors.ErrorTypeData, "unsupported npy version %d", major)
	}

	if len(b) < pos+headerLen {
		return h, errors.New(errors.ErrorTypeData, "truncated npy header")
	}
	header := string(b[pos : pos+headerLen])
	h.DataOffset = pos + headerLen

	descr, err := dictValue(header, "descr")
	if err != nil {
		return h, err
	}
	h.DType, err = dtype.ParseDescr(descr)
	if err != nil {
		return h, err
	}

	if strings.Contains(header, "'fortran_order': True") {
		return h, errors.New(errors.ErrorTypeData, "fortran-ordered npy payloads not supported")
	}

	h.Count, err = shapeCount(header)
	if err != nil {
		return h, err
	}

	if want := h.DataOffset + h.Count*h.DType.ItemSize(); len(b) < want {
		return h, errors.Newf(errors.ErrorTypeData,
			"npy payload truncated: file is %d bytes, header declares %d", len(b), want)
	}
	return h, nil
}

// dictValue extracts a single-quoted string value from the header dict
func dictValue(header, key string) (string, error) {
	marker := "'" + key + "': '"
	i := strings.Index(header, marker)
	if i < 0 {
		return "", errors.Newf(errors.ErrorTypeData, "npy header missing %q", key)
	}
	rest := header[i+len(marker):]
	j := strings.IndexByte(rest, '\'')
	if j < 0 {
		return "", errors.Newf(errors.ErrorTypeData, "malformed npy header value for %q", key)
	}
	return rest[:j], nil
}

// shapeCount parses the declared shape, which must be one-dimensional
func shapeCount(header string) (int, error) {
	marker := "'shape': ("
	i := strings.Index(header, marker)
	if i < 0 {
		return 0, errors.New(errors.ErrorTypeData, "npy header missing shape")
	}
	rest := header[i+len(marker):]
	j := strings.IndexByte(rest, ')')
	if j < 0 {
		return 0, errors.New(errors.ErrorTypeData, "malformed npy shape")
	}
	dims := strings.Split(strings.TrimSuffix(strings.TrimSpace(rest[:j]), ","), ",")
	if len(dims) != 1 {
		return 0, errors.Newf(errors.ErrorTypeData, "npy payload must be one-dimensional, shape has %d dims", len(dims))
	}
	n, err := strconv.Atoi(strings.TrimSpace(dims[0]))
	if err != nil || n < 0 {
		return 0, errors.New(errors.ErrorTypeData, "malformed npy shape")
	}
	return n, nil
}
