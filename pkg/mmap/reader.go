// Package mmap provides read-only memory-mapped file access for zero-copy
// slicing of bintable backing files.
package mmap

import (
	"os"

	"github.com/ajitpratap0/bintable/pkg/errors"
)

// File is a read-only memory-mapped file. The mapping is shared and never
// written through; multiple File instances may safely map the same path.
type File struct {
	file *os.File
	data []byte
	size int64
}

// Open memory-maps the named file read-only. Empty files cannot be mapped
// and are rejected.
func Open(filename string) (*File, error) {
	f, err := os.Open(filename) //nolint:gosec // G304: path comes from a validated manifest
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrorTypeFile, "failed to open %s", filename)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, errors.ErrorTypeFile, "failed to stat %s", filename)
	}

	size := stat.Size()
	if size == 0 {
		f.Close()
		return nil, errors.Newf(errors.ErrorTypeFile, "cannot map empty file %s", filename)
	}

	data, err := mmap(int(f.Fd()), 0, int(size), ProtRead, MapShared)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, errors.ErrorTypeFile, "failed to mmap %s", filename)
	}

	// Backing files are sliced column by column in offset order
	_ = madvise(data, MadvSequential)

	return &File{file: f, data: data, size: size}, nil
}

// Bytes returns the full mapped contents. The returned slice aliases the
// mapping and is only valid until Close.
func (f *File) Bytes() []byte {
	return f.data
}

// Size returns the mapped file size in bytes
func (f *File) Size() int64 {
	return f.size
}

// Range returns the half-open byte range [offset, offset+length) of the
// mapping without copying.
func (f *File) Range(offset, length int64) ([]byte, error) {
	if offset < 0 || length < 0 || offset+length > f.size {
		return nil, errors.Newf(errors.ErrorTypeData,
			"range [%d, %d) out of bounds for %d-byte mapping", offset, offset+length, f.size)
	}
	b := f.data[offset : offset+length]
	_ = madvise(alignRange(f.data, offset, length), MadvWillneed)
	return b, nil
}

// Close unmaps the file and closes the descriptor. Byte slices obtained from
// the mapping must not be used afterwards.
func (f *File) Close() error {
	var err error
	if f.data != nil {
		err = munmap(f.data)
		f.data = nil
	}
	if f.file != nil {
		if closeErr := f.file.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		f.file = nil
	}
	return err
}

// alignRange widens [offset, offset+length) to page boundaries, clamped to
// the mapping, since madvise operates on whole pages.
func alignRange(data []byte, offset, length int64) []byte {
	pageSize := int64(os.Getpagesize())
	start := (offset / pageSize) * pageSize
	end := ((offset + length + pageSize - 1) / pageSize) * pageSize
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	return data[start:end]
}
