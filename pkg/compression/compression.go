// Package compression provides transparent compressed I/O for foreign table
// format files. The algorithm is selected by file extension, so a ".csv.gz"
// input decompresses on the fly and a ".vot.zst" output compresses as it is
// written. Dataset backing files are never compressed; this package serves
// only the interchange front-ends.
//
// Supported algorithms: gzip (stdlib), snappy, s2 and zstd (klauspost),
// lz4 (pierrec).
package compression

import (
	"compress/gzip"
	"io"
	"strings"

	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	lz4 "github.com/pierrec/lz4/v4"

	"github.com/ajitpratap0/bintable/pkg/errors"
)

// Algorithm identifies a compression algorithm
type Algorithm string

const (
	// None means pass-through I/O
	None Algorithm = "none"
	// Gzip selects gzip compression
	Gzip Algorithm = "gzip"
	// Snappy selects snappy stream compression
	Snappy Algorithm = "snappy"
	// LZ4 selects lz4 frame compression
	LZ4 Algorithm = "lz4"
	// Zstd selects zstandard compression
	Zstd Algorithm = "zstd"
	// S2 selects s2 stream compression
	S2 Algorithm = "s2"
)

// extensions maps file name suffixes to algorithms
var extensions = map[string]Algorithm{
	".gz":  Gzip,
	".sz":  Snappy,
	".lz4": LZ4,
	".zst": Zstd,
	".s2":  S2,
}

// ForPath detects the compression algorithm from a file name and returns it
// together with the path stripped of the compression suffix, so format
// detection can run on the inner extension.
func ForPath(path string) (Algorithm, string) {
	for ext, algo := range extensions {
		if strings.HasSuffix(path, ext) {
			return algo, strings.TrimSuffix(path, ext)
		}
	}
	return None, path
}

// NewReader wraps r with streaming decompression for the given algorithm.
// The returned reader must be closed by the caller.
func NewReader(r io.Reader, algo Algorithm) (io.ReadCloser, error) {
	switch algo {
	case None:
		return io.NopCloser(r), nil
	case Gzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to open gzip stream")
		}
		return zr, nil
	case Snappy:
		return io.NopCloser(snappy.NewReader(r)), nil
	case LZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	case Zstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to open zstd stream")
		}
		return zr.IOReadCloser(), nil
	case S2:
		return io.NopCloser(s2.NewReader(r)), nil
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unsupported compression algorithm %q", algo)
	}
}

// NewWriter wraps w with streaming compression for the given algorithm.
// Closing the returned writer flushes the compressed stream but does not
// close w.
func NewWriter(w io.Writer, algo Algorithm) (io.WriteCloser, error) {
	switch algo {
	case None:
		return nopWriteCloser{w}, nil
	case Gzip:
		return gzip.NewWriter(w), nil
	case Snappy:
		return snappy.NewBufferedWriter(w), nil
	case LZ4:
		return lz4.NewWriter(w), nil
	case Zstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create zstd writer")
		}
		return zw, nil
	case S2:
		return s2.NewWriter(w), nil
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unsupported compression algorithm %q", algo)
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
