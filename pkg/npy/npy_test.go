package npy

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/bintable/pkg/dtype"
	"github.com/ajitpratap0/bintable/pkg/table"
)

func TestEncodeParseRoundTrip(t *testing.T) {
	data := table.NumericData[float64]{1.5, -2.25, 0, 1e300}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, dtype.Float64, data.Len(), data.Bytes()))

	h, err := ParseHeader(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, dtype.Float64, h.DType)
	require.Equal(t, 4, h.Count)
	// Payload starts on a 64-byte boundary for aligned mapped access
	require.Equal(t, 0, h.DataOffset%64)

	view, err := table.ViewBytes(h.DType, buf.Bytes()[h.DataOffset:], h.Count)
	require.NoError(t, err)
	require.Equal(t, data, view)
}

func TestEncodeEmptyArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, dtype.Int32, 0, nil))

	h, err := ParseHeader(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, 0, h.Count)
	require.Equal(t, dtype.Int32, h.DType)
}

func TestEncodeBool(t *testing.T) {
	mask := table.BoolData{true, false, true}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, dtype.Bool, 3, mask.Bytes()))

	h, err := ParseHeader(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, dtype.Bool, h.DType)

	view, err := table.ViewBytes(dtype.Bool, buf.Bytes()[h.DataOffset:], 3)
	require.NoError(t, err)
	require.Equal(t, mask, view)
}

func TestParseHeaderRejectsGarbage(t *testing.T) {
	_, err := ParseHeader([]byte("not an npy file at all"))
	require.Error(t, err)

	_, err = ParseHeader([]byte("\x93NUMPY"))
	require.Error(t, err)
}

func TestParseHeaderRejectsBigEndian(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, dtype.Float64, 1, make([]byte, 8)))

	// Flip the descriptor to big-endian in place
	raw := bytes.Replace(buf.Bytes(), []byte("'<f8'"), []byte("'>f8'"), 1)
	_, err := ParseHeader(raw)
	require.Error(t, err)
}

func TestParseHeaderRejectsTruncatedPayload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, dtype.Int64, 4, make([]byte, 32)))

	_, err := ParseHeader(buf.Bytes()[:buf.Len()-8])
	require.Error(t, err)
}

func TestParseHeaderRejectsMultiDim(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, dtype.Int8, 6, make([]byte, 6)))

	raw := bytes.Replace(buf.Bytes(), []byte("(6,)"), []byte("(2,3)"), 1)
	_, err := ParseHeader(raw)
	require.Error(t, err)
}
