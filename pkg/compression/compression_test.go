package compression

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestForPath(t *testing.T) {
	cases := []struct {
		path  string
		algo  Algorithm
		inner string
	}{
		{"table.csv.gz", Gzip, "table.csv"},
		{"table.vot.zst", Zstd, "table.vot"},
		{"table.csv.lz4", LZ4, "table.csv"},
		{"table.csv.sz", Snappy, "table.csv"},
		{"table.csv.s2", S2, "table.csv"},
		{"table.csv", None, "table.csv"},
	}
	for _, tc := range cases {
		algo, inner := ForPath(tc.path)
		require.Equal(t, tc.algo, algo, tc.path)
		require.Equal(t, tc.inner, inner, tc.path)
	}
}

func TestStreamRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("columnar tables compress well "), 200)

	for _, algo := range []Algorithm{None, Gzip, Snappy, LZ4, Zstd, S2} {
		var buf bytes.Buffer

		w, err := NewWriter(&buf, algo)
		require.NoError(t, err, algo)
		_, err = w.Write(payload)
		require.NoError(t, err, algo)
		require.NoError(t, w.Close(), algo)

		r, err := NewReader(&buf, algo)
		require.NoError(t, err, algo)
		got, err := io.ReadAll(r)
		require.NoError(t, err, algo)
		require.NoError(t, r.Close(), algo)

		require.Equal(t, payload, got, algo)
	}
}

func TestUnknownAlgorithm(t *testing.T) {
	_, err := NewWriter(io.Discard, Algorithm("brotli"))
	require.Error(t, err)
	_, err = NewReader(bytes.NewReader(nil), Algorithm("brotli"))
	require.Error(t, err)
}
