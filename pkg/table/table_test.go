package table

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/bintable/pkg/dtype"
	"github.com/ajitpratap0/bintable/pkg/errors"
)

func TestAddColumnOrderAndLookup(t *testing.T) {
	tbl := New()
	require.NoError(t, tbl.AddColumn(&Column{Name: "b", Data: NumericData[int32]{1, 2}}))
	require.NoError(t, tbl.AddColumn(&Column{Name: "a", Data: TextData{"x", "y"}}))

	require.Equal(t, []string{"b", "a"}, tbl.Names())
	require.Equal(t, 2, tbl.Rows())

	col, ok := tbl.Column("a")
	require.True(t, ok)
	require.Equal(t, TextData{"x", "y"}, col.Data)

	_, ok = tbl.Column("missing")
	require.False(t, ok)
}

func TestAddColumnValidation(t *testing.T) {
	tbl := New()
	require.NoError(t, tbl.AddColumn(&Column{Name: "a", Data: NumericData[int8]{1, 2, 3}}))

	err := tbl.AddColumn(&Column{Name: "a", Data: NumericData[int8]{4, 5, 6}})
	require.True(t, errors.IsType(err, errors.ErrorTypeConflict))

	err = tbl.AddColumn(&Column{Name: "short", Data: NumericData[int8]{1}})
	require.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	err = tbl.AddColumn(&Column{Name: "badmask", Data: NumericData[int8]{1, 2, 3}, Mask: []bool{true}})
	require.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	err = tbl.AddColumn(&Column{Data: NumericData[int8]{1, 2, 3}})
	require.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestMaskedFlagFollowsMasks(t *testing.T) {
	tbl := New()
	require.NoError(t, tbl.AddColumn(&Column{Name: "plain", Data: BoolData{true}}))
	require.False(t, tbl.Masked)

	require.NoError(t, tbl.AddColumn(&Column{Name: "masked", Data: BoolData{false}, Mask: []bool{true}}))
	require.True(t, tbl.Masked)

	col, _ := tbl.Column("masked")
	require.True(t, col.HasMask())
	plain, _ := tbl.Column("plain")
	require.False(t, plain.HasMask())
}

func TestDataBytesRoundTrip(t *testing.T) {
	d := NumericData[int64]{-1, 0, 1 << 62}
	b := d.Bytes()
	require.Len(t, b, 24)

	view, err := ViewBytes(dtype.Int64, b, 3)
	require.NoError(t, err)
	require.Equal(t, d, view)
}

func TestViewBytesBounds(t *testing.T) {
	_, err := ViewBytes(dtype.Float64, make([]byte, 8), 2)
	require.Error(t, err)

	_, err = ViewBytes(dtype.Text, nil, 0)
	require.Error(t, err)

	view, err := ViewBytes(dtype.Uint16, nil, 0)
	require.NoError(t, err)
	require.Equal(t, 0, view.Len())
}

func TestDTypeMapping(t *testing.T) {
	require.Equal(t, dtype.Int8, NumericData[int8]{}.DType())
	require.Equal(t, dtype.Uint64, NumericData[uint64]{}.DType())
	require.Equal(t, dtype.Float32, NumericData[float32]{}.DType())
	require.Equal(t, dtype.Bool, BoolData{}.DType())
	require.Equal(t, dtype.Text, TextData{}.DType())
}
