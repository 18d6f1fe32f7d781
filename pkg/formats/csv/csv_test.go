package csv

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/bintable/pkg/dtype"
	"github.com/ajitpratap0/bintable/pkg/errors"
	"github.com/ajitpratap0/bintable/pkg/table"
)

func TestReadInfersColumnTypes(t *testing.T) {
	in := "id,flux,name\n1,1.5,alpha\n2,2.0,beta\n3,,\n"
	tbl, err := Read(strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, []string{"id", "flux", "name"}, tbl.Names())

	id, _ := tbl.Column("id")
	require.Equal(t, dtype.Int64, id.Data.DType())
	require.Equal(t, table.NumericData[int64]{1, 2, 3}, id.Data)
	require.Nil(t, id.Mask)

	flux, _ := tbl.Column("flux")
	require.Equal(t, dtype.Float64, flux.Data.DType())
	require.Equal(t, []bool{false, false, true}, flux.Mask)

	name, _ := tbl.Column("name")
	require.Equal(t, dtype.Text, name.Data.DType())
	require.Equal(t, []bool{false, false, true}, name.Mask)
	require.True(t, tbl.Masked)
}

func TestReadMixedNumbersWidenToFloat(t *testing.T) {
	tbl, err := Read(strings.NewReader("v\n1\n2.5\n"))
	require.NoError(t, err)
	v, _ := tbl.Column("v")
	require.Equal(t, dtype.Float64, v.Data.DType())
	require.Equal(t, table.NumericData[float64]{1, 2.5}, v.Data)
}

func TestReadAllMissingColumnIsText(t *testing.T) {
	tbl, err := Read(strings.NewReader("v\n\n\n"))
	require.NoError(t, err)
	v, _ := tbl.Column("v")
	require.Equal(t, dtype.Text, v.Data.DType())
	require.Equal(t, []bool{true, true}, v.Mask)
}

func TestReadRejectsRaggedRows(t *testing.T) {
	_, err := Read(strings.NewReader("a,b\n1,2\n3\n"))
	require.Error(t, err)
	require.True(t, errors.IsType(err, errors.ErrorTypeData))
}

func TestReadRejectsEmptyStream(t *testing.T) {
	_, err := Read(strings.NewReader(""))
	require.Error(t, err)
	require.True(t, errors.IsType(err, errors.ErrorTypeData))
}

func TestWriteReadRoundTrip(t *testing.T) {
	tbl := table.New()
	require.NoError(t, tbl.AddColumn(&table.Column{
		Name: "id",
		Data: table.NumericData[int64]{1, 2},
	}))
	require.NoError(t, tbl.AddColumn(&table.Column{
		Name: "name",
		Data: table.TextData{"with,comma", "plain"},
	}))
	require.NoError(t, tbl.AddColumn(&table.Column{
		Name: "flux",
		Data: table.NumericData[float64]{1.5, 0},
		Mask: []bool{false, true},
	}))

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, tbl))

	got, err := Read(&buf)
	require.NoError(t, err)
	require.Equal(t, []string{"id", "name", "flux"}, got.Names())

	name, _ := got.Column("name")
	require.Equal(t, table.TextData{"with,comma", "plain"}, name.Data)

	flux, _ := got.Column("flux")
	require.Equal(t, []bool{false, true}, flux.Mask)
	require.Equal(t, 1.5, flux.Data.Value(0))
}

func TestWriteRendersMaskedCellsEmpty(t *testing.T) {
	tbl := table.New()
	require.NoError(t, tbl.AddColumn(&table.Column{
		Name: "v",
		Data: table.NumericData[int32]{7, 8},
		Mask: []bool{true, false},
	}))

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, tbl))
	require.Equal(t, "v\n\n8\n", buf.String())
}
