package bintable

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/bintable/pkg/dtype"
	"github.com/ajitpratap0/bintable/pkg/errors"
	"github.com/ajitpratap0/bintable/pkg/table"
	"github.com/ajitpratap0/bintable/pkg/units"
)

func sampleTable(t *testing.T) *table.Table {
	t.Helper()

	tbl := table.New()
	tbl.Meta = map[string]interface{}{
		"origin":  "unit-test",
		"release": float64(7),
	}

	cols := []*table.Column{
		{Name: "id", Data: table.NumericData[int32]{1, 2, 3}},
		{Name: "name", Data: table.TextData{"a", "b", "c"}},
		{
			Name: "flux",
			Data: table.NumericData[float64]{1.5, 2.5, math.NaN()},
			Mask: []bool{false, false, true},
			Unit: units.Resolve("Jy"),
		},
	}
	for _, c := range cols {
		require.NoError(t, tbl.AddColumn(c))
	}
	return tbl
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dataset")
	tbl := sampleTable(t)

	require.NoError(t, Write(tbl, dir))
	require.True(t, IsDataset(dir))

	res, err := Read(dir)
	require.NoError(t, err)
	defer res.Close()

	got := res.Table
	require.Equal(t, []string{"id", "name", "flux"}, got.Names())
	require.Equal(t, tbl.Meta, got.Meta)
	require.True(t, got.Masked)

	id, ok := got.Column("id")
	require.True(t, ok)
	require.Equal(t, table.NumericData[int32]{1, 2, 3}, id.Data)
	require.Nil(t, id.Mask)
	require.Nil(t, id.Unit)

	name, ok := got.Column("name")
	require.True(t, ok)
	require.Equal(t, table.TextData{"a", "b", "c"}, name.Data)
	require.Nil(t, name.Mask)

	flux, ok := got.Column("flux")
	require.True(t, ok)
	values := flux.Data.(table.NumericData[float64])
	require.Equal(t, 1.5, values[0])
	require.Equal(t, 2.5, values[1])
	require.True(t, math.IsNaN(values[2]))
	require.Equal(t, []bool{false, false, true}, flux.Mask)
	require.NotNil(t, flux.Unit)
	require.Equal(t, "Jy", flux.Unit.String())
	require.Equal(t, "jansky", flux.Unit.Physical())
	require.False(t, flux.Unit.Symbolic())
}

func TestRoundTripAllDTypes(t *testing.T) {
	tbl := table.New()
	cols := []*table.Column{
		{Name: "i8", Data: table.NumericData[int8]{-1, 0, 127}},
		{Name: "i16", Data: table.NumericData[int16]{-300, 0, 300}},
		{Name: "i64", Data: table.NumericData[int64]{1 << 40, -1, 0}},
		{Name: "u8", Data: table.NumericData[uint8]{0, 128, 255}},
		{Name: "u32", Data: table.NumericData[uint32]{0, 1 << 30, 7}},
		{Name: "u64", Data: table.NumericData[uint64]{0, 1 << 60, 9}},
		{Name: "f32", Data: table.NumericData[float32]{-1.5, 0, 3.25}},
		{Name: "b", Data: table.BoolData{true, false, true}},
		{Name: "s", Data: table.TextData{"x", "", "longer string"}},
	}
	for _, c := range cols {
		require.NoError(t, tbl.AddColumn(c))
	}

	dir := filepath.Join(t.TempDir(), "all-dtypes")
	require.NoError(t, Write(tbl, dir))

	res, err := Read(dir)
	require.NoError(t, err)
	defer res.Close()

	for _, want := range cols {
		got, ok := res.Table.Column(want.Name)
		require.True(t, ok, "column %s", want.Name)
		require.Equal(t, want.Data, got.Data, "column %s", want.Name)
	}
	require.False(t, res.Table.Masked)
}

func TestSharedBufferGrouping(t *testing.T) {
	// Two int32 and two text columns must land in one backing file per key
	tbl := table.New()
	require.NoError(t, tbl.AddColumn(&table.Column{Name: "a", Data: table.NumericData[int32]{1, 2}}))
	require.NoError(t, tbl.AddColumn(&table.Column{Name: "t1", Data: table.TextData{"p", "q"}}))
	require.NoError(t, tbl.AddColumn(&table.Column{Name: "b", Data: table.NumericData[int32]{3, 4}}))
	require.NoError(t, tbl.AddColumn(&table.Column{Name: "t2", Data: table.TextData{"r", "s"}}))

	dir := filepath.Join(t.TempDir(), "grouped")
	require.NoError(t, Write(tbl, dir))

	m, err := loadManifest(dir)
	require.NoError(t, err)

	files := map[string][]ColumnEntry{}
	for _, c := range m.Columns {
		files[c.File] = append(files[c.File], c)
	}
	require.Len(t, files, 2)
	require.Len(t, files["data.int32.npy"], 2)
	require.Len(t, files["data.text.json"], 2)

	// Ranges within one backing file are contiguous and gapless in write order
	for _, entries := range files {
		next := 0
		for _, e := range entries {
			require.Equal(t, next, e.Offset)
			next = e.Offset + e.Length
		}
	}

	res, err := Read(dir)
	require.NoError(t, err)
	defer res.Close()
	b, _ := res.Table.Column("b")
	require.Equal(t, table.NumericData[int32]{3, 4}, b.Data)
	t2, _ := res.Table.Column("t2")
	require.Equal(t, table.TextData{"r", "s"}, t2.Data)
}

func TestMaskOffsetsSharedAcrossKeys(t *testing.T) {
	// The mask buffer is shared table-wide: offsets accumulate across
	// storage-type keys in column order, and unmasked columns are skipped.
	tbl := table.New()
	require.NoError(t, tbl.AddColumn(&table.Column{
		Name: "x", Data: table.NumericData[int64]{1, 2, 3},
		Mask: []bool{true, false, false},
	}))
	require.NoError(t, tbl.AddColumn(&table.Column{
		Name: "clean", Data: table.NumericData[int64]{4, 5, 6},
		Mask: []bool{false, false, false},
	}))
	require.NoError(t, tbl.AddColumn(&table.Column{
		Name: "s", Data: table.TextData{"a", "b", "c"},
		Mask: []bool{false, true, false},
	}))

	dir := filepath.Join(t.TempDir(), "masks")
	require.NoError(t, Write(tbl, dir))

	m, err := loadManifest(dir)
	require.NoError(t, err)
	require.True(t, m.Masked)

	byName := map[string]ColumnEntry{}
	for _, c := range m.Columns {
		byName[c.Name] = c
	}
	require.NotNil(t, byName["x"].MaskOffset)
	require.Equal(t, 0, *byName["x"].MaskOffset)
	// A column with no invalid entries omits maskoffset entirely
	require.Nil(t, byName["clean"].MaskOffset)
	require.NotNil(t, byName["s"].MaskOffset)
	require.Equal(t, 3, *byName["s"].MaskOffset)

	res, err := Read(dir)
	require.NoError(t, err)
	defer res.Close()

	x, _ := res.Table.Column("x")
	require.Equal(t, []bool{true, false, false}, x.Mask)
	// Absent maskoffset reads back as fully valid
	clean, _ := res.Table.Column("clean")
	require.Nil(t, clean.Mask)
	s, _ := res.Table.Column("s")
	require.Equal(t, []bool{false, true, false}, s.Mask)
}

func TestSelectiveRead(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "subset")
	require.NoError(t, Write(sampleTable(t), dir))

	res, err := Read(dir, WithColumns("flux", "id"))
	require.NoError(t, err)
	defer res.Close()

	// Subset order defines output order
	require.Equal(t, []string{"flux", "id"}, res.Table.Names())

	full, err := Read(dir)
	require.NoError(t, err)
	defer full.Close()

	for _, name := range []string{"flux", "id"} {
		sub, _ := res.Table.Column(name)
		want, _ := full.Table.Column(name)
		if name == "flux" {
			subVals := sub.Data.(table.NumericData[float64])
			wantVals := want.Data.(table.NumericData[float64])
			require.Equal(t, wantVals[:2], subVals[:2])
			require.True(t, math.IsNaN(subVals[2]))
		} else {
			require.Equal(t, want.Data, sub.Data)
		}
		require.Equal(t, want.Mask, sub.Mask)
	}
}

func TestSelectiveReadSkipsUnrelatedFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "pushdown")
	require.NoError(t, Write(sampleTable(t), dir))

	// Corrupt the float64 backing file; reading only id and name must not
	// open it and therefore still succeed.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.float64.npy"), []byte("garbage"), 0o644))

	res, err := Read(dir, WithColumns("id", "name"))
	require.NoError(t, err)
	defer res.Close()
	require.Equal(t, []string{"id", "name"}, res.Table.Names())

	_, err = Read(dir, WithColumns("flux"))
	require.Error(t, err)
}

func TestSelectiveReadUnknownColumn(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	require.NoError(t, Write(sampleTable(t), dir))

	_, err := Read(dir, WithColumns("id", "nope"))
	require.Error(t, err)
	require.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestWriteExistingDirectoryConflicts(t *testing.T) {
	dir := t.TempDir()
	keep := filepath.Join(dir, "keep.txt")
	require.NoError(t, os.WriteFile(keep, []byte("precious"), 0o644))

	err := Write(sampleTable(t), dir)
	require.Error(t, err)
	require.True(t, errors.IsType(err, errors.ErrorTypeConflict))

	// Existing contents are untouched and no manifest appeared
	data, err := os.ReadFile(keep)
	require.NoError(t, err)
	require.Equal(t, "precious", string(data))
	require.False(t, IsDataset(dir))
}

func TestWriteResumesInProgressDirectory(t *testing.T) {
	// A directory containing only the temporary manifest is an interrupted
	// write; a new write to it must succeed and commit.
	dir := filepath.Join(t.TempDir(), "resume")
	require.NoError(t, os.Mkdir(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestTempName), []byte("{}"), 0o644))
	require.False(t, IsDataset(dir))

	require.NoError(t, Write(sampleTable(t), dir))
	require.True(t, IsDataset(dir))

	res, err := Read(dir)
	require.NoError(t, err)
	defer res.Close()
	require.Equal(t, 3, res.Table.Rows())
}

func TestUncommittedDatasetIsNotReadable(t *testing.T) {
	// Simulate an interruption between directory creation and commit
	dir := filepath.Join(t.TempDir(), "partial")
	require.NoError(t, os.Mkdir(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestTempName), []byte(`{"meta":{},"masked":false,"columns":[]}`), 0o644))

	require.False(t, IsDataset(dir))
	_, err := Read(dir)
	require.Error(t, err)
	require.True(t, errors.IsType(err, errors.ErrorTypeFile))
}

func TestMaskFileAbsentWhenNoInvalidEntries(t *testing.T) {
	tbl := table.New()
	require.NoError(t, tbl.AddColumn(&table.Column{
		Name: "v", Data: table.NumericData[float64]{1, 2},
		Mask: []bool{false, false},
	}))
	require.True(t, tbl.Masked)

	dir := filepath.Join(t.TempDir(), "nomaskfile")
	require.NoError(t, Write(tbl, dir))

	_, err := os.Stat(filepath.Join(dir, MaskFilename))
	require.True(t, os.IsNotExist(err))

	res, err := Read(dir)
	require.NoError(t, err)
	defer res.Close()
	// The masked flag round-trips even though no mask file exists
	require.True(t, res.Table.Masked)
	v, _ := res.Table.Column("v")
	require.Nil(t, v.Mask)
}

func TestSymbolicUnitFallback(t *testing.T) {
	tbl := table.New()
	require.NoError(t, tbl.AddColumn(&table.Column{
		Name: "odd",
		Data: table.NumericData[int16]{1},
		Unit: units.Resolve("furlongs-per-fortnight"),
	}))

	dir := filepath.Join(t.TempDir(), "symbolic")
	require.NoError(t, Write(tbl, dir))

	res, err := Read(dir)
	require.NoError(t, err)
	defer res.Close()

	odd, _ := res.Table.Column("odd")
	require.NotNil(t, odd.Unit)
	require.True(t, odd.Unit.Symbolic())
	require.Equal(t, "furlongs-per-fortnight", odd.Unit.String())

	// Resolution is cached process-wide: same handle for the same string
	require.Same(t, odd.Unit, units.Resolve("furlongs-per-fortnight"))
}

func TestManifestOffsetInvariant(t *testing.T) {
	tbl := table.New()
	require.NoError(t, tbl.AddColumn(&table.Column{Name: "a", Data: table.NumericData[float64]{1, 2, 3}}))
	require.NoError(t, tbl.AddColumn(&table.Column{Name: "b", Data: table.NumericData[float64]{4, 5}}))
	require.NoError(t, tbl.AddColumn(&table.Column{Name: "c", Data: table.NumericData[float64]{6}}))

	dir := filepath.Join(t.TempDir(), "offsets")
	err := tbl.AddColumn(&table.Column{Name: "dup", Data: table.NumericData[float64]{0}})
	require.Error(t, err) // row count mismatch guards the fixture
	require.NoError(t, Write(tbl, dir))

	m, err := loadManifest(dir)
	require.NoError(t, err)

	// Pairwise disjoint [offset, offset+length) ranges per file
	type extent struct{ lo, hi int }
	seen := map[string][]extent{}
	for _, c := range m.Columns {
		for _, e := range seen[c.File] {
			overlap := c.Offset < e.hi && e.lo < c.Offset+c.Length
			require.False(t, overlap, "column %s overlaps", c.Name)
		}
		seen[c.File] = append(seen[c.File], extent{c.Offset, c.Offset + c.Length})
	}
}

func TestDatasetFilesOnDisk(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "layout")
	require.NoError(t, Write(sampleTable(t), dir))

	for _, name := range []string{ManifestName, "data.int32.npy", "data.float64.npy", "data.text.json", MaskFilename} {
		_, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, "expected %s", name)
	}
	_, err := os.Stat(filepath.Join(dir, ManifestTempName))
	require.True(t, os.IsNotExist(err), "temporary manifest must not survive commit")
}

func TestEmptyTextValuesReadAsNull(t *testing.T) {
	// Datasets written by other producers may store null for missing text
	dir := filepath.Join(t.TempDir(), "nulls")
	tbl := table.New()
	require.NoError(t, tbl.AddColumn(&table.Column{
		Name: "s", Data: table.TextData{"x", "y"},
		Mask: []bool{false, true},
	}))
	require.NoError(t, Write(tbl, dir))

	// Rewrite the text payload with an explicit null
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.text.json"), []byte(`["x",null]`), 0o644))

	res, err := Read(dir)
	require.NoError(t, err)
	defer res.Close()

	s, _ := res.Table.Column("s")
	require.Equal(t, table.TextData{"x", ""}, s.Data)
	require.Equal(t, []bool{false, true}, s.Mask)
}

func TestReadReleasesMappingsOnError(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "relerr")
	require.NoError(t, Write(sampleTable(t), dir))

	// Truncate the mask file so mask overlay fails after data files opened
	require.NoError(t, os.WriteFile(filepath.Join(dir, MaskFilename), []byte("\x93NUMPY"), 0o644))

	_, err := Read(dir)
	require.Error(t, err)
	require.True(t, errors.IsType(err, errors.ErrorTypeData))
}

func TestTypeGrouperKeys(t *testing.T) {
	cases := []struct {
		data table.Data
		want dtype.DType
		file string
	}{
		{table.NumericData[int32]{1}, dtype.Int32, "data.int32.npy"},
		{table.NumericData[float64]{1}, dtype.Float64, "data.float64.npy"},
		{table.BoolData{true}, dtype.Bool, "data.bool.npy"},
		{table.TextData{"s"}, dtype.Text, "data.text.json"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, tc.data.DType())
		require.Equal(t, tc.file, tc.data.DType().Filename())
	}
}
