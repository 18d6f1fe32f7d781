package bintable

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ajitpratap0/bintable/pkg/dtype"
	"github.com/ajitpratap0/bintable/pkg/errors"
	"github.com/ajitpratap0/bintable/pkg/json"
	"github.com/ajitpratap0/bintable/pkg/logger"
	"github.com/ajitpratap0/bintable/pkg/metrics"
	"github.com/ajitpratap0/bintable/pkg/npy"
	"github.com/ajitpratap0/bintable/pkg/table"
)

// Write persists a table as a new dataset at path. The write is
// all-or-nothing: every backing file and the mask file are fully written
// before the manifest is renamed to its committed name, and a failure at any
// earlier step leaves only the temporary manifest and partial data files,
// never a committed manifest.
//
// The target directory must either not exist yet or contain the temporary
// manifest of a previous interrupted write; anything else is a conflict.
func Write(t *table.Table, path string) error {
	timer := metrics.NewTimer(metrics.WriteDuration)
	defer timer.Stop()

	log := logger.With(zap.String("dataset", path))

	accs := make(map[dtype.DType]*bufferAccumulator)
	var keyOrder []dtype.DType
	masks := &maskAccumulator{}

	m := &Manifest{
		Meta:    t.Meta,
		Masked:  t.Masked,
		Columns: make([]ColumnEntry, 0, len(t.Columns())),
	}
	if m.Meta == nil {
		m.Meta = map[string]interface{}{}
	}

	for _, col := range t.Columns() {
		key := col.Data.DType()
		if !key.Valid() {
			return errors.Newf(errors.ErrorTypeValidation, "column %q has unsupported dtype %q", col.Name, key)
		}

		acc, ok := accs[key]
		if !ok {
			acc = newBufferAccumulator(key)
			accs[key] = acc
			keyOrder = append(keyOrder, key)
		}

		offset, err := acc.append(col.Data)
		if err != nil {
			return err
		}

		entry := ColumnEntry{
			Name:   col.Name,
			File:   acc.filename,
			Offset: offset,
			Length: col.Len(),
		}
		if t.Masked && col.HasMask() {
			if len(col.Mask) != col.Len() {
				return errors.Newf(errors.ErrorTypeValidation,
					"column %q mask length %d does not match data length %d", col.Name, len(col.Mask), col.Len())
			}
			mo := masks.append(col.Mask)
			entry.MaskOffset = &mo
		}
		if col.Unit != nil {
			entry.Unit = col.Unit.String()
		}
		m.Columns = append(m.Columns, entry)
	}

	// The directory may only pre-exist when it holds the temporary
	// manifest of an interrupted write.
	if _, err := os.Stat(path); err == nil {
		if _, err := os.Stat(filepath.Join(path, ManifestTempName)); err != nil {
			return errors.Newf(errors.ErrorTypeConflict, "path %s already exists and is not an in-progress dataset", path)
		}
	} else if !os.IsNotExist(err) {
		return errors.Wrapf(err, errors.ErrorTypeFile, "failed to stat %s", path)
	} else if err := os.Mkdir(path, 0o755); err != nil {
		return errors.Wrapf(err, errors.ErrorTypeFile, "failed to create dataset directory %s", path)
	}

	// Manifest goes to its temporary name first; the final name appears
	// only at the commit rename below.
	manifestData, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to encode manifest")
	}
	tempPath := filepath.Join(path, ManifestTempName)
	if err := os.WriteFile(tempPath, manifestData, 0o644); err != nil {
		return errors.Wrapf(err, errors.ErrorTypeFile, "failed to write %s", ManifestTempName)
	}

	if !masks.empty() {
		flat := make(table.BoolData, 0, masks.length)
		for _, chunk := range masks.chunks {
			flat = append(flat, chunk...)
		}
		if err := writeNumericFile(filepath.Join(path, MaskFilename), dtype.Bool, masks.length, [][]byte{flat.Bytes()}); err != nil {
			return err
		}
	}

	for _, key := range keyOrder {
		acc := accs[key]
		target := filepath.Join(path, acc.filename)
		if key == dtype.Text {
			payload, err := json.Marshal(acc.values)
			if err != nil {
				return errors.Wrap(err, errors.ErrorTypeData, "failed to encode text payload")
			}
			if err := os.WriteFile(target, payload, 0o644); err != nil {
				return errors.Wrapf(err, errors.ErrorTypeFile, "failed to write %s", acc.filename)
			}
			metrics.BytesWritten.Add(float64(len(payload)))
		} else {
			if err := writeNumericFile(target, key, acc.length, acc.chunks); err != nil {
				return err
			}
		}
		metrics.RowsWritten.WithLabelValues(key.String()).Add(float64(acc.length))
		log.Debug("backing file written",
			zap.String("file", acc.filename),
			zap.Int("rows", acc.length))
	}

	// Commit point: after this rename the dataset is visible and immutable
	if err := os.Rename(tempPath, filepath.Join(path, ManifestName)); err != nil {
		return errors.Wrapf(err, errors.ErrorTypeFile, "failed to commit manifest in %s", path)
	}

	metrics.DatasetsWritten.Inc()
	log.Debug("dataset committed",
		zap.Int("columns", len(m.Columns)),
		zap.Int("rows", t.Rows()),
		zap.Bool("masked", m.Masked))
	return nil
}

// writeNumericFile serializes one npy backing file from concatenated chunks,
// syncing before close so the payload is durable ahead of the commit rename.
func writeNumericFile(path string, d dtype.DType, count int, chunks [][]byte) (err error) {
	f, err := os.Create(path) //nolint:gosec // G304: path derives from the storage key
	if err != nil {
		return errors.Wrapf(err, errors.ErrorTypeFile, "failed to create %s", path)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = errors.Wrapf(closeErr, errors.ErrorTypeFile, "failed to close %s", path)
		}
	}()

	if err := npy.EncodeHeader(f, d, count); err != nil {
		return err
	}
	var written int64
	for _, chunk := range chunks {
		n, err := f.Write(chunk)
		if err != nil {
			return errors.Wrapf(err, errors.ErrorTypeFile, "failed to write %s", path)
		}
		written += int64(n)
	}
	if err := f.Sync(); err != nil {
		return errors.Wrapf(err, errors.ErrorTypeFile, "failed to sync %s", path)
	}
	metrics.BytesWritten.Add(float64(written))
	return nil
}
