// Package convert orchestrates one table conversion: resolve the input,
// read it into a logical table, resolve the output, write it back out.
// Conversions are single-shot and single-threaded; the dataset reader and
// the format front-ends do the heavy lifting.
package convert

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/bintable/pkg/bintable"
	"github.com/ajitpratap0/bintable/pkg/compression"
	"github.com/ajitpratap0/bintable/pkg/errors"
	"github.com/ajitpratap0/bintable/pkg/formats"
	"github.com/ajitpratap0/bintable/pkg/formats/votable"
	"github.com/ajitpratap0/bintable/pkg/logger"
	"github.com/ajitpratap0/bintable/pkg/table"
)

// DatasetFormat is the pseudo format name for the native dataset layout.
// It never appears in the front-end registry; the reader and writer in
// pkg/bintable handle it directly.
const DatasetFormat = "bintable"

// Options declares one conversion
type Options struct {
	// Input is the source path
	Input string
	// InputType forces the input format; empty means autodetect
	InputType string
	// InputTruncate caps the input at a byte budget before parsing.
	// Only meaningful for votable input.
	InputTruncate int
	// InputColumns restricts reading to the named columns. Only
	// meaningful for dataset input.
	InputColumns []string
	// Output is the destination path
	Output string
	// OutputType forces the output format; empty means autodetect
	OutputType string
}

// extensionFormats maps file extensions to registered format names
var extensionFormats = map[string]string{
	".vot":   votable.FormatName,
	".xml":   votable.FormatName,
	".csv":   "csv",
	".arrow": "arrow",
	".avro":  "avro",
}

// Run performs the conversion described by opts
func Run(ctx context.Context, opts Options) error {
	log := logger.Get().With(
		zap.String("input", opts.Input),
		zap.String("output", opts.Output),
	)
	start := time.Now()

	inType, err := resolveInputType(opts)
	if err != nil {
		return err
	}
	outType, err := resolveOutputType(opts)
	if err != nil {
		return err
	}
	if err := validate(opts, inType); err != nil {
		return err
	}
	log.Debug("conversion resolved",
		zap.String("input_format", inType),
		zap.String("output_format", outType))

	t, cleanup, err := readInput(opts, inType)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "conversion canceled")
	}

	if err := writeOutput(opts, outType, t); err != nil {
		return err
	}

	log.Info("conversion complete",
		zap.String("input_format", inType),
		zap.String("output_format", outType),
		zap.Int("rows", t.Rows()),
		zap.Int("columns", len(t.Names())),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// resolveInputType picks the input format: the explicit flag wins, then the
// dataset probe for directories, then the file extension with any
// compression suffix stripped.
func resolveInputType(opts Options) (string, error) {
	if opts.InputType != "" {
		return opts.InputType, nil
	}

	info, err := os.Stat(opts.Input)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrorTypeFile, "probing input %s", opts.Input)
	}
	if info.IsDir() {
		if bintable.IsDataset(opts.Input) {
			return DatasetFormat, nil
		}
		return "", errors.Newf(errors.ErrorTypeConfig,
			"directory %s is not a committed dataset", opts.Input)
	}

	_, trimmed := compression.ForPath(opts.Input)
	if name, ok := extensionFormats[strings.ToLower(filepath.Ext(trimmed))]; ok {
		return name, nil
	}
	return "", errors.Newf(errors.ErrorTypeConfig,
		"cannot infer input format of %s, pass --input-type", opts.Input)
}

// resolveOutputType picks the output format: the explicit flag wins, then
// the file extension, and an extensionless path means a dataset directory.
func resolveOutputType(opts Options) (string, error) {
	if opts.OutputType != "" {
		return opts.OutputType, nil
	}

	_, trimmed := compression.ForPath(opts.Output)
	ext := strings.ToLower(filepath.Ext(trimmed))
	if ext == "" {
		return DatasetFormat, nil
	}
	if name, ok := extensionFormats[ext]; ok {
		return name, nil
	}
	return "", errors.Newf(errors.ErrorTypeConfig,
		"cannot infer output format of %s, pass --output-type", opts.Output)
}

func validate(opts Options, inType string) error {
	if opts.InputTruncate > 0 && inType != votable.FormatName {
		return errors.Newf(errors.ErrorTypeConfig,
			"truncation only applies to votable input, not %s", inType)
	}
	if len(opts.InputColumns) > 0 && inType != DatasetFormat {
		return errors.Newf(errors.ErrorTypeConfig,
			"column selection only applies to dataset input, not %s", inType)
	}
	return nil
}

// readInput reads the input into a logical table. The returned cleanup, when
// non-nil, releases resources the table still aliases and must be called
// after the output is written.
func readInput(opts Options, inType string) (*table.Table, func(), error) {
	if inType == DatasetFormat {
		var ropts []bintable.ReadOption
		if len(opts.InputColumns) > 0 {
			ropts = append(ropts, bintable.WithColumns(opts.InputColumns...))
		}
		res, err := bintable.Read(opts.Input, ropts...)
		if err != nil {
			return nil, nil, err
		}
		return res.Table, func() { _ = res.Close() }, nil
	}

	reader, err := formats.LookupReader(inType)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(opts.Input) //nolint:gosec // G304: File path is controlled by caller and validated
	if err != nil {
		return nil, nil, errors.Wrapf(err, errors.ErrorTypeFile, "opening input %s", opts.Input)
	}
	defer f.Close()

	algo, _ := compression.ForPath(opts.Input)
	stream, err := compression.NewReader(f, algo)
	if err != nil {
		return nil, nil, err
	}
	defer stream.Close()

	if opts.InputTruncate > 0 {
		raw, err := io.ReadAll(stream)
		if err != nil {
			return nil, nil, errors.Wrapf(err, errors.ErrorTypeFile, "reading input %s", opts.Input)
		}
		cut, err := votable.Truncate(raw, opts.InputTruncate)
		if err != nil {
			return nil, nil, err
		}
		t, err := reader.Read(bytes.NewReader(cut))
		return t, nil, err
	}

	t, err := reader.Read(stream)
	return t, nil, err
}

func writeOutput(opts Options, outType string, t *table.Table) error {
	if outType == DatasetFormat {
		return bintable.Write(t, opts.Output)
	}

	writer, err := formats.LookupWriter(outType)
	if err != nil {
		return err
	}

	f, err := os.Create(opts.Output) //nolint:gosec // G304: File path is controlled by caller and validated
	if err != nil {
		return errors.Wrapf(err, errors.ErrorTypeFile, "creating output %s", opts.Output)
	}

	algo, _ := compression.ForPath(opts.Output)
	stream, err := compression.NewWriter(f, algo)
	if err != nil {
		f.Close()
		return err
	}

	if err := writer.Write(stream, t); err != nil {
		stream.Close()
		f.Close()
		return err
	}
	if err := stream.Close(); err != nil {
		f.Close()
		return errors.Wrapf(err, errors.ErrorTypeFile, "flushing output %s", opts.Output)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, errors.ErrorTypeFile, "closing output %s", opts.Output)
	}
	return nil
}
