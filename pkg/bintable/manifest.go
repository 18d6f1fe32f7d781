// Package bintable implements the columnar dataset storage format: a
// directory holding a JSON manifest plus one shared backing file per
// storage-type key and an optional shared mask file. Writes are atomic at
// the manifest rename; reads re-slice memory-mapped backing files without
// copying column payloads.
package bintable

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ajitpratap0/bintable/pkg/errors"
	"github.com/ajitpratap0/bintable/pkg/json"
)

const (
	// ManifestName is the committed manifest filename. Its presence is the
	// sole signal that a dataset directory is complete and readable.
	ManifestName = "bintable.json"
	// ManifestTempName is the uncommitted manifest filename used between
	// the start of a write and the commit rename.
	ManifestTempName = "bintable.json_"
	// MaskFilename holds the concatenated per-row masks of all masked
	// columns, present only when at least one column has invalid entries.
	MaskFilename = "mask.npy"
)

// ColumnEntry locates one column inside the shared backing files
type ColumnEntry struct {
	// Name is the column name
	Name string `json:"name"`
	// File is the backing file name, relative to the dataset directory
	File string `json:"file"`
	// Offset is the element offset of the column within its backing file
	Offset int `json:"offset"`
	// Length is the number of rows
	Length int `json:"length"`
	// Unit is the optional unit string
	Unit string `json:"unit,omitempty"`
	// MaskOffset, when present, is the element offset of the column's
	// full-length mask within the shared mask buffer. Absent means every
	// entry is valid.
	MaskOffset *int `json:"maskoffset,omitempty"`
}

// Manifest indexes a dataset: table metadata, the masked flag, and one entry
// per column in table order.
type Manifest struct {
	Meta    map[string]interface{} `json:"meta"`
	Masked  bool                   `json:"masked"`
	Columns []ColumnEntry          `json:"columns"`
}

// loadManifest parses the committed manifest of a dataset directory
func loadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName)) //nolint:gosec // G304: caller-controlled dataset path
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrorTypeFile, "failed to read manifest in %s", dir)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(err, errors.ErrorTypeData, "malformed manifest in %s", dir)
	}

	for _, c := range m.Columns {
		// Backing files always live directly in the dataset directory
		if strings.ContainsAny(c.File, `/\`) || c.File == "" {
			return nil, errors.Newf(errors.ErrorTypeData, "manifest entry %q references invalid file %q", c.Name, c.File)
		}
		if c.Offset < 0 || c.Length < 0 {
			return nil, errors.Newf(errors.ErrorTypeData, "manifest entry %q has negative extent", c.Name)
		}
	}
	return &m, nil
}

// IsDataset reports whether dir contains a committed dataset manifest
func IsDataset(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ManifestName))
	return err == nil && info.Mode().IsRegular()
}
