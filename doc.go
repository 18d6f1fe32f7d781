// Package bintable implements a compact columnar storage layout for tables
// of typed scientific data, together with converters to and from common
// interchange formats.
//
// A table is an ordered set of named columns. Every column has a fixed-width
// numeric, boolean or text element type, an optional validity mask, and an
// optional physical unit. Tables persist as a directory: a JSON manifest plus
// one shared backing file per element type, with all columns of a type packed
// back to back into the same file. Numeric backing files use the NPY
// container so the payloads are directly readable by the scientific Python
// stack.
//
// # Layout
//
//	catalog/
//	    bintable.json        manifest: metadata and column extents
//	    data.int32.npy       every int32 column, concatenated
//	    data.float64.npy     every float64 column, concatenated
//	    data.text.json       every text column, concatenated
//	    mask.npy             shared validity mask, present only when needed
//
// Writes are atomic: the manifest is staged under a temporary name and
// renamed into place once every backing file is on disk. A directory without
// the final manifest is not a dataset.
//
// Reads are lazy and zero-copy. Backing files are memory mapped on first
// use, numeric payloads are reinterpreted in place, and a column subset can
// be requested so unrelated backing files are never opened.
//
// # Quick Start
//
// Write and re-read a dataset:
//
//	t := table.New()
//	_ = t.AddColumn(&table.Column{Name: "flux", Data: table.NumericData[float64]{1.5, 2.5}})
//	if err := bintable.Write(t, "catalog"); err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := bintable.Read("catalog", bintable.WithColumns("flux"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer res.Close()
//
// The bintable command converts between the dataset layout and VOTable,
// CSV, Arrow IPC and Avro files:
//
//	bintable convert -i catalog.vot -o catalog
//	bintable convert -i catalog --input-columns ra,dec -o subset.csv.gz
package bintable
