package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/bintable/internal/convert"
	"github.com/ajitpratap0/bintable/pkg/config"
	"github.com/ajitpratap0/bintable/pkg/formats"
	"github.com/ajitpratap0/bintable/pkg/logger"

	// Import all available format front-ends to register them
	_ "github.com/ajitpratap0/bintable/pkg/formats/arrowipc"
	_ "github.com/ajitpratap0/bintable/pkg/formats/avro"
	_ "github.com/ajitpratap0/bintable/pkg/formats/csv"
	_ "github.com/ajitpratap0/bintable/pkg/formats/votable"
)

var version = "0.1.0"

func main() {
	root := &cobra.Command{
		Use:   "bintable",
		Short: "bintable - columnar table storage and conversion",
		Long: `bintable stores tables of typed columns in a compact directory layout and
converts between that layout and common interchange formats.`,
	}

	// Version command
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("bintable v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	// List command to show registered format front-ends
	root.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available table formats",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Available formats:")
			fmt.Printf("  - %s (native dataset directory)\n", convert.DatasetFormat)
			for _, name := range formats.Names() {
				fmt.Printf("  - %s\n", name)
			}
		},
	})

	var (
		input         string
		inputType     string
		inputTruncate int
		inputColumns  string
		output        string
		outputType    string
		configFile    string
		logLevel      string
	)

	convertCmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a table between formats",
		Long: `Convert a table from one format to another. Formats are inferred from the
paths when not given explicitly: a directory with a committed manifest reads as
a native dataset, known file extensions pick their format, and an extensionless
output path writes a native dataset. Compression suffixes (.gz, .zst, .lz4,
.sz, .s2) are handled transparently on file inputs and outputs.

Example:
  bintable convert -i catalog.vot -o catalog
  bintable convert -i catalog --input-columns ra,dec -o subset.csv.gz`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if configFile != "" {
				if err := config.Load(configFile, cfg); err != nil {
					return err
				}
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			if err := logger.Init(logger.Config{
				Level:    cfg.Log.Level,
				Encoding: cfg.Log.Encoding,
			}); err != nil {
				return err
			}
			defer logger.Sync()

			opts := convert.Options{
				Input:         input,
				InputType:     inputType,
				InputTruncate: inputTruncate,
				Output:        output,
				OutputType:    outputType,
			}
			if opts.InputType == "" {
				opts.InputType = cfg.Convert.InputType
			}
			if opts.OutputType == "" {
				opts.OutputType = cfg.Convert.OutputType
			}
			if inputColumns != "" {
				for _, name := range strings.Split(inputColumns, ",") {
					opts.InputColumns = append(opts.InputColumns, strings.TrimSpace(name))
				}
			}
			return convert.Run(context.Background(), opts)
		},
	}

	convertCmd.Flags().StringVarP(&input, "input", "i", "", "Input path: dataset directory or table file (required)")
	convertCmd.Flags().StringVarP(&output, "output", "o", "", "Output path: dataset directory or table file (required)")
	_ = convertCmd.MarkFlagRequired("input")
	_ = convertCmd.MarkFlagRequired("output")

	convertCmd.Flags().StringVar(&inputType, "input-type", "", "Input format, overrides autodetection")
	convertCmd.Flags().IntVar(&inputTruncate, "input-truncate", 0, "Read at most this many bytes of the input, cut at a row boundary (votable only)")
	convertCmd.Flags().StringVar(&inputColumns, "input-columns", "", "Comma-separated column subset to read (dataset input only)")
	convertCmd.Flags().StringVar(&outputType, "output-type", "", "Output format, overrides autodetection")
	convertCmd.Flags().StringVar(&configFile, "config", "", "Path to YAML config file (optional)")
	convertCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	root.AddCommand(convertCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
