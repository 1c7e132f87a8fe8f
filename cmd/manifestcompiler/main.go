// Command manifestcompiler turns a YAML or draft-CSV property manifest
// into a validated, enveloped, wire-ready byte string.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcejp/devprop/canframe"
	"github.com/mcejp/devprop/clog"
	"github.com/mcejp/devprop/manifest"
)

// ErrNotImplemented is returned by the code-generation dispatch point.
// Template-based code generation itself is out of scope for this tool;
// only the CLI surface that would dispatch to it is implemented.
var ErrNotImplemented = errors.New("manifestcompiler: code generation is not implemented")

func main() {
	var outputPath string
	var outputDir string
	var generateLang string
	var nodeID int

	root := &cobra.Command{
		Use:   "manifestcompiler <path>",
		Short: "Compile a property manifest into its wire envelope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], outputPath, outputDir, generateLang, nodeID)
		},
	}

	root.Flags().StringVarP(&outputPath, "output", "o", "", "write the envelope to this file")
	root.Flags().StringVarP(&outputDir, "output-dir", "O", ".", "directory for generated code")
	root.Flags().StringVar(&generateLang, "generate-lang", "", `code generation target, currently only "C" is recognized`)
	root.Flags().IntVar(&nodeID, "node-id", -1, "node ID to bake into generated code")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(path, outputPath, outputDir, generateLang string, nodeID int) error {
	log := clog.NewLogger("manifestcompiler")
	log.LogMode(true)

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("manifestcompiler: reading %s: %w", path, err)
	}

	var m manifest.Manifest
	var manifestPayload []byte

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		m, err = manifest.ParseManifestYAML(raw)
		if err != nil {
			return fmt.Errorf("manifestcompiler: parsing %s: %w", path, err)
		}
		manifestPayload = manifest.SerializeManifestDraftCSV(m)
	default:
		manifestPayload = raw
		m, err = manifest.ParseManifestDraftCSV(raw)
		if err != nil {
			return fmt.Errorf("manifestcompiler: parsing %s: %w", path, err)
		}
	}

	if errs := manifest.ValidateManifest(m); errs != nil {
		for _, e := range errs.Errors {
			log.Error("manifest validation error: %v", e)
		}
	}

	envelope, err := manifest.AddEnvelope(manifestPayload, manifest.DraftCSVZlib)
	if err != nil {
		return fmt.Errorf("manifestcompiler: enveloping: %w", err)
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, envelope, 0o644); err != nil {
			return fmt.Errorf("manifestcompiler: writing %s: %w", outputPath, err)
		}
	}

	uncompressedLength := manifest.HeaderLength + len(manifestPayload)
	fmt.Printf("(uncompressed wire length: %d bytes = %d segments)\n", uncompressedLength, segments(uncompressedLength))
	fmt.Printf("manifest wire length: %d bytes = %d segments\n", len(envelope), segments(len(envelope)))

	if generateLang != "" {
		if generateLang != "C" || nodeID < 0 {
			return fmt.Errorf("manifestcompiler: --generate-lang C requires --node-id")
		}
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return fmt.Errorf("manifestcompiler: creating %s: %w", outputDir, err)
		}
		return ErrNotImplemented
	}

	return nil
}

func segments(n int) int {
	return (n + canframe.SegmentSize - 1) / canframe.SegmentSize
}
