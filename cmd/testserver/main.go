// Command testserver runs a single simulated node on a bus, for
// exercising a client implementation without real hardware.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcejp/devprop/busdsn"
	"github.com/mcejp/devprop/canframe"
	"github.com/mcejp/devprop/clog"
	"github.com/mcejp/devprop/config"
	"github.com/mcejp/devprop/fixtureserver"
	"github.com/mcejp/devprop/manifest"
)

func main() {
	var bus string

	root := &cobra.Command{
		Use:   "testserver <manifest> <node-id>",
		Short: "Run a fixture device on a bus",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			nodeID, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("testserver: node ID %q is not an integer: %w", args[1], err)
			}
			return run(bus, args[0], canframe.NodeID(nodeID))
		},
	}

	root.Flags().StringVarP(&bus, "bus", "b", "", `bus DSN, e.g. "ocarina:/dev/ttyACM0"`)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(bus, manifestPath string, nodeID canframe.NodeID) error {
	log := clog.NewLogger("testserver")
	log.LogMode(true)

	envelope, err := loadEnvelope(manifestPath)
	if err != nil {
		return err
	}

	cfg := config.DefaultConfig()
	if err := cfg.Valid(); err != nil {
		return err
	}

	tp, err := busdsn.Open(bus, cfg, log)
	if err != nil {
		return err
	}
	defer tp.Close()

	fmt.Printf("listening as node %d\n", nodeID)

	s := fixtureserver.New(nodeID, envelope, log)
	return fixtureserver.Run(tp, s)
}

func loadEnvelope(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("testserver: reading %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		m, err := manifest.ParseManifestYAML(raw)
		if err != nil {
			return nil, fmt.Errorf("testserver: parsing %s: %w", path, err)
		}
		envelope, err := manifest.AddEnvelope(manifest.SerializeManifestDraftCSV(m), manifest.DraftCSVZlib)
		if err != nil {
			return nil, fmt.Errorf("testserver: enveloping %s: %w", path, err)
		}
		return envelope, nil
	default:
		// Assume the file already holds a pre-enveloped binary manifest.
		return raw, nil
	}
}
