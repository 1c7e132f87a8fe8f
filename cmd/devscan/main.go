// Command devscan enumerates every node reachable on a bus and prints
// each one's device name and property list.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcejp/devprop/busdsn"
	"github.com/mcejp/devprop/client"
	"github.com/mcejp/devprop/clog"
	"github.com/mcejp/devprop/config"
)

func main() {
	var bus string
	var debug bool
	var timeoutSec float64

	root := &cobra.Command{
		Use:   "devscan",
		Short: "Enumerate devices on a bus and list their properties",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(bus, debug, timeoutSec)
		},
	}

	root.Flags().StringVarP(&bus, "bus", "b", "", `bus DSN, e.g. "ocarina:/dev/ttyACM0"`)
	root.Flags().BoolVarP(&debug, "debug", "D", false, "enable debug logging")
	root.Flags().Float64VarP(&timeoutSec, "timeout", "T", 1, "per-request timeout, in seconds")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(bus string, debug bool, timeoutSec float64) error {
	log := clog.NewLogger("devscan")
	log.LogMode(debug)

	cfg := config.DefaultConfig()
	if err := cfg.Valid(); err != nil {
		return err
	}

	tp, err := busdsn.Open(bus, cfg, log)
	if err != nil {
		return err
	}
	defer tp.Close()

	cl, err := client.New(tp, cfg, log)
	if err != nil {
		return err
	}

	timeout := time.Duration(timeoutSec * float64(time.Second))
	nodes, err := cl.EnumerateNodes(context.Background(), timeout)
	if err != nil {
		return err
	}

	fmt.Println("Detected nodes:")
	for _, node := range nodes {
		fmt.Printf("- node ID: %s\n", node.AddressStr())
		fmt.Printf("  device: %s\n", node.Name())
		for _, prop := range node.Manifest.Properties {
			fmt.Printf("  property: %s (%s)\n", prop.Name, prop.Type)
		}
	}

	return nil
}
