// Command setprop writes a single property on a single named device and
// prints the value the device echoed back.
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
	"github.com/mcejp/devprop/manifest"
)

func main() {
	var bus string
	var debug bool
	var timeoutSec float64
	var device string

	root := &cobra.Command{
		Use:   "setprop <property> <value>",
		Short: "Set one property on one device and print the echoed value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var value float64
			if _, err := fmt.Sscanf(args[1], "%g", &value); err != nil {
				return fmt.Errorf("setprop: value %q is not numeric: %w", args[1], err)
			}
			return run(bus, debug, timeoutSec, device, args[0], value)
		},
	}

	root.Flags().StringVarP(&bus, "bus", "b", "", `bus DSN, e.g. "ocarina:/dev/ttyACM0"`)
	root.Flags().BoolVarP(&debug, "debug", "D", false, "enable debug logging")
	root.Flags().Float64VarP(&timeoutSec, "timeout", "T", 1, "per-request timeout, in seconds")
	root.Flags().StringVarP(&device, "device", "d", "", "device name to target")
	_ = root.MarkFlagRequired("device")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(bus string, debug bool, timeoutSec float64, device, propertyName string, value float64) error {
	log := clog.NewLogger("setprop")
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
	ctx := context.Background()

	nodes, err := cl.EnumerateNodes(ctx, timeout)
	if err != nil {
		return err
	}

	var target *nodeAndProperty
	for _, node := range nodes {
		if node.Manifest.DeviceName != device {
			continue
		}
		property, err := node.Manifest.PropertyByName(propertyName)
		if err != nil {
			return err
		}
		n := node
		target = &nodeAndProperty{node: n, property: property}
		break
	}
	if target == nil {
		return fmt.Errorf("setprop: no device named %q found", device)
	}

	result, err := cl.SetProperty(ctx, target.node, target.property, value, timeout)
	if err != nil {
		return err
	}

	fmt.Printf("%s = %g %s\n", target.node.GetPropertyPath(target.property), result, target.property.Unit)
	return nil
}

type nodeAndProperty struct {
	node     client.Node
	property manifest.Property
}
