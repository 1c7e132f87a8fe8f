package client

import (
	"fmt"

	"github.com/mcejp/devprop/canframe"
	"github.com/mcejp/devprop/manifest"
)

// Node is a device discovered on the bus, together with the manifest it
// published.
type Node struct {
	NodeID   canframe.NodeID
	Manifest manifest.Manifest
}

// AddressStr renders the node's bus address for logging and CLI output.
func (n Node) AddressStr() string {
	return fmt.Sprintf("%d", n.NodeID)
}

// Name returns the device name carried by the node's manifest, qualified
// with the node's bus address to disambiguate multiple devices of the
// same kind.
func (n Node) Name() string {
	return fmt.Sprintf("%s@%s", n.Manifest.DeviceName, n.AddressStr())
}

// GetPropertyPath returns the path under which p is addressed on this
// node, for logging and CLI output.
func (n Node) GetPropertyPath(p manifest.Property) string {
	return fmt.Sprintf("%s/%s", n.Name(), p.Name)
}
