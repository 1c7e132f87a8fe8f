// Package client implements the high-level facade a caller drives to
// enumerate nodes on the bus and read or write their properties, layering
// retry and deadline policy on top of the statemachine package's bare
// protocol exchanges.
package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mcejp/devprop/canframe"
	"github.com/mcejp/devprop/clog"
	"github.com/mcejp/devprop/config"
	"github.com/mcejp/devprop/manifest"
	"github.com/mcejp/devprop/propval"
	"github.com/mcejp/devprop/statemachine"
	"github.com/mcejp/devprop/transport"
)

// Client is the facade applications use to talk to devices on a bus
// through a single Transport.
type Client struct {
	transport transport.Transport
	log       clog.Clog
	config    config.ClientConfig
}

// New validates cfg and constructs a Client driving tp. log is used for
// every diagnostic the facade emits; the facade never reaches for a
// package-level logger.
func New(tp transport.Transport, cfg config.ClientConfig, log clog.Clog) (*Client, error) {
	if err := cfg.Valid(); err != nil {
		return nil, fmt.Errorf("client: %w", err)
	}
	return &Client{transport: tp, log: log, config: cfg}, nil
}

// driveWithRetries runs sm to completion, retrying from scratch up to
// config.TransportRetries additional times when the underlying transport
// itself fails (as opposed to a protocol-level error or an exhausted
// deadline, neither of which a retry can fix).
func (c *Client) driveWithRetries(ctx context.Context, sm statemachine.StateMachine, timeout time.Duration) error {
	attempts := c.config.TransportRetries + 1

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		deadline := time.Now().Add(timeout)
		err := statemachine.Drive(c.transport, sm, deadline)
		if err == nil {
			return nil
		}

		if errors.Is(err, transport.ErrTransport) && attempt < attempts-1 {
			c.log.Warn("client: transport error, retrying (%d/%d): %v", attempt+1, attempts-1, err)
			lastErr = err
			continue
		}

		return err
	}

	return lastErr
}

// EnumerateNodes broadcasts a segment-0 manifest read to every possible
// node address, collects replies until timeout elapses, then downloads
// and parses each responding node's full manifest. A node whose download
// or manifest fails is logged and excluded from the result; it does not
// fail the whole call.
func (c *Client) EnumerateNodes(ctx context.Context, timeout time.Duration) ([]Node, error) {
	if timeout == 0 {
		timeout = c.config.EnumerateTimeout
	}

	for nodeID := canframe.NodeID(canframe.MinNodeID); nodeID <= canframe.MaxNodeID; nodeID++ {
		f, err := canframe.MakeReadManifestRequest(nodeID, 0)
		if err != nil {
			continue
		}
		if err := c.transport.Send(f); err != nil {
			return nil, fmt.Errorf("client: broadcasting enumerate request: %w", err)
		}
	}

	deadline := time.Now().Add(timeout)
	firstReplies := make(map[canframe.NodeID]canframe.Frame)

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		f, err := c.transport.Receive(deadline)
		if err != nil {
			if errors.Is(err, transport.ErrTimeout) {
				break
			}
			return nil, fmt.Errorf("client: collecting enumerate replies: %w", err)
		}

		nodeID, segment, opcode, dir, err := canframe.Unpack(f.ID)
		if err != nil || dir != canframe.DeviceToClient || opcode != canframe.ReadManifest || segment != 0 {
			continue
		}

		if _, seen := firstReplies[nodeID]; !seen {
			firstReplies[nodeID] = f
		}
	}

	var nodes []Node
	for nodeID, firstReply := range firstReplies {
		dl := statemachine.NewManifestDownload(nodeID)
		if _, err := dl.FrameReceived(firstReply); err != nil {
			c.log.Warn("client: node %d rejected its own segment-0 reply: %v", nodeID, err)
			continue
		}

		if err := c.driveWithRetries(ctx, dl, timeout); err != nil {
			c.log.Warn("client: node %d manifest download failed: %v", nodeID, err)
			continue
		}

		m, err := manifest.ParseEnvelopedManifest(dl.Envelope())
		if err != nil {
			c.log.Warn("client: node %d manifest invalid: %v", nodeID, err)
			continue
		}

		nodes = append(nodes, Node{NodeID: nodeID, Manifest: m})
	}

	return nodes, nil
}

// GetProperty reads property from node and decodes it to its physical
// value. A timeout of zero uses config.DefaultTimeout.
func (c *Client) GetProperty(ctx context.Context, node Node, property manifest.Property, timeout time.Duration) (float64, error) {
	if timeout == 0 {
		timeout = c.config.DefaultTimeout
	}

	q := statemachine.NewPropertyQuery(node.NodeID, property.Index)
	if err := c.driveWithRetries(ctx, q, timeout); err != nil {
		return 0, fmt.Errorf("client: reading %s.%s: %w", node.AddressStr(), property.Name, err)
	}

	offset, scale, min, max, err := property.ParsedLimits()
	if err != nil {
		return 0, err
	}

	physical, inRange, err := propval.Decode(property.Type, q.Value(), offset, scale, min, max)
	if err != nil {
		return 0, fmt.Errorf("client: decoding %s.%s: %w", node.AddressStr(), property.Name, err)
	}
	if !inRange {
		c.log.Warn("client: %s.%s value %.6g outside documented range", node.AddressStr(), property.Name, physical)
	}

	return physical, nil
}

// SetProperty encodes value and writes it to property on node, returning
// the value the device echoed back (which may differ after rounding to
// the property's raw representation).
func (c *Client) SetProperty(ctx context.Context, node Node, property manifest.Property, value float64, timeout time.Duration) (float64, error) {
	if timeout == 0 {
		timeout = c.config.DefaultTimeout
	}

	offset, scale, min, max, err := property.ParsedLimits()
	if err != nil {
		return 0, err
	}

	raw, err := propval.Encode(property.Type, value, offset, scale, min, max)
	if err != nil {
		return 0, fmt.Errorf("client: encoding %s.%s: %w", node.AddressStr(), property.Name, err)
	}

	q := statemachine.NewPropertyWrite(node.NodeID, property.Index, raw)
	if err := c.driveWithRetries(ctx, q, timeout); err != nil {
		return 0, fmt.Errorf("client: writing %s.%s: %w", node.AddressStr(), property.Name, err)
	}

	echoed, _, err := propval.Decode(property.Type, q.Value(), offset, scale, min, max)
	if err != nil {
		return 0, fmt.Errorf("client: decoding echoed %s.%s: %w", node.AddressStr(), property.Name, err)
	}

	return echoed, nil
}

// PropertyRef names one property on one node, for a batched
// QueryProperties call.
type PropertyRef struct {
	Node     Node
	Property manifest.Property
}

// QueryProperties reads every entry in refs, each against its own fresh
// deadline. A failed entry is logged and contributes nil to the result at
// its original index rather than aborting the batch.
func (c *Client) QueryProperties(ctx context.Context, refs []PropertyRef, timeout time.Duration) []*float64 {
	if timeout == 0 {
		timeout = c.config.DefaultTimeout
	}

	results := make([]*float64, len(refs))
	for i, ref := range refs {
		v, err := c.GetProperty(ctx, ref.Node, ref.Property, timeout)
		if err != nil {
			c.log.Warn("client: querying %s.%s: %v", ref.Node.AddressStr(), ref.Property.Name, err)
			continue
		}
		value := v
		results[i] = &value
	}

	return results
}
