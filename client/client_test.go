package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcejp/devprop/canframe"
	"github.com/mcejp/devprop/clog"
	"github.com/mcejp/devprop/config"
	"github.com/mcejp/devprop/manifest"
	"github.com/mcejp/devprop/propval"
	"github.com/mcejp/devprop/transport"
)

// fakeDevice simulates a single node answering manifest and property
// traffic synchronously out of an in-memory queue, enough to exercise the
// facade without a real bus.
type fakeDevice struct {
	nodeID   canframe.NodeID
	envelope []byte
	value    []byte

	outbound []canframe.Frame
}

func newFakeDevice(t *testing.T, nodeID canframe.NodeID, m manifest.Manifest, value []byte) *fakeDevice {
	t.Helper()
	envelope, err := manifest.AddEnvelope(manifest.SerializeManifestDraftCSV(m), manifest.DraftCSVZlib)
	require.NoError(t, err)
	return &fakeDevice{nodeID: nodeID, envelope: envelope, value: value}
}

func (d *fakeDevice) Send(f canframe.Frame) error {
	nodeID, index, opcode, dir, err := canframe.Unpack(f.ID)
	if err != nil || dir != canframe.ClientToDevice {
		return nil
	}
	if nodeID != d.nodeID {
		return nil
	}

	switch opcode {
	case canframe.ReadManifest:
		lo := index * canframe.SegmentSize
		hi := lo + canframe.SegmentSize
		if hi > len(d.envelope) {
			hi = len(d.envelope)
		}
		if lo >= len(d.envelope) {
			return nil
		}
		reply, err := canframe.MakeReadManifestResponse(d.nodeID, index, d.envelope[lo:hi])
		if err != nil {
			return err
		}
		d.outbound = append(d.outbound, reply)

	case canframe.ReadProperty:
		reply, err := canframe.MakeReadPropertyResponse(d.nodeID, index, d.value)
		if err != nil {
			return err
		}
		d.outbound = append(d.outbound, reply)

	case canframe.WriteProperty:
		d.value = append([]byte(nil), f.Data...)
		reply, err := canframe.MakeWritePropertyResponse(d.nodeID, index, d.value)
		if err != nil {
			return err
		}
		d.outbound = append(d.outbound, reply)
	}

	return nil
}

func (d *fakeDevice) Receive(deadline time.Time) (canframe.Frame, error) {
	if len(d.outbound) == 0 {
		return canframe.Frame{}, transport.ErrTimeout
	}
	f := d.outbound[0]
	d.outbound = d.outbound[1:]
	return f, nil
}

func (d *fakeDevice) Close() error { return nil }

func testManifest() manifest.Manifest {
	return manifest.Manifest{
		DeviceName: "fixture",
		Properties: []manifest.Property{
			{
				Index: 1, Name: "temperature", Type: propval.Uint16,
				OffsetStr: "0", ScaleStr: "0.1", MinStr: "0", MaxStr: "6553.5",
				OperationsStr: "rw",
			},
		},
	}
}

func TestClient_GetProperty(t *testing.T) {
	m := testManifest()
	dev := newFakeDevice(t, 3, m, []byte{0x64, 0x00}) // raw 100 -> physical 10.0

	c, err := New(dev, config.DefaultConfig(), clog.NewLogger("test"))
	require.NoError(t, err)

	node := Node{NodeID: 3, Manifest: m}
	property, err := m.PropertyByName("temperature")
	require.NoError(t, err)

	v, err := c.GetProperty(context.Background(), node, property, time.Second)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, v, 1e-9)
}

func TestClient_SetProperty(t *testing.T) {
	m := testManifest()
	dev := newFakeDevice(t, 3, m, []byte{0x00, 0x00})

	c, err := New(dev, config.DefaultConfig(), clog.NewLogger("test"))
	require.NoError(t, err)

	node := Node{NodeID: 3, Manifest: m}
	property, err := m.PropertyByName("temperature")
	require.NoError(t, err)

	v, err := c.SetProperty(context.Background(), node, property, 25.0, time.Second)
	require.NoError(t, err)
	assert.InDelta(t, 25.0, v, 1e-9)
}

func TestClient_EnumerateNodes(t *testing.T) {
	m := testManifest()
	dev := newFakeDevice(t, 7, m, []byte{0x00, 0x00})

	c, err := New(dev, config.DefaultConfig(), clog.NewLogger("test"))
	require.NoError(t, err)

	nodes, err := c.EnumerateNodes(context.Background(), 50*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, canframe.NodeID(7), nodes[0].NodeID)
	assert.Equal(t, "fixture@7", nodes[0].Name())
}

func TestClient_QueryProperties_FailureYieldsNil(t *testing.T) {
	m := testManifest()
	dev := newFakeDevice(t, 3, m, []byte{0x64, 0x00})

	c, err := New(dev, config.DefaultConfig(), clog.NewLogger("test"))
	require.NoError(t, err)

	node := Node{NodeID: 3, Manifest: m}
	property, err := m.PropertyByName("temperature")
	require.NoError(t, err)

	unknownNode := Node{NodeID: 9, Manifest: m}

	results := c.QueryProperties(context.Background(), []PropertyRef{
		{Node: node, Property: property},
		{Node: unknownNode, Property: property},
	}, 20*time.Millisecond)

	require.Len(t, results, 2)
	require.NotNil(t, results[0])
	assert.InDelta(t, 10.0, *results[0], 1e-9)
	assert.Nil(t, results[1])
}
