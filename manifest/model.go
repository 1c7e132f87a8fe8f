// Package manifest implements the self-describing property schema carried
// inside a node's manifest envelope: the textual row format, YAML ingest,
// validation, and the hash-checked compressed envelope wrapping it all.
package manifest

import (
	"fmt"
	"strconv"

	"github.com/mcejp/devprop/propval"
)

// Property describes one named, typed, optionally writable attribute
// exposed by a node.
type Property struct {
	Index                int
	Name                 string
	Type                 propval.Type
	Unit                 string
	OffsetStr            string
	ScaleStr             string
	MinStr               string
	MaxStr               string
	OperationsStr        string
	AdditionalAttributes map[string]interface{}
}

// Readable reports whether the property's operations string grants reads.
func (p Property) Readable() bool {
	return containsByte(p.OperationsStr, 'r')
}

// Writable reports whether the property's operations string grants writes.
func (p Property) Writable() bool {
	return containsByte(p.OperationsStr, 'w')
}

func containsByte(s string, b byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return true
		}
	}
	return false
}

// ParsedLimits parses the property's textual offset, scale, min and max
// fields into float64s, for use with propval.Decode/Encode.
func (p Property) ParsedLimits() (offset, scale, min, max float64, err error) {
	if offset, err = strconv.ParseFloat(p.OffsetStr, 64); err != nil {
		return 0, 0, 0, 0, fmt.Errorf("manifest: property %q has invalid offset %q: %w", p.Name, p.OffsetStr, err)
	}
	if scale, err = strconv.ParseFloat(p.ScaleStr, 64); err != nil {
		return 0, 0, 0, 0, fmt.Errorf("manifest: property %q has invalid scale %q: %w", p.Name, p.ScaleStr, err)
	}
	if min, err = strconv.ParseFloat(p.MinStr, 64); err != nil {
		return 0, 0, 0, 0, fmt.Errorf("manifest: property %q has invalid min %q: %w", p.Name, p.MinStr, err)
	}
	if max, err = strconv.ParseFloat(p.MaxStr, 64); err != nil {
		return 0, 0, 0, 0, fmt.Errorf("manifest: property %q has invalid max %q: %w", p.Name, p.MaxStr, err)
	}
	return offset, scale, min, max, nil
}

// Manifest is a node's self-describing list of properties, ordered by
// 1-based, contiguous, strictly increasing index.
type Manifest struct {
	DeviceName string
	Properties []Property
}

// PropertyByName looks up a property by its name.
func (m Manifest) PropertyByName(name string) (Property, error) {
	for _, p := range m.Properties {
		if p.Name == name {
			return p, nil
		}
	}
	return Property{}, fmt.Errorf("manifest: no property named %q", name)
}
