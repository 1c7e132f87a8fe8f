package manifest

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mcejp/devprop/propval"
)

// ParseManifestDraftCSV decodes the textual row format: line 1 is the
// device name, every subsequent non-empty line is 8 comma-separated
// fields. Property indices are assigned implicitly, starting at 1.
func ParseManifestDraftCSV(body []byte) (Manifest, error) {
	lines := strings.Split(string(body), "\n")
	if len(lines) == 0 {
		return Manifest{}, fmt.Errorf("manifest: empty draft CSV body")
	}

	m := Manifest{DeviceName: lines[0]}

	index := 1
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}

		fields := strings.Split(line, ",")
		if len(fields) != 8 {
			return Manifest{}, fmt.Errorf("manifest: row %q has %d fields, want 8", line, len(fields))
		}

		ty, err := propval.TypeFromCode(fields[1][0])
		if err != nil {
			return Manifest{}, fmt.Errorf("manifest: row %q: %w", line, err)
		}

		m.Properties = append(m.Properties, Property{
			Index:         index,
			Name:          fields[0],
			Type:          ty,
			Unit:          fields[2],
			OffsetStr:     fields[3],
			ScaleStr:      fields[4],
			MinStr:        fields[5],
			MaxStr:        fields[6],
			OperationsStr: fields[7],
		})
		index++
	}

	return m, nil
}

// SerializeManifestDraftCSV re-encodes a Manifest into the textual row
// format understood by ParseManifestDraftCSV.
func SerializeManifestDraftCSV(m Manifest) []byte {
	var b strings.Builder
	b.WriteString(m.DeviceName)
	b.WriteByte('\n')

	for _, p := range m.Properties {
		fmt.Fprintf(&b, "%s,%c,%s,%s,%s,%s,%s,%s\n",
			p.Name, p.Type.Code(), p.Unit, p.OffsetStr, p.ScaleStr, p.MinStr, p.MaxStr, p.OperationsStr)
	}

	return []byte(b.String())
}

// yamlManifest mirrors the on-disk YAML shape before it is lowered into a
// Manifest.
type yamlManifest struct {
	DeviceName string                   `yaml:"device_name"`
	Properties []map[string]interface{} `yaml:"properties"`
}

var knownPropertyKeys = map[string]bool{
	"name": true, "type": true, "unit": true,
	"offset": true, "scale": true, "range": true,
}

// ParseManifestYAML decodes the human-authored YAML manifest format.
//
// Each property's "type" field is a space-separated token list mixing
// exactly one type name (int8, uint16, ...) and optionally one of
// readonly/writeonly; absence of both means read-write. Unrecognized keys
// on a property entry are preserved verbatim in AdditionalAttributes.
func ParseManifestYAML(body []byte) (Manifest, error) {
	var raw yamlManifest
	if err := yaml.Unmarshal(body, &raw); err != nil {
		return Manifest{}, fmt.Errorf("manifest: parsing YAML: %w", err)
	}

	m := Manifest{DeviceName: raw.DeviceName}

	for i, entry := range raw.Properties {
		p, err := propertyFromYAML(i+1, entry)
		if err != nil {
			return Manifest{}, err
		}
		m.Properties = append(m.Properties, p)
	}

	return m, nil
}

func propertyFromYAML(index int, entry map[string]interface{}) (Property, error) {
	name, _ := entry["name"].(string)
	if name == "" {
		return Property{}, fmt.Errorf("manifest: property %d is missing a name", index)
	}

	typeField, _ := entry["type"].(string)
	ty, ops, err := parseTypeField(typeField)
	if err != nil {
		return Property{}, fmt.Errorf("manifest: property %q: %w", name, err)
	}

	unit, _ := entry["unit"].(string)

	offsetStr := formatDefault(entry["offset"], "0")
	scaleStr := formatDefault(entry["scale"], "1")

	minStr, maxStr := defaultRangeStrs(ty)
	if r, ok := entry["range"]; ok {
		rangeSlice, ok := r.([]interface{})
		if !ok || len(rangeSlice) != 2 {
			return Property{}, fmt.Errorf("manifest: property %q: range must be a 2-element list", name)
		}
		minStr = formatDefault(rangeSlice[0], minStr)
		maxStr = formatDefault(rangeSlice[1], maxStr)
	}

	additional := map[string]interface{}{}
	for k, v := range entry {
		if !knownPropertyKeys[k] {
			additional[k] = v
		}
	}

	return Property{
		Index:                index,
		Name:                 name,
		Type:                 ty,
		Unit:                 unit,
		OffsetStr:            offsetStr,
		ScaleStr:             scaleStr,
		MinStr:               minStr,
		MaxStr:               maxStr,
		OperationsStr:        ops,
		AdditionalAttributes: additional,
	}, nil
}

func parseTypeField(field string) (propval.Type, string, error) {
	tokens := strings.Fields(field)

	var typeName string
	ops := "rw"
	sawAccess := false

	for _, tok := range tokens {
		switch tok {
		case "readonly":
			if sawAccess {
				return 0, "", fmt.Errorf("type field %q specifies access twice", field)
			}
			ops = "r"
			sawAccess = true
		case "writeonly":
			if sawAccess {
				return 0, "", fmt.Errorf("type field %q specifies access twice", field)
			}
			ops = "w"
			sawAccess = true
		default:
			if typeName != "" {
				return 0, "", fmt.Errorf("type field %q specifies a type name twice", field)
			}
			typeName = tok
		}
	}

	if typeName == "" {
		return 0, "", fmt.Errorf("type field %q does not specify a type name", field)
	}

	ty, err := propval.TypeFromName(typeName)
	if err != nil {
		return 0, "", err
	}

	return ty, ops, nil
}

func defaultRangeStrs(ty propval.Type) (minStr, maxStr string) {
	min, max := ty.RawRange()
	return formatFloat(min), formatFloat(max)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// formatDefault renders a YAML-decoded scalar as a manifest field string,
// falling back to def when the value is absent.
func formatDefault(v interface{}, def string) string {
	switch t := v.(type) {
	case nil:
		return def
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case float64:
		return formatFloat(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
