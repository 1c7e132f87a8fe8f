package manifest

import (
	"fmt"
	"strconv"

	"github.com/hashicorp/go-multierror"
)

const minScaleMagnitude = 1e-5

// ValidationError reports one problem found with a single property, or
// with the manifest as a whole when PropertyName is empty.
type ValidationError struct {
	PropertyName string
	Message      string
}

func (e *ValidationError) Error() string {
	if e.PropertyName != "" {
		return fmt.Sprintf("%s: %s", e.PropertyName, e.Message)
	}
	return e.Message
}

// ValidateManifest checks every property's numeric fields and range
// invariants. It never stops at the first problem: every issue found
// across every property is collected into the returned multierror, whose
// WrappedErrors are *ValidationError values.
func ValidateManifest(m Manifest) *multierror.Error {
	var result *multierror.Error

	for _, p := range m.Properties {
		result = multierror.Append(result, validateProperty(p)...)
	}

	return result
}

func validateProperty(p Property) []error {
	var errs []error

	fail := func(format string, args ...interface{}) {
		errs = append(errs, &ValidationError{PropertyName: p.Name, Message: fmt.Sprintf(format, args...)})
	}

	offset, offsetOK := parseNumeric("offset", p.OffsetStr, fail)
	scale, scaleOK := parseNumeric("scale", p.ScaleStr, fail)
	min, minOK := parseNumeric("min", p.MinStr, fail)
	max, maxOK := parseNumeric("max", p.MaxStr, fail)

	if minOK && maxOK && min >= max {
		fail("maximum must be larger than minimum")
	}

	if !offsetOK || !scaleOK || !minOK || !maxOK {
		return errs
	}

	if absFloat(scale) < minScaleMagnitude {
		fail("scale must not be zero")
		return errs
	}

	rawMin, rawMax := p.Type.RawRange()
	exprLo := offset + rawMin*scale
	exprHi := offset + rawMax*scale
	if exprLo > exprHi {
		exprLo, exprHi = exprHi, exprLo
	}

	if min < exprLo {
		fail("specified minimum %.3g outside of expressable range [%.3g; %.3g]", min, exprLo, exprHi)
	}
	if max > exprHi {
		fail("specified maximum %.3g outside of expressable range [%.3g; %.3g]", max, exprLo, exprHi)
	}

	return errs
}

func parseNumeric(attr, val string, fail func(format string, args ...interface{})) (float64, bool) {
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		fail("%s '%s' not a valid numeric value", attr, val)
		return 0, false
	}
	return f, true
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
