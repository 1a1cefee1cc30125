// Package validate sanity-checks extracted prices against an optional
// reference price.
package validate

// Tolerance is the accepted deviation around the reference price.
// Empirically chosen in production use; configurable, not derived.
const DefaultTolerance = 0.35

type PriceValidator struct {
	tolerance float64
}

func NewPriceValidator(tolerance float64) *PriceValidator {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &PriceValidator{tolerance: tolerance}
}

// IsValid reports whether a found price is acceptable given the
// reference. A missing or non-positive reference accepts anything; a
// missing or non-positive found price is rejected when a reference
// exists. Both band boundaries are inclusive.
func (v *PriceValidator) IsValid(found *float64, reference *float64) bool {
	if reference == nil || *reference <= 0 {
		return true
	}
	if found == nil || *found <= 0 {
		return false
	}

	// The epsilon keeps the boundaries inclusive under floating-point
	// rounding (1000 * (1-0.35) is slightly above 650 in float64).
	const eps = 1e-6
	lower := *reference * (1 - v.tolerance)
	upper := *reference * (1 + v.tolerance)
	return *found >= lower-eps && *found <= upper+eps
}
