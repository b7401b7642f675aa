// Package colorfilter keeps the pixels of a BGR frame whose HSV value lies
// inside a fixed range and blacks out everything else.
//
// HSV values follow OpenCV's 8-bit convention: hue is in [0, 179]
// (degrees halved), saturation and value are in [0, 255].
package colorfilter

import (
	"fmt"

	"gocv.io/x/gocv"
)

// MaxHue is the largest hue OpenCV produces for 8-bit images.
const MaxHue = 179

// HSV is a single hue/saturation/value triple.
type HSV struct {
	H, S, V uint8
}

func (c HSV) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.H, c.S, c.V)
}

// Scalar converts the triple into an OpenCV scalar.
func (c HSV) Scalar() gocv.Scalar {
	return gocv.NewScalar(float64(c.H), float64(c.S), float64(c.V), 0)
}

// Range is an inclusive lower/upper bound pair. It is a value type and is
// never modified once constructed.
type Range struct {
	Lower HSV
	Upper HSV
}

// DefaultRange returns the bounds used when nothing else is configured.
// It selects saturated blues.
func DefaultRange() Range {
	return Range{
		Lower: HSV{H: 100, S: 150, V: 0},
		Upper: HSV{H: 140, S: 255, V: 255},
	}
}

// NewRange builds a Range from two [h, s, v] triples and validates it.
func NewRange(lower, upper [3]int) (Range, error) {
	var r Range
	for i, t := range [][3]int{lower, upper} {
		for _, c := range t {
			if c < 0 || c > 255 {
				return r, fmt.Errorf("colorfilter: bound %v has component %d outside 0..255", t, c)
			}
		}
		hsv := HSV{H: uint8(t[0]), S: uint8(t[1]), V: uint8(t[2])}
		if i == 0 {
			r.Lower = hsv
		} else {
			r.Upper = hsv
		}
	}
	if errs := r.Validate(); len(errs) > 0 {
		return Range{}, fmt.Errorf("colorfilter: invalid range: %v", errs)
	}
	return r, nil
}

// Validate checks the bounds. Returns a list of problems, or nil if valid.
func (r Range) Validate() []string {
	var errors []string

	if r.Lower.H > MaxHue || r.Upper.H > MaxHue {
		errors = append(errors, "hue must be between 0 and 179")
	}
	if r.Lower.H > r.Upper.H {
		errors = append(errors, "lower hue must not exceed upper hue")
	}
	if r.Lower.S > r.Upper.S {
		errors = append(errors, "lower saturation must not exceed upper saturation")
	}
	if r.Lower.V > r.Upper.V {
		errors = append(errors, "lower value must not exceed upper value")
	}

	return errors
}

// Contains reports whether every channel of c lies within the bounds.
func (r Range) Contains(c HSV) bool {
	return c.H >= r.Lower.H && c.H <= r.Upper.H &&
		c.S >= r.Lower.S && c.S <= r.Upper.S &&
		c.V >= r.Lower.V && c.V <= r.Upper.V
}

func (r Range) String() string {
	return fmt.Sprintf("[%s..%s]", r.Lower, r.Upper)
}
