package colorfilter

import (
	"fmt"

	"gocv.io/x/gocv"
)

// ToHSV converts a BGR frame into HSV.
func ToHSV(src gocv.Mat, dst *gocv.Mat) {
	gocv.CvtColor(src, dst, gocv.ColorBGRToHSV)
}

// RangeMask sets a mask cell to 255 when every channel of the HSV pixel lies
// inside r (bounds inclusive) and to 0 otherwise.
func RangeMask(hsv gocv.Mat, r Range, mask *gocv.Mat) {
	gocv.InRangeWithScalar(hsv, r.Lower.Scalar(), r.Upper.Scalar(), mask)
}

// Apply copies src into dst where mask is set and writes zeros elsewhere.
// dst must not alias src.
func Apply(src, mask gocv.Mat, dst *gocv.Mat) {
	if dst.Rows() != src.Rows() || dst.Cols() != src.Cols() || dst.Type() != src.Type() {
		src.CopyTo(dst)
	}
	dst.SetTo(gocv.NewScalar(0, 0, 0, 0))
	src.CopyToWithMask(dst, mask)
}

// SameSize reports whether two Mats have identical rows and columns.
func SameSize(a, b gocv.Mat) bool {
	return a.Rows() == b.Rows() && a.Cols() == b.Cols()
}

// Filter runs the HSV conversion, range mask and masking steps with scratch
// buffers that are reused between frames. A Filter is not safe for
// concurrent use.
type Filter struct {
	rng  Range
	hsv  gocv.Mat
	mask gocv.Mat
}

// New creates a Filter for the given range.
func New(r Range) (*Filter, error) {
	if errs := r.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("colorfilter: invalid range: %v", errs)
	}
	return &Filter{
		rng:  r,
		hsv:  gocv.NewMat(),
		mask: gocv.NewMat(),
	}, nil
}

// Range returns the bounds the filter was built with.
func (f *Filter) Range() Range {
	return f.rng
}

// Mask returns the mask computed by the last Process call. The Mat is owned
// by the Filter and is overwritten on the next call.
func (f *Filter) Mask() gocv.Mat {
	return f.mask
}

// Process writes the masked version of frame into dst.
func (f *Filter) Process(frame gocv.Mat, dst *gocv.Mat) error {
	if frame.Empty() {
		return ErrEmptyFrame
	}
	if frame.Type() != gocv.MatTypeCV8UC3 {
		return fmt.Errorf("%w: type %v", ErrNotBGR, frame.Type())
	}

	ToHSV(frame, &f.hsv)
	RangeMask(f.hsv, f.rng, &f.mask)

	if !SameSize(frame, f.mask) {
		return fmt.Errorf("%w: frame %dx%d, mask %dx%d", ErrSizeMismatch,
			frame.Cols(), frame.Rows(), f.mask.Cols(), f.mask.Rows())
	}

	Apply(frame, f.mask, dst)
	return nil
}

// Close releases the scratch buffers.
func (f *Filter) Close() error {
	f.hsv.Close()
	f.mask.Close()
	return nil
}
