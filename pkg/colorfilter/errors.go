package colorfilter

import "errors"

// Sentinel errors for frames that break the filter's preconditions.
var (
	// ErrEmptyFrame is returned when the input frame has no pixels.
	ErrEmptyFrame = errors.New("colorfilter: empty frame")

	// ErrNotBGR is returned when the input is not an 8-bit, 3-channel image.
	ErrNotBGR = errors.New("colorfilter: frame is not 8-bit BGR")

	// ErrSizeMismatch is returned when a mask and a frame differ in size.
	ErrSizeMismatch = errors.New("colorfilter: mask and frame dimensions differ")
)
