package sink

import "errors"

// Sentinel errors for common error conditions.
var (
	// ErrUnsupportedCodec is returned when the codec is not a valid
	// four-character code or OpenCV has no encoder for it.
	ErrUnsupportedCodec = errors.New("sink: unsupported codec")

	// ErrPathUnwritable is returned when the output file cannot be created.
	ErrPathUnwritable = errors.New("sink: output path not writable")

	// ErrFrameSize is returned when a frame does not match the writer's size.
	ErrFrameSize = errors.New("sink: frame size differs from writer size")

	// ErrClosed is returned when writing to a closed writer.
	ErrClosed = errors.New("sink: writer closed")

	// ErrNoDisplay is returned when no graphical display is available.
	ErrNoDisplay = errors.New("sink: no display available")
)
