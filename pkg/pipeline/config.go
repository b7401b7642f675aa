// Package pipeline drives the capture, filter, display and write loop.
package pipeline

import (
	"github.com/teslashibe/go-huemask/pkg/capture"
	"github.com/teslashibe/go-huemask/pkg/colorfilter"
	"github.com/teslashibe/go-huemask/pkg/sink"
)

// Config holds everything the loop needs that does not change while it runs.
// Build it once at startup and hand it to New.
type Config struct {
	// Range selects the pixels that survive the mask.
	Range colorfilter.Range `json:"-"`

	// OutputPath is the video file the masked stream is written to.
	OutputPath string `json:"output_path"`

	// Codec is the four-character code of the output encoder.
	Codec string `json:"codec"`

	// FallbackFPS is used when the capture source reports no frame rate.
	FallbackFPS float64 `json:"fallback_fps"`

	// Display labels for the two preview surfaces.
	OriginalLabel string `json:"original_label"`
	MaskedLabel   string `json:"masked_label"`
}

// DefaultConfig returns the standard setup: blue range, XVID in
// video_with_mask.avi, 20 FPS fallback.
func DefaultConfig() Config {
	return Config{
		Range:         colorfilter.DefaultRange(),
		OutputPath:    "video_with_mask.avi",
		Codec:         "XVID",
		FallbackFPS:   capture.DefaultFPS,
		OriginalLabel: "original",
		MaskedLabel:   "masked",
	}
}

// Validate checks the config. Returns a list of problems, or nil if valid.
func (c Config) Validate() []string {
	var errors []string

	errors = append(errors, c.Range.Validate()...)

	if c.OutputPath == "" {
		errors = append(errors, "output path is required")
	}
	wc := sink.WriterConfig{Path: "x", Codec: c.Codec, FPS: 1, Width: 1, Height: 1}
	if wc.Validate() != nil {
		errors = append(errors, "codec must be a four-character code")
	}
	if c.FallbackFPS <= 0 {
		errors = append(errors, "fallback fps must be positive")
	}
	if c.OriginalLabel == "" || c.MaskedLabel == "" {
		errors = append(errors, "display labels are required")
	}
	if c.OriginalLabel != "" && c.OriginalLabel == c.MaskedLabel {
		errors = append(errors, "display labels must differ")
	}

	return errors
}
