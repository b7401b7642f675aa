//go:build !linux

package capture

import (
	"fmt"
	"log/slog"
)

// newV4L2Source returns an error on non-Linux platforms.
func newV4L2Source(cfg Config, logger *slog.Logger) (Source, error) {
	return nil, fmt.Errorf("%w: V4L2 is only available on Linux", ErrDeviceUnavailable)
}
