package capture

import (
	"fmt"
	"log/slog"
)

// Open creates a capture source with the given configuration.
// A camera that cannot be opened yields an error wrapping ErrDeviceUnavailable.
func Open(cfg Config, logger *slog.Logger) (Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("opening capture source",
		"backend", cfg.Backend,
		"device", cfg.Device,
	)

	switch cfg.Backend {
	case BackendMock:
		var opts []MockSourceOption
		if cfg.Width > 0 && cfg.Height > 0 {
			opts = append(opts, WithSize(cfg.Width, cfg.Height))
		}
		if cfg.Frames > 0 {
			opts = append(opts, WithLimit(cfg.Frames))
		}
		return NewMockSource(opts...), nil
	case BackendV4L2:
		return newV4L2Source(cfg, logger)
	default:
		src, err := newCameraSource(cfg, logger)
		if err != nil {
			return nil, err
		}
		return src, nil
	}
}
