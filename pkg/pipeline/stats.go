package pipeline

import "time"

// StopReason records why the loop left the running state.
type StopReason string

const (
	// StopNone means the loop has not stopped yet.
	StopNone StopReason = ""
	// StopEndOfStream means the capture source ran out of frames or failed.
	StopEndOfStream StopReason = "end_of_stream"
	// StopQuit means the quit key was pressed.
	StopQuit StopReason = "quit"
	// StopCanceled means the context was canceled (signal or caller).
	StopCanceled StopReason = "canceled"
	// StopWriterFailed means the output writer could not open or write.
	StopWriterFailed StopReason = "writer_failed"
	// StopFilterFailed means a frame broke the filter's preconditions.
	StopFilterFailed StopReason = "filter_failed"
)

// Failed reports whether the reason ends the run with an error.
func (r StopReason) Failed() bool {
	return r == StopWriterFailed || r == StopFilterFailed
}

// Stats describes one run of the loop.
type Stats struct {
	RunID         string     `json:"run_id"`
	Running       bool       `json:"running"`
	Source        string     `json:"source"`
	Width         int        `json:"width"`
	Height        int        `json:"height"`
	FPS           float64    `json:"fps"`
	FPSFallback   bool       `json:"fps_fallback"`
	OutputPath    string     `json:"output_path"`
	FramesRead    int        `json:"frames_read"`
	FramesWritten int        `json:"frames_written"`
	DisplayErrors int        `json:"display_errors"`
	StopReason    StopReason `json:"stop_reason,omitempty"`
	Started       time.Time  `json:"started"`
	Stopped       time.Time  `json:"stopped,omitempty"`
}

// Elapsed returns how long the run has lasted so far.
func (s Stats) Elapsed() time.Duration {
	if s.Started.IsZero() {
		return 0
	}
	if s.Stopped.IsZero() {
		return time.Since(s.Started)
	}
	return s.Stopped.Sub(s.Started)
}
