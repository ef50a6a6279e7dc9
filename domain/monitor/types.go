package monitor

import (
	"image"
	"time"
)

// ScreenshotTaker captures the named video source into a file at outPath.
type ScreenshotTaker interface {
	TakeScreenshot(source, outPath string) error
}

// Codec loads and stores image files. The encoding format follows the
// destination extension (PNG by default, JPEG for .jpg/.jpeg).
type Codec interface {
	Decode(path string) (*image.RGBA, error)
	Encode(img image.Image, path string) error
}

// RecStatus is a recorder's tri-state answer to a status query. Unknown means
// the controller did not or could not answer (query unsupported, transport
// error); callers must not treat it as either active state.
type RecStatus int

const (
	StatusUnknown RecStatus = iota
	StatusStopped
	StatusRecording
)

func (s RecStatus) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusRecording:
		return "recording"
	default:
		return "unknown"
	}
}

// TextUpdater rewrites the content of a named text source on the output
// scene.
type TextUpdater interface {
	UpdateText(source, text string) error
}

// Recorder drives an external recording controller.
type Recorder interface {
	StartRecording() error
	StopRecording() error
	Status() RecStatus
}

// EventKind identifies recording lifecycle events.
type EventKind int

const (
	EventStarted       EventKind = 1
	EventStopRequested EventKind = 2
	EventStoppedOnExit EventKind = 3
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventStopRequested:
		return "stop-requested"
	case EventStoppedOnExit:
		return "stopped-on-exit"
	default:
		return "unknown"
	}
}

// EventSink receives recording lifecycle events. Implementations must be safe
// to call from the monitor goroutine and should not block.
type EventSink interface {
	Emit(kind EventKind, ts time.Time)
}

// EventFunc adapts a function to the EventSink interface.
type EventFunc func(kind EventKind, ts time.Time)

func (f EventFunc) Emit(kind EventKind, ts time.Time) { f(kind, ts) }
