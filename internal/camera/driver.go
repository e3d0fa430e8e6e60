// Package camera finds the camera wiring of the board and brings the sensor
// up through a hardware Driver.
//
// A Driver is the capture layer: it owns the frame buffers. Callers borrow a
// buffer with GetFrame and must hand the same pointer back with ReleaseFrame on
// every path, including when the frame is discarded. With a single-buffer
// configuration nothing else can be captured while a borrow is outstanding.
package camera

import (
	"errors"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/cam-uploader/internal/board"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/cam-uploader/pkg/types"
)

var (
	// ErrHardwareInit is returned by Probe when no profile could be brought up.
	ErrHardwareInit = errors.New("camera hardware init failed")
	// ErrNotDetected is returned by a driver when no sensor answers on the bus.
	ErrNotDetected = errors.New("camera sensor not detected")
	// ErrNoFrame means the driver produced no frame.
	ErrNoFrame = errors.New("camera capture failed")
	// ErrUnexpectedFormat means a frame was not JPEG encoded.
	ErrUnexpectedFormat = errors.New("frame format not JPEG")
)

// GrabMode selects which frame GetFrame hands out.
type GrabMode int

const (
	GrabWhenEmpty GrabMode = iota // fill buffers only when they are free
	GrabLatest                    // keep overwriting, hand out the newest
)

// BufferLocation is the memory region frame buffers live in.
type BufferLocation int

const (
	BufferInDRAM BufferLocation = iota
	BufferInPSRAM
)

// Config is what the driver's init entry point consumes.
type Config struct {
	Pins board.Profile

	XCLKFreqHz  int
	PixelFormat types.PixelFormat
	FrameSize   types.FrameSize
	JPEGQuality int // 0..63, lower is better

	FBCount    int
	GrabMode   GrabMode
	FBLocation BufferLocation
}

// Driver is the camera capture layer.
type Driver interface {
	// Init brings the sensor up with cfg.
	Init(cfg Config) error
	// Deinit releases whatever Init acquired. Safe after a failed Init.
	Deinit() error
	// GetFrame borrows the next frame; ok is false when none is available.
	GetFrame() (fb *types.FrameBuffer, ok bool)
	// ReleaseFrame returns a borrowed frame to the driver.
	ReleaseFrame(fb *types.FrameBuffer)
	// Sensor returns the attached sensor, or nil before a successful Init.
	Sensor() Sensor
}

// Sensor exposes the sensor controls the uploader uses.
type Sensor interface {
	SetFrameSize(size types.FrameSize) error
}

const (
	defaultXCLKFreqHz  = 20_000_000
	defaultJPEGQuality = 12
	defaultFrameSize   = types.FrameSizeQVGA
)

// ConfigFor derives the init configuration for one wiring. When the board has
// external RAM two buffers are placed there and the newest frame is grabbed;
// otherwise a single DRAM buffer is filled on demand.
func ConfigFor(p board.Profile, extraMemory bool) Config {
	cfg := Config{
		Pins:        p,
		XCLKFreqHz:  defaultXCLKFreqHz,
		PixelFormat: types.PixelFormatJPEG,
		FrameSize:   defaultFrameSize,
		JPEGQuality: defaultJPEGQuality,
		FBCount:     1,
		GrabMode:    GrabWhenEmpty,
		FBLocation:  BufferInDRAM,
	}
	if extraMemory {
		cfg.FBCount = 2
		cfg.GrabMode = GrabLatest
		cfg.FBLocation = BufferInPSRAM
	}
	return cfg
}
