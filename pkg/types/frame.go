package types

import "time"

// PixelFormat tags the encoding of a captured frame.
type PixelFormat int

const (
	PixelFormatRGB565 PixelFormat = iota
	PixelFormatYUV422
	PixelFormatGrayscale
	PixelFormatJPEG
	PixelFormatRGB888
)

var pixelFormatNames = map[PixelFormat]string{
	PixelFormatRGB565:    "RGB565",
	PixelFormatYUV422:    "YUV422",
	PixelFormatGrayscale: "GRAYSCALE",
	PixelFormatJPEG:      "JPEG",
	PixelFormatRGB888:    "RGB888",
}

func (f PixelFormat) String() string {
	if name, ok := pixelFormatNames[f]; ok {
		return name
	}
	return "UNKNOWN"
}

// FrameBuffer is one captured image as handed out by the camera driver.
//
// The driver owns the buffer. A caller that obtained it from GetFrame holds a
// borrow until it passes the same pointer back to ReleaseFrame; Data must not
// be retained after that.
type FrameBuffer struct {
	Format    PixelFormat
	Len       int    // number of valid bytes in Data
	Data      []byte // encoded payload
	Width     int
	Height    int
	Timestamp time.Time
}

// Bytes returns the valid part of the payload.
func (fb *FrameBuffer) Bytes() []byte {
	if fb.Len > len(fb.Data) {
		return fb.Data
	}
	return fb.Data[:fb.Len]
}

// FrameSize is a sensor output resolution preset.
type FrameSize int

const (
	FrameSizeQQVGA FrameSize = iota // 160x120
	FrameSizeQVGA                   // 320x240
	FrameSizeVGA                    // 640x480
	FrameSizeSVGA                   // 800x600
)

// Dimensions returns the pixel width and height of the preset.
func (s FrameSize) Dimensions() (width, height int) {
	switch s {
	case FrameSizeQQVGA:
		return 160, 120
	case FrameSizeVGA:
		return 640, 480
	case FrameSizeSVGA:
		return 800, 600
	default:
		return 320, 240
	}
}
