package camera

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png" // source images may be PNG
	"os"
	"sync"
	"time"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/cam-uploader/pkg/types"
)

var errAlreadyInit = errors.New("camera already initialized")

// SimDriver is a software camera. It only comes up when initialized with the
// wiring named in Wired, which lets the probe logic run end to end on a host.
// Frames are a rendered test card, or Source scaled to the sensor frame size.
type SimDriver struct {
	Wired  string      // profile that is "soldered"; empty accepts any
	Source image.Image // optional picture to serve instead of the test card
	Format types.PixelFormat

	mu          sync.Mutex
	initialized bool
	cfg         Config
	frameSize   types.FrameSize
	borrowed    int
	seq         uint64
	now         func() time.Time
}

// NewSimDriver creates a simulated camera wired as profile.
func NewSimDriver(profile string) *SimDriver {
	return &SimDriver{
		Wired:  profile,
		Format: types.PixelFormatJPEG,
		now:    time.Now,
	}
}

// LoadSource decodes a JPEG or PNG file to serve as every frame.
func (d *SimDriver) LoadSource(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open source image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("decode source image: %w", err)
	}
	d.mu.Lock()
	d.Source = img
	d.mu.Unlock()
	return nil
}

func (d *SimDriver) Init(cfg Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.initialized {
		return errAlreadyInit
	}
	if d.Wired != "" && cfg.Pins.Name != d.Wired {
		return fmt.Errorf("%w on %s", ErrNotDetected, cfg.Pins.Name)
	}
	if cfg.FBCount < 1 {
		cfg.FBCount = 1
	}
	d.cfg = cfg
	d.frameSize = cfg.FrameSize
	d.initialized = true
	d.borrowed = 0
	return nil
}

func (d *SimDriver) Deinit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.initialized = false
	d.borrowed = 0
	return nil
}

func (d *SimDriver) Sensor() Sensor {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return nil
	}
	return simSensor{d}
}

// GetFrame renders one frame. It fails when every buffer is already borrowed.
func (d *SimDriver) GetFrame() (*types.FrameBuffer, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized || d.borrowed >= d.cfg.FBCount {
		return nil, false
	}

	if d.now == nil {
		d.now = time.Now
	}
	d.seq++
	now := d.now()
	img := d.render(now)

	var data []byte
	format := d.Format
	if format == types.PixelFormatJPEG {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality(d.cfg.JPEGQuality)}); err != nil {
			return nil, false
		}
		data = buf.Bytes()
	} else {
		data = img.Pix
	}

	d.borrowed++
	b := img.Bounds()
	return &types.FrameBuffer{
		Format:    format,
		Len:       len(data),
		Data:      data,
		Width:     b.Dx(),
		Height:    b.Dy(),
		Timestamp: now,
	}, true
}

func (d *SimDriver) ReleaseFrame(fb *types.FrameBuffer) {
	if fb == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.borrowed > 0 {
		d.borrowed--
	}
}

// Borrowed reports how many frames are currently out.
func (d *SimDriver) Borrowed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.borrowed
}

func (d *SimDriver) render(now time.Time) *image.RGBA {
	w, h := d.frameSize.Dimensions()
	img := image.NewRGBA(image.Rect(0, 0, w, h))

	if d.Source != nil {
		draw.ApproxBiLinear.Scale(img, img.Bounds(), d.Source, d.Source.Bounds(), draw.Src, nil)
	} else {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				img.SetRGBA(x, y, color.RGBA{
					R: uint8(x * 255 / w),
					G: uint8(y * 255 / h),
					B: uint8(d.seq * 16),
					A: 255,
				})
			}
		}
	}

	stamp := fmt.Sprintf("%s #%d %s", d.cfg.Pins.Name, d.seq, now.Format("15:04:05"))
	drawer := font.Drawer{
		Dst:  img,
		Src:  image.White,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(4, h-6),
	}
	drawer.DrawString(stamp)
	return img
}

// jpegQuality maps the sensor scale (0 best .. 63 worst) onto image/jpeg's.
func jpegQuality(q int) int {
	if q < 0 {
		q = 0
	}
	if q > 63 {
		q = 63
	}
	return 100 - q*99/63
}

type simSensor struct{ d *SimDriver }

func (s simSensor) SetFrameSize(size types.FrameSize) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	s.d.frameSize = size
	return nil
}
