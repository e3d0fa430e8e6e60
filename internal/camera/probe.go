package camera

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/cam-uploader/internal/board"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/cam-uploader/internal/logger"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/cam-uploader/internal/metrics"
)

// ProberOptions configures a Prober.
type ProberOptions struct {
	Target      board.Target    // defaults to board.BuildTarget
	Profiles    []board.Profile // defaults to board.Table()
	ExtraMemory bool            // board has external RAM for frame buffers
	Log         *logger.Module
	Metrics     *metrics.Metrics
}

// Prober walks the profile table until one wiring brings the sensor up. Once
// it has, the camera stays initialized for the life of the process.
type Prober struct {
	driver      Driver
	target      board.Target
	profiles    []board.Profile
	extraMemory bool
	log         *logger.Module
	metrics     *metrics.Metrics

	mu      sync.Mutex
	profile string // set once init succeeded
}

// NewProber creates a Prober that drives d.
func NewProber(d Driver, opts ProberOptions) *Prober {
	if opts.Target.Name == "" {
		opts.Target = board.BuildTarget
	}
	if opts.Profiles == nil {
		opts.Profiles = board.Table()
	}
	if opts.Log == nil {
		opts.Log = logger.For("Camera")
	}
	return &Prober{
		driver:      d,
		target:      opts.Target,
		profiles:    opts.Profiles,
		extraMemory: opts.ExtraMemory,
		log:         opts.Log,
		metrics:     opts.Metrics,
	}
}

// Initialized reports the profile the camera was brought up with.
func (p *Prober) Initialized() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.profile, p.profile != ""
}

// Probe initializes the camera. It returns the name of the wiring that worked;
// after a success further calls return the same name without touching the
// hardware. When every profile fails the error wraps ErrHardwareInit and the
// last driver (or pin check) error.
func (p *Prober) Probe() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.profile != "" {
		return p.profile, nil
	}

	var lastErr error = errors.New("empty profile table")
	for _, prof := range p.profiles {
		p.log.Info("trying camera model %s", prof)

		if err := board.Validate(prof, p.target); err != nil {
			p.log.Warn("skip model %s: %v", prof.Name, err)
			lastErr = err
			continue
		}

		if p.metrics != nil {
			p.metrics.ProbeAttempts.Add(1)
		}
		err := p.driver.Init(ConfigFor(prof, p.extraMemory))
		if err == nil {
			if s := p.driver.Sensor(); s != nil {
				if err := s.SetFrameSize(defaultFrameSize); err != nil {
					p.log.Warn("set frame size on %s: %v", prof.Name, err)
				}
			}
			p.profile = prof.Name
			if p.metrics != nil {
				metrics.SetFlag(&p.metrics.CameraInitialized, true)
			}
			p.log.Info("camera initialized with model %s", prof.Name)
			return prof.Name, nil
		}

		lastErr = err
		p.log.Warn("model %s failed: %v", prof.Name, err)

		// The driver may have claimed pins or memory before failing.
		if derr := p.driver.Deinit(); derr != nil {
			p.log.Debug("deinit after %s: %v", prof.Name, derr)
		}
	}

	if p.metrics != nil {
		p.metrics.ProbeFailures.Add(1)
	}
	p.log.Error("all camera models failed; last error: %v", lastErr)
	return "", fmt.Errorf("%w: %w", ErrHardwareInit, lastErr)
}
