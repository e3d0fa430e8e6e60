// Package scheduler runs the capture and delivery loop.
//
// A single worker goroutine owns the camera and the ADC. Other goroutines
// only change the configuration or the connectivity flag and then wake the
// worker through a coalescing Signal; the worker always re-reads the full
// current state after a wake.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/cam-uploader/internal/camera"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/cam-uploader/internal/config"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/cam-uploader/internal/logger"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/cam-uploader/internal/metrics"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/cam-uploader/pkg/types"
)

// DefaultRetryBackoff is the wait between failed camera probes.
const DefaultRetryBackoff = 5 * time.Second

// ConfigSource returns a consistent copy of the configuration.
type ConfigSource interface {
	Get() config.Config
}

// Prober brings the camera up. Calls after a success must be cheap no-ops.
type Prober interface {
	Probe() (string, error)
}

// FrameSource lends frames. A frame must be returned with ReleaseFrame.
type FrameSource interface {
	GetFrame() (*types.FrameBuffer, bool)
	ReleaseFrame(*types.FrameBuffer)
}

// Sampler reads the supply voltage in millivolts.
type Sampler interface {
	Sample() (int, error)
}

// Deliverer posts payloads. Calls must be bounded in time.
type Deliverer interface {
	PostImage(ctx context.Context, url string, jpeg []byte) error
	PostTelemetry(ctx context.Context, url string, millivolts int) error
}

// State is the worker's current step, for status reporting.
type State string

const (
	StateIdle             State = "idle"
	StateWaitConnectivity State = "wait_connectivity"
	StateDisabled         State = "disabled"
	StateCameraRetry      State = "camera_retry"
	StateCapturing        State = "capturing"
	StateSleeping         State = "sleeping"
	StateStopped          State = "stopped"
)

// Options configures a Scheduler.
type Options struct {
	// IntervalUnit scales Config.IntervalSec. Defaults to time.Second.
	IntervalUnit time.Duration
	// RetryBackoff is the wait after a failed probe. Defaults to DefaultRetryBackoff.
	RetryBackoff time.Duration

	Log     *logger.Module
	Metrics *metrics.Metrics
}

// Status is a snapshot of the worker for the provisioning page.
type Status struct {
	State         State     `json:"state"`
	Connected     bool      `json:"connected"`
	Profile       string    `json:"profile,omitempty"`
	Cycles        uint64    `json:"cycles"`
	LastCycleID   string    `json:"last_cycle_id,omitempty"`
	LastCycleAt   time.Time `json:"last_cycle_at"`
	LastUploadAt  time.Time `json:"last_upload_at"`
	LastBytes     int       `json:"last_bytes"`
	LastLatencyMs int64     `json:"last_latency_ms"`
	LastVoltageMV int       `json:"last_voltage_mv"`
	LastError     string    `json:"last_error,omitempty"`
}

// Scheduler is the capture loop. Create with New and start Run once.
type Scheduler struct {
	cfg     ConfigSource
	prober  Prober
	frames  FrameSource
	sampler Sampler
	up      Deliverer
	wake    *Signal
	log     *logger.Module
	metrics *metrics.Metrics

	unit    time.Duration
	backoff time.Duration

	connected atomic.Bool
	running   atomic.Bool

	mu     sync.Mutex
	status Status
}

// New creates a Scheduler. wake is shared with whoever changes cfg.
func New(cfg ConfigSource, prober Prober, frames FrameSource, sampler Sampler, up Deliverer, wake *Signal, opts Options) *Scheduler {
	if opts.IntervalUnit <= 0 {
		opts.IntervalUnit = time.Second
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = DefaultRetryBackoff
	}
	if opts.Log == nil {
		opts.Log = logger.For("Scheduler")
	}
	if wake == nil {
		wake = NewSignal()
	}
	return &Scheduler{
		cfg:     cfg,
		prober:  prober,
		frames:  frames,
		sampler: sampler,
		up:      up,
		wake:    wake,
		log:     opts.Log,
		metrics: opts.Metrics,
		unit:    opts.IntervalUnit,
		backoff: opts.RetryBackoff,
		status:  Status{State: StateIdle},
	}
}

// Wake returns the signal the worker sleeps on.
func (s *Scheduler) Wake() *Signal { return s.wake }

// SetConnected records network reachability and wakes the worker.
func (s *Scheduler) SetConnected(up bool) {
	s.connected.Store(up)
	if s.metrics != nil {
		metrics.SetFlag(&s.metrics.Connected, up)
	}
	s.mu.Lock()
	s.status.Connected = up
	s.mu.Unlock()
	s.wake.Notify()
}

// Connected reports the last value given to SetConnected.
func (s *Scheduler) Connected() bool { return s.connected.Load() }

// Status returns a copy of the worker status.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// setState reports whether st differs from the previous state.
func (s *Scheduler) setState(st State) bool {
	s.mu.Lock()
	prev := s.status.State
	s.status.State = st
	s.mu.Unlock()
	if prev == st {
		return false
	}
	s.log.Debug("state %s -> %s", prev, st)
	return true
}

// Run executes the loop until ctx is cancelled; nothing else ends it.
// Hardware, capture and delivery failures are logged and retried.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("scheduler already running")
	}
	defer s.running.Store(false)
	defer s.setState(StateStopped)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		// Everything notified before this point is covered by the reads below.
		s.wake.Clear()

		if !s.connected.Load() {
			s.setState(StateWaitConnectivity)
			if _, err := s.wake.Wait(ctx, 0); err != nil {
				return err
			}
			continue
		}

		cfg := s.cfg.Get()
		if !cfg.Enabled() {
			if s.setState(StateDisabled) {
				s.log.Info("upload URL not set; waiting for configuration")
			}
			if _, err := s.wake.Wait(ctx, 0); err != nil {
				return err
			}
			continue
		}

		profile, err := s.prober.Probe()
		if err != nil {
			s.setState(StateCameraRetry)
			s.recordError(err)
			s.log.Warn("camera unavailable, retrying in %v: %v", s.backoff, err)
			if _, err := s.wake.Wait(ctx, s.backoff); err != nil {
				return err
			}
			continue
		}
		s.mu.Lock()
		s.status.Profile = profile
		s.mu.Unlock()

		s.setState(StateCapturing)
		s.cycle(ctx, cfg)

		s.setState(StateSleeping)
		if _, err := s.wake.Wait(ctx, time.Duration(cfg.IntervalSec)*s.unit); err != nil {
			return err
		}
	}
}

// cycle captures one frame and delivers it. The frame stays borrowed until
// the image POST has returned, so with a single hardware buffer no new frame
// can be captured while the network call is in flight.
func (s *Scheduler) cycle(ctx context.Context, cfg config.Config) {
	start := time.Now()
	id := uuid.NewString()

	s.mu.Lock()
	s.status.Cycles++
	s.status.LastCycleID = id
	s.status.LastCycleAt = start
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.Cycles.Add(1)
	}

	fb, ok := s.frames.GetFrame()
	if !ok {
		if s.metrics != nil {
			s.metrics.CaptureErrors.Add(1)
		}
		s.recordError(camera.ErrNoFrame)
		s.log.Warn("[%s] camera capture failed", shortID(id))
		return
	}
	defer s.frames.ReleaseFrame(fb)
	if s.metrics != nil {
		s.metrics.FramesCaptured.Add(1)
	}

	if fb.Format != types.PixelFormatJPEG {
		if s.metrics != nil {
			s.metrics.FramesDropped.Add(1)
		}
		err := fmt.Errorf("%w: got %s", camera.ErrUnexpectedFormat, fb.Format)
		s.recordError(err)
		s.log.Warn("[%s] dropping frame: %v", shortID(id), err)
		return
	}

	if cfg.VoltageURL != "" {
		s.report(ctx, id, cfg.VoltageURL)
	}

	if err := s.up.PostImage(ctx, cfg.URL, fb.Bytes()); err != nil {
		if s.metrics != nil {
			s.metrics.UploadErrors.Add(1)
		}
		s.recordError(err)
		s.log.Warn("[%s] upload failed: %v", shortID(id), err)
		return
	}

	elapsed := time.Since(start)
	if s.metrics != nil {
		s.metrics.ObserveUpload(fb.Len, start)
	}
	s.mu.Lock()
	s.status.LastUploadAt = time.Now()
	s.status.LastBytes = fb.Len
	s.status.LastLatencyMs = elapsed.Milliseconds()
	s.status.LastError = ""
	s.mu.Unlock()
	s.log.Info("[%s] uploaded %d bytes in %d ms", shortID(id), fb.Len, elapsed.Milliseconds())
}

// report samples and posts the supply voltage. Failures never reach the
// image upload.
func (s *Scheduler) report(ctx context.Context, id, url string) {
	if s.sampler == nil {
		return
	}
	mv, err := s.sampler.Sample()
	if err != nil {
		if s.metrics != nil {
			s.metrics.TelemetryErrors.Add(1)
		}
		s.log.Warn("[%s] voltage read failed: %v", shortID(id), err)
		return
	}
	if s.metrics != nil {
		s.metrics.VoltageMillivolt.Store(int64(mv))
	}
	s.mu.Lock()
	s.status.LastVoltageMV = mv
	s.mu.Unlock()

	if err := s.up.PostTelemetry(ctx, url, mv); err != nil {
		if s.metrics != nil {
			s.metrics.TelemetryErrors.Add(1)
		}
		s.log.Warn("[%s] voltage upload failed: %v", shortID(id), err)
		return
	}
	if s.metrics != nil {
		s.metrics.TelemetryOK.Add(1)
	}
	s.log.Debug("[%s] reported %d mV", shortID(id), mv)
}

func (s *Scheduler) recordError(err error) {
	s.mu.Lock()
	s.status.LastError = err.Error()
	s.mu.Unlock()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
