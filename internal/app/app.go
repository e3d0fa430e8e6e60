// Package app wires the uploader's collaborators together and exposes the
// entry points used by the provisioning page and the connectivity monitor.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/cam-uploader/internal/adc"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/cam-uploader/internal/camera"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/cam-uploader/internal/config"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/cam-uploader/internal/kv"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/cam-uploader/internal/logger"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/cam-uploader/internal/metrics"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/cam-uploader/internal/scheduler"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/cam-uploader/internal/uploader"
)

var (
	// ErrNotInitialized is returned by StartWorker before Initialize.
	ErrNotInitialized = errors.New("app not initialized")
	// ErrWorkerStarted is returned by a second StartWorker.
	ErrWorkerStarted = errors.New("worker already started")
)

// Options selects the backends and timings of the daemon.
type Options struct {
	DataDir string
	// StoreFile is the KV file; relative paths are under DataDir.
	StoreFile string

	CameraBackend string // "sim"
	SimProfile    string // wiring the simulated camera answers on; empty accepts any
	SimSource     string // optional JPEG/PNG served instead of the test card
	ExtraMemory   bool   // multi-buffer, grab-latest frame strategy

	ADCBackend  string // "sim" or "iio"
	IIODevice   string // sysfs directory of the IIO converter
	SimSupplyMV int

	CABundle      string
	UploadTimeout time.Duration
	RetryBackoff  time.Duration
	IntervalUnit  time.Duration
}

// DefaultOptions returns the settings used by cmd/uploader.
func DefaultOptions() Options {
	return Options{
		DataDir:       "./data",
		StoreFile:     "nvs.json",
		CameraBackend: "sim",
		SimProfile:    "AI_THINKER",
		ADCBackend:    "sim",
		IIODevice:     "/sys/bus/iio/devices/iio:device0",
		SimSupplyMV:   3900,
		UploadTimeout: uploader.DefaultTimeout,
		RetryBackoff:  scheduler.DefaultRetryBackoff,
		IntervalUnit:  time.Second,
	}
}

// Deps are the hardware and storage collaborators. Nil fields are built
// from Options by New.
type Deps struct {
	Store    kv.Store
	Camera   camera.Driver
	ADC      adc.Subsystem
	Uploader scheduler.Deliverer
	Metrics  *metrics.Metrics
}

// App owns the configuration store and the capture worker.
type App struct {
	opts    Options
	log     *logger.Module
	metrics *metrics.Metrics

	wake   *scheduler.Signal
	store  *config.Store
	driver camera.Driver
	prober *camera.Prober
	sched  *scheduler.Scheduler

	mu          sync.Mutex
	initialized bool
	cancel      context.CancelFunc
	done        chan struct{}
}

// New builds an App with backends chosen by opts.
func New(opts Options) (*App, error) {
	deps, err := buildDeps(opts)
	if err != nil {
		return nil, err
	}
	return NewWithDeps(opts, deps), nil
}

func buildDeps(opts Options) (Deps, error) {
	var deps Deps

	path := opts.StoreFile
	if path == "" {
		path = DefaultOptions().StoreFile
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(opts.DataDir, path)
	}
	store, err := kv.NewFileStore(path)
	if err != nil {
		return deps, fmt.Errorf("open config store: %w", err)
	}
	deps.Store = store

	switch opts.CameraBackend {
	case "", "sim":
		d := camera.NewSimDriver(opts.SimProfile)
		if opts.SimSource != "" {
			if err := d.LoadSource(opts.SimSource); err != nil {
				return deps, err
			}
		}
		deps.Camera = d
	default:
		return deps, fmt.Errorf("unknown camera backend %q", opts.CameraBackend)
	}

	switch opts.ADCBackend {
	case "", "sim":
		deps.ADC = adc.NewSimSubsystem(opts.SimSupplyMV)
	case "iio":
		deps.ADC = adc.NewIIOSubsystem(opts.IIODevice)
	default:
		return deps, fmt.Errorf("unknown adc backend %q", opts.ADCBackend)
	}

	up, err := uploader.New(uploader.Options{Timeout: opts.UploadTimeout, CABundle: opts.CABundle})
	if err != nil {
		return deps, fmt.Errorf("create uploader: %w", err)
	}
	deps.Uploader = up

	return deps, nil
}

// NewWithDeps builds an App around the given collaborators. deps.Store and
// deps.Camera are required.
func NewWithDeps(opts Options, deps Deps) *App {
	m := deps.Metrics
	if m == nil {
		m = metrics.New()
	}
	if deps.Uploader == nil {
		up, _ := uploader.New(uploader.Options{Timeout: opts.UploadTimeout})
		deps.Uploader = up
	}

	wake := scheduler.NewSignal()
	store := config.NewStore(deps.Store, wake, nil)
	prober := camera.NewProber(deps.Camera, camera.ProberOptions{
		ExtraMemory: opts.ExtraMemory,
		Metrics:     m,
	})

	var sampler scheduler.Sampler
	if deps.ADC != nil {
		sampler = adc.NewVoltageSampler(deps.ADC, nil)
	}

	sched := scheduler.New(store, prober, deps.Camera, sampler, deps.Uploader, wake, scheduler.Options{
		IntervalUnit: opts.IntervalUnit,
		RetryBackoff: opts.RetryBackoff,
		Metrics:      m,
	})

	return &App{
		opts:    opts,
		log:     logger.For("App"),
		metrics: m,
		wake:    wake,
		store:   store,
		driver:  deps.Camera,
		prober:  prober,
		sched:   sched,
	}
}

// Initialize loads the persisted configuration. It may be called once.
func (a *App) Initialize() error {
	if err := a.store.Init(); err != nil {
		return fmt.Errorf("initialize config: %w", err)
	}
	a.mu.Lock()
	a.initialized = true
	a.mu.Unlock()
	return nil
}

// StartWorker launches the capture loop. It runs until ctx is cancelled or
// Stop is called.
func (a *App) StartWorker(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.initialized {
		return ErrNotInitialized
	}
	if a.done != nil {
		return ErrWorkerStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		err := a.sched.Run(ctx)
		a.log.Info("worker stopped: %v", err)
	}(a.done)

	a.log.Info("worker started")
	return nil
}

// Stop cancels the worker, waits for it and releases the camera.
func (a *App) Stop() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel = nil
	a.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	if _, ok := a.prober.Initialized(); ok {
		if err := a.driver.Deinit(); err != nil {
			a.log.Warn("camera deinit: %v", err)
		}
	}
}

// GetConfig returns a copy of the current configuration.
func (a *App) GetConfig() config.Config { return a.store.Get() }

// SetConfig sanitizes, persists and publishes c, then wakes the worker.
func (a *App) SetConfig(c config.Config) error { return a.store.Set(c) }

// UpdateConfig applies fn to the current configuration and saves the result
// like SetConfig. Concurrent updates are applied one after another.
func (a *App) UpdateConfig(fn func(config.Config) config.Config) error {
	return a.store.Update(fn)
}

// NotifyConnectivity records network reachability and wakes the worker.
func (a *App) NotifyConnectivity(up bool) {
	if up != a.sched.Connected() {
		a.log.Info("connectivity: %v", up)
	}
	a.sched.SetConnected(up)
}

// Status returns the worker status.
func (a *App) Status() scheduler.Status { return a.sched.Status() }

// Metrics returns the metrics the worker records into.
func (a *App) Metrics() *metrics.Metrics { return a.metrics }
