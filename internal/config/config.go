// Package config holds the uploader configuration record and its store.
package config

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/cam-uploader/internal/kv"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/cam-uploader/internal/logger"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/cam-uploader/internal/uploader"
)

// Persisted layout.
const (
	Namespace     = "uploader"
	KeyURL        = "url"
	KeyVoltageURL = "voltage_url"
	KeyInterval   = "interval"
)

// DefaultIntervalSec applies when nothing valid is stored.
const DefaultIntervalSec = 60

var (
	// ErrPersist is returned by Set when the new value could not be stored.
	ErrPersist = errors.New("config persistence failed")
	// ErrNotInitialized is returned by Set before Init.
	ErrNotInitialized = errors.New("config store not initialized")
	// ErrAlreadyInitialized is returned by a second Init.
	ErrAlreadyInitialized = errors.New("config store already initialized")
)

// Config is the uploader configuration. An empty URL disables that delivery.
type Config struct {
	URL         string `json:"url"`
	VoltageURL  string `json:"voltage_url"`
	IntervalSec int    `json:"interval_sec"`
}

// Default returns the configuration used when nothing is stored.
func Default() Config {
	return Config{IntervalSec: DefaultIntervalSec}
}

// Enabled reports whether image delivery is configured.
func (c Config) Enabled() bool { return c.URL != "" }

// Sanitize bounds and normalizes both URLs and clamps the interval to >= 1.
func Sanitize(c Config) Config {
	c.URL = uploader.NormalizeURL(uploader.Truncate(c.URL))
	c.VoltageURL = uploader.NormalizeURL(uploader.Truncate(c.VoltageURL))
	if c.IntervalSec < 1 {
		c.IntervalSec = 1
	}
	if c.IntervalSec > math.MaxInt32 {
		c.IntervalSec = math.MaxInt32
	}
	return c
}

// Notifier is woken after every successful Set.
type Notifier interface {
	Notify()
}

// Store guards the live configuration. Readers get copies; the only writer
// path is Set, which persists before publishing.
type Store struct {
	kv     kv.Store
	notify Notifier
	log    *logger.Module

	// wmu orders writers so the stored and published values agree. mu only
	// guards the copy and is never held across storage I/O.
	wmu    sync.Mutex
	mu     sync.Mutex
	cfg    Config
	inited bool
}

// NewStore creates a Store backed by kvs. n may be nil.
func NewStore(kvs kv.Store, n Notifier, log *logger.Module) *Store {
	if log == nil {
		log = logger.For("Config")
	}
	return &Store{kv: kvs, notify: n, log: log, cfg: Default()}
}

// Init loads the persisted configuration, or defaults where keys are
// missing. It may be called once.
func (s *Store) Init() error {
	s.mu.Lock()
	if s.inited {
		s.mu.Unlock()
		return ErrAlreadyInitialized
	}
	s.mu.Unlock()

	cfg := s.load()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inited {
		return ErrAlreadyInitialized
	}
	s.cfg = cfg
	s.inited = true
	s.log.Info("loaded url=%q voltage_url=%q interval=%ds", cfg.URL, cfg.VoltageURL, cfg.IntervalSec)
	return nil
}

// load never fails: an unreadable store yields defaults.
func (s *Store) load() Config {
	cfg := Default()

	h, err := s.kv.Open(Namespace)
	if err != nil {
		s.log.Warn("open %s: %v; using defaults", Namespace, err)
		return cfg
	}
	defer h.Close()

	if v, err := h.GetString(KeyURL); err == nil {
		cfg.URL = uploader.NormalizeURL(uploader.Truncate(v))
	}
	if v, err := h.GetString(KeyVoltageURL); err == nil {
		cfg.VoltageURL = uploader.NormalizeURL(uploader.Truncate(v))
	}
	if v, err := h.GetInt32(KeyInterval); err == nil && v > 0 {
		cfg.IntervalSec = int(v)
	}
	return cfg
}

// Get returns a copy of the current configuration.
func (s *Store) Get() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Set sanitizes c, persists it, publishes it and wakes the notifier. When
// persisting fails the published value is left as it was.
func (s *Store) Set(c Config) error {
	return s.Update(func(Config) Config { return c })
}

// Update applies fn to the current value and stores the result like Set.
// Writers are serialized, so fn always sees the last saved value.
func (s *Store) Update(fn func(Config) Config) error {
	s.mu.Lock()
	inited := s.inited
	s.mu.Unlock()
	if !inited {
		return ErrNotInitialized
	}

	s.wmu.Lock()
	defer s.wmu.Unlock()

	clean := Sanitize(fn(s.Get()))
	if err := s.save(clean); err != nil {
		s.log.Error("save failed: %v", err)
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}

	s.mu.Lock()
	s.cfg = clean
	s.mu.Unlock()

	if s.notify != nil {
		s.notify.Notify()
	}
	return nil
}

func (s *Store) save(c Config) error {
	h, err := s.kv.Open(Namespace)
	if err != nil {
		return err
	}
	defer h.Close()

	if err := h.SetString(KeyURL, c.URL); err != nil {
		return err
	}
	if err := h.SetString(KeyVoltageURL, c.VoltageURL); err != nil {
		return err
	}
	if err := h.SetInt32(KeyInterval, int32(c.IntervalSec)); err != nil {
		return err
	}
	return h.Commit()
}
