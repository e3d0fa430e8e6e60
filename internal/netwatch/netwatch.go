// Package netwatch reports network reachability to the capture worker.
package netwatch

import (
	"context"
	"net"
	"time"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/cam-uploader/internal/logger"
)

// Config controls the reachability probe.
type Config struct {
	// Target is a host:port dialed over TCP. Empty means the network is
	// assumed up and reported once.
	Target   string
	Interval time.Duration
	Timeout  time.Duration
}

// DefaultConfig returns the probe settings used by cmd/uploader.
func DefaultConfig() Config {
	return Config{
		Interval: 10 * time.Second,
		Timeout:  3 * time.Second,
	}
}

// DialFunc opens a connection; net.Dialer.DialContext satisfies it.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Watcher dials Target periodically and calls notify when reachability
// changes. The first result is always reported.
type Watcher struct {
	cfg    Config
	dial   DialFunc
	notify func(up bool)
	log    *logger.Module
}

// New creates a Watcher.
func New(cfg Config, notify func(up bool)) *Watcher {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Watcher{
		cfg:    cfg,
		dial:   (&net.Dialer{}).DialContext,
		notify: notify,
		log:    logger.For("Netwatch"),
	}
}

// Check dials the target once.
func (w *Watcher) Check(ctx context.Context) bool {
	if w.cfg.Target == "" {
		return true
	}
	ctx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
	defer cancel()

	conn, err := w.dial(ctx, "tcp", w.cfg.Target)
	if err != nil {
		w.log.Debug("dial %s: %v", w.cfg.Target, err)
		return false
	}
	conn.Close()
	return true
}

// Run probes until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	if w.cfg.Target == "" {
		w.log.Info("no probe target; assuming network is up")
		w.notify(true)
		<-ctx.Done()
		return
	}

	w.log.Info("probing %s every %v", w.cfg.Target, w.cfg.Interval)
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	first := true
	var last bool
	for {
		up := w.Check(ctx)
		if ctx.Err() != nil {
			return
		}
		if first || up != last {
			if up {
				w.log.Info("network reachable (%s)", w.cfg.Target)
			} else {
				w.log.Warn("network unreachable (%s)", w.cfg.Target)
			}
			w.notify(up)
			first, last = false, up
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
