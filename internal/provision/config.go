package provision

import "time"

// Config defines the runtime configuration for the provisioning server.
type Config struct {
	Addr string
	// MaxFormBytes bounds a POST body to /uploader_save.
	MaxFormBytes int64
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration
	// StatusInterval paces /api/status/stream events.
	StatusInterval time.Duration
}

// DefaultConfig returns the listen address and limits used by cmd/uploader.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		MaxFormBytes:    4096,
		ShutdownTimeout: 5 * time.Second,
		StatusInterval:  2 * time.Second,
	}
}
