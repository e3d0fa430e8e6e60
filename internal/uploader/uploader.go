// Package uploader delivers captured frames and telemetry values over HTTP.
package uploader

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/cam-uploader/internal/logger"
)

// DefaultTimeout bounds every request, connection setup included.
const DefaultTimeout = 15 * time.Second

const (
	ContentTypeJPEG = "image/jpeg"
	ContentTypeText = "text/plain"
)

var (
	// ErrInvalidURL is returned before any I/O for an empty destination.
	ErrInvalidURL = errors.New("invalid upload url")
	// ErrDelivery covers transport failures and non-2xx answers.
	ErrDelivery = errors.New("delivery failed")
)

// StatusError is a delivery that reached the server but was not accepted.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d", e.Code)
}

func (e *StatusError) Unwrap() error { return ErrDelivery }

// Options configures an Uploader.
type Options struct {
	Timeout  time.Duration // defaults to DefaultTimeout
	CABundle string        // optional PEM file added to the system roots
	Log      *logger.Module
}

// Uploader posts payloads with a bounded timeout. It never retries.
type Uploader struct {
	client *http.Client
	log    *logger.Module
}

// New creates an Uploader.
func New(opts Options) (*Uploader, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Log == nil {
		opts.Log = logger.For("Uploader")
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   opts.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        4,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if opts.CABundle != "" {
		pool, err := loadCABundle(opts.CABundle)
		if err != nil {
			return nil, err
		}
		transport.TLSClientConfig = &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}
	}

	return &Uploader{
		client: &http.Client{Timeout: opts.Timeout, Transport: transport},
		log:    opts.Log,
	}, nil
}

// NewWithClient wraps an existing client, e.g. an httptest server's.
func NewWithClient(c *http.Client, log *logger.Module) *Uploader {
	if log == nil {
		log = logger.For("Uploader")
	}
	return &Uploader{client: c, log: log}
}

func loadCABundle(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ca bundle: %w", err)
	}
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("ca bundle %s: no certificates found", path)
	}
	return pool, nil
}

// PostImage sends a JPEG frame as the raw request body.
func (u *Uploader) PostImage(ctx context.Context, url string, jpeg []byte) error {
	return u.post(ctx, url, ContentTypeJPEG, jpeg)
}

// PostTelemetry sends a millivolt reading as a decimal text body.
func (u *Uploader) PostTelemetry(ctx context.Context, url string, millivolts int) error {
	return u.post(ctx, url, ContentTypeText, []byte(strconv.Itoa(millivolts)))
}

func (u *Uploader) post(ctx context.Context, url, contentType string, body []byte) error {
	if url == "" {
		return fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	target := NormalizeURL(url)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := u.client.Do(req)
	if err != nil {
		u.log.Warn("POST failed: %v", err)
		return fmt.Errorf("%w: %w", ErrDelivery, err)
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		u.log.Warn("POST http status=%d", resp.StatusCode)
		return &StatusError{Code: resp.StatusCode}
	}
	u.log.Debug("POST %s %s %d bytes -> %d", contentType, target, len(body), resp.StatusCode)
	return nil
}
