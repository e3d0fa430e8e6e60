// Command snapshot probes the camera, captures one frame and posts it once.
// It keeps no settings and sends no voltage report.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/cam-uploader/internal/camera"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/cam-uploader/internal/logger"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/cam-uploader/internal/uploader"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/cam-uploader/pkg/types"
)

var (
	url         = flag.String("url", "", "Destination URL (http or https)")
	simProfile  = flag.String("sim-profile", "AI_THINKER", "Board wiring the simulated camera answers on (empty: any)")
	simSource   = flag.String("sim-source", "", "JPEG/PNG served by the simulated camera")
	extraMemory = flag.Bool("extra-mem", false, "Use two frame buffers in external RAM")
	caBundle    = flag.String("ca-bundle", "", "PEM file with extra trusted CAs")
	timeout     = flag.Duration("timeout", uploader.DefaultTimeout, "POST timeout")
	logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error, silent)")
	logColor    = flag.Bool("log-color", true, "Enable colored log output")
)

func main() {
	flag.Parse()

	level, err := logger.ParseLevel(*logLevel)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	logger.Init(level, os.Stderr, *logColor)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		logger.Error("Snapshot", "%v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	up, err := uploader.New(uploader.Options{Timeout: *timeout, CABundle: *caBundle})
	if err != nil {
		return err
	}

	driver := camera.NewSimDriver(*simProfile)
	if *simSource != "" {
		if err := driver.LoadSource(*simSource); err != nil {
			return err
		}
	}
	defer driver.Deinit()

	profile, err := camera.NewProber(driver, camera.ProberOptions{ExtraMemory: *extraMemory}).Probe()
	if err != nil {
		return err
	}

	start := time.Now()
	fb, ok := driver.GetFrame()
	if !ok {
		return camera.ErrNoFrame
	}
	defer driver.ReleaseFrame(fb)

	if fb.Format != types.PixelFormatJPEG {
		return fmt.Errorf("%w: got %s", camera.ErrUnexpectedFormat, fb.Format)
	}

	if err := up.PostImage(ctx, *url, fb.Bytes()); err != nil {
		return err
	}
	logger.Info("Snapshot", "uploaded %d bytes from %s in %d ms", fb.Len, profile, time.Since(start).Milliseconds())
	return nil
}
