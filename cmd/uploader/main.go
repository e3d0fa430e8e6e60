package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/cam-uploader/internal/app"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/cam-uploader/internal/board"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/cam-uploader/internal/logger"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/cam-uploader/internal/netwatch"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/cam-uploader/internal/provision"
)

func main() {
	opts := app.DefaultOptions()
	httpCfg := provision.DefaultConfig()
	netCfg := netwatch.DefaultConfig()

	var logLevel string
	var logColor bool

	flag.StringVar(&opts.DataDir, "data", opts.DataDir, "Data directory for persisted settings")
	flag.StringVar(&opts.StoreFile, "store", opts.StoreFile, "Settings file (relative to -data)")
	flag.StringVar(&opts.CameraBackend, "camera", opts.CameraBackend, "Camera backend (sim)")
	flag.StringVar(&opts.SimProfile, "sim-profile", opts.SimProfile, "Board wiring the simulated camera answers on (empty: any)")
	flag.StringVar(&opts.SimSource, "sim-source", opts.SimSource, "JPEG/PNG served by the simulated camera")
	flag.BoolVar(&opts.ExtraMemory, "extra-mem", opts.ExtraMemory, "Use two frame buffers in external RAM")
	flag.StringVar(&opts.ADCBackend, "adc", opts.ADCBackend, "ADC backend (sim, iio)")
	flag.StringVar(&opts.IIODevice, "iio-device", opts.IIODevice, "IIO device directory")
	flag.IntVar(&opts.SimSupplyMV, "sim-supply-mv", opts.SimSupplyMV, "Supply voltage reported by the simulated ADC")
	flag.StringVar(&opts.CABundle, "ca-bundle", opts.CABundle, "PEM file with extra trusted CAs for uploads")
	flag.DurationVar(&opts.UploadTimeout, "upload-timeout", opts.UploadTimeout, "Timeout for each POST")
	flag.DurationVar(&opts.RetryBackoff, "camera-retry", opts.RetryBackoff, "Wait between failed camera probes")
	flag.StringVar(&httpCfg.Addr, "http", httpCfg.Addr, "Provisioning HTTP server address")
	flag.StringVar(&netCfg.Target, "probe", netCfg.Target, "host:port dialed to detect connectivity (empty: assume online)")
	flag.DurationVar(&netCfg.Interval, "probe-interval", netCfg.Interval, "Connectivity probe interval")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error, silent)")
	flag.BoolVar(&logColor, "log-color", true, "Enable colored log output")
	flag.Parse()

	// Initialize logger
	level, err := logger.ParseLevel(logLevel)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	logger.Init(level, os.Stderr, logColor)

	logger.Info("Main", "Camera uploader starting (target %s, %d board profiles)", board.BuildTarget.Name, len(board.Table()))
	logger.Info("Main", "Log level: %s", level)

	a, err := app.New(opts)
	if err != nil {
		log.Fatalf("Failed to create app: %v", err)
	}
	if err := a.Initialize(); err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.StartWorker(ctx); err != nil {
		log.Fatalf("Failed to start worker: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		netwatch.New(netCfg, a.NotifyConnectivity).Run(ctx)
	}()
	go func() {
		defer wg.Done()
		srv := provision.NewServer(httpCfg, a, a.Metrics().Handler())
		if err := srv.Run(ctx); err != nil {
			logger.Error("Main", "HTTP server error: %v", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("Main", "Shutting down...")

	wg.Wait()
	a.Stop()

	logger.Info("Main", "Uploader stopped")
}
