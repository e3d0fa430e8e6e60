package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.Cycles.Add(3)
	m.ObserveUpload(1200, time.Now().Add(-50*time.Millisecond))
	m.VoltageMillivolt.Store(4100)
	SetFlag(&m.CameraInitialized, true)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	text := string(body)

	for _, want := range []string{
		"cam_uploader_cycles_total 3",
		"cam_uploader_uploads_total 1",
		"cam_uploader_upload_bytes_total 1200",
		"cam_uploader_supply_voltage_mv 4100",
		"cam_uploader_camera_initialized 1",
		"cam_uploader_network_connected 0",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestObserveUploadLatency(t *testing.T) {
	m := New()
	m.ObserveUpload(10, time.Now().Add(-2*time.Second))
	if got := m.UploadLatencyMs.Load(); got < 2000 {
		t.Errorf("latency = %dms, want >= 2000", got)
	}
}

func TestRegistryGather(t *testing.T) {
	m := New()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(families) < 10 {
		t.Errorf("expected all collectors registered, got %d families", len(families))
	}
}
