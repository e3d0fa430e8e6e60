package provision

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/cam-uploader/internal/config"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/cam-uploader/internal/scheduler"
)

// fakeBackend sanitizes like the real store so responses look realistic.
type fakeBackend struct {
	mu      sync.Mutex
	cfg     config.Config
	sets    []config.Config
	failSet error
	status  scheduler.Status
}

func (b *fakeBackend) GetConfig() config.Config {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cfg
}

func (b *fakeBackend) UpdateConfig(fn func(config.Config) config.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := fn(b.cfg)
	b.sets = append(b.sets, c)
	if b.failSet != nil {
		return b.failSet
	}
	b.cfg = config.Sanitize(c)
	return nil
}

func (b *fakeBackend) Status() scheduler.Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

func newTestServer(t *testing.T, b *fakeBackend) *httptest.Server {
	t.Helper()
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "cam_uploader_cycles_total 0\n")
	})
	srv := httptest.NewServer(NewServer(DefaultConfig(), b, metrics).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, srv *httptest.Server, path, accept string) (*http.Response, []byte) {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, srv.URL+path, nil)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, body
}

func postForm(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := srv.Client().Post(srv.URL+"/uploader_save", "application/x-www-form-urlencoded", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp
}

func TestIndexEscapesCurrentValues(t *testing.T) {
	b := &fakeBackend{cfg: config.Config{
		URL:         `https://ex.test/up?a=1&b='x'"><script>`,
		VoltageURL:  "http://ex.test/v",
		IntervalSec: 42,
	}}
	srv := newTestServer(t, b)

	resp, body := get(t, srv, "/", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	page := string(body)
	if strings.Contains(page, "<script>") {
		t.Error("url was not escaped")
	}
	for _, want := range []string{
		`name="url"`, `name="vurl"`, `name="interval"`,
		`value="http://ex.test/v"`, `value="42"`, `action="/uploader_save"`,
	} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %s", want)
		}
	}
}

func TestIndexUnknownPath(t *testing.T) {
	srv := newTestServer(t, &fakeBackend{})
	if resp, _ := get(t, srv, "/nope", ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestSaveUpdatesOnlyPresentFields(t *testing.T) {
	b := &fakeBackend{cfg: config.Config{URL: "http://old", VoltageURL: "http://oldv", IntervalSec: 60}}
	srv := newTestServer(t, b)

	resp := postForm(t, srv, "interval=15")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	got := b.GetConfig()
	if got.URL != "http://old" || got.VoltageURL != "http://oldv" || got.IntervalSec != 15 {
		t.Errorf("config = %+v", got)
	}
}

func TestSaveKeepsEncodedURLForNormalization(t *testing.T) {
	b := &fakeBackend{cfg: config.Default()}
	srv := newTestServer(t, b)

	postForm(t, srv, "url=https%3A%2F%2Fex.test%2Fup&vurl=&interval=5")
	b.mu.Lock()
	submitted := b.sets[0]
	b.mu.Unlock()
	if submitted.URL != "https%3A%2F%2Fex.test%2Fup" {
		t.Errorf("handler decoded the url itself: %q", submitted.URL)
	}
	if got := b.GetConfig(); got.URL != "https://ex.test/up" || got.VoltageURL != "" || got.IntervalSec != 5 {
		t.Errorf("config = %+v", got)
	}
}

func TestSaveVoltageURLDoesNotTouchURL(t *testing.T) {
	b := &fakeBackend{cfg: config.Config{URL: "http://keep", IntervalSec: 60}}
	srv := newTestServer(t, b)

	postForm(t, srv, "vurl=http%3A%2F%2Fex.test%2Fv")
	if got := b.GetConfig(); got.URL != "http://keep" || got.VoltageURL != "http://ex.test/v" {
		t.Errorf("config = %+v", got)
	}
}

func TestSaveNonNumericIntervalClampsToOne(t *testing.T) {
	b := &fakeBackend{cfg: config.Config{URL: "http://a", IntervalSec: 60}}
	srv := newTestServer(t, b)

	postForm(t, srv, "interval=soon")
	if got := b.GetConfig().IntervalSec; got != 1 {
		t.Errorf("interval = %d, want 1", got)
	}
	postForm(t, srv, "interval=30s")
	if got := b.GetConfig().IntervalSec; got != 30 {
		t.Errorf("interval = %d, want 30", got)
	}
}

func TestSaveFailureIs500(t *testing.T) {
	b := &fakeBackend{cfg: config.Config{URL: "http://old", IntervalSec: 60}, failSet: errors.New("nvs full")}
	srv := newTestServer(t, b)

	resp := postForm(t, srv, "url=http%3A%2F%2Fnew")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
	if got := b.GetConfig().URL; got != "http://old" {
		t.Errorf("url = %q", got)
	}
}

func TestSaveRejectsGet(t *testing.T) {
	srv := newTestServer(t, &fakeBackend{})
	if resp, _ := get(t, srv, "/uploader_save", ""); resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestConcurrentPartialSavesKeepBothFields(t *testing.T) {
	b := &fakeBackend{cfg: config.Default()}
	srv := newTestServer(t, b)

	post := func(wg *sync.WaitGroup, body string) {
		defer wg.Done()
		resp, err := srv.Client().Post(srv.URL+"/uploader_save", "application/x-www-form-urlencoded", strings.NewReader(body))
		if err != nil {
			t.Error(err)
			return
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go post(&wg, "url=http%3A%2F%2Fex.test%2Fup")
		go post(&wg, "vurl=http%3A%2F%2Fex.test%2Fv")
	}
	wg.Wait()
	if got := b.GetConfig(); got.URL != "http://ex.test/up" || got.VoltageURL != "http://ex.test/v" {
		t.Errorf("config = %+v", got)
	}
}

func TestConfigEndpointMethods(t *testing.T) {
	srv := newTestServer(t, &fakeBackend{cfg: config.Config{URL: "http://a", IntervalSec: 9}})

	resp, body := get(t, srv, "/api/config", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "http://a") {
		t.Errorf("GET = %d %s", resp.StatusCode, body)
	}

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		req, _ := http.NewRequest(method, srv.URL+"/api/config", strings.NewReader("url=x"))
		resp, err := srv.Client().Do(req)
		if err != nil {
			t.Fatalf("%s: %v", method, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("%s status = %d, want 405", method, resp.StatusCode)
		}
	}
}

func TestStatusNegotiation(t *testing.T) {
	b := &fakeBackend{
		cfg: config.Config{URL: "http://a", IntervalSec: 9},
		status: scheduler.Status{
			State:       scheduler.StateSleeping,
			Connected:   true,
			Profile:     "AI_THINKER",
			Cycles:      3,
			LastCycleID: "0b6f6c1e-1111-2222-3333-444455556666",
			LastBytes:   1234,
		},
	}
	srv := newTestServer(t, b)

	resp, body := get(t, srv, "/api/status", "application/x-protobuf")
	if ct := resp.Header.Get("Content-Type"); ct != "application/protobuf" {
		t.Fatalf("Content-Type = %q", ct)
	}
	var msg structpb.Struct
	if err := proto.Unmarshal(body, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	fields := msg.AsMap()
	if fields["state"] != "sleeping" || fields["profile"] != "AI_THINKER" || fields["connected"] != true {
		t.Errorf("fields = %v", fields)
	}
	if fields["cycles"] != float64(3) || fields["last_bytes"] != float64(1234) {
		t.Errorf("counters = %v %v", fields["cycles"], fields["last_bytes"])
	}
	if fields["last_upload_at"] != "" {
		t.Errorf("zero time should be empty, got %v", fields["last_upload_at"])
	}

	resp, body = get(t, srv, "/api/status", "")
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type = %q", ct)
	}
	if !strings.Contains(string(body), `"last_cycle_id"`) || !strings.Contains(string(body), "0b6f6c1e") {
		t.Errorf("json body = %s", body)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, &fakeBackend{status: scheduler.Status{State: scheduler.StateIdle}})

	resp, body := get(t, srv, "/health", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"status":"ok"`) {
		t.Errorf("health = %d %s", resp.StatusCode, body)
	}
	_, body = get(t, srv, "/metrics", "")
	if !strings.Contains(string(body), "cam_uploader_cycles_total") {
		t.Errorf("metrics body = %s", body)
	}
}

func TestAtoi(t *testing.T) {
	tests := map[string]int{
		"":            0,
		"12":          12,
		"  7x":        7,
		"+5":          5,
		"-3":          -3,
		"abc":         0,
		"99999999999": 1<<31 - 1,
	}
	for in, want := range tests {
		if got := atoi(in); got != want {
			t.Errorf("atoi(%q) = %d, want %d", in, got, want)
		}
	}
}
