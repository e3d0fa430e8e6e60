package adc

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/cam-uploader/internal/logger"
)

// fakeSubsystem tracks every context it hands out.
type fakeSubsystem struct {
	raw       int
	unitErr   error
	configErr error
	readErr   error
	schemes   map[Scheme]func(int) (int, error)

	opened  int
	closed  int
	created []Scheme
}

func (f *fakeSubsystem) NewUnit(id int) (Unit, error) {
	if f.unitErr != nil {
		return nil, f.unitErr
	}
	f.opened++
	return &fakeUnit{f: f}, nil
}

func (f *fakeSubsystem) NewCalibration(scheme Scheme, unit, channel int, atten Attenuation) (Calibration, error) {
	conv, ok := f.schemes[scheme]
	if !ok {
		return nil, ErrNotSupported
	}
	f.opened++
	f.created = append(f.created, scheme)
	return &fakeCalibration{f: f, conv: conv}, nil
}

type fakeUnit struct{ f *fakeSubsystem }

func (u *fakeUnit) ConfigChannel(int, Attenuation) error { return u.f.configErr }
func (u *fakeUnit) Read(int) (int, error)                { return u.f.raw, u.f.readErr }
func (u *fakeUnit) Close() error                         { u.f.closed++; return nil }

type fakeCalibration struct {
	f    *fakeSubsystem
	conv func(int) (int, error)
}

func (c *fakeCalibration) RawToVoltage(raw int) (int, error) { return c.conv(raw) }
func (c *fakeCalibration) Close() error                      { c.f.closed++; return nil }

func newSampler(f *fakeSubsystem) *VoltageSampler {
	return NewVoltageSampler(f, logger.Discard().Module("ADC"))
}

func TestSamplePrefersCurveFitting(t *testing.T) {
	f := &fakeSubsystem{
		raw: 2000,
		schemes: map[Scheme]func(int) (int, error){
			SchemeCurveFitting: func(int) (int, error) { return 1850, nil },
			SchemeLineFitting:  func(int) (int, error) { return 1700, nil },
		},
	}
	mv, err := newSampler(f).Sample()
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if mv != 3700 {
		t.Errorf("mv = %d, want 3700 (1850 x2 divider)", mv)
	}
	if len(f.created) != 1 || f.created[0] != SchemeCurveFitting {
		t.Errorf("calibrations created = %v", f.created)
	}
	if f.opened != f.closed {
		t.Errorf("leaked contexts: opened=%d closed=%d", f.opened, f.closed)
	}
}

func TestSampleFallsBackToLineFitting(t *testing.T) {
	f := &fakeSubsystem{
		raw: 2000,
		schemes: map[Scheme]func(int) (int, error){
			SchemeLineFitting: func(int) (int, error) { return 1700, nil },
		},
	}
	mv, err := newSampler(f).Sample()
	if err != nil || mv != 3400 {
		t.Fatalf("Sample = %d, %v; want 3400", mv, err)
	}
	if f.opened != f.closed {
		t.Errorf("leaked contexts: opened=%d closed=%d", f.opened, f.closed)
	}
}

func TestSampleApproximatesWithoutCalibration(t *testing.T) {
	f := &fakeSubsystem{raw: FullScaleRaw}
	mv, err := newSampler(f).Sample()
	if err != nil {
		t.Fatal(err)
	}
	if mv != 6600 {
		t.Errorf("mv = %d, want 6600", mv)
	}
}

func TestSampleApproximatesWhenConversionFails(t *testing.T) {
	f := &fakeSubsystem{
		raw: 2048,
		schemes: map[Scheme]func(int) (int, error){
			SchemeCurveFitting: func(int) (int, error) { return 0, errors.New("out of range") },
			SchemeLineFitting:  func(int) (int, error) { return 9999, nil },
		},
	}
	mv, err := newSampler(f).Sample()
	if err != nil {
		t.Fatal(err)
	}
	if want := Approximate(2048) * 2; mv != want {
		t.Errorf("mv = %d, want %d", mv, want)
	}
	if len(f.created) != 1 {
		t.Errorf("line fitting should not be tried after a failed conversion, created=%v", f.created)
	}
	if f.opened != f.closed {
		t.Errorf("leaked contexts: opened=%d closed=%d", f.opened, f.closed)
	}
}

func TestSampleErrorsReleaseUnit(t *testing.T) {
	tests := []struct {
		name string
		f    *fakeSubsystem
	}{
		{"unit", &fakeSubsystem{unitErr: errors.New("busy")}},
		{"config", &fakeSubsystem{configErr: errors.New("bad channel")}},
		{"read", &fakeSubsystem{readErr: errors.New("timeout")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newSampler(tt.f).Sample()
			if !errors.Is(err, ErrSample) {
				t.Fatalf("err = %v, want ErrSample", err)
			}
			if tt.f.opened != tt.f.closed {
				t.Errorf("leaked contexts: opened=%d closed=%d", tt.f.opened, tt.f.closed)
			}
		})
	}
}

func TestSimSubsystemRoundTrip(t *testing.T) {
	sim := NewSimSubsystem(4000)
	s := NewVoltageSampler(sim, logger.Discard().Module("ADC"))
	for i := 0; i < 5; i++ {
		mv, err := s.Sample()
		if err != nil {
			t.Fatal(err)
		}
		if mv < 3980 || mv > 4020 {
			t.Errorf("sample %d = %dmV, want about 4000", i, mv)
		}
	}
	if u, c := sim.Open(); u != 0 || c != 0 {
		t.Errorf("open units=%d calibrations=%d after sampling", u, c)
	}
}

func TestIIOSubsystem(t *testing.T) {
	dir := t.TempDir()
	write := func(name, v string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(v), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("in_voltage0_raw", "1000\n")
	write("in_voltage_scale", "0.805664062\n")

	s := NewVoltageSampler(NewIIOSubsystem(dir), logger.Discard().Module("ADC"))
	mv, err := s.Sample()
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	// int(1000 * 0.8057) = 805, doubled by the divider.
	if mv != 1610 {
		t.Errorf("mv = %d, want 1610", mv)
	}

	s.Channel = 3
	if _, err := s.Sample(); !errors.Is(err, ErrSample) {
		t.Errorf("missing channel: err = %v, want ErrSample", err)
	}
}

func TestIIOWithoutScaleApproximates(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "in_voltage0_raw"), []byte("4095"), 0o644); err != nil {
		t.Fatal(err)
	}
	mv, err := NewVoltageSampler(NewIIOSubsystem(dir), logger.Discard().Module("ADC")).Sample()
	if err != nil || mv != 6600 {
		t.Errorf("Sample = %d, %v; want 6600", mv, err)
	}
}
