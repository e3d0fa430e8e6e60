package adc

import (
	"fmt"
	"math/rand/v2"
	"sync"
)

// SimSubsystem is a software converter that reports a configurable supply
// voltage. Readings carry a little noise so successive samples differ.
type SimSubsystem struct {
	mu sync.Mutex

	SupplyMV   int  // voltage before the divider
	NoiseLSB   int  // maximum +/- noise in raw counts
	NoCurve    bool // pretend curve fitting is unavailable
	NoLine     bool // pretend line fitting is unavailable
	openUnits  int
	openCalibs int
}

// NewSimSubsystem creates a converter reading a 1S lithium cell at mv.
func NewSimSubsystem(mv int) *SimSubsystem {
	return &SimSubsystem{SupplyMV: mv, NoiseLSB: 3}
}

// Open reports how many units and calibration contexts are still held.
func (s *SimSubsystem) Open() (units, calibrations int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openUnits, s.openCalibs
}

func (s *SimSubsystem) NewUnit(id int) (Unit, error) {
	if id != SupplyUnit {
		return nil, fmt.Errorf("unit %d not present", id)
	}
	s.mu.Lock()
	s.openUnits++
	s.mu.Unlock()
	return &simUnit{sys: s, channels: map[int]Attenuation{}}, nil
}

func (s *SimSubsystem) NewCalibration(scheme Scheme, unit, channel int, atten Attenuation) (Calibration, error) {
	if (scheme == SchemeCurveFitting && s.NoCurve) || (scheme == SchemeLineFitting && s.NoLine) {
		return nil, ErrNotSupported
	}
	s.mu.Lock()
	s.openCalibs++
	s.mu.Unlock()
	return &simCalibration{sys: s}, nil
}

func (s *SimSubsystem) raw() int {
	s.mu.Lock()
	pinMV := s.SupplyMV * DividerDen / DividerNum
	noise := s.NoiseLSB
	s.mu.Unlock()

	raw := pinMV * FullScaleRaw / ApproxFullScaleMV
	if noise > 0 {
		raw += rand.IntN(2*noise+1) - noise
	}
	return min(max(raw, 0), FullScaleRaw)
}

type simUnit struct {
	sys      *SimSubsystem
	channels map[int]Attenuation
	closed   bool
}

func (u *simUnit) ConfigChannel(channel int, atten Attenuation) error {
	if channel < 0 || channel > 9 {
		return fmt.Errorf("channel %d out of range", channel)
	}
	u.channels[channel] = atten
	return nil
}

func (u *simUnit) Read(channel int) (int, error) {
	if _, ok := u.channels[channel]; !ok {
		return 0, fmt.Errorf("channel %d not configured", channel)
	}
	return u.sys.raw(), nil
}

func (u *simUnit) Close() error {
	if u.closed {
		return nil
	}
	u.closed = true
	u.sys.mu.Lock()
	u.sys.openUnits--
	u.sys.mu.Unlock()
	return nil
}

type simCalibration struct {
	sys    *SimSubsystem
	closed bool
}

func (c *simCalibration) RawToVoltage(raw int) (int, error) {
	return Approximate(raw), nil
}

func (c *simCalibration) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.sys.mu.Lock()
	c.sys.openCalibs--
	c.sys.mu.Unlock()
	return nil
}
