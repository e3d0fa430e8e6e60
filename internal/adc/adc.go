// Package adc samples the supply voltage through a one-shot analog input.
//
// The hardware side is reached through the Subsystem interface so the sampler
// can run against a simulated converter, a Linux IIO device, or a test fake.
package adc

import (
	"errors"
	"fmt"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/cam-uploader/internal/logger"
)

var (
	// ErrSample is returned when no raw reading could be taken.
	ErrSample = errors.New("adc sample failed")
	// ErrNotSupported is returned by backends that lack a calibration scheme.
	ErrNotSupported = errors.New("calibration scheme not supported")
)

// Attenuation selects the input range of a channel.
type Attenuation int

const (
	Atten0dB Attenuation = iota
	Atten2_5dB
	Atten6dB
	Atten12dB
)

func (a Attenuation) String() string {
	switch a {
	case Atten0dB:
		return "0dB"
	case Atten2_5dB:
		return "2.5dB"
	case Atten6dB:
		return "6dB"
	case Atten12dB:
		return "12dB"
	default:
		return fmt.Sprintf("Attenuation(%d)", int(a))
	}
}

// Scheme identifies a raw-to-millivolt calibration method.
type Scheme int

const (
	SchemeCurveFitting Scheme = iota
	SchemeLineFitting
)

func (s Scheme) String() string {
	if s == SchemeCurveFitting {
		return "curve"
	}
	return "line"
}

// Unit is an acquired one-shot converter.
type Unit interface {
	ConfigChannel(channel int, atten Attenuation) error
	Read(channel int) (int, error)
	Close() error
}

// Calibration converts raw readings of one channel to millivolts.
type Calibration interface {
	RawToVoltage(raw int) (int, error)
	Close() error
}

// Subsystem creates units and calibration contexts.
type Subsystem interface {
	NewUnit(id int) (Unit, error)
	NewCalibration(scheme Scheme, unit, channel int, atten Attenuation) (Calibration, error)
}

// Supply voltage wiring.
const (
	SupplyUnit    = 1
	SupplyChannel = 0
	SupplyAtten   = Atten12dB

	// FullScaleRaw is the largest 12-bit reading.
	FullScaleRaw = 4095
	// ApproxFullScaleMV is assumed when no calibration is available.
	ApproxFullScaleMV = 3300

	DividerNum = 2
	DividerDen = 1
)

// VoltageSampler reads the supply voltage behind a resistor divider.
type VoltageSampler struct {
	sys Subsystem
	log *logger.Module

	Unit    int
	Channel int
	Atten   Attenuation
}

// NewVoltageSampler creates a sampler on the fixed supply channel.
func NewVoltageSampler(sys Subsystem, log *logger.Module) *VoltageSampler {
	if log == nil {
		log = logger.For("ADC")
	}
	return &VoltageSampler{
		sys:     sys,
		log:     log,
		Unit:    SupplyUnit,
		Channel: SupplyChannel,
		Atten:   SupplyAtten,
	}
}

// Sample takes one reading and returns the supply voltage in millivolts.
// Every unit and calibration context acquired here is closed before return.
func (s *VoltageSampler) Sample() (int, error) {
	unit, err := s.sys.NewUnit(s.Unit)
	if err != nil {
		return 0, fmt.Errorf("%w: open unit %d: %w", ErrSample, s.Unit, err)
	}
	defer func() {
		if cerr := unit.Close(); cerr != nil {
			s.log.Debug("close unit: %v", cerr)
		}
	}()

	if err := unit.ConfigChannel(s.Channel, s.Atten); err != nil {
		return 0, fmt.Errorf("%w: configure channel %d: %w", ErrSample, s.Channel, err)
	}

	raw, err := unit.Read(s.Channel)
	if err != nil {
		return 0, fmt.Errorf("%w: read channel %d: %w", ErrSample, s.Channel, err)
	}

	mv, ok := s.calibrated(raw)
	if !ok {
		mv = Approximate(raw)
	}
	return mv * DividerNum / DividerDen, nil
}

// calibrated converts raw with the first scheme the backend offers.
func (s *VoltageSampler) calibrated(raw int) (int, bool) {
	for _, scheme := range []Scheme{SchemeCurveFitting, SchemeLineFitting} {
		cali, err := s.sys.NewCalibration(scheme, s.Unit, s.Channel, s.Atten)
		if err != nil {
			s.log.Debug("%s fitting unavailable: %v", scheme, err)
			continue
		}
		mv, err := cali.RawToVoltage(raw)
		if cerr := cali.Close(); cerr != nil {
			s.log.Debug("close %s calibration: %v", scheme, cerr)
		}
		if err != nil {
			s.log.Warn("%s fitting conversion failed, using approximation: %v", scheme, err)
			return 0, false
		}
		return mv, true
	}
	return 0, false
}

// Approximate maps a raw reading linearly onto the assumed reference.
func Approximate(raw int) int {
	return raw * ApproxFullScaleMV / FullScaleRaw
}
