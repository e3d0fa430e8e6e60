package adc

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// IIOSubsystem reads a Linux industrial I/O converter through sysfs, e.g.
// /sys/bus/iio/devices/iio:device0. The unit id is not used; the device
// directory is the unit. Attenuation is fixed by the device tree.
type IIOSubsystem struct {
	Dir string
}

// NewIIOSubsystem creates a backend rooted at dir.
func NewIIOSubsystem(dir string) *IIOSubsystem {
	return &IIOSubsystem{Dir: dir}
}

func (s *IIOSubsystem) NewUnit(id int) (Unit, error) {
	info, err := os.Stat(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("iio device: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("iio device %s is not a directory", s.Dir)
	}
	return &iioUnit{dir: s.Dir}, nil
}

// NewCalibration offers line fitting from the channel scale. IIO has no
// curve-fitting data.
func (s *IIOSubsystem) NewCalibration(scheme Scheme, unit, channel int, atten Attenuation) (Calibration, error) {
	if scheme != SchemeLineFitting {
		return nil, ErrNotSupported
	}
	scale, err := s.scale(channel)
	if err != nil {
		return nil, err
	}
	offset, err := readFloat(filepath.Join(s.Dir, fmt.Sprintf("in_voltage%d_offset", channel)))
	if err != nil {
		offset = 0
	}
	return iioCalibration{scale: scale, offset: offset}, nil
}

// scale prefers the per-channel file and falls back to the shared one.
func (s *IIOSubsystem) scale(channel int) (float64, error) {
	v, err := readFloat(filepath.Join(s.Dir, fmt.Sprintf("in_voltage%d_scale", channel)))
	if err == nil {
		return v, nil
	}
	v, err = readFloat(filepath.Join(s.Dir, "in_voltage_scale"))
	if err != nil {
		return 0, fmt.Errorf("%w: no scale for channel %d", ErrNotSupported, channel)
	}
	return v, nil
}

type iioUnit struct {
	dir string
}

func (u *iioUnit) rawPath(channel int) string {
	return filepath.Join(u.dir, fmt.Sprintf("in_voltage%d_raw", channel))
}

func (u *iioUnit) ConfigChannel(channel int, atten Attenuation) error {
	if _, err := os.Stat(u.rawPath(channel)); err != nil {
		return fmt.Errorf("channel %d: %w", channel, err)
	}
	return nil
}

func (u *iioUnit) Read(channel int) (int, error) {
	b, err := os.ReadFile(u.rawPath(channel))
	if err != nil {
		return 0, err
	}
	raw, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, fmt.Errorf("parse raw value: %w", err)
	}
	return raw, nil
}

func (u *iioUnit) Close() error { return nil }

// iioCalibration applies the kernel's (raw + offset) * scale, in millivolts.
type iioCalibration struct {
	scale  float64
	offset float64
}

func (c iioCalibration) RawToVoltage(raw int) (int, error) {
	if c.scale <= 0 {
		return 0, fmt.Errorf("invalid scale %v", c.scale)
	}
	return int((float64(raw) + c.offset) * c.scale), nil
}

func (c iioCalibration) Close() error { return nil }

func readFloat(path string) (float64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
}
