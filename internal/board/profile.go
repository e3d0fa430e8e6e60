package board

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPins is returned when a profile names a pin the target cannot
// use in the required direction.
var ErrInvalidPins = errors.New("invalid camera GPIO")

// Profile is one named camera wiring. NoPin means the signal is not wired.
type Profile struct {
	Name string

	PWDN  int
	Reset int
	XCLK  int
	SDA   int // SCCB data
	SCL   int // SCCB clock

	D0, D1, D2, D3, D4, D5, D6, D7 int

	VSYNC int
	HREF  int
	PCLK  int
}

// Direction is the capability a signal requires from its pin.
type Direction int

const (
	Output Direction = iota
	Input
)

func (d Direction) String() string {
	if d == Output {
		return "output"
	}
	return "input"
}

// Pin is one signal of a profile.
type Pin struct {
	Role      string
	GPIO      int
	Direction Direction
}

// Pins lists all 16 signals with the direction each one needs. Clock,
// control and SCCB bus pins must drive; data and sync pins are sampled.
func (p Profile) Pins() []Pin {
	return []Pin{
		{"xclk", p.XCLK, Output},
		{"sda", p.SDA, Output},
		{"scl", p.SCL, Output},
		{"pwdn", p.PWDN, Output},
		{"reset", p.Reset, Output},
		{"d0", p.D0, Input},
		{"d1", p.D1, Input},
		{"d2", p.D2, Input},
		{"d3", p.D3, Input},
		{"d4", p.D4, Input},
		{"d5", p.D5, Input},
		{"d6", p.D6, Input},
		{"d7", p.D7, Input},
		{"pclk", p.PCLK, Input},
		{"vsync", p.VSYNC, Input},
		{"href", p.HREF, Input},
	}
}

// Validate checks every pin of p against the capabilities of t. It touches
// no hardware.
func Validate(p Profile, t Target) error {
	var bad []string
	for _, pin := range p.Pins() {
		ok := t.InputOK(pin.GPIO)
		if pin.Direction == Output {
			ok = t.OutputOK(pin.GPIO)
		}
		if !ok {
			bad = append(bad, fmt.Sprintf("%s=%d(%s)", pin.Role, pin.GPIO, pin.Direction))
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("%w on %s: %s", ErrInvalidPins, t.Name, strings.Join(bad, " "))
	}
	return nil
}

// String renders the wiring the way it is logged before an init attempt.
func (p Profile) String() string {
	var b strings.Builder
	b.WriteString(p.Name)
	b.WriteString(":")
	for _, pin := range p.Pins() {
		fmt.Fprintf(&b, " %s=%d", pin.Role, pin.GPIO)
	}
	return b.String()
}
