// Package board holds the compiled-in catalog of camera wirings and the GPIO
// capability model of the chip families they run on.
package board

// NoPin marks a signal that is not wired to any GPIO.
const NoPin = -1

// Target describes the GPIO capabilities of a chip family.
type Target struct {
	Name string

	valid  uint64 // bit n set: GPIOn exists
	output uint64 // bit n set: GPIOn can drive an output
}

func pinRange(lo, hi int) uint64 {
	var m uint64
	for p := lo; p <= hi; p++ {
		m |= 1 << uint(p)
	}
	return m
}

func pinSet(pins ...int) uint64 {
	var m uint64
	for _, p := range pins {
		m |= 1 << uint(p)
	}
	return m
}

var (
	// ESP32 has GPIO0..39 with holes at 20, 24 and 28..31; 34..39 are input only.
	ESP32 = Target{
		Name:   "esp32",
		valid:  pinRange(0, 39) &^ pinSet(20, 24, 28, 29, 30, 31),
		output: pinRange(0, 39) &^ pinSet(20, 24, 28, 29, 30, 31) &^ pinRange(34, 39),
	}

	// ESP32S3 has GPIO0..21 and 26..48, all output capable.
	ESP32S3 = Target{
		Name:   "esp32s3",
		valid:  pinRange(0, 21) | pinRange(26, 48),
		output: pinRange(0, 21) | pinRange(26, 48),
	}
)

// NewTarget builds a Target from explicit pin lists. Output pins are also
// treated as valid inputs.
func NewTarget(name string, inputOnly, output []int) Target {
	out := pinSet(output...)
	return Target{
		Name:   name,
		valid:  out | pinSet(inputOnly...),
		output: out,
	}
}

func (t Target) has(mask uint64, pin int) bool {
	if pin < 0 || pin > 63 {
		return false
	}
	return mask&(1<<uint(pin)) != 0
}

// InputOK reports whether pin may be used for an input signal.
func (t Target) InputOK(pin int) bool {
	return pin == NoPin || t.has(t.valid, pin)
}

// OutputOK reports whether pin may be used for an output signal.
func (t Target) OutputOK(pin int) bool {
	return pin == NoPin || t.has(t.output, pin)
}

// Lookup returns the known target with the given name.
func Lookup(name string) (Target, bool) {
	switch name {
	case ESP32.Name:
		return ESP32, true
	case ESP32S3.Name:
		return ESP32S3, true
	}
	return Target{}, false
}
