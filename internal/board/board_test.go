package board

import (
	"errors"
	"strings"
	"testing"
)

func TestTargetCapabilities(t *testing.T) {
	tests := []struct {
		target Target
		pin    int
		in     bool
		out    bool
	}{
		{ESP32, NoPin, true, true},
		{ESP32, 0, true, true},
		{ESP32, 20, false, false},
		{ESP32, 32, true, true},
		{ESP32, 34, true, false},
		{ESP32, 39, true, false},
		{ESP32, 40, false, false},
		{ESP32S3, 22, false, false},
		{ESP32S3, 39, true, true},
		{ESP32S3, 48, true, true},
		{ESP32S3, 49, false, false},
		{ESP32S3, -7, false, false},
	}

	for _, tt := range tests {
		if got := tt.target.InputOK(tt.pin); got != tt.in {
			t.Errorf("%s.InputOK(%d) = %v, want %v", tt.target.Name, tt.pin, got, tt.in)
		}
		if got := tt.target.OutputOK(tt.pin); got != tt.out {
			t.Errorf("%s.OutputOK(%d) = %v, want %v", tt.target.Name, tt.pin, got, tt.out)
		}
	}
}

func TestValidateRejectsInputOnlyClock(t *testing.T) {
	p, ok := ByName("AI_THINKER")
	if !ok {
		t.Fatal("AI_THINKER missing from table")
	}
	if err := Validate(p, ESP32); err != nil {
		t.Fatalf("AI_THINKER should be valid on esp32: %v", err)
	}

	p.XCLK = 35
	err := Validate(p, ESP32)
	if !errors.Is(err, ErrInvalidPins) {
		t.Fatalf("expected ErrInvalidPins, got %v", err)
	}
	if !strings.Contains(err.Error(), "xclk=35(output)") {
		t.Errorf("error should name the offending pin: %v", err)
	}
}

func TestValidateDataPinsNeedOnlyInput(t *testing.T) {
	p := commonProfiles[2]

	// GPIO36 is input only, which is all a data line needs.
	p.D0 = 36
	if err := Validate(p, ESP32); err != nil {
		t.Errorf("input-only data pin should pass: %v", err)
	}
	p.D0 = 24
	if err := Validate(p, ESP32); err == nil {
		t.Error("nonexistent data pin should fail")
	}
}

func TestTableValidOnBuildTarget(t *testing.T) {
	table := Table()
	if len(table) == 0 {
		t.Fatal("empty profile table")
	}
	for _, p := range table {
		if len(p.Pins()) != 16 {
			t.Errorf("%s: %d pins, want 16", p.Name, len(p.Pins()))
		}
	}
	// Preferred wirings come first, so at least the head must be usable.
	if err := Validate(table[0], BuildTarget); err != nil {
		t.Errorf("%s invalid on %s: %v", table[0].Name, BuildTarget.Name, err)
	}
	for _, p := range commonProfiles {
		if err := Validate(p, ESP32); err != nil {
			t.Errorf("%s invalid on esp32: %v", p.Name, err)
		}
	}

	table[0].Name = "mutated"
	if Table()[0].Name == "mutated" {
		t.Error("Table must return a copy")
	}
}

func TestLookup(t *testing.T) {
	if tg, ok := Lookup("esp32s3"); !ok || tg.Name != "esp32s3" {
		t.Errorf("Lookup(esp32s3) = %v, %v", tg, ok)
	}
	if _, ok := Lookup("rp2040"); ok {
		t.Error("unknown target should not resolve")
	}

	custom := NewTarget("test", []int{5}, []int{1, 2})
	if !custom.InputOK(5) || custom.OutputOK(5) {
		t.Error("pin 5 should be input only")
	}
	if !custom.OutputOK(2) || !custom.InputOK(2) {
		t.Error("pin 2 should be bidirectional")
	}
}
