//go:build linux

// Package gpio drives an external MIL (malfunction indicator lamp) LED
// from a GPIO line, for dashboards without their own indicator.
package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// MILIndicator holds one requested output line.
type MILIndicator struct {
	line *gpiocdev.Line
}

// OpenMILIndicator requests chipName/offset (e.g. "gpiochip0", 17) as an
// output line, initially off.
func OpenMILIndicator(chipName string, offset int) (*MILIndicator, error) {
	line, err := gpiocdev.RequestLine(chipName, offset, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("gpio: requesting %s:%d as output: %w", chipName, offset, err)
	}
	return &MILIndicator{line: line}, nil
}

// Set drives the line high (lamp on) or low (lamp off).
func (m *MILIndicator) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := m.line.SetValue(v); err != nil {
		return fmt.Errorf("gpio: setting MIL indicator: %w", err)
	}
	return nil
}

// Close releases the requested line.
func (m *MILIndicator) Close() error {
	return m.line.Close()
}
