//go:build !linux

package main

import "fmt"

func openMIL(chip string, line int) (milIndicator, error) {
	return nil, fmt.Errorf("obdscan: GPIO MIL indicator requires Linux")
}
