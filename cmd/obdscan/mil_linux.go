//go:build linux

package main

import "github.com/ryzhkov/obdscan/internal/gpio"

func openMIL(chip string, line int) (milIndicator, error) {
	return gpio.OpenMILIndicator(chip, line)
}
