//go:build linux

package transport

import (
	"fmt"
	"strings"

	"github.com/jochenvg/go-udev"
)

// DiscoverSerialAdapters enumerates tty devices via udev and returns the
// device nodes most likely to be a USB/Bluetooth-SPP ELM327 adapter
// (ttyUSB*/ttyACM*/rfcomm*), letting a caller skip past console or modem
// ttys that also show up under the tty subsystem.
func DiscoverSerialAdapters() ([]string, error) {
	u := udev.Udev{}
	enum := u.NewEnumerate()
	if err := enum.AddMatchSubsystem("tty"); err != nil {
		return nil, fmt.Errorf("transport: matching tty subsystem: %w", err)
	}
	devices, err := enum.Devices()
	if err != nil {
		return nil, fmt.Errorf("transport: enumerating tty devices: %w", err)
	}

	var found []string
	for _, d := range devices {
		node := d.Devnode()
		if node == "" {
			continue
		}
		name := node[strings.LastIndex(node, "/")+1:]
		if strings.HasPrefix(name, "ttyUSB") || strings.HasPrefix(name, "ttyACM") || strings.HasPrefix(name, "rfcomm") {
			found = append(found, node)
		}
	}
	return found, nil
}
