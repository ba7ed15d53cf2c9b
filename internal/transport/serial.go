package transport

import (
	"bufio"
	"fmt"
	"time"

	"github.com/tarm/serial"
)

// DefaultResponseTimeout bounds how long SendCommand waits for an
// adapter's closing prompt before giving up.
const DefaultResponseTimeout = 2 * time.Second

// Serial is a Transport over a USB/Bluetooth-SPP ELM327 adapter reachable
// as a plain serial device (e.g. /dev/ttyUSB0, COM3).
type Serial struct {
	port    *serial.Port
	reader  *bufio.Reader
	timeout time.Duration
}

// SerialConfig configures OpenSerial. Baud defaults to 38400, the
// near-universal ELM327 default rate before any "ATBRD" renegotiation.
type SerialConfig struct {
	Device  string
	Baud    int
	Timeout time.Duration
}

// OpenSerial opens the named device and resets the adapter with the
// standard AT initialization sequence ("ATZ", "ATE0", "ATL0", "ATS0",
// "ATH1"), matching how every ELM327 host application brings the adapter
// to a known state before issuing OBD commands.
func OpenSerial(cfg SerialConfig) (*Serial, error) {
	if cfg.Baud == 0 {
		cfg.Baud = 38400
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultResponseTimeout
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: 100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("transport: opening serial port %s: %w", cfg.Device, err)
	}

	s := &Serial{port: port, reader: bufio.NewReader(port), timeout: cfg.Timeout}

	for _, initCmd := range []string{"ATZ", "ATE0", "ATL0", "ATS0", "ATH1"} {
		if _, err := s.SendCommand(initCmd); err != nil {
			port.Close()
			return nil, fmt.Errorf("transport: initializing adapter with %s: %w", initCmd, err)
		}
	}

	return s, nil
}

func (s *Serial) SendCommand(cmd string) ([]string, error) {
	if _, err := s.port.Write([]byte(cmd + "\r")); err != nil {
		return nil, fmt.Errorf("transport: writing command %q: %w", cmd, err)
	}
	return readUntilPrompt(s.reader, s.timeout)
}

func (s *Serial) Close() error {
	return s.port.Close()
}
