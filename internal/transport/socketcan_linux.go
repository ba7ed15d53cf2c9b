//go:build linux

package transport

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// canFrameSize is sizeof(struct can_frame): 4-byte id, 1-byte len, 3 bytes
// padding, 8 bytes data.
const canFrameSize = 16

// SocketCAN talks directly to a CAN bus via AF_CAN/CAN_RAW, bypassing an
// ELM327 adapter entirely. Every read frame is reformatted as the same
// ASCII-hex line an ELM327 would have printed, so it feeds the same
// decoding pipeline as Serial/WiFi.
type SocketCAN struct {
	fd        int
	ifaceName string
}

// OpenSocketCAN binds a raw CAN_RAW socket to the named interface (e.g.
// "can0"), receiving every frame on the bus: no adapter, no AT commands.
func OpenSocketCAN(ifaceName string) (*SocketCAN, error) {
	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return nil, fmt.Errorf("transport: creating CAN_RAW socket: %w", err)
	}

	iface, err := net.InterfaceByName(ifaceName)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("transport: looking up interface %q: %w", ifaceName, err)
	}

	addr := &unix.SockaddrCAN{Ifindex: iface.Index}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("transport: binding CAN_RAW socket to %q: %w", ifaceName, err)
	}

	return &SocketCAN{fd: fd, ifaceName: ifaceName}, nil
}

// ReadFrame blocks for the next frame on the bus and formats it as an
// adapter-style hex line: an 11-bit id prints as 3 hex digits, a 29-bit
// (extended) id as 8, followed by the data bytes, matching what ELM327
// itself would print in headers-on mode.
func (s *SocketCAN) ReadFrame() (string, error) {
	buf := make([]byte, canFrameSize)
	n, _, err := unix.Recvfrom(s.fd, buf, 0)
	if err != nil {
		return "", fmt.Errorf("transport: reading CAN_RAW socket: %w", err)
	}
	if n < canFrameSize {
		return "", fmt.Errorf("transport: short CAN frame read (%d bytes)", n)
	}

	rawID := uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24
	dlc := int(buf[4])
	if dlc > 8 {
		dlc = 8
	}
	data := buf[8 : 8+dlc]

	extended := rawID&unix.CAN_EFF_FLAG != 0
	id := rawID &^ (unix.CAN_EFF_FLAG | unix.CAN_RTR_FLAG | unix.CAN_ERR_FLAG)

	var line string
	if extended {
		line = fmt.Sprintf("%08X", id)
	} else {
		line = fmt.Sprintf("%03X", id)
	}
	for _, b := range data {
		line += fmt.Sprintf("%02X", b)
	}
	return line, nil
}

// Close releases the underlying socket.
func (s *SocketCAN) Close() error {
	return unix.Close(s.fd)
}
