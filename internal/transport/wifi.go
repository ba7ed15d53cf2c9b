package transport

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"time"

	"github.com/brutella/dnssd"
)

// WiFiServiceType is the DNS-SD service type most WiFi ELM327 adapters
// (and the software simulators that imitate them) announce themselves as.
const WiFiServiceType = "_obdii._tcp"

// DiscoverWiFiAdapters browses the local network for WiFi ELM327 adapters
// for the given duration and returns every host:port pair seen.
func DiscoverWiFiAdapters(ctx context.Context, window time.Duration) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, window)
	defer cancel()

	var found []string
	add := func(e dnssd.BrowseEntry) {
		for _, ip := range e.IPs {
			found = append(found, fmt.Sprintf("%s:%d", ip, e.Port))
		}
	}
	rmv := func(dnssd.BrowseEntry) {}

	err := dnssd.LookupType(ctx, WiFiServiceType, add, rmv)
	if err != nil && ctx.Err() == nil {
		return nil, fmt.Errorf("transport: browsing for %s: %w", WiFiServiceType, err)
	}
	return found, nil
}

// WiFi is a Transport over a TCP connection to a WiFi ELM327 adapter,
// almost all of which speak the same AT-command protocol as their USB
// counterparts over a plain socket instead of a serial line.
type WiFi struct {
	conn    net.Conn
	reader  *bufio.Reader
	timeout time.Duration
}

// DialWiFi connects to addr (host:port, typically 192.168.0.10:35000) and
// runs the same adapter-reset sequence as OpenSerial.
func DialWiFi(addr string, timeout time.Duration) (*WiFi, error) {
	if timeout == 0 {
		timeout = DefaultResponseTimeout
	}
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("transport: dialing WiFi adapter %s: %w", addr, err)
	}

	w := &WiFi{conn: conn, reader: bufio.NewReader(conn), timeout: timeout}
	for _, initCmd := range []string{"ATZ", "ATE0", "ATL0", "ATS0", "ATH1"} {
		if _, err := w.SendCommand(initCmd); err != nil {
			conn.Close()
			return nil, fmt.Errorf("transport: initializing WiFi adapter with %s: %w", initCmd, err)
		}
	}
	return w, nil
}

func (w *WiFi) SendCommand(cmd string) ([]string, error) {
	w.conn.SetDeadline(time.Now().Add(w.timeout))
	if _, err := w.conn.Write([]byte(cmd + "\r")); err != nil {
		return nil, fmt.Errorf("transport: writing command %q: %w", cmd, err)
	}
	return readUntilPrompt(w.reader, w.timeout)
}

func (w *WiFi) Close() error {
	return w.conn.Close()
}
