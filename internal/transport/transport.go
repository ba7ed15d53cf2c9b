// Package transport carries ELM327 adapter command/response lines between
// this tool and a vehicle, over serial, WiFi, or (on Linux) a native
// SocketCAN interface.
package transport

import (
	"bufio"
	"fmt"
	"strings"
	"time"
)

// promptByte is the '>' ELM327 prints once a command's response is
// complete and it is ready for the next one.
const promptByte = '>'

// Transport is one command/response link to an ELM327-compatible adapter.
// SocketCAN does not implement it: it has no command/prompt model.
type Transport interface {
	// SendCommand writes cmd (without its trailing carriage return — this
	// method adds it) and reads lines until the adapter's '>' prompt,
	// returning every non-empty line up to but excluding the prompt.
	SendCommand(cmd string) ([]string, error)
	// Close releases the underlying link.
	Close() error
}

// readUntilPrompt drains r line by line until it sees the adapter prompt,
// returning every trimmed non-empty line seen before it.
func readUntilPrompt(r *bufio.Reader, timeout time.Duration) ([]string, error) {
	deadline := time.Now().Add(timeout)
	var lines []string
	var buf []byte

	for {
		if timeout > 0 && time.Now().After(deadline) {
			return lines, fmt.Errorf("transport: timed out waiting for adapter prompt")
		}
		b, err := r.ReadByte()
		if err != nil {
			if len(lines) > 0 {
				return lines, nil
			}
			return nil, fmt.Errorf("transport: reading response: %w", err)
		}
		if b == promptByte {
			if line := strings.TrimSpace(string(buf)); line != "" {
				lines = append(lines, line)
			}
			return lines, nil
		}
		if b == '\r' || b == '\n' {
			if line := strings.TrimSpace(string(buf)); line != "" {
				lines = append(lines, line)
			}
			buf = buf[:0]
			continue
		}
		buf = append(buf, b)
	}
}
