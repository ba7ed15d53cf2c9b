package obd

import (
	"log"
	"os"
	"sync/atomic"
)

// debugLogger is a toggleable logger for frame- and message-level drops:
// every drop is recoverable (the rest of the batch proceeds), so it is
// reported here rather than surfaced as an error.
type debugLogger struct {
	logger  *log.Logger
	enabled atomic.Bool
}

func newDebugLogger(prefix string) *debugLogger {
	return &debugLogger{logger: log.New(os.Stderr, prefix, log.LstdFlags)}
}

// SetEnabled turns frame/message drop logging on or off. It is off by
// default, matching the original implementation's debug console switch.
func (d *debugLogger) SetEnabled(enabled bool) {
	d.enabled.Store(enabled)
}

func (d *debugLogger) Printf(format string, args ...any) {
	if !d.enabled.Load() {
		return
	}
	d.logger.Printf(format, args...)
}

var defaultDebug = newDebugLogger("obd: ")

// SetDebug enables or disables logging of recoverable frame/message drops
// across every Protocol in this process.
func SetDebug(enabled bool) {
	defaultDebug.SetEnabled(enabled)
}
