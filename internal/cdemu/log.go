package cdemu

/*------------------------------------------------------------------
 *
 * Purpose: Logger construction (§8.1). Grounded on the reference
 *		daemon's per-device debug-mask trace lines, reimplemented on
 *		top of charmbracelet/log rather than a hand-rolled
 *		text_color_set/dw_printf pair, since nothing in this daemon's
 *		domain needs the original's raw color-terminal plumbing.
 *
 *------------------------------------------------------------------*/

import (
	"os"

	"github.com/charmbracelet/log"
)

// NewLogger builds the daemon's root logger. debug raises the level so
// dispatch tracing (the daemon-debug-mask dispatch bit) is visible.
func NewLogger(debug bool) *log.Logger {
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}

	l := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           level,
		Prefix:          "cdemud",
	})

	return l
}

// ForDevice returns a child logger tagged with this device's number, so
// every log line from its command dispatch or audio worker is
// attributable at a glance.
func ForDevice(parent *log.Logger, number int) *log.Logger {
	if parent == nil {
		return nil
	}

	return parent.With("device", number)
}
