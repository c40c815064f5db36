package cdemu

/*------------------------------------------------------------------
 *
 * Purpose: Opens the per-device control file the kernel driver exposes
 *		(§4.1, §4.2), the Go equivalent of cdemud-device.c's
 *		g_io_channel_new_file(ctl_device, "r+") plus
 *		cdemud-device-kernel-io.c's raw fd read/write loop. Grounded
 *		on serial_port.go's use of github.com/pkg/term for raw-mode
 *		device opens.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/term"
	"golang.org/x/sys/unix"
)

// ControlDevice is the read/write handle to one emulated drive's
// kernel-facing control file.
type ControlDevice struct {
	f io.ReadWriteCloser
}

// OpenControlDevice opens path in raw mode for unbuffered binary
// request/response framing; term.Open matches the teacher's own serial
// port idiom, but the control device here is a misc character device
// rather than a tty, so no baud rate is set.
func OpenControlDevice(path string) (*ControlDevice, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return nil, newDaemonError(ErrControlDevice)
	}

	if st.Mode&unix.S_IFMT != unix.S_IFCHR {
		return nil, newDaemonError(ErrControlDevice)
	}

	t, err := term.Open(path, term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", newDaemonError(ErrControlDevice), err)
	}

	return &ControlDevice{f: t}, nil
}

func (c *ControlDevice) Read(p []byte) (int, error)  { return c.f.Read(p) }
func (c *ControlDevice) Write(p []byte) (int, error) { return c.f.Write(p) }
func (c *ControlDevice) Close() error                { return c.f.Close() }

// OpenPlainFile wraps a plain *os.File (for example one end of a
// pseudo-terminal) as a ControlDevice in place of the real kernel
// driver's character device. The package's own tests do not use it:
// they drive RunIOLoop over net.Pipe.
func OpenPlainFile(f *os.File) *ControlDevice {
	return &ControlDevice{f: f}
}
