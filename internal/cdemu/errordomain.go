package cdemu

/*------------------------------------------------------------------
 *
 * Purpose: The daemon's two RPC error domains (§10 supplemented
 *		feature), grounded on cdemud-error.c's CDEMUD_ERROR enum and
 *		the "net.sf.cdemu.CDEMUD_Daemon.{CDEmuDaemon,libMirage}"
 *		D-Bus error name prefixes.
 *
 *------------------------------------------------------------------*/

import "fmt"

// ErrorCode is a daemon-domain RPC error, named after the nick form the
// original used for its GEnumValue table.
type ErrorCode int

const (
	ErrInvalidArgument ErrorCode = iota
	ErrNoDriver
	ErrNoDevices
	ErrDeviceInitializationFailed
	ErrDBusConnect
	ErrDBusNameRequest
	ErrInvalidDevice
	ErrAudioBackend
	ErrAudioInvalidState
	ErrControlDevice
	ErrBuffer
	ErrAlreadyLoaded
	ErrDeviceLocked
	ErrGeneric
)

var errorStrings = map[ErrorCode]string{
	ErrInvalidArgument:            "Invalid argument.",
	ErrNoDriver:                   "No driver found.",
	ErrNoDevices:                  "No devices found.",
	ErrDeviceInitializationFailed: "Device initialization failed.",
	ErrDBusConnect:                "Failed to connect to D-Bus bus.",
	ErrDBusNameRequest:            "Name request on D-Bus failed.",
	ErrInvalidDevice:              "Invalid device number.",
	ErrAudioBackend:               "Failed to create audio backend.",
	ErrAudioInvalidState:          "Invalid audio state.",
	ErrControlDevice:              "Failed to open control device.",
	ErrBuffer:                     "Failed to allocate device buffer.",
	ErrAlreadyLoaded:              "Device is already loaded.",
	ErrDeviceLocked:               "Device is locked.",
	ErrGeneric:                    "Generic error.",
}

var errorNicks = map[ErrorCode]string{
	ErrInvalidArgument:            "InvalidArgument",
	ErrNoDriver:                   "NoDriver",
	ErrNoDevices:                  "NoDevices",
	ErrDeviceInitializationFailed: "DeviceInitializationFailed",
	ErrDBusConnect:                "DBusConnect",
	ErrDBusNameRequest:            "DBusNameRequest",
	ErrInvalidDevice:              "InvalidDevice",
	ErrAudioBackend:               "AudioBackend",
	ErrAudioInvalidState:          "AudioInvalidState",
	ErrControlDevice:              "ControlDevice",
	ErrBuffer:                     "Buffer",
	ErrAlreadyLoaded:              "AlreadyLoaded",
	ErrDeviceLocked:               "DeviceLocked",
	ErrGeneric:                    "Generic",
}

// daemonErrorDomain and libraryErrorDomain are the two D-Bus error-name
// prefixes the RPC surface registers errors under (§6).
const (
	daemonErrorDomain  = "net.sf.cdemu.CDEMUD_Daemon.CDEmuDaemon"
	libraryErrorDomain = "net.sf.cdemu.CDEMUD_Daemon.libMirage"
)

// DaemonError is an RPC-facing error carrying a code from the daemon
// domain; rpc.go maps it to a D-Bus named error.
type DaemonError struct {
	Code ErrorCode
}

func (e *DaemonError) Error() string {
	return errorStrings[e.Code]
}

// DBusName is the "domain.Nick" form registered as the D-Bus error
// name, mirroring register_error_domain's GDBusErrorEntry construction.
func (e *DaemonError) DBusName() string {
	return fmt.Sprintf("%s.%s", daemonErrorDomain, errorNicks[e.Code])
}

func newDaemonError(code ErrorCode) *DaemonError {
	return &DaemonError{Code: code}
}

// LibraryError wraps an error surfaced from the disc-image layer, kept
// in its own D-Bus error domain exactly as the original distinguished
// libMirage failures from daemon failures.
type LibraryError struct {
	msg string
}

func (e *LibraryError) Error() string { return e.msg }

func (e *LibraryError) DBusName() string {
	return fmt.Sprintf("%s.%s", libraryErrorDomain, "Failure")
}

func newLibraryError(msg string) *LibraryError {
	return &LibraryError{msg: msg}
}
