package cdemu

/*------------------------------------------------------------------
 *
 * Purpose: Device owns one emulated optical drive: its mode pages,
 *		features, loaded medium, audio engine and the mutex that
 *		serializes every command against it (§3, §4.6).
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

// DeviceIdentity is the inquiry vendor/product/revision/vendor-specific
// quadruple (§3, §4.6 device-id option).
type DeviceIdentity struct {
	Vendor          string // Padded/truncated to 8 bytes.
	Product         string // 16 bytes.
	Revision        string // 4 bytes.
	VendorSpecific  string // 20 bytes.
}

func defaultIdentity() DeviceIdentity {
	return DeviceIdentity{
		Vendor:   "CDEmu",
		Product:  "Virtual CD/DVD-ROM",
		Revision: "1.0",
	}
}

// MediumEvent is the one-shot notification of §3.
type MediumEvent int

const (
	MediumNoChange MediumEvent = iota
	MediumNewMedia
	MediumMediaRemoval
)

const scratchBufferSize = 4096

// Device is one emulated optical drive.
type Device struct {
	Number int

	mu sync.Mutex // The device mutex: serializes all command execution (§3 invariant 1).

	scratch []byte

	modePages *modePageRegistry
	features  *featureRegistry

	profile DiscType
	identity DeviceIdentity

	loaded bool
	disc   *DiscImage

	pendingEvent MediumEvent

	locked bool

	curSector int32

	audio *AudioEngine

	dpmEmulation bool
	trEmulation  bool
	debugMask    int32
	libDebugMask int32

	srPath string // Populated by probe_mapping once the kernel has enumerated the device.
	sgPath string

	lastSense *senseError // What the next REQUEST SENSE reports (§4.3).

	logger *log.Logger

	onStatusChanged func(n int)
	onOptionChanged func(n int, name string)
}

// NewDevice constructs a Device in its initial, unloaded state.
func NewDevice(number int, logger *log.Logger, sink AudioSink) *Device {
	d := &Device{
		Number:    number,
		scratch:   make([]byte, scratchBufferSize),
		modePages: newModePageRegistry(),
		features:  newFeatureRegistry(),
		profile:   DiscTypeNone,
		identity:  defaultIdentity(),
		logger:    logger,
	}

	d.audio = NewAudioEngine(sink, logger, &d.mu, func(lba int32) {
		d.curSector = lba // Called with d.mu already held by the worker.
	})

	return d
}

// --- Lifecycle (§4.6) ---

// Load attaches a disc image and moves the device into the loaded
// state, posting NEW_MEDIA and switching profile/feature current bits.
func (d *Device) Load(disc *DiscImage) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.disc = disc
	d.loaded = true
	d.pendingEvent = MediumNewMedia
	d.curSector = 0

	switch disc.Type {
	case DiscTypeDVDROM:
		d.profile = DiscTypeDVDROM
	default:
		d.profile = DiscTypeCDROM
	}

	d.features.setProfile(d.profile)

	if d.onStatusChanged != nil {
		d.onStatusChanged(d.Number)
	}
}

// Unload implements §4.6: rejects when locked unless forced, otherwise
// stops audio, drops the disc reference and posts MEDIA_REMOVAL.
func (d *Device) Unload(force bool) error {
	d.mu.Lock()

	if d.locked && !force {
		d.mu.Unlock()

		return errMediumRemovalPrevented
	}

	audio := d.audio
	d.mu.Unlock()

	audio.Stop() // Must not hold the device mutex: the worker takes it too.

	d.mu.Lock()
	defer d.mu.Unlock()

	d.disc = nil
	d.loaded = false
	d.pendingEvent = MediumMediaRemoval
	d.profile = DiscTypeNone
	d.features.setProfile(DiscTypeNone)

	if d.onStatusChanged != nil {
		d.onStatusChanged(d.Number)
	}

	return nil
}

// IsLoaded reports the loaded-flag under the device mutex.
func (d *Device) IsLoaded() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.loaded
}

// Status returns (loaded, filenames) for DeviceGetStatus; filenames is
// a placeholder slice since the image library's path bookkeeping is
// out of scope (§1).
func (d *Device) Status() (bool, []string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.loaded {
		return false, nil
	}

	return true, []string{fmt.Sprintf("device-%d-image", d.Number)}
}

// Mapping returns the sr/sg device paths discovered by probe_mapping.
func (d *Device) Mapping() (string, string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.srPath, d.sgPath
}

// ProbeMapping is called on the daemon's ~1s mapping-probe timer
// (§4.1). A real implementation walks /sys/class/scsi_device; here it
// is a seam tests and the daemon controller drive explicitly.
func (d *Device) ProbeMapping(sr, sg string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.srPath != "" && d.sgPath != "" {
		return true
	}

	if sr == "" && sg == "" {
		return false
	}

	d.srPath, d.sgPath = sr, sg

	return true
}

// --- Options (§4.6) ---

type optionError struct{ msg string }

func (e *optionError) Error() string { return e.msg }

var errInvalidArgument = &optionError{"invalid argument"}

// SetOption implements the typed option table of §4.6.
func (d *Device) SetOption(name string, value any) error {
	d.mu.Lock()

	switch name {
	case "dpm-emulation":
		v, ok := value.(bool)
		if !ok {
			d.mu.Unlock()

			return errInvalidArgument
		}

		d.dpmEmulation = v
	case "tr-emulation":
		v, ok := value.(bool)
		if !ok {
			d.mu.Unlock()

			return errInvalidArgument
		}

		d.trEmulation = v
	case "device-id":
		v, ok := value.(DeviceIdentity)
		if !ok {
			d.mu.Unlock()

			return errInvalidArgument
		}

		d.identity = v
	case "daemon-debug-mask":
		v, ok := value.(int32)
		if !ok {
			d.mu.Unlock()

			return errInvalidArgument
		}

		d.debugMask = v
	case "library-debug-mask":
		v, ok := value.(int32)
		if !ok {
			d.mu.Unlock()

			return errInvalidArgument
		}

		d.libDebugMask = v
	default:
		d.mu.Unlock()

		return errInvalidArgument
	}

	cb := d.onOptionChanged
	num := d.Number
	d.mu.Unlock()

	if cb != nil {
		cb(num, name)
	}

	return nil
}

// GetOption mirrors SetOption's table for reads.
func (d *Device) GetOption(name string) (any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch name {
	case "dpm-emulation":
		return d.dpmEmulation, nil
	case "tr-emulation":
		return d.trEmulation, nil
	case "device-id":
		return d.identity, nil
	case "daemon-debug-mask":
		return d.debugMask, nil
	case "library-debug-mask":
		return d.libDebugMask, nil
	default:
		return nil, errInvalidArgument
	}
}

// recordSense and recordSenseLocked stash the outcome of the command
// just executed so that a following REQUEST SENSE can report it,
// mirroring the real drive's "sense data persists until read" rule.
func (d *Device) recordSense(err *senseError) {
	d.mu.Lock()
	d.lastSense = err
	d.mu.Unlock()
}

func (d *Device) recordSenseLocked(err *senseError) {
	d.lastSense = err
}

// debugDispatchEnabled is the supplemented per-command trace line of
// SPEC_FULL.md §10 (the daemon debug mask's dispatch bit).
const debugMaskDispatchBit = 0x01

func (d *Device) debugDispatchEnabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.debugMask&debugMaskDispatchBit != 0
}
