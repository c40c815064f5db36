package cdemu

/*------------------------------------------------------------------
 *
 * Purpose: Mode-page registry: {current, default, mask} byte triples
 *		per §3, keyed by the 6-bit page code, kept sorted ascending.
 *		Field layouts are taken from the original cdemud-mode-pages.h.
 *
 *------------------------------------------------------------------*/

import "sort"

// Mode-page "pc" selector values from MODE SENSE's PC field.
const (
	pcCurrent = 0
	pcChangeable = 1
	pcDefault = 2
	pcSaved = 3
)

const modePageAllPages = 0x3F

// modePage is one registry entry: a {current, default, mask} triple of
// identical byte layout, first two bytes always {code, length}.
type modePage struct {
	code    byte
	current []byte
	def     []byte
	mask    []byte
}

func newModePage(code byte, body []byte, mask []byte) modePage {
	cur := append([]byte(nil), body...)
	def := append([]byte(nil), body...)

	return modePage{code: code, current: cur, def: def, mask: mask}
}

func (p *modePage) triple(pc byte) []byte {
	switch pc {
	case pcCurrent, pcChangeable:
		return p.current
	case pcDefault:
		return p.def
	default:
		return p.current
	}
}

// modePageRegistry is a Device's sorted set of mode pages.
type modePageRegistry struct {
	pages []modePage
}

func newModePageRegistry() *modePageRegistry {
	r := &modePageRegistry{}

	// Read/Write Error Recovery Parameters (0x01). Only dcr and
	// read_retry are masked-writable, per §8.1 boundary scenario 6.
	r.register(newModePage(0x01, []byte{
		0x01, 0x0A, // code, length
		0x00,       // flags: awre/arre/tb/rc/per/dte/dcr
		0x00,       // read_retry
		0x00, 0x00, 0x00, 0x00,
		0x00, // write_retry
		0x00,
		0x00, 0x00, // recovery
	}, []byte{
		0x00, 0x00,
		0x01, // dcr is bit 0
		0xFF, // read_retry fully writable
		0x00, 0x00, 0x00, 0x00,
		0x00,
		0x00,
		0x00, 0x00,
	}))

	// CD Device Parameters (0x0D).
	r.register(newModePage(0x0D, []byte{
		0x0D, 0x06,
		0x00,
		0x00,
		0x00, 0x3C, // spm
		0x00, 0x4B, // fps, 75 = 0x4B
	}, make([]byte, 8)))

	// CD Audio Control (0x0E).
	r.register(newModePage(0x0E, []byte{
		0x0E, 0x0E,
		0x04, // immed=1
		0x00, 0x00, 0x00, 0x00, 0x00,
		0x01, 0xFF, // port0: csel=1, vol=0xFF
		0x02, 0xFF, // port1
		0x00, 0x00, // port2
		0x00, 0x00, // port3
	}, make([]byte, 16)))

	// Power Condition (0x1A).
	r.register(newModePage(0x1A, []byte{
		0x1A, 0x0A,
		0x00,
		0x00,
		0x00, 0x00, 0x00, 0x00, // idle_timer
		0x00, 0x00, 0x00, 0x00, // stdby_timer
	}, make([]byte, 12)))

	// CD/DVD Capabilities and Mechanical Status (0x2A). 20-byte body
	// (+2 header) covers everything READ CD / SET CD SPEED /
	// PREVENT-ALLOW touch: byte 2 read capabilities, byte 6 mechanism
	// (lock/lock_state/eject), bytes 14-15 cur_read_speed.
	r.register(newModePage(0x2A, []byte{
		0x2A, 0x14,
		0x70, // cdr_read, cdrw_read, dvdrom_read
		0x00,
		0x71, // audio_play, mode2_form1, mode2_form2, multisession
		0x29, // cdda_cmds, rw_supported, isrc, upc
		0x29, // eject=1, lock=0, load_mech=mechanism 1 (tray)
		0x00,
		0x00, 0x00, // max_read_speed
		0x00, 0x00, // vol_lvls
		0x00, 0x00, // buf_size
		0x04, 0x4C, // cur_read_speed: 1100 KB/s (about 6x; 1x audio rate is 176 KB/s)
		0x00,
		0x00,
		0x00, 0x00, // max_write_speed
		0x00, 0x00, // cur_write_speed
	}, func() []byte {
		m := make([]byte, 22)
		m[6] = 0x02 // lock bit is client-settable via PREVENT/ALLOW mirroring.
		return m
	}()))

	return r
}

func (r *modePageRegistry) register(p modePage) {
	r.pages = append(r.pages, p)
	sort.Slice(r.pages, func(i, j int) bool { return r.pages[i].code < r.pages[j].code })
}

func (r *modePageRegistry) find(code byte) (*modePage, bool) {
	for i := range r.pages {
		if r.pages[i].code == code {
			return &r.pages[i], true
		}
	}

	return nil, false
}

// page2A/page01 are small named lookups the handlers use directly
// rather than re-searching the registry by magic number every time.
func (r *modePageRegistry) page2A() *modePage {
	p, _ := r.find(0x2A)
	return p
}

func (r *modePageRegistry) page01() *modePage {
	p, _ := r.find(0x01)
	return p
}

func (p *modePage) dcrSet() bool {
	return p.code == 0x01 && len(p.current) > 2 && p.current[2]&0x01 != 0
}

func (p *modePage) lockState() bool {
	return p.code == 0x2A && len(p.current) > 6 && p.current[6]&0x02 != 0
}

func (p *modePage) setLockState(locked bool) {
	if p.code != 0x2A || len(p.current) <= 6 {
		return
	}

	if locked {
		p.current[6] |= 0x02
	} else {
		p.current[6] &^= 0x02
	}
}

func (p *modePage) curReadSpeed() uint16 {
	if p.code != 0x2A || len(p.current) < 16 {
		return 0
	}

	return uint16(p.current[14])<<8 | uint16(p.current[15])
}

func (p *modePage) setCurReadSpeed(v uint16) {
	if p.code != 0x2A || len(p.current) < 16 {
		return
	}

	p.current[14] = byte(v >> 8)
	p.current[15] = byte(v)
}

// applyMasked implements the MODE SELECT write rule of §3/§9: every
// byte of the incoming page body may only change a bit the mask
// permits, i.e. bits outside the mask must match the byte already in
// current. On any violation no byte of current is modified.
func (p *modePage) applyMasked(body []byte) error {
	if len(body) != len(p.current) {
		return errInvalidFieldInParameterList
	}

	for i, nb := range body {
		if nb&^p.mask[i] != p.current[i]&^p.mask[i] {
			return errInvalidFieldInParameterList
		}
	}

	copy(p.current, body)

	return nil
}
