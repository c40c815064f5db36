package cdemu

/*------------------------------------------------------------------
 *
 * Purpose: Feature registry: MMC GET CONFIGURATION records (§3),
 *		kept sorted ascending by code, with the `current` flag
 *		flipped as a function of the active profile. Codes and
 *		bodies follow cdemud-mmc-features.h.
 *
 *------------------------------------------------------------------*/

import "sort"

// Feature codes this daemon reports (MMC-3 table 89, subset we emulate).
const (
	featProfileList        = 0x0000
	featCore                = 0x0001
	featMorphing            = 0x0002
	featRemovableMedium     = 0x0003
	featRandomReadable      = 0x0010
	featMultiRead           = 0x001D
	featCDRead              = 0x001E
	featDVDRead             = 0x001F
	featPowerManagement     = 0x0100
	featTimeout             = 0x0105
	featAudioPlay           = 0x0103
)

// MMC profile numbers, used both in feature bodies and GET
// CONFIGURATION's header current_profile field.
const (
	profileNone   uint16 = 0x0000
	profileCDROM  uint16 = 0x0008
	profileDVDROM uint16 = 0x0010
)

// feature is one registry entry.
type feature struct {
	code       uint16
	version    byte
	persistent bool
	current    bool
	payload    []byte
	// profiles this feature is `current` for; empty means "always".
	currentFor []DiscType
}

func (f *feature) length() byte { return byte(len(f.payload)) }

// encode writes this feature's 4-byte header plus payload into buf,
// returning the number of bytes written.
func (f *feature) encode(buf []byte) int {
	buf[0] = byte(f.code >> 8)
	buf[1] = byte(f.code)
	buf[2] = (f.version << 2)

	if f.persistent {
		buf[2] |= 0x02
	}

	if f.current {
		buf[2] |= 0x01
	}

	buf[3] = f.length()
	copy(buf[4:], f.payload)

	return 4 + len(f.payload)
}

type featureRegistry struct {
	features []feature
}

func newFeatureRegistry() *featureRegistry {
	r := &featureRegistry{}

	r.register(feature{code: featProfileList, version: 0, persistent: true, current: true,
		payload: []byte{
			byte(profileCDROM >> 8), byte(profileCDROM), 0x00, 0x00,
			byte(profileDVDROM >> 8), byte(profileDVDROM), 0x00, 0x00,
		}})
	r.register(feature{code: featCore, version: 2, persistent: true, current: true,
		payload: []byte{0x00, 0x00, 0x00, 0x08, 0x00, 0x00, 0x00, 0x00}})
	r.register(feature{code: featMorphing, version: 1, persistent: true, current: true,
		payload: []byte{0x02, 0x00, 0x00, 0x00}})
	r.register(feature{code: featRemovableMedium, version: 2, persistent: true, current: true,
		payload: []byte{0x29, 0x00, 0x00, 0x00}})
	r.register(feature{code: featRandomReadable, version: 0, persistent: false, current: true,
		payload: []byte{0x00, 0x00, 0x08, 0x00, 0x01, 0x00, 0x00, 0x00}})
	r.register(feature{code: featMultiRead, version: 0, persistent: false, current: false,
		payload: nil, currentFor: []DiscType{DiscTypeCDROM}})
	r.register(feature{code: featCDRead, version: 0, persistent: false, current: false,
		payload: []byte{0x00, 0x00, 0x00, 0x00}, currentFor: []DiscType{DiscTypeCDROM}})
	r.register(feature{code: featDVDRead, version: 0, persistent: false, current: false,
		payload: []byte{0x00, 0x00, 0x00, 0x00}, currentFor: []DiscType{DiscTypeDVDROM}})
	r.register(feature{code: featPowerManagement, version: 0, persistent: true, current: true,
		payload: nil})
	r.register(feature{code: featTimeout, version: 0, persistent: true, current: true,
		payload: []byte{0x00, 0x00, 0x00, 0x00}})
	r.register(feature{code: featAudioPlay, version: 0, persistent: false, current: false,
		payload: []byte{0x01, 0x00, 0x00, 0x00}, currentFor: []DiscType{DiscTypeCDROM}})

	return r
}

func (r *featureRegistry) register(f feature) {
	r.features = append(r.features, f)
	sort.Slice(r.features, func(i, j int) bool { return r.features[i].code < r.features[j].code })
}

// setProfile flips every feature's `current` flag atomically, per §3's
// "profile transitions atomically update the current flag on all
// features" invariant.
func (r *featureRegistry) setProfile(profile DiscType) {
	for i := range r.features {
		f := &r.features[i]

		if len(f.currentFor) == 0 {
			f.current = profile != DiscTypeNone

			continue
		}

		f.current = false

		for _, p := range f.currentFor {
			if p == profile {
				f.current = true

				break
			}
		}
	}
}

func profileCode(t DiscType) uint16 {
	switch t {
	case DiscTypeCDROM:
		return profileCDROM
	case DiscTypeDVDROM:
		return profileDVDROM
	default:
		return profileNone
	}
}
