package cdemu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFeatureRegistry_SortedAscendingByCode(t *testing.T) {
	r := newFeatureRegistry()

	for i := 1; i < len(r.features); i++ {
		assert.Less(t, r.features[i-1].code, r.features[i].code, "registry must stay sorted ascending by code")
	}
}

func TestFeatureRegistry_SetProfileFlipsCurrentBits(t *testing.T) {
	r := newFeatureRegistry()

	r.setProfile(DiscTypeCDROM)

	byCode := func(code uint16) *feature {
		for i := range r.features {
			if r.features[i].code == code {
				return &r.features[i]
			}
		}

		return nil
	}

	assert.True(t, byCode(featCDRead).current, "CD read is current on a CD-ROM profile")
	assert.False(t, byCode(featDVDRead).current, "DVD read is not current on a CD-ROM profile")
	assert.True(t, byCode(featAudioPlay).current)
	assert.True(t, byCode(featCore).current, "always-current features stay current on any loaded profile")

	r.setProfile(DiscTypeDVDROM)

	assert.False(t, byCode(featCDRead).current)
	assert.True(t, byCode(featDVDRead).current)
	assert.False(t, byCode(featAudioPlay).current)

	r.setProfile(DiscTypeNone)

	assert.False(t, byCode(featCore).current, "always-current features drop out when no profile is loaded")
	assert.False(t, byCode(featCDRead).current)
}

func TestFeatureRegistry_EncodeRoundTripsHeaderFlags(t *testing.T) {
	r := newFeatureRegistry()
	r.setProfile(DiscTypeCDROM)

	f := r.features[0]
	buf := make([]byte, 4+len(f.payload))

	n := f.encode(buf)

	assert.Equal(t, len(buf), n)
	assert.Equal(t, f.code, uint16(buf[0])<<8|uint16(buf[1]))
	assert.Equal(t, f.length(), buf[3])

	if f.current {
		assert.Equal(t, byte(0x01), buf[2]&0x01)
	} else {
		assert.Equal(t, byte(0x00), buf[2]&0x01)
	}
}
