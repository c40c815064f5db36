package cdemu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestModePage_ApplyMaskedRejectsWrongLength(t *testing.T) {
	r := newModePageRegistry()
	p, ok := r.find(0x01)
	require.True(t, ok)

	err := p.applyMasked(make([]byte, len(p.current)+1))
	assert.ErrorIs(t, err, errInvalidFieldInParameterList)
}

func TestModePage_ApplyMaskedAcceptsInMaskBit(t *testing.T) {
	r := newModePageRegistry()
	p, ok := r.find(0x01)
	require.True(t, ok)

	body := append([]byte(nil), p.current...)
	body[2] |= 0x01 // dcr, masked writable.

	require.NoError(t, p.applyMasked(body))
	assert.True(t, p.dcrSet())
}

func TestModePage_ApplyMaskedRejectsOutOfMaskBit(t *testing.T) {
	r := newModePageRegistry()
	p, ok := r.find(0x01)
	require.True(t, ok)

	before := append([]byte(nil), p.current...)

	body := append([]byte(nil), p.current...)
	body[2] |= 0x02 // arre, not in the 0x01 mask for this byte.

	err := p.applyMasked(body)
	assert.ErrorIs(t, err, errInvalidFieldInParameterList)
	assert.Equal(t, before, p.current, "a rejected write must leave current untouched")
}

// TestModePage_ApplyMaskedProperty checks the invariant directly against
// every registered page: flipping only masked bits always succeeds and
// is reflected back, flipping any unmasked bit always fails and leaves
// current byte-for-byte unchanged.
func TestModePage_ApplyMaskedProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := newModePageRegistry()
		idx := rapid.IntRange(0, len(r.pages)-1).Draw(t, "page")
		p := &r.pages[idx]

		body := append([]byte(nil), p.current...)
		for i := range body {
			flip := byte(rapid.IntRange(0, 255).Draw(t, "flip"))
			body[i] ^= flip & p.mask[i] // Only ever touch bits the mask allows.
		}

		before := append([]byte(nil), p.current...)
		err := p.applyMasked(body)
		require.NoError(t, err)
		assert.Equal(t, body, p.current)

		// Now corrupt one byte outside its mask, if that byte's mask
		// isn't all-ones (i.e. some bit really is out of bounds).
		for i := range body {
			if p.mask[i] != 0xFF {
				bad := append([]byte(nil), before...)
				copy(bad, p.current)
				bad[i] ^= ^p.mask[i] // Flip a bit definitely outside the mask.

				snapshot := append([]byte(nil), p.current...)
				err := p.applyMasked(bad)
				assert.Error(t, err)
				assert.Equal(t, snapshot, p.current, "rejected write must not mutate current")

				break
			}
		}
	})
}
