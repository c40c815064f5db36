package cdemu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestCmdPlayAudio_NonAudioStartIsCheckCondition checks that PLAY
// AUDIO rejects a start sector that isn't an audio sector up front,
// rather than handing a data sector to the playback engine.
func TestCmdPlayAudio_NonAudioStartIsCheckCondition(t *testing.T) {
	d := newTestDevice(4, 8) // track 1 (data) LBA 0..3, track 2 (audio) LBA 4..

	cmd := &Command{Out: make([]byte, senseBufferLength)}
	cmd.CDB[0] = 0x45 // PLAY AUDIO(10)
	cmd.CDB[2], cmd.CDB[3], cmd.CDB[4], cmd.CDB[5] = 0, 0, 0, 0
	cmd.CDB[7], cmd.CDB[8] = 0, 2

	status, _ := Dispatch(d, cmd, nil)

	assert.Equal(t, byte(StatusCheckCondition), status)
	assert.Equal(t, byte(SenseKeyIllegalRequest), cmd.Out[2]&0x0F)
	assert.Equal(t, byte(ascIllegalModeForThisTrack), cmd.Out[12])
	assert.Equal(t, AudioNoStatus, d.audio.Status())
}
