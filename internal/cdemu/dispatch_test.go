package cdemu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatch_UnknownOpcodeIsCheckCondition(t *testing.T) {
	d := newTestDevice(16, 16)

	cmd := &Command{Out: make([]byte, 18)}
	cmd.CDB[0] = 0xFF // Not in dispatchTable.

	status, n := Dispatch(d, cmd, nil)

	assert.Equal(t, byte(StatusCheckCondition), status)
	require.Equal(t, senseBufferLength, n)
	assert.Equal(t, byte(SenseKeyIllegalRequest), cmd.Out[2]&0x0F)
	assert.Equal(t, byte(ascInvalidCommandOperationCode), cmd.Out[12])
}

func TestDispatch_TestUnitReadySurfacesPendingEventOnce(t *testing.T) {
	d := newTestDevice(16, 16)

	cmd := &Command{Out: make([]byte, 18)}
	cmd.CDB[0] = 0x00 // TEST UNIT READY

	status, _ := Dispatch(d, cmd, nil)
	assert.Equal(t, byte(StatusCheckCondition), status, "first poll should surface the pending NEW_MEDIA event")

	status, _ = Dispatch(d, cmd, nil)
	assert.Equal(t, byte(StatusGood), status, "second poll should report ready with no pending event left")
}

// TestDispatch_PauseResumeDoesNotDeadlock exercises the noDeviceLock
// path end to end: PLAY AUDIO, then PAUSE, then RESUME must all
// complete without Dispatch blocking on its own device mutex.
func TestDispatch_PauseResumeDoesNotDeadlock(t *testing.T) {
	d := newTestDevice(4, 8) // audio track starts at LBA 4

	play := &Command{Out: make([]byte, 0)}
	play.CDB[0] = 0x45 // PLAY AUDIO(10)
	play.CDB[2], play.CDB[3], play.CDB[4], play.CDB[5] = 0, 0, 0, 4
	play.CDB[7], play.CDB[8] = 0, 4

	status, _ := Dispatch(d, play, nil)
	require.Equal(t, byte(StatusGood), status)
	require.Equal(t, AudioPlaying, d.audio.Status())

	pause := &Command{Out: make([]byte, 0)}
	pause.CDB[0] = 0x4B // PAUSE/RESUME
	pause.CDB[8] = 0x00 // Pause.

	status, _ = Dispatch(d, pause, nil)
	assert.Equal(t, byte(StatusGood), status)
	assert.Equal(t, AudioPaused, d.audio.Status())

	resume := &Command{Out: make([]byte, 0)}
	resume.CDB[0] = 0x4B
	resume.CDB[8] = 0x01 // Resume.

	status, _ = Dispatch(d, resume, nil)
	assert.Equal(t, byte(StatusGood), status)
	assert.Equal(t, AudioPlaying, d.audio.Status())

	d.audio.Stop()
}

// TestDispatch_DisturbsAudioStopsPlaybackFirst confirms that a command
// flagged disturbsAudio quiesces a playing engine before its own
// handler runs, rather than deadlocking or racing it.
func TestDispatch_DisturbsAudioStopsPlaybackFirst(t *testing.T) {
	d := newTestDevice(4, 8)

	play := &Command{Out: make([]byte, 0)}
	play.CDB[0] = 0x45
	play.CDB[2], play.CDB[3], play.CDB[4], play.CDB[5] = 0, 0, 0, 4
	play.CDB[7], play.CDB[8] = 0, 4

	_, _ = Dispatch(d, play, nil)
	require.Equal(t, AudioPlaying, d.audio.Status())

	read := &Command{Out: make([]byte, 2048)}
	read.CDB[0] = 0x28 // READ(10), disturbsAudio.
	read.CDB[2], read.CDB[3], read.CDB[4], read.CDB[5] = 0, 0, 0, 0
	read.CDB[7], read.CDB[8] = 0, 1

	status, n := Dispatch(d, read, nil)

	assert.Equal(t, byte(StatusGood), status)
	assert.Equal(t, 2048, n)
	assert.NotEqual(t, AudioPlaying, d.audio.Status())
}
