package cdemu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCmdRead_Read10MatchesReadCDUserData checks that READ(10)'s cooked
// path and READ CD's raw path (with the user-data flag bit set) return
// identical bytes for the same data sector.
func TestCmdRead_Read10MatchesReadCDUserData(t *testing.T) {
	d := newTestDevice(16, 16)

	read10 := &Command{Out: make([]byte, 2048)}
	read10.CDB[0] = 0x28
	read10.CDB[2], read10.CDB[3], read10.CDB[4], read10.CDB[5] = 0, 0, 0, 5
	read10.CDB[7], read10.CDB[8] = 0, 1

	status, n := Dispatch(d, read10, nil)
	require.Equal(t, byte(StatusGood), status)
	require.Equal(t, 2048, n)

	readCD := &Command{Out: make([]byte, 2048)}
	readCD.CDB[0] = 0xBE
	readCD.CDB[1] = 0x02 << 2 // expected sector type: Mode 1.
	readCD.CDB[2], readCD.CDB[3], readCD.CDB[4], readCD.CDB[5] = 0, 0, 0, 5
	readCD.CDB[6], readCD.CDB[7], readCD.CDB[8] = 0, 0, 1
	readCD.CDB[9] = 0x10 // Flag byte: user data only.

	status, n2 := Dispatch(d, readCD, nil)
	require.Equal(t, byte(StatusGood), status)
	require.Equal(t, 2048, n2)

	assert.Equal(t, read10.Out[:n], readCD.Out[:n2])
}

func TestCmdRead_Read10PastMediumIsCheckCondition(t *testing.T) {
	d := newTestDevice(4, 4)

	cmd := &Command{Out: make([]byte, 2048)}
	cmd.CDB[0] = 0x28
	cmd.CDB[2], cmd.CDB[3], cmd.CDB[4], cmd.CDB[5] = 0, 0, 0, 99
	cmd.CDB[7], cmd.CDB[8] = 0, 1

	status, n := Dispatch(d, cmd, nil)
	assert.Equal(t, byte(StatusCheckCondition), status)
	assert.Equal(t, byte(SenseKeyIllegalRequest), cmd.Out[2]&0x0F)
	assert.Equal(t, byte(ascIllegalModeForThisTrack), cmd.Out[12])
	assert.Equal(t, senseBufferLength, n)
}
