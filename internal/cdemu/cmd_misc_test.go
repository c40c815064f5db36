package cdemu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCmdSeek10_AlwaysGood(t *testing.T) {
	d := newTestDevice(4, 4)

	cmd := &Command{Out: make([]byte, 0)}
	cmd.CDB[0] = 0x2B // SEEK(10)
	cmd.CDB[2], cmd.CDB[3], cmd.CDB[4], cmd.CDB[5] = 0xFF, 0xFF, 0xFF, 0xFF // well past the medium

	status, n := Dispatch(d, cmd, nil)
	assert.Equal(t, byte(StatusGood), status)
	assert.Equal(t, 0, n)
}

func TestCmdReportKey_RPCStatusFormat(t *testing.T) {
	d := newTestDevice(4, 4)

	cmd := &Command{Out: make([]byte, 8)}
	cmd.CDB[0] = 0xA4 // REPORT KEY
	cmd.CDB[10] = 0x08 // key format: RPC state.

	status, n := Dispatch(d, cmd, nil)
	require.Equal(t, byte(StatusGood), status)
	require.Equal(t, 8, n)

	assert.Equal(t, byte(0), cmd.Out[2], "type code")
	assert.Equal(t, byte(4), cmd.Out[3], "vendor resets available")
	assert.Equal(t, byte(5), cmd.Out[4], "user controlled changes available")
	assert.Equal(t, byte(0xFF), cmd.Out[5], "region mask")
	assert.Equal(t, byte(0x01), cmd.Out[6], "RPC scheme")
}

func TestCmdReportKey_OtherFormatOnCDROMIsIncompatibleFormat(t *testing.T) {
	d := newTestDevice(4, 4)

	cmd := &Command{Out: make([]byte, senseBufferLength)}
	cmd.CDB[0] = 0xA4
	cmd.CDB[10] = 0x00 // AGID request, not implemented for CD media.

	status, _ := Dispatch(d, cmd, nil)
	assert.Equal(t, byte(StatusCheckCondition), status)
	assert.Equal(t, byte(SenseKeyIllegalRequest), cmd.Out[2]&0x0F)
	assert.Equal(t, byte(ascCannotReadMedium), cmd.Out[12])
	assert.Equal(t, byte(ascqIncompatibleFormat), cmd.Out[13])
}
