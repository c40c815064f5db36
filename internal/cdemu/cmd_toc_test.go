package cdemu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCmdReadTOC_RoundTripsTrackTable(t *testing.T) {
	const dataSectors, audioSectors = 100, 50
	d := newTestDevice(dataSectors, audioSectors)

	cmd := &Command{Out: make([]byte, 64)}
	cmd.CDB[0] = 0x43 // READ TOC/PMA/ATIP
	cmd.CDB[2] = 0x00 // format 0
	cmd.CDB[6] = 0x00 // start from track 1

	status, n := Dispatch(d, cmd, nil)
	require.Equal(t, byte(StatusGood), status)
	require.GreaterOrEqual(t, n, 28)

	out := cmd.Out[:n]

	tocLen := int(out[0])<<8 | int(out[1])
	assert.Equal(t, n-2, tocLen)
	assert.Equal(t, byte(1), out[2], "first track number")
	assert.Equal(t, byte(2), out[3], "last track number")

	track1 := out[4:12]
	assert.Equal(t, byte(1), track1[2], "track descriptor 1 carries track number 1")
	lba1 := int32(track1[4])<<24 | int32(track1[5])<<16 | int32(track1[6])<<8 | int32(track1[7])
	assert.Equal(t, int32(0), lba1)

	track2 := out[12:20]
	assert.Equal(t, byte(2), track2[2], "track descriptor 2 carries track number 2")
	lba2 := int32(track2[4])<<24 | int32(track2[5])<<16 | int32(track2[6])<<8 | int32(track2[7])
	assert.Equal(t, int32(dataSectors), lba2)

	leadOut := out[20:28]
	assert.Equal(t, byte(0xAA), leadOut[2], "lead-out descriptor number")
	lbaOut := int32(leadOut[4])<<24 | int32(leadOut[5])<<16 | int32(leadOut[6])<<8 | int32(leadOut[7])
	assert.Equal(t, int32(dataSectors+audioSectors), lbaOut)
}

func TestCmdReadTOC_NoMediumIsCheckCondition(t *testing.T) {
	d := NewDevice(0, nil, NullSink{})

	cmd := &Command{Out: make([]byte, 64)}
	cmd.CDB[0] = 0x43

	status, n := Dispatch(d, cmd, nil)
	assert.Equal(t, byte(StatusCheckCondition), status)
	assert.Equal(t, byte(SenseKeyNotReady), cmd.Out[2]&0x0F)
	assert.Equal(t, senseBufferLength, n)
}

// TestCmdReadTOC_StartTrackAAReportsLeadOutOnly guards the 0xAA edge
// case: requesting the lead-out track directly must not panic on an
// empty filtered track slice, and must report only the lead-out
// descriptor.
func TestCmdReadTOC_StartTrackAAReportsLeadOutOnly(t *testing.T) {
	const dataSectors, audioSectors = 100, 50
	d := newTestDevice(dataSectors, audioSectors)

	cmd := &Command{Out: make([]byte, 64)}
	cmd.CDB[0] = 0x43
	cmd.CDB[2] = 0x00
	cmd.CDB[6] = 0xAA

	status, n := Dispatch(d, cmd, nil)
	require.Equal(t, byte(StatusGood), status)
	require.Equal(t, 12, n)

	out := cmd.Out[:n]
	assert.Equal(t, byte(1), out[2], "first track number still reports the disc's first track")
	assert.Equal(t, byte(2), out[3], "last track number still reports the disc's last track")
	assert.Equal(t, byte(0xAA), out[6], "sole descriptor is the lead-out")
}

// TestCmdReadTOC_RawFormatEmitsPointDescriptors checks format 2's A0/
// A1/A2 point descriptors alongside the per-track entries.
func TestCmdReadTOC_RawFormatEmitsPointDescriptors(t *testing.T) {
	const dataSectors, audioSectors = 100, 50
	d := newTestDevice(dataSectors, audioSectors)

	cmd := &Command{Out: make([]byte, 128)}
	cmd.CDB[0] = 0x43
	cmd.CDB[2] = 0x02 // format 2: raw TOC
	cmd.CDB[6] = 0x01 // starting session 1

	status, n := Dispatch(d, cmd, nil)
	require.Equal(t, byte(StatusGood), status)
	require.GreaterOrEqual(t, n, 4+5*rawTOCDescriptorSize)

	out := cmd.Out[:n]
	points := make([]byte, 0)
	for off := 4; off+rawTOCDescriptorSize <= len(out); off += rawTOCDescriptorSize {
		points = append(points, out[off+3])
	}

	assert.Contains(t, points, byte(tocPointFirstTrack))
	assert.Contains(t, points, byte(tocPointLastTrack))
	assert.Contains(t, points, byte(tocPointLeadOut))
	assert.Contains(t, points, byte(1))
	assert.Contains(t, points, byte(2))
}

func TestCmdReadTrackInformation_ReportsDataModeAndLength(t *testing.T) {
	const dataSectors, audioSectors = 100, 50
	d := newTestDevice(dataSectors, audioSectors)

	cmd := &Command{Out: make([]byte, 36)}
	cmd.CDB[0] = 0x52 // READ TRACK INFORMATION
	cmd.CDB[1] = 0x01 // address type: track number
	cmd.CDB[2], cmd.CDB[3], cmd.CDB[4], cmd.CDB[5] = 0, 0, 0, 1

	status, n := Dispatch(d, cmd, nil)
	require.Equal(t, byte(StatusGood), status)
	require.Equal(t, 36, n)

	out := cmd.Out[:n]
	assert.Equal(t, byte(0x01), out[6]&0x0F, "data mode: mode 1")

	length := uint32(out[24])<<24 | uint32(out[25])<<16 | uint32(out[26])<<8 | uint32(out[27])
	assert.Equal(t, uint32(dataSectors), length)
}

func TestCmdReadSubchannel_MCNFormat(t *testing.T) {
	d := newTestDevice(4, 4)
	d.disc.MCN = "1234567890123"

	cmd := &Command{Out: make([]byte, 19)}
	cmd.CDB[0] = 0x42 // READ SUBCHANNEL
	cmd.CDB[3] = 0x02 // format 2: MCN

	status, n := Dispatch(d, cmd, nil)
	require.Equal(t, byte(StatusGood), status)
	require.Equal(t, 19, n)

	out := cmd.Out[:n]
	assert.Equal(t, byte(0x80), out[5], "MCVAL set")
	assert.Equal(t, d.disc.MCN, string(out[6:19]))
}

func TestCmdReadSubchannel_ISRCUnknownTrackIsInvalidField(t *testing.T) {
	d := newTestDevice(4, 4)

	cmd := &Command{Out: make([]byte, senseBufferLength)}
	cmd.CDB[0] = 0x42
	cmd.CDB[3] = 0x03 // format 3: ISRC
	cmd.CDB[6] = 99   // no such track

	status, _ := Dispatch(d, cmd, nil)
	assert.Equal(t, byte(StatusCheckCondition), status)
	assert.Equal(t, byte(ascInvalidFieldInCDB), cmd.Out[12])
}
