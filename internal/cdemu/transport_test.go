package cdemu

import (
	"bytes"
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodeRequest builds one wire-format request frame: the fixed header
// followed by dataLen bytes, mirroring what the kernel driver side of
// ReadCommand expects.
func encodeRequest(tag uint32, cdb []byte, dataLen int) []byte {
	buf := make([]byte, requestHeaderSize+dataLen)

	binary.LittleEndian.PutUint32(buf[0:4], tag)
	binary.LittleEndian.PutUint32(buf[4:8], 0) // lun
	copy(buf[8:8+maxCommandSize], cdb)
	buf[8+maxCommandSize] = byte(len(cdb))
	binary.LittleEndian.PutUint32(buf[requestHeaderSize-4:requestHeaderSize], uint32(dataLen))

	return buf
}

func TestReadCommand_ParsesHeaderAndPayload(t *testing.T) {
	cdb := make([]byte, 16)
	cdb[0] = 0x12 // INQUIRY

	req := encodeRequest(7, cdb, 36)
	r := bytes.NewReader(req)

	cmd, err := ReadCommand(r, nil)
	require.NoError(t, err)

	assert.Equal(t, uint32(7), cmd.Tag)
	assert.Equal(t, 16, cmd.CDBLen)
	assert.Equal(t, byte(0x12), cmd.CDB[0])
	assert.Len(t, cmd.Out, 36)
}

func TestWriteResponse_EncodesTagStatusAndData(t *testing.T) {
	var buf bytes.Buffer

	out := []byte{1, 2, 3, 4}
	require.NoError(t, WriteResponse(&buf, 9, StatusGood, out))

	b := buf.Bytes()
	require.Len(t, b, responseHeaderSize+len(out))

	assert.Equal(t, uint32(9), binary.LittleEndian.Uint32(b[0:4]))
	assert.Equal(t, uint32(StatusGood), binary.LittleEndian.Uint32(b[4:8]))
	assert.Equal(t, uint32(len(out)), binary.LittleEndian.Uint32(b[8:12]))
	assert.Equal(t, out, b[responseHeaderSize:])
}

// TestRunIOLoop_RoundTripsOneCommand drives RunIOLoop over an in-memory
// net.Pipe standing in for the kernel control device, playing the role
// of the kernel driver on one end and asserting on the daemon's
// response on the other.
func TestRunIOLoop_RoundTripsOneCommand(t *testing.T) {
	kernel, daemon := net.Pipe()
	defer kernel.Close()
	defer daemon.Close()

	d := newTestDevice(16, 16)

	loopErr := make(chan error, 1)
	go func() { loopErr <- RunIOLoop(daemon, d, nil) }()

	cdb := make([]byte, 16)
	cdb[0] = 0x12 // INQUIRY

	require.NoError(t, kernel.SetDeadline(time.Now().Add(5*time.Second)))

	req := encodeRequest(42, cdb, 36)
	_, err := kernel.Write(req)
	require.NoError(t, err)

	hdr := make([]byte, responseHeaderSize)
	_, err = io.ReadFull(kernel, hdr)
	require.NoError(t, err)

	tag := binary.LittleEndian.Uint32(hdr[0:4])
	status := binary.LittleEndian.Uint32(hdr[4:8])
	dataLen := binary.LittleEndian.Uint32(hdr[8:12])

	assert.Equal(t, uint32(42), tag)
	assert.Equal(t, uint32(StatusGood), status)
	require.Equal(t, uint32(36), dataLen)

	body := make([]byte, dataLen)
	_, err = io.ReadFull(kernel, body)
	require.NoError(t, err)

	assert.Equal(t, byte(0x05), body[0], "INQUIRY peripheral device type: CD/DVD-ROM")

	kernel.Close()
	<-loopErr
}
