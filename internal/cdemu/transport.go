package cdemu

/*------------------------------------------------------------------
 *
 * Purpose: The kernel <-> userspace wire protocol and per-device I/O
 *		loop (§4.2), grounded on cdemud-device-kernel-io.c's
 *		vhba_request/vhba_response pair: a tagged CDB-plus-data-length
 *		request and a tagged status-plus-data-length response sharing
 *		one buffer.
 *
 *------------------------------------------------------------------*/

import (
	"encoding/binary"
	"io"

	"github.com/charmbracelet/log"
)

const (
	maxCommandSize = 16
	maxSectors     = 256
	maxSenseBytes  = 256
	sectorBytes    = 512
)

// requestHeader is vhba_request's fixed part: tag, lun, cdb, cdb_len,
// data_len, all little-endian on the wire as the kernel driver emits
// them.
type requestHeader struct {
	Tag     uint32
	Lun     uint32
	CDB     [maxCommandSize]byte
	CDBLen  uint8
	_       [3]byte // Struct padding to a 4-byte boundary, matching the C layout.
	DataLen uint32
}

const requestHeaderSize = 4 + 4 + maxCommandSize + 1 + 3 + 4

// responseHeader is vhba_response's fixed part.
type responseHeader struct {
	Tag     uint32
	Status  uint32
	DataLen uint32
}

const responseHeaderSize = 4 + 4 + 4

// bufSize mirrors BUF_SIZE: enough 512-byte sectors for the largest
// READ CD transfer plus sense and header overhead.
const bufSize = sectorBytes * (maxSectors + (maxSenseBytes+responseHeaderSize+511)/sectorBytes)

// ReadCommand parses one requestHeader plus its data payload off r,
// returning a Command ready for Dispatch. A read shorter than the
// header, or a payload shorter than data_len, is returned as an error;
// a data_len larger than the buffer is clamped to the buffer size.
func ReadCommand(r io.Reader, scratch []byte) (*Command, error) {
	if len(scratch) < bufSize {
		scratch = make([]byte, bufSize)
	}

	n, err := io.ReadFull(r, scratch[:requestHeaderSize])
	if err != nil {
		return nil, err
	}

	if n < requestHeaderSize {
		return nil, io.ErrUnexpectedEOF
	}

	var hdr requestHeader

	hdr.Tag = binary.LittleEndian.Uint32(scratch[0:4])
	hdr.Lun = binary.LittleEndian.Uint32(scratch[4:8])
	copy(hdr.CDB[:], scratch[8:8+maxCommandSize])
	hdr.CDBLen = scratch[8+maxCommandSize]
	hdr.DataLen = binary.LittleEndian.Uint32(scratch[requestHeaderSize-4 : requestHeaderSize])

	dataLen := int(hdr.DataLen)
	if dataLen > bufSize-requestHeaderSize {
		dataLen = bufSize - requestHeaderSize
	}

	in := make([]byte, dataLen)
	if dataLen > 0 {
		if _, err := io.ReadFull(r, in); err != nil {
			return nil, err
		}
	}

	cmd := &Command{
		Tag:    hdr.Tag,
		CDBLen: int(hdr.CDBLen),
		In:     in,
		Out:    make([]byte, dataLen),
	}

	copy(cmd.CDB[:], hdr.CDB[:])

	return cmd, nil
}

// WriteResponse serializes tag/status/data back onto w in the
// vhba_response layout.
func WriteResponse(w io.Writer, tag uint32, status byte, out []byte) error {
	hdr := make([]byte, responseHeaderSize)
	binary.LittleEndian.PutUint32(hdr[0:4], tag)
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(status))
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(len(out)))

	if _, err := w.Write(hdr); err != nil {
		return err
	}

	if len(out) == 0 {
		return nil
	}

	_, err := w.Write(out)

	return err
}

// RunIOLoop is one device's control-device service loop: read a
// request, dispatch it, write the response, repeat until the
// transport returns an error (device closed, daemon shutting down).
// This is the pure-Go analogue of cdemud_device_io_handler's GIOChannel
// watch callback, driven here by a blocking loop on its own goroutine
// per device instead of glib's event loop.
func RunIOLoop(rw io.ReadWriter, d *Device, logger *log.Logger) error {
	scratch := make([]byte, bufSize)

	for {
		cmd, err := ReadCommand(rw, scratch)
		if err != nil {
			return err
		}

		status, n := Dispatch(d, cmd, logger)

		if err := WriteResponse(rw, cmd.Tag, status, cmd.Out[:n]); err != nil {
			return err
		}
	}
}
