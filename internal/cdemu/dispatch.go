package cdemu

/*------------------------------------------------------------------
 *
 * Purpose: The opcode -> handler dispatch table and the per-command
 *		envelope (§4.3): zero scratch buffer, acquire device mutex,
 *		stop disturbed audio, invoke handler, translate the result
 *		to SCSI status.
 *
 *------------------------------------------------------------------*/

import "github.com/charmbracelet/log"

// Command is one CDB handed to the dispatcher, with its in/out buffers.
// ReadCommand allocates both per command, Out sized to the request's
// data length; they do not share the I/O loop's scratch buffer.
type Command struct {
	Tag    uint32 // Echoed back in the response so the kernel driver can match it up.
	CDB    [16]byte
	CDBLen int
	In     []byte // Data the initiator is writing to us (e.g. MODE SELECT).
	Out    []byte // Response buffer; handlers write here and return how much they used.
}

type handlerFunc func(d *Device, cmd *Command) (int, *senseError)

type opcodeEntry struct {
	opcode        byte
	name          string
	handler       handlerFunc
	disturbsAudio bool
	// noDeviceLock marks handlers that manage their own synchronization
	// through the audio engine (PAUSE/RESUME): Dispatch must not hold
	// the device mutex while they run, since Pause joins the playback
	// worker, which needs that same mutex to finish (§4.5).
	noDeviceLock bool
}

var dispatchTable = buildDispatchTable()

func buildDispatchTable() map[byte]opcodeEntry {
	entries := []opcodeEntry{
		{opcode: 0x00, name: "TEST UNIT READY", handler: cmdTestUnitReady, disturbsAudio: true},
		{opcode: 0x03, name: "REQUEST SENSE", handler: cmdRequestSense},
		{opcode: 0x12, name: "INQUIRY", handler: cmdInquiry},
		{opcode: 0x15, name: "MODE SELECT(6)", handler: cmdModeSelect6, disturbsAudio: true},
		{opcode: 0x1A, name: "MODE SENSE(6)", handler: cmdModeSense6},
		{opcode: 0x1B, name: "START STOP UNIT", handler: cmdStartStopUnit, disturbsAudio: true},
		{opcode: 0x1E, name: "PREVENT ALLOW MEDIUM REMOVAL", handler: cmdPreventAllow},
		{opcode: 0x25, name: "READ CAPACITY", handler: cmdReadCapacity},
		{opcode: 0x28, name: "READ(10)", handler: cmdRead10, disturbsAudio: true},
		{opcode: 0x2B, name: "SEEK(10)", handler: cmdSeek10, disturbsAudio: true},
		{opcode: 0x42, name: "READ SUBCHANNEL", handler: cmdReadSubchannel},
		{opcode: 0x43, name: "READ TOC/PMA/ATIP", handler: cmdReadTOC},
		{opcode: 0x45, name: "PLAY AUDIO(10)", handler: cmdPlayAudio10, disturbsAudio: true},
		{opcode: 0x46, name: "GET CONFIGURATION", handler: cmdGetConfiguration},
		{opcode: 0x47, name: "PLAY AUDIO MSF", handler: cmdPlayAudioMSF, disturbsAudio: true},
		{opcode: 0x4A, name: "GET EVENT/STATUS NOTIFICATION", handler: cmdGetEventStatus},
		{opcode: 0x4B, name: "PAUSE/RESUME", handler: cmdPauseResume, noDeviceLock: true},
		{opcode: 0x51, name: "READ DISC INFORMATION", handler: cmdReadDiscInformation},
		{opcode: 0x52, name: "READ TRACK INFORMATION", handler: cmdReadTrackInformation},
		{opcode: 0x55, name: "MODE SELECT(10)", handler: cmdModeSelect10, disturbsAudio: true},
		{opcode: 0x5A, name: "MODE SENSE(10)", handler: cmdModeSense10},
		{opcode: 0xA4, name: "REPORT KEY", handler: cmdReportKey},
		{opcode: 0xA5, name: "PLAY AUDIO(12)", handler: cmdPlayAudio12, disturbsAudio: true},
		{opcode: 0xA8, name: "READ(12)", handler: cmdRead12, disturbsAudio: true},
		{opcode: 0xAD, name: "READ DVD STRUCTURE", handler: cmdReadDVDStructure},
		{opcode: 0xB9, name: "READ CD MSF", handler: cmdReadCDMSF, disturbsAudio: true},
		{opcode: 0xBB, name: "SET CD SPEED", handler: cmdSetCDSpeed},
		{opcode: 0xBE, name: "READ CD", handler: cmdReadCD, disturbsAudio: true},
	}

	table := make(map[byte]opcodeEntry, len(entries))
	for _, e := range entries {
		table[e.opcode] = e
	}

	return table
}

// Dispatch executes one command against d, returning the SCSI status
// and the number of response bytes written to cmd.Out. This is the
// exact envelope of §4.3.
func Dispatch(d *Device, cmd *Command, logger *log.Logger) (status byte, outLen int) {
	for i := range cmd.Out {
		cmd.Out[i] = 0
	}

	opcode := cmd.CDB[0]

	entry, known := dispatchTable[opcode]
	if !known {
		return StatusCheckCondition, writeSense(cmd.Out, errInvalidCommandOperationCode)
	}

	if d.debugDispatchEnabled() && logger != nil {
		logger.Debugf("dispatch: opcode=0x%02x device=%d", opcode, d.Number)
	}

	if entry.noDeviceLock {
		n, err := entry.handler(d, cmd)
		d.recordSense(err)

		if err != nil {
			return StatusCheckCondition, writeSense(cmd.Out, err)
		}

		return StatusGood, n
	}

	// Audio must be quiesced before the device mutex is taken: Stop()
	// joins the playback worker, which itself needs the device mutex
	// to publish its final cursor position (§4.3, §4.5).
	if entry.disturbsAudio {
		if s := d.audio.Status(); s == AudioPlaying || s == AudioPaused {
			d.audio.Stop()
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	n, err := entry.handler(d, cmd)
	d.recordSenseLocked(err)

	if err != nil {
		return StatusCheckCondition, writeSense(cmd.Out, err)
	}

	return StatusGood, n
}
