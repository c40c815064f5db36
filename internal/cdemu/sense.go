package cdemu

/*------------------------------------------------------------------
 *
 * Purpose: SCSI sense key / ASC / ASCQ constants and the fixed-format
 *		18-byte sense buffer every failing MMC handler produces.
 *
 *------------------------------------------------------------------*/

import "fmt"

// Sense keys (SPC-3 table 27).
const (
	SenseKeyNoSense        = 0x00
	SenseKeyNotReady       = 0x02
	SenseKeyMediumError    = 0x03
	SenseKeyIllegalRequest = 0x05
	SenseKeyUnitAttention  = 0x06
)

// ASC/ASCQ pairs used by this daemon. Named after the text of the
// standard, not the call site that raises them.
const (
	ascNoAdditionalSenseInfo       = 0x00
	ascqNoAdditionalSenseInfo      = 0x00
	ascMediumNotPresent            = 0x3A
	ascqMediumNotPresent           = 0x00
	ascMediumRemovalPrevented      = 0x53
	ascqMediumRemovalPrevented     = 0x02
	ascNotReadyToReadyChange       = 0x28
	ascqNotReadyToReadyChange      = 0x00
	ascInvalidCommandOperationCode = 0x20
	ascqInvalidCommandOperationCode = 0x00
	ascInvalidFieldInCDB           = 0x24
	ascqInvalidFieldInCDB          = 0x00
	ascInvalidFieldInParameterList = 0x26
	ascqInvalidFieldInParameterList = 0x00
	ascSavingParametersNotSupported = 0x39
	ascqSavingParametersNotSupported = 0x00
	ascIllegalModeForThisTrack     = 0x64
	ascqIllegalModeForThisTrack    = 0x00
	ascUnrecoveredReadError        = 0x11
	ascqUnrecoveredReadError       = 0x00
	ascCannotReadMedium            = 0x30
	ascqIncompatibleFormat         = 0x02
	ascCommandSequenceError        = 0x2C
	ascqCommandSequenceError       = 0x00
)

// SCSI status codes (only the two this daemon ever returns).
const (
	StatusGood          = 0x00
	StatusCheckCondition = 0x02
)

const senseResponseCode = 0x70 // Current errors, fixed format.
const senseBufferLength = 18

// senseError is the handler-level error type: every MMC command either
// returns nil (GOOD) or a *senseError the dispatcher renders into the
// 18-byte sense buffer and reports as CHECK CONDITION.
type senseError struct {
	key          byte
	asc          byte
	ascq         byte
	ili          bool
	commandInfo  uint32
	hasCmdInfo   bool
}

func (e *senseError) Error() string {
	return fmt.Sprintf("sense key=0x%02x asc=0x%02x ascq=0x%02x", e.key, e.asc, e.ascq)
}

func newSense(key, asc, ascq byte) *senseError {
	return &senseError{key: key, asc: asc, ascq: ascq}
}

func newSenseWithCommandInfo(key, asc, ascq byte, info uint32) *senseError {
	return &senseError{key: key, asc: asc, ascq: ascq, hasCmdInfo: true, commandInfo: info}
}

// newSenseILIWithCommandInfo is newSenseWithCommandInfo plus the ILI
// (illegal length indicator) bit, for the form-mismatch cases where the
// original sets it alongside the command-info field (§4.3).
func newSenseILIWithCommandInfo(key, asc, ascq byte, info uint32) *senseError {
	return &senseError{key: key, asc: asc, ascq: ascq, ili: true, hasCmdInfo: true, commandInfo: info}
}

var (
	errMediumNotPresent = newSense(SenseKeyNotReady, ascMediumNotPresent, ascqMediumNotPresent)
	errMediumRemovalPrevented = newSense(SenseKeyNotReady, ascMediumRemovalPrevented, ascqMediumRemovalPrevented)
	errNotReadyToReadyChange = newSense(SenseKeyUnitAttention, ascNotReadyToReadyChange, ascqNotReadyToReadyChange)
	errInvalidCommandOperationCode = newSense(SenseKeyIllegalRequest, ascInvalidCommandOperationCode, ascqInvalidCommandOperationCode)
	errInvalidFieldInCDB = newSense(SenseKeyIllegalRequest, ascInvalidFieldInCDB, ascqInvalidFieldInCDB)
	errInvalidFieldInParameterList = newSense(SenseKeyIllegalRequest, ascInvalidFieldInParameterList, ascqInvalidFieldInParameterList)
	errSavingParametersNotSupported = newSense(SenseKeyIllegalRequest, ascSavingParametersNotSupported, ascqSavingParametersNotSupported)
	errCommandSequenceError = newSense(SenseKeyIllegalRequest, ascCommandSequenceError, ascqCommandSequenceError)
	errCannotReadIncompatibleFormat = newSense(SenseKeyIllegalRequest, ascCannotReadMedium, ascqIncompatibleFormat)
)

// writeSense renders e (or a "no sense" record when e is nil) into the
// fixed 18-byte buffer, matching §3's layout: response code, sense key,
// ASC, ASCQ, ILI bit and 4-byte command-information field.
func writeSense(buf []byte, e *senseError) int {
	for i := range buf[:min(len(buf), senseBufferLength)] {
		buf[i] = 0
	}

	if len(buf) < senseBufferLength {
		return 0
	}

	buf[0] = senseResponseCode

	if e == nil {
		return senseBufferLength
	}

	buf[2] = e.key & 0x0F
	if e.ili {
		buf[2] |= 0x20
	}

	buf[7] = senseBufferLength - 8 // Additional sense length.
	buf[12] = e.asc
	buf[13] = e.ascq

	if e.hasCmdInfo {
		buf[3] = byte(e.commandInfo >> 24)
		buf[4] = byte(e.commandInfo >> 16)
		buf[5] = byte(e.commandInfo >> 8)
		buf[6] = byte(e.commandInfo)
	}

	return senseBufferLength
}
