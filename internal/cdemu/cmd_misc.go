package cdemu

/*------------------------------------------------------------------
 *
 * Purpose: The small, data-light MMC commands: unit readiness, sense
 *		reporting, medium locking/ejection, seek, event notification
 *		and the DVD CSS stub (§4.3, §4.6).
 *
 *------------------------------------------------------------------*/

// ensureLoaded is the medium-present guard almost every handler needs
// first (§4.6).
func (d *Device) ensureLoaded() *senseError {
	if !d.loaded {
		return errMediumNotPresent
	}

	return nil
}

// cmdTestUnitReady reports the device's readiness, surfacing a pending
// medium event exactly once as UNIT ATTENTION before returning GOOD on
// subsequent polls (§4.6 medium-event semantics).
func cmdTestUnitReady(d *Device, cmd *Command) (int, *senseError) {
	if d.pendingEvent != MediumNoChange {
		d.pendingEvent = MediumNoChange

		return 0, errNotReadyToReadyChange
	}

	if err := d.ensureLoaded(); err != nil {
		return 0, err
	}

	return 0, nil
}

// cmdRequestSense reports the sense data left behind by the command
// immediately prior, or synthesizes progress sense while audio is
// playing, per §4.3.
func cmdRequestSense(d *Device, cmd *Command) (int, *senseError) {
	if d.lastSense != nil {
		n := writeSense(cmd.Out, d.lastSense)
		d.lastSense = nil

		return n, nil
	}

	if s := d.audio.Status(); s != AudioNoStatus {
		return writeSense(cmd.Out, newSense(SenseKeyNoSense, ascNoAdditionalSenseInfo, s.ascq())), nil
	}

	return writeSense(cmd.Out, nil), nil
}

// cmdStartStopUnit implements START STOP UNIT's load/eject/stop
// semantics (§4.6). Byte 4: bit0 start, bit1 loej.
func cmdStartStopUnit(d *Device, cmd *Command) (int, *senseError) {
	start := cmd.CDB[4]&0x01 != 0
	loej := cmd.CDB[4]&0x02 != 0

	if loej && !start {
		if d.locked {
			return 0, errMediumRemovalPrevented
		}

		d.loaded = false
		d.disc = nil
		d.pendingEvent = MediumMediaRemoval
		d.profile = DiscTypeNone
		d.features.setProfile(DiscTypeNone)

		return 0, nil
	}

	if !start {
		return 0, d.ensureLoaded()
	}

	return 0, d.ensureLoaded()
}

// cmdPreventAllow implements PREVENT ALLOW MEDIUM REMOVAL (§4.6); byte
// 4 bit 0 is the prevent bit, mirrored into mode page 0x2A's lock flag
// so MODE SENSE reflects it (§3).
func cmdPreventAllow(d *Device, cmd *Command) (int, *senseError) {
	prevent := cmd.CDB[4]&0x01 != 0

	d.locked = prevent

	if p := d.modePages.page2A(); p != nil {
		p.setLockState(prevent)
	}

	return 0, nil
}

// cmdSeek10 is unconditional GOOD (original command_seek does no CDB
// parsing and no validation at all).
func cmdSeek10(d *Device, cmd *Command) (int, *senseError) {
	return 0, nil
}

// cmdGetEventStatus implements GET EVENT/STATUS NOTIFICATION's media
// class (§4.6): reports, and clears, a pending insert/eject event.
func cmdGetEventStatus(d *Device, cmd *Command) (int, *senseError) {
	if len(cmd.Out) < 8 {
		return 0, errInvalidFieldInCDB
	}

	event := d.pendingEvent
	d.pendingEvent = MediumNoChange

	cmd.Out[0] = 0
	cmd.Out[1] = 6 // Event header + one descriptor, minus the length field itself.
	cmd.Out[2] = 0x04 // NEA=0, class = media (bit 2).
	cmd.Out[3] = 0x04 // Supported event class bitmask: media.
	cmd.Out[4] = 0x04 // Event class in descriptor: media.

	switch event {
	case MediumNewMedia:
		cmd.Out[5] = 0x02 // Media event code: new media.
	case MediumMediaRemoval:
		cmd.Out[5] = 0x03 // Media removal.
	default:
		cmd.Out[5] = 0x00 // No change.
	}

	if d.loaded {
		cmd.Out[6] = 0x02 // Media present.
	}

	return 8, nil
}

// cmdReportKey is the DVD CSS authentication surface; CSS/CPRM
// themselves are out of scope (§1 non-goal), but RPC region-status
// queries (key format 0x08) are answered for real, matching what
// region-free playback software probes for. Any other key format on
// non-DVD media is CANNOT READ MEDIUM - INCOMPATIBLE FORMAT; on DVD
// media it's INVALID FIELD IN CDB, "not implemented yet" (original
// command_report_key).
func cmdReportKey(d *Device, cmd *Command) (int, *senseError) {
	keyFormat := cmd.CDB[10] & 0x3F

	if keyFormat == 0x08 {
		if len(cmd.Out) < 8 {
			return 0, errInvalidFieldInCDB
		}

		out := cmd.Out[:8]
		out[0] = 0
		out[1] = 6
		out[2] = 0 // Type code: no region set.
		out[3] = 4 // Vendor resets available.
		out[4] = 5 // User controlled changes available.
		out[5] = 0xFF // Region mask: no region restriction encoded.
		out[6] = 0x01 // RPC scheme 1.
		out[7] = 0

		return 8, nil
	}

	if d.profile != DiscTypeDVDROM {
		return 0, errCannotReadIncompatibleFormat
	}

	return 0, errInvalidFieldInCDB
}
