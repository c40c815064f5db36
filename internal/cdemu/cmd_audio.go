package cdemu

/*------------------------------------------------------------------
 *
 * Purpose: PLAY AUDIO(10)/(12)/MSF and PAUSE/RESUME, the only commands
 *		that drive the AudioEngine state machine of §4.5.
 *
 *------------------------------------------------------------------*/

// cmdPlayAudio10 implements PLAY AUDIO(10): CDB[2:6] start LBA,
// CDB[7:9] transfer length in sectors.
func cmdPlayAudio10(d *Device, cmd *Command) (int, *senseError) {
	start := be32(cmd.CDB[2:6])
	count := int32(cmd.CDB[7])<<8 | int32(cmd.CDB[8])

	return 0, d.startPlayback(start, start+count-1)
}

// cmdPlayAudio12 implements PLAY AUDIO(12): CDB[6:10] is a 4-byte
// transfer length.
func cmdPlayAudio12(d *Device, cmd *Command) (int, *senseError) {
	start := be32(cmd.CDB[2:6])
	count := be32(cmd.CDB[6:10])

	return 0, d.startPlayback(start, start+count-1)
}

// cmdPlayAudioMSF implements PLAY AUDIO MSF: CDB[3:6] start MSF,
// CDB[6:9] end MSF (exclusive upper bound per MMC-3, so the engine
// plays up to, not including, the end address).
func cmdPlayAudioMSF(d *Device, cmd *Command) (int, *senseError) {
	start := MSFToLBA(MSF{cmd.CDB[3], cmd.CDB[4], cmd.CDB[5]})
	end := MSFToLBA(MSF{cmd.CDB[6], cmd.CDB[7], cmd.CDB[8]})

	return 0, d.startPlayback(start, end-1)
}

func (d *Device) startPlayback(start, end int32) *senseError {
	if err := d.ensureLoaded(); err != nil {
		return err
	}

	if end < start {
		return errInvalidFieldInCDB
	}

	sec, ok := d.disc.GetSector(start)
	if !ok {
		return newSenseWithCommandInfo(SenseKeyIllegalRequest, ascInvalidFieldInCDB, ascqInvalidFieldInCDB, uint32(start))
	}

	if sec.Type != SectorAudio {
		return newSenseWithCommandInfo(SenseKeyIllegalRequest, ascIllegalModeForThisTrack, ascqIllegalModeForThisTrack, uint32(start))
	}

	if err := d.audio.Start(start, end, d.disc); err != nil {
		return errCommandSequenceError
	}

	return nil
}

// cmdPauseResume implements PAUSE/RESUME: CDB[8] bit 0 selects resume
// over pause. Dispatched with noDeviceLock, since pausing joins the
// playback worker, which itself needs the device mutex (§4.5).
func cmdPauseResume(d *Device, cmd *Command) (int, *senseError) {
	resume := cmd.CDB[8]&0x01 != 0

	if !d.IsLoaded() {
		return 0, errMediumNotPresent
	}

	var err error
	if resume {
		err = d.audio.Resume()
	} else {
		err = d.audio.Pause()
	}

	if err != nil {
		return 0, errCommandSequenceError
	}

	return 0, nil
}
