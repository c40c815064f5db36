package cdemu

/*------------------------------------------------------------------
 *
 * Purpose: The cooked and raw read path: READ CAPACITY, READ(10)/(12)
 *		and READ CD/READ CD MSF, whose expected-sector-type field and
 *		MCSB byte select which parts of each sector to return (§4.3,
 *		§4.4).
 *
 *------------------------------------------------------------------*/

func be32(b []byte) int32 {
	return int32(b[0])<<24 | int32(b[1])<<16 | int32(b[2])<<8 | int32(b[3])
}

// cmdReadCapacity reports the last addressable LBA and the fixed
// 2048-byte block size (§4.4).
func cmdReadCapacity(d *Device, cmd *Command) (int, *senseError) {
	if err := d.ensureLoaded(); err != nil {
		return 0, err
	}

	if len(cmd.Out) < 8 {
		return 0, errInvalidFieldInCDB
	}

	last := uint32(d.disc.LastSession().LeadOutLBA - 1)

	cmd.Out[0] = byte(last >> 24)
	cmd.Out[1] = byte(last >> 16)
	cmd.Out[2] = byte(last >> 8)
	cmd.Out[3] = byte(last)
	cmd.Out[4] = 0x00
	cmd.Out[5] = 0x00
	cmd.Out[6] = 0x08
	cmd.Out[7] = 0x00

	return 8, nil
}

// readUserData is the shared cooked-read loop for READ(10)/READ(12)
// (original command_read_10_and_12): a missing sector is ILLEGAL MODE
// FOR THIS TRACK, not INVALID FIELD IN CDB; a corrupted Mode1/Mode2
// Form1 sector is a MEDIUM ERROR unless mode page 0x01's DCR bit is
// set; and a sector whose user data isn't exactly 2048 bytes is a
// form mismatch reported with ILI set (§4.3).
func (d *Device) readUserData(lba int32, count int, out []byte) (int, *senseError) {
	if err := d.ensureLoaded(); err != nil {
		return 0, err
	}

	dcr := false
	if p := d.modePages.page01(); p != nil {
		dcr = p.dcrSet()
	}

	off := 0

	for i := 0; i < count; i++ {
		addr := lba + int32(i)

		sec, ok := d.disc.GetSector(addr)
		if !ok {
			return off, newSenseWithCommandInfo(SenseKeyIllegalRequest, ascIllegalModeForThisTrack, ascqIllegalModeForThisTrack, uint32(addr))
		}

		if !dcr && (sec.Type == SectorMode1 || sec.Type == SectorMode2Form1) && sec.Corrupted {
			return off, newSenseWithCommandInfo(SenseKeyMediumError, ascUnrecoveredReadError, ascqUnrecoveredReadError, uint32(addr))
		}

		if len(sec.UserData) != 2048 {
			return off, newSenseILIWithCommandInfo(SenseKeyIllegalRequest, ascIllegalModeForThisTrack, ascqIllegalModeForThisTrack, uint32(addr))
		}

		if off+len(sec.UserData) > len(out) {
			return off, errInvalidFieldInCDB
		}

		copy(out[off:], sec.UserData)
		off += len(sec.UserData)
	}

	d.curSector = lba + int32(count)
	d.applyDelay(lba, count)

	return off, nil
}

// cmdRead10 implements READ(10): CDB[2:6] LBA, CDB[7:9] transfer
// length in sectors.
func cmdRead10(d *Device, cmd *Command) (int, *senseError) {
	lba := be32(cmd.CDB[2:6])
	count := int(cmd.CDB[7])<<8 | int(cmd.CDB[8])

	return d.readUserData(lba, count, cmd.Out)
}

// cmdRead12 implements READ(12): CDB[6:10] is a 4-byte transfer length.
func cmdRead12(d *Device, cmd *Command) (int, *senseError) {
	lba := be32(cmd.CDB[2:6])
	count := int(be32(cmd.CDB[6:10]))

	return d.readUserData(lba, count, cmd.Out)
}

// expectedSectorType decodes READ CD/READ CD MSF's expected-sector-type
// field, CDB byte 1 bits 2-4 (MMC-3 table 355).
func expectedSectorType(cdb [16]byte) SectorType {
	switch (cdb[1] >> 2) & 0x07 {
	case 1:
		return SectorAudio
	case 2:
		return SectorMode1
	case 3:
		return SectorMode2
	case 4:
		return SectorMode2Form1
	case 5:
		return SectorMode2Form2
	default:
		return SectorAny
	}
}

// subchanRW is the READ CD/READ CD MSF subchannel-selection value this
// daemon doesn't support: R-W subchannel reading (original
// command_read_cd rejects it unconditionally, before the per-sector
// loop, regardless of transfer length).
const subchanRW = 0x04

// cmdReadCD implements READ CD: CDB[2:6] LBA, CDB[6:9] 3-byte transfer
// length, CDB[9] MCSB byte, CDB[10] subchannel-selection bits.
func cmdReadCD(d *Device, cmd *Command) (int, *senseError) {
	lba := be32(cmd.CDB[2:6])
	count := int(cmd.CDB[6])<<16 | int(cmd.CDB[7])<<8 | int(cmd.CDB[8])
	expected := expectedSectorType(cmd.CDB)
	subchan := cmd.CDB[10] & 0x07

	return d.readRawExpected(lba, count, expected, cmd.CDB[9], subchan, cmd.Out)
}

// cmdReadCDMSF implements READ CD MSF: CDB[3:6] start MSF, CDB[6:9] end
// MSF, CDB[9] MCSB byte, CDB[10] subchannel-selection bits, per the
// lead-in-offset conversion of §10.
func cmdReadCDMSF(d *Device, cmd *Command) (int, *senseError) {
	start := MSFToLBA(MSF{cmd.CDB[3], cmd.CDB[4], cmd.CDB[5]})
	end := MSFToLBA(MSF{cmd.CDB[6], cmd.CDB[7], cmd.CDB[8]})
	expected := expectedSectorType(cmd.CDB)
	subchan := cmd.CDB[10] & 0x07

	if end < start {
		return 0, errInvalidFieldInCDB
	}

	return d.readRawExpected(start, int(end-start), expected, cmd.CDB[9], subchan, cmd.Out)
}

// readRawExpected is the shared READ CD/READ CD MSF loop (original
// command_read_cd): rejects DVD media and R-W subchannel up front, then
// per sector checks the expected-sector-type field, the DCR/bad-sector
// path, rewrites the MCSB byte through the mode-keyed matrix (§4.3/
// §4.4), and renders exactly the bytes that selection leaves standing
// via DiscImage.ReadSector.
func (d *Device) readRawExpected(lba int32, count int, expected SectorType, mcsb byte, subchan byte, out []byte) (int, *senseError) {
	if err := d.ensureLoaded(); err != nil {
		return 0, err
	}

	if d.profile == DiscTypeDVDROM {
		return 0, errInvalidFieldInCDB
	}

	if subchan == subchanRW {
		return 0, errInvalidFieldInCDB
	}

	dcr := false
	if p := d.modePages.page01(); p != nil {
		dcr = p.dcrSet()
	}

	off := 0

	for i := 0; i < count; i++ {
		addr := lba + int32(i)

		sec, ok := d.disc.GetSector(addr)
		if !ok {
			return off, newSenseWithCommandInfo(SenseKeyIllegalRequest, ascIllegalModeForThisTrack, ascqIllegalModeForThisTrack, uint32(addr))
		}

		if expected != SectorAny && mcsbOrdinal(expected) != mcsbOrdinal(sec.Type) {
			return off, newSenseILIWithCommandInfo(SenseKeyIllegalRequest, ascIllegalModeForThisTrack, ascqIllegalModeForThisTrack, uint32(addr))
		}

		if !dcr && (sec.Type == SectorMode1 || sec.Type == SectorMode2Form1) && sec.Corrupted {
			return off, newSenseWithCommandInfo(SenseKeyMediumError, ascUnrecoveredReadError, ascqUnrecoveredReadError, uint32(addr))
		}

		result, status := d.disc.ReadSector(addr, mcsb, subchan)
		switch status {
		case ReadSectorInvalidMCSB:
			return off, errInvalidFieldInCDB
		case ReadSectorNoSector:
			return off, newSenseWithCommandInfo(SenseKeyIllegalRequest, ascIllegalModeForThisTrack, ascqIllegalModeForThisTrack, uint32(addr))
		}

		if result.Data == nil {
			return off, newSenseWithCommandInfo(SenseKeyIllegalRequest, ascIllegalModeForThisTrack, ascqIllegalModeForThisTrack, uint32(addr))
		}

		if off+len(result.Data) > len(out) {
			return off, errInvalidFieldInCDB
		}

		copy(out[off:], result.Data)
		off += len(result.Data)
	}

	d.curSector = lba + int32(count)
	d.applyDelay(lba, count)

	return off, nil
}
