package cdemu

/*------------------------------------------------------------------
 *
 * Purpose: Disc-structure reporting: TOC, disc/track information,
 *		subchannel data and the DVD structure pass-through (§4.3,
 *		§4.4).
 *
 *------------------------------------------------------------------*/

// allTracks flattens every session's tracks in ascending track-number
// order, the shape READ TOC's format-0 response wants.
func (d *Device) allTracks() []TrackDescriptor {
	var tracks []TrackDescriptor

	for _, s := range d.disc.Sessions {
		tracks = append(tracks, s.Tracks...)
	}

	return tracks
}

func writeTrackAddress(out []byte, lba int32, msf bool) {
	if msf {
		m := LBAToMSF(lba)
		out[0] = 0
		out[1] = m.Minute
		out[2] = m.Second
		out[3] = m.Frame

		return
	}

	out[0] = byte(lba >> 24)
	out[1] = byte(lba >> 16)
	out[2] = byte(lba >> 8)
	out[3] = byte(lba)
}

// Raw-TOC (format 2) descriptor points (§4.3, §8.3).
const (
	tocPointFirstTrack = 0xA0
	tocPointLastTrack  = 0xA1
	tocPointLeadOut    = 0xA2
	tocPointNextSkip   = 0xB0
	tocPointFirstLeadIn = 0xC0
)

// The raw-TOC B0/C0 descriptors' disc-capacity and CD-R/RW marker
// fields (original command_read_toc_pma_atip: "emulating 80 minute
// disc", and "if min/sec/frame are not set to 0x00, and pmin/psec/
// pframe to the following pattern, the disc is CD-R/RW").
const (
	discCapacityPMin = 0x4F
	discCapacityPSec = 0x3B
	discCapacityPFrame = 0x47

	cdrMarkerPMin = 0x95
)

// cmdReadTOC implements READ TOC/PMA/ATIP. Format 0 is the plain track
// table, format 1 multisession info, format 2 the raw TOC (A0/A1/A2
// plus one descriptor per track, with B0/C0 on multisession discs),
// format 4 ATIP and format 5 CD-TEXT — all mandated by §4.3. A
// control byte of 0x40/0x80 on a format-0 request is INF-8020's way of
// asking for format 1/2 respectively (original command_read_toc_pma_
// atip's Alcohol 120% compatibility mapping).
func cmdReadTOC(d *Device, cmd *Command) (int, *senseError) {
	if err := d.ensureLoaded(); err != nil {
		return 0, err
	}

	msf := cmd.CDB[1]&0x02 != 0
	format := cmd.CDB[2] & 0x0F
	startTrack := cmd.CDB[6]
	control := cmd.CDB[9]

	if d.profile == DiscTypeDVDROM && format != 0x00 && format != 0x01 {
		return 0, errInvalidFieldInCDB
	}

	if format == 0x00 {
		switch control {
		case 0x40:
			format = 0x01
		case 0x80:
			format = 0x02
		}
	}

	switch format {
	case 0x00:
		return d.readTOCFormatted(startTrack, msf, cmd.Out)
	case 0x01:
		return d.readTOCMultisession(msf, cmd.Out)
	case 0x02:
		return d.readTOCRaw(startTrack, cmd.Out)
	case 0x04:
		return d.readTOCATIP(cmd.Out)
	case 0x05:
		return d.readTOCCDText(cmd.Out)
	default:
		return 0, errInvalidFieldInCDB
	}
}

// readTOCFormatted is format 0: every track descriptor from startTrack
// up, then the lead-out of the last session. Starting track 0xAA asks
// for the lead-out alone (§4.3); any other out-of-range starting track
// is rejected rather than left to panic on an empty slice.
func (d *Device) readTOCFormatted(startTrack byte, msf bool, out []byte) (int, *senseError) {
	all := d.allTracks()
	if len(all) == 0 {
		return 0, errMediumNotPresent
	}

	var tracks []TrackDescriptor

	if startTrack != 0xAA {
		if startTrack > all[len(all)-1].Number {
			return 0, errInvalidFieldInCDB
		}

		tracks = filterTracksFrom(all, startTrack)
	}

	leadOut := d.disc.LastSession().LeadOutLBA

	need := 4 + 8*(len(tracks)+1)
	if len(out) < need {
		return 0, errInvalidFieldInCDB
	}

	off := 4

	for _, t := range tracks {
		out[off] = 0
		out[off+1] = t.ADR<<4 | t.Control
		out[off+2] = t.Number
		out[off+3] = 0
		writeTrackAddress(out[off+4:off+8], t.StartLBA, msf)
		off += 8
	}

	out[off] = 0
	out[off+1] = 0x10 // ADR=1, CTL=0.
	out[off+2] = 0xAA
	out[off+3] = 0
	writeTrackAddress(out[off+4:off+8], leadOut, msf)
	off += 8

	tocLen := off - 2
	out[0] = byte(tocLen >> 8)
	out[1] = byte(tocLen)
	out[2] = 0x01
	out[3] = all[len(all)-1].Number

	return off, nil
}

func filterTracksFrom(tracks []TrackDescriptor, start byte) []TrackDescriptor {
	for i, t := range tracks {
		if t.Number >= start {
			return tracks[i:]
		}
	}

	return tracks[:0]
}

// readTOCMultisession is format 1: the first/last complete session
// numbers plus one track descriptor for the first track of the last
// session (original command_read_toc_pma_atip's READ_TOC_PMA_ATIP_0001
// response).
func (d *Device) readTOCMultisession(msf bool, out []byte) (int, *senseError) {
	const length = 12
	if len(out) < length {
		return 0, errInvalidFieldInCDB
	}

	last := d.disc.LastSession()
	if len(last.Tracks) == 0 {
		return 0, errMediumNotPresent
	}

	first := last.Tracks[0]

	body := out[:length]
	body[0] = 0
	body[1] = length - 2
	body[2] = 0x01
	body[3] = last.Number
	body[4] = 0
	body[5] = first.ADR<<4 | first.Control
	body[6] = 0
	body[7] = first.Number
	writeTrackAddress(body[8:12], first.StartLBA, msf)

	return length, nil
}

const rawTOCDescriptorSize = 11

// readTOCRaw is format 2 (§4.3, §8.3): for every session at or above
// startTrack (overloaded here, per the original, as a starting session
// number), emit the A0 (first track + disc type), A1 (last track) and
// A2 (lead-out start) point descriptors, then one descriptor per
// track, then B0 (and, for session 1, C0) on multisession discs.
func (d *Device) readTOCRaw(startSession byte, out []byte) (int, *senseError) {
	sessions := d.disc.Sessions
	if len(sessions) == 0 {
		return 0, errMediumNotPresent
	}

	off := 4
	multisession := len(sessions) > 1

	for i, s := range sessions {
		if s.Number < startSession {
			continue
		}

		if len(s.Tracks) == 0 {
			continue
		}

		first, last := s.Tracks[0], s.Tracks[len(s.Tracks)-1]

		if off+4*rawTOCDescriptorSize > len(out) {
			return 0, errInvalidFieldInCDB
		}

		off = writeRawTOCDescriptor(out, off, s.Number, first.ADR, first.Control, tocPointFirstTrack, 0, 0, 0, first.Number, s.SessionType, 0)
		off = writeRawTOCDescriptor(out, off, s.Number, last.ADR, last.Control, tocPointLastTrack, 0, 0, 0, last.Number, 0, 0)

		m := LBAToMSF(s.LeadOutLBA)
		off = writeRawTOCDescriptor(out, off, s.Number, 0x01, 0x00, tocPointLeadOut, 0, 0, 0, m.Minute, m.Second, m.Frame)

		for _, t := range s.Tracks {
			if off+rawTOCDescriptorSize > len(out) {
				return 0, errInvalidFieldInCDB
			}

			tm := LBAToMSF(t.StartLBA)
			off = writeRawTOCDescriptor(out, off, s.Number, t.ADR, t.Control, t.Number, 0, 0, 0, tm.Minute, tm.Second, tm.Frame)
		}

		if !multisession {
			continue
		}

		if off+2*rawTOCDescriptorSize > len(out) {
			return 0, errInvalidFieldInCDB
		}

		nextStart := s.LeadOutLBA
		closed := i == len(sessions)-1

		var bm MSF
		if !closed {
			nextStart = sessions[i+1].LeadInLBA
			bm = LBAToMSF(nextStart)
		} else {
			bm = MSF{0xFF, 0xFF, 0xFF}
		}

		zeroEntries := byte(1)
		if s.Number == 1 {
			zeroEntries = 2
		}

		off = writeRawTOCDescriptorZero(out, off, s.Number, 0x05, 0x00, tocPointNextSkip, bm.Minute, bm.Second, bm.Frame, zeroEntries, discCapacityPMin, discCapacityPSec, discCapacityPFrame)

		if s.Number == 1 {
			off = writeRawTOCDescriptor(out, off, s.Number, 0x05, 0x00, tocPointFirstLeadIn, 0, 0, 0, cdrMarkerPMin, 0, 0)
		}
	}

	tocLen := off - 2
	out[0] = byte(tocLen >> 8)
	out[1] = byte(tocLen)
	out[2] = 0x01
	out[3] = d.disc.LastSession().Number

	return off, nil
}

// writeRawTOCDescriptor writes one 11-byte raw-TOC descriptor at off
// and returns the next offset.
func writeRawTOCDescriptor(out []byte, off int, session, adr, ctl, point, min, sec, frame, pmin, psec, pframe byte) int {
	out[off] = session
	out[off+1] = adr<<4 | ctl
	out[off+2] = 0
	out[off+3] = point
	out[off+4] = min
	out[off+5] = sec
	out[off+6] = frame
	out[off+7] = 0
	out[off+8] = pmin
	out[off+9] = psec
	out[off+10] = pframe

	return off + rawTOCDescriptorSize
}

// writeRawTOCDescriptorZero is writeRawTOCDescriptor but with the
// "number of Mode-5 entries" byte (normally reserved-zero) overridden,
// used by the B0 descriptor.
func writeRawTOCDescriptorZero(out []byte, off int, session, adr, ctl, point, min, sec, frame, zero, pmin, psec, pframe byte) int {
	next := writeRawTOCDescriptor(out, off, session, adr, ctl, point, min, sec, frame, pmin, psec, pframe)
	out[off+7] = zero

	return next
}

// readTOCATIP is format 4: this daemon emulates no ATIP data, so only
// the empty header is returned (original command_read_toc_pma_atip's
// READ_TOC_PMA_ATIP_0100_Header).
func (d *Device) readTOCATIP(out []byte) (int, *senseError) {
	const length = 4
	if len(out) < length {
		return 0, errInvalidFieldInCDB
	}

	out[0], out[1], out[2], out[3] = 0, 2, 0, 0

	return length, nil
}

// readTOCCDText is format 5: no CD-TEXT is modeled, so only the header
// is returned, matching what the original does when the disc carries
// no CD-TEXT block.
func (d *Device) readTOCCDText(out []byte) (int, *senseError) {
	const length = 4
	if len(out) < length {
		return 0, errInvalidFieldInCDB
	}

	out[0], out[1], out[2], out[3] = 0, 2, 0, 0

	return length, nil
}

// cmdReadDiscInformation reports the fixed-format standard disc
// information block (§4.4), sized to the 34-byte form every reader
// recognizes.
func cmdReadDiscInformation(d *Device, cmd *Command) (int, *senseError) {
	if err := d.ensureLoaded(); err != nil {
		return 0, err
	}

	const length = 34
	if len(cmd.Out) < length {
		return 0, errInvalidFieldInCDB
	}

	out := cmd.Out[:length]
	first := d.disc.FirstSession()
	last := d.disc.LastSession()

	out[1] = length - 2
	out[2] = 0x0E // Disc status: complete session, finalized disc.
	out[3] = first.FirstTrack
	out[4] = byte(len(d.disc.Sessions))
	out[5] = first.FirstTrack
	out[6] = last.LastTrack
	out[7] = 0x20 // Unrestricted use, non-erasable.

	m := LBAToMSF(first.LeadInLBA)
	out[8], out[9], out[10] = m.Minute, m.Second, m.Frame

	m = LBAToMSF(last.LeadOutLBA)
	out[12], out[13], out[14] = m.Minute, m.Second, m.Frame

	copy(out[24:], d.disc.MCN)

	return length, nil
}

// cmdReadTrackInformation reports one track's descriptor in the
// 36-byte full form (§4.4). CDB[1] bits 0-1 select the address-type
// meaning of CDB[2:6]: 00b LBA, 01b track number, 10b session number.
// The data-mode tag and track length, both mandated by §4.3, are
// derived from the track's representative start sector and from its
// distance to the next track's start (or the session's lead-out).
func cmdReadTrackInformation(d *Device, cmd *Command) (int, *senseError) {
	if err := d.ensureLoaded(); err != nil {
		return 0, err
	}

	addrType := cmd.CDB[1] & 0x03
	number := be32(cmd.CDB[2:6])
	tracks := d.allTracks()

	var (
		found    *TrackDescriptor
		foundIdx int
	)

	for i := range tracks {
		t := &tracks[i]

		switch addrType {
		case 1:
			if int32(t.Number) == number {
				found, foundIdx = t, i
			}
		case 0:
			next := d.disc.LastSession().LeadOutLBA
			if i+1 < len(tracks) {
				next = tracks[i+1].StartLBA
			}

			if number >= t.StartLBA && number < next {
				found, foundIdx = t, i
			}
		default:
			if int32(t.Session) == number {
				found, foundIdx = t, i
			}
		}

		if found != nil {
			break
		}
	}

	if found == nil {
		return 0, errInvalidFieldInCDB
	}

	const length = 36
	if len(cmd.Out) < length {
		return 0, errInvalidFieldInCDB
	}

	nextStart := d.disc.LastSession().LeadOutLBA
	if foundIdx+1 < len(tracks) {
		nextStart = tracks[foundIdx+1].StartLBA
	}

	dataMode := byte(0x0F)
	if sec, ok := d.disc.GetSector(found.StartLBA); ok {
		switch sec.Type {
		case SectorAudio, SectorMode1:
			dataMode = 0x01
		case SectorMode2, SectorMode2Form1, SectorMode2Form2:
			dataMode = 0x02
		}
	}

	out := cmd.Out[:length]
	out[1] = length - 2
	out[2] = found.Number
	out[3] = found.Session
	out[5] = found.ADR<<4 | found.Control
	out[6] = dataMode

	lba := uint32(found.StartLBA)
	out[8] = byte(lba >> 24)
	out[9] = byte(lba >> 16)
	out[10] = byte(lba >> 8)
	out[11] = byte(lba)

	trackSize := uint32(nextStart - found.StartLBA)
	out[24] = byte(trackSize >> 24)
	out[25] = byte(trackSize >> 16)
	out[26] = byte(trackSize >> 8)
	out[27] = byte(trackSize)

	return length, nil
}

// audioStatusByte is READ SUBCHANNEL's Audio Status field (MMC-3 table
// 355), distinct from REQUEST SENSE's progress ASCQ: playing/paused/
// completed share the same codes, but "stopped due to error" and "no
// current status" don't.
func audioStatusByte(s AudioStatus) byte {
	switch s {
	case AudioPlaying:
		return 0x11
	case AudioPaused:
		return 0x12
	case AudioCompleted:
		return 0x13
	case AudioError:
		return 0x14
	default:
		return 0x15
	}
}

// cmdReadSubchannel reports Sub-Q data: current position (format 1,
// the form initiators poll during audio playback, §4.5), MCN (format
// 2) and ISRC (format 3), all mandated by §4.3.
func cmdReadSubchannel(d *Device, cmd *Command) (int, *senseError) {
	if err := d.ensureLoaded(); err != nil {
		return 0, err
	}

	msf := cmd.CDB[1]&0x02 != 0
	format := cmd.CDB[3]

	var body []byte

	switch format {
	case 0x01:
		body = d.subchannelCurrentPosition(msf)
	case 0x02:
		body = d.subchannelMCN()
	case 0x03:
		b, err := d.subchannelISRC(cmd.CDB[6])
		if err != nil {
			return 0, err
		}

		body = b
	}

	need := 4 + len(body)
	if len(cmd.Out) < need {
		return 0, errInvalidFieldInCDB
	}

	out := cmd.Out

	out[0] = 0
	out[1] = audioStatusByte(d.audio.Status())
	out[2] = byte(len(body) >> 8)
	out[3] = byte(len(body))
	copy(out[4:], body)

	return need, nil
}

// subchannelCurrentPosition builds format 1's data block: ADR/CTL,
// track/index and absolute/relative address of the current sector.
// The original walks forward from the current sector ("correction")
// until it finds one carrying Mode-1 Q-subchannel data, subtracting
// that offset from the reported address; this model's sectors always
// carry their own position data, so correction never needs to advance.
func (d *Device) subchannelCurrentPosition(msf bool) []byte {
	out := make([]byte, 12)
	out[0] = 0x01

	track, index := d.trackAt(d.curSector)
	out[2] = track
	out[3] = index

	adr, ctl := byte(0x01), byte(0x00)
	relStart := d.curSector

	if t, ok := d.trackDescriptorAt(d.curSector); ok {
		adr, ctl = t.ADR, t.Control
		relStart = t.StartLBA
	}

	out[1] = adr<<4 | ctl

	correction := int32(0)
	absAddr := d.curSector - correction
	relAddr := absAddr - relStart

	writeTrackAddress(out[4:8], absAddr, msf)
	writeTrackAddress(out[8:12], relAddr, msf)

	return out
}

// subchannelMCN builds format 2's data block straight from the image's
// Media Catalog Number, in place of the original's per-sector Q-
// subchannel scan.
func (d *Device) subchannelMCN() []byte {
	out := make([]byte, 15)
	out[0] = 0x02

	if d.disc.MCN != "" {
		out[1] = 0x80 // MCVAL.
		copy(out[2:15], d.disc.MCN)
	}

	return out
}

// subchannelISRC builds format 3's data block for the named track. A
// track that doesn't exist is INVALID FIELD IN CDB (original
// command_read_subchannel's mirage_disc_get_track_by_number failure
// path); a track with no ISRC encoded reports TCVAL=0.
func (d *Device) subchannelISRC(trackNumber byte) ([]byte, *senseError) {
	t, ok := d.trackByNumber(trackNumber)
	if !ok {
		return nil, errInvalidFieldInCDB
	}

	out := make([]byte, 15)
	out[0] = 0x03

	if t.ISRC == "" {
		return out, nil
	}

	out[1] = t.ADR<<4 | t.Control
	out[2] = t.Number
	out[3] = 0x01 // TCVAL.
	copy(out[4:], t.ISRC)

	return out, nil
}

func (d *Device) trackByNumber(number byte) (TrackDescriptor, bool) {
	for _, t := range d.allTracks() {
		if t.Number == number {
			return t, true
		}
	}

	return TrackDescriptor{}, false
}

func (d *Device) trackDescriptorAt(lba int32) (TrackDescriptor, bool) {
	tracks := d.allTracks()

	for i, t := range tracks {
		next := d.disc.LastSession().LeadOutLBA
		if i+1 < len(tracks) {
			next = tracks[i+1].StartLBA
		}

		if lba >= t.StartLBA && lba < next {
			return t, true
		}
	}

	return TrackDescriptor{}, false
}

func (d *Device) trackAt(lba int32) (track, index byte) {
	if t, ok := d.trackDescriptorAt(lba); ok {
		return t.Number, 1
	}

	return 0, 0
}

// cmdReadDVDStructure delegates to the disc image's structure
// resolver; DVD-ROM-only structures on a CD-ROM profile, or any
// structure this image doesn't carry, fail as an invalid field (§4.4).
func cmdReadDVDStructure(d *Device, cmd *Command) (int, *senseError) {
	if err := d.ensureLoaded(); err != nil {
		return 0, err
	}

	layer := cmd.CDB[6]
	format := cmd.CDB[7]

	body, ok := d.disc.GetDiscStructure(layer, format)
	if !ok {
		return 0, errInvalidFieldInCDB
	}

	if len(cmd.Out) < 4+len(body) {
		return 0, errInvalidFieldInCDB
	}

	total := len(body)
	cmd.Out[0] = byte(total >> 8)
	cmd.Out[1] = byte(total)
	cmd.Out[2] = 0
	cmd.Out[3] = 0
	copy(cmd.Out[4:], body)

	return 4 + len(body), nil
}
