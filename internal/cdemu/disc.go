package cdemu

/*------------------------------------------------------------------
 *
 * Purpose: The DiscImage collaborator interface (§6) and the sector,
 *		track and session shapes the MMC handlers read through it.
 *		libMirage itself is out of scope; this file specifies only
 *		the boundary this daemon's core talks across.
 *
 *------------------------------------------------------------------*/

import "time"

// SectorType is the canonical internal sector-type enumeration of §4.4.
type SectorType int

const (
	SectorAny SectorType = iota
	SectorAudio
	SectorMode1
	SectorMode2
	SectorMode2Form1
	SectorMode2Form2
)

// mcsbOrdinal is the MCSB table column for a SectorType (§4.4); -1 marks
// a value the table has no column for.
func mcsbOrdinal(t SectorType) int {
	switch t {
	case SectorAny:
		return 0
	case SectorAudio:
		return 1
	case SectorMode1:
		return 2
	case SectorMode2:
		return 3
	case SectorMode2Form1:
		return 4
	case SectorMode2Form2:
		return 5
	default:
		return -1
	}
}

// mcsbMatrix is the MCSB in-place rewrite table (§4.3/§4.4): row index is
// the request's top 5 bits (byte9 & 0xF8) shifted down by 3, column index
// is mcsbOrdinal of the sector's actual type. A value of -1 means that
// MCSB request is invalid for a sector of that type.
var mcsbMatrix = [32][6]int{
	{0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
	{0x08, 0x10, 0x08, 0x10, 0x10, 0x10},
	{0x10, 0x10, 0x10, 0x10, 0x10, 0x10},
	{0x18, 0x10, 0x18, 0x10, 0x18, 0x18},
	{0x20, 0x10, 0x20, 0x20, 0x20, 0x20},
	{0x28, 0x10, -1, -1, -1, -1},
	{0x30, 0x10, 0x30, 0x30, -1, -1},
	{0x38, 0x10, 0x38, 0x30, -1, -1},
	{0x40, 0x10, 0x00, 0x00, 0x40, 0x40},
	{0x48, 0x10, -1, -1, -1, -1},
	{0x50, 0x10, 0x10, 0x10, 0x50, 0x50},
	{0x58, 0x10, 0x18, 0x10, 0x58, 0x58},
	{0x60, 0x10, 0x20, 0x20, 0x60, 0x60},
	{0x68, 0x10, -1, -1, -1, -1},
	{0x70, 0x10, 0x30, 0x30, 0x70, 0x70},
	{0x78, 0x10, 0x38, 0x38, 0x78, 0x78},
	{0x80, 0x10, 0x80, 0x80, 0x80, 0x80},
	{0x88, 0x10, -1, -1, -1, -1},
	{0x90, 0x10, -1, -1, -1, -1},
	{0x98, 0x10, -1, -1, -1, -1},
	{0xA0, 0x10, 0xA0, 0xA0, 0xA0, 0xA0},
	{0xA8, 0x10, -1, -1, -1, -1},
	{0xB0, 0x10, 0xB0, 0xB0, -1, -1},
	{0xB8, 0x10, 0xB8, 0xB0, -1, -1},
	{0xC0, 0x10, -1, -1, -1, -1},
	{0xC8, 0x10, -1, -1, -1, -1},
	{0xD0, 0x10, -1, -1, -1, -1},
	{0xD8, 0x10, -1, -1, -1, -1},
	{0xE0, 0x10, 0xA0, 0xA0, 0xE0, 0xE0},
	{0xE8, 0x10, -1, -1, -1, -1},
	{0xF0, 0x10, 0xB0, 0xB0, 0xF0, 0xF0},
	{0xF8, 0x10, 0xB8, 0xB8, 0xF8, 0xF8},
}

// rewriteMCSB maps READ CD/READ CD MSF's flag byte (CDB[9]) through the
// MCSB matrix for a sector's actual type: the top 5 bits are rewritten in
// place (idempotent for AUDIO sectors whose request was already 0x10, per
// §8), the bottom 3 error-flag bits pass through untouched. ok is false
// when the requested combination has no entry for this sector type.
func rewriteMCSB(byte9 byte, t SectorType) (byte, bool) {
	row := mcsbMatrix[(byte9&0xF8)>>3]
	col := mcsbOrdinal(t)

	if col <= 0 || col >= len(row) {
		return 0, false
	}

	mapped := row[col]
	if mapped < 0 {
		return 0, false
	}

	return (byte9 & 0x07) | byte(mapped), true
}

// ReadSectorStatus distinguishes why DiscImage.ReadSector failed, since
// "no such sector" and "invalid MCSB for this sector's type" surface as
// different SCSI sense codes (§4.3).
type ReadSectorStatus int

const (
	ReadSectorOK ReadSectorStatus = iota
	ReadSectorNoSector
	ReadSectorInvalidMCSB
)

// SectorReadResult is what DiscImage.ReadSector hands back: the rendered
// bytes the rewritten MCSB leaves standing, the sector's actual type (for
// the caller's expected-sector-type check) and whether the image flags
// this sector as EDC/LEC-corrupted (for the DCR bad-sector path).
type SectorReadResult struct {
	Data      []byte
	Type      SectorType
	Corrupted bool
}

// ReadSector is the READ CD/READ CD MSF boundary (§4.3, §4.4): it fetches
// the sector at lba, rewrites mcsb through the MCSB matrix for that
// sector's actual type, and renders exactly the bytes that selection
// leaves standing — the full raw image unless the rewritten value asks
// for user data only (top 5 bits == 0x10). subchannel is accepted for
// the boundary's shape but not otherwise interpreted: this daemon only
// ever rejects R-W subchannel requests (§4.3), it never synthesizes
// subchannel bytes, so no subchannel-format fork belongs here.
func (d *DiscImage) ReadSector(lba int32, mcsb byte, subchannel byte) (SectorReadResult, ReadSectorStatus) {
	_ = subchannel

	sec, ok := d.GetSector(lba)
	if !ok {
		return SectorReadResult{}, ReadSectorNoSector
	}

	rewritten, ok := rewriteMCSB(mcsb, sec.Type)
	if !ok {
		return SectorReadResult{}, ReadSectorInvalidMCSB
	}

	data := sec.RawData
	if rewritten&0xF8 == 0x10 || data == nil {
		data = sec.UserData
	}

	return SectorReadResult{Data: data, Type: sec.Type, Corrupted: sec.Corrupted}, ReadSectorOK
}

// DiscType distinguishes the two profiles this daemon emulates media for.
type DiscType int

const (
	DiscTypeNone DiscType = iota
	DiscTypeCDROM
	DiscTypeDVDROM
)

// MSF is a minute/second/frame address; one frame is one sector.
type MSF struct {
	Minute, Second, Frame byte
}

// LBAToMSF converts a logical block address to MSF including the
// standard 150-sector (2-second) lead-in offset (§10 supplemented
// feature: lead-in offset in MSF⇄LBA conversion).
func LBAToMSF(lba int32) MSF {
	total := lba + leadInOffsetSectors
	return MSF{
		Minute: byte(total / (60 * 75)),
		Second: byte((total / 75) % 60),
		Frame:  byte(total % 75),
	}
}

// MSFToLBA is the inverse of LBAToMSF.
func MSFToLBA(m MSF) int32 {
	total := int32(m.Minute)*60*75 + int32(m.Second)*75 + int32(m.Frame)
	return total - leadInOffsetSectors
}

const leadInOffsetSectors = 150

// Sector is the data a DiscImage hands back for one addressable block.
// UserData is present for data sectors when GetSector succeeds; RawData, when
// non-nil, carries the full 2352-byte raw sector image (sync/header/
// user-data/EDC-ECC) that READ CD and audio playback need.
type Sector struct {
	Type      SectorType
	UserData  []byte // Exactly 2048 bytes for data sectors, nil otherwise.
	RawData   []byte // 2352 bytes when available (audio sectors always have this).
	Address   int32  // LBA this sector was fetched at, for error reporting.
	Corrupted bool   // EDC/LEC would fail verify_lec; triggers the DCR bad-sector path.
}

// TrackDescriptor is one entry of a disc's table of contents.
type TrackDescriptor struct {
	Number      byte // 1..99, or 0xAA for lead-out.
	ADR         byte
	Control     byte // CTL nibble: bit 2 set => data track.
	StartLBA    int32
	Session     byte
	IsDataTrack bool
	ISRC        string // International Standard Recording Code, "" if none encoded.
}

// SessionDescriptor groups tracks and records the session's lead-in/
// lead-out boundaries, used by READ TOC multisession forms and READ
// DISC INFORMATION.
type SessionDescriptor struct {
	Number       byte
	FirstTrack   byte
	LastTrack    byte
	LeadInLBA    int32
	LeadOutLBA   int32
	SessionType  byte // Raw-TOC A0 descriptor's disc-type byte: 0x00 CD-DA/CD-ROM Mode 1.
	Tracks       []TrackDescriptor
}

// DiscStructureKey identifies a READ DVD STRUCTURE (layer, format) pair.
type DiscStructureKey struct {
	Layer  byte
	Format byte
}

// DPMEntry is one angular-density sample used by the delay emulator's
// DPM pacing (§4.7); absent on non-copy-protected media.
type DPMEntry struct {
	LBA          int32
	AngleSeconds float64 // Time for one full rotation at this address.
}

// DiscImage is everything the MMC-3 core needs from a loaded disc.
// Resolving sector addresses to bytes and the full image-parsing
// pipeline are out of scope (§1); this is the boundary.
type DiscImage struct {
	Type      DiscType
	Sessions  []SessionDescriptor
	MCN       string // Media Catalog Number, "" if none encoded.
	fetch     func(lba int32) (*Sector, bool)
	structure func(layer, format byte) ([]byte, bool)
	dpm       []DPMEntry
}

// NewDiscImage builds a DiscImage around a sector-fetch function. This
// is the seam a real libMirage binding would implement; tests supply an
// in-memory fetch closure instead.
func NewDiscImage(discType DiscType, sessions []SessionDescriptor, fetch func(lba int32) (*Sector, bool)) *DiscImage {
	return &DiscImage{Type: discType, Sessions: sessions, fetch: fetch}
}

// WithStructure attaches a READ DVD STRUCTURE resolver.
func (d *DiscImage) WithStructure(fn func(layer, format byte) ([]byte, bool)) *DiscImage {
	d.structure = fn
	return d
}

// WithDPM attaches rotational-angle samples for delay emulation.
func (d *DiscImage) WithDPM(entries []DPMEntry) *DiscImage {
	d.dpm = entries
	return d
}

// GetSector fetches one sector for cooked reads (READ(10)/(12), audio
// playback). ok is false when the address has no backing sector.
func (d *DiscImage) GetSector(lba int32) (*Sector, bool) {
	if d == nil || d.fetch == nil {
		return nil, false
	}

	return d.fetch(lba)
}

// GetDiscStructure resolves a READ DVD STRUCTURE (layer, format) pair.
func (d *DiscImage) GetDiscStructure(layer, format byte) ([]byte, bool) {
	if d == nil || d.structure == nil {
		return nil, false
	}

	return d.structure(layer, format)
}

// RotationSecondsAt interpolates the DPM table for the delay emulator.
// ok is false when no DPM data was attached to this image.
func (d *DiscImage) RotationSecondsAt(lba int32) (time.Duration, bool) {
	if d == nil || len(d.dpm) == 0 {
		return 0, false
	}

	best := d.dpm[0]
	for _, e := range d.dpm {
		if e.LBA > lba {
			break
		}

		best = e
	}

	return time.Duration(best.AngleSeconds * float64(time.Second)), true
}

// LastSession and FirstSession are small conveniences the TOC/READ
// CAPACITY/READ DISC INFORMATION handlers all need.
func (d *DiscImage) LastSession() SessionDescriptor {
	return d.Sessions[len(d.Sessions)-1]
}

func (d *DiscImage) FirstSession() SessionDescriptor {
	return d.Sessions[0]
}
