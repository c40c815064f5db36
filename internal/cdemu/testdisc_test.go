package cdemu

/*------------------------------------------------------------------
 *
 * Purpose: A small in-memory DiscImage builder shared by the handler
 *		tests, in place of a real libMirage-backed image.
 *
 *------------------------------------------------------------------*/

// newTestDisc builds a single-session disc with one data track
// (track 1, LBA 0..dataSectors-1) followed by one audio track
// (track 2, LBA dataSectors..dataSectors+audioSectors-1).
func newTestDisc(dataSectors, audioSectors int32) *DiscImage {
	leadOut := dataSectors + audioSectors

	sessions := []SessionDescriptor{
		{
			Number:     1,
			FirstTrack: 1,
			LastTrack:  2,
			LeadInLBA:  -150,
			LeadOutLBA: leadOut,
			Tracks: []TrackDescriptor{
				{Number: 1, ADR: 1, Control: 0x04, StartLBA: 0, Session: 1, IsDataTrack: true},
				{Number: 2, ADR: 1, Control: 0x00, StartLBA: dataSectors, Session: 1, IsDataTrack: false},
			},
		},
	}

	fetch := func(lba int32) (*Sector, bool) {
		if lba < 0 || lba >= leadOut {
			return nil, false
		}

		if lba < dataSectors {
			user := make([]byte, 2048)
			for i := range user {
				user[i] = byte(lba + int32(i))
			}

			return &Sector{Type: SectorMode1, UserData: user, Address: lba}, true
		}

		raw := make([]byte, audioFrameBytes)
		for i := range raw {
			raw[i] = byte(lba)
		}

		return &Sector{Type: SectorAudio, RawData: raw, Address: lba}, true
	}

	return NewDiscImage(DiscTypeCDROM, sessions, fetch)
}

// newTestDevice builds a loaded Device around newTestDisc, with a
// NullSink audio backend and no logger (tests don't assert on log
// lines).
func newTestDevice(dataSectors, audioSectors int32) *Device {
	d := NewDevice(0, nil, NullSink{})
	d.Load(newTestDisc(dataSectors, audioSectors))

	return d
}
