package cdemu

/*------------------------------------------------------------------
 *
 * Purpose: MODE SENSE/SELECT(6)/(10) and SET CD SPEED (§3, §9). The
 *		(6)/(10) pair share identical page-gathering logic and differ
 *		only in header shape, matching how the original groups them.
 *
 *------------------------------------------------------------------*/

// changeable returns the "changeable values" view SCSI's PC=01b asks
// for: the header bytes plus the write mask itself, since a set bit in
// the mask is exactly the set of bits a write may change.
func (p *modePage) changeable() []byte {
	out := append([]byte(nil), p.mask...)
	if len(out) >= 2 {
		out[0] = p.code
		out[1] = byte(len(out) - 2)
	}

	return out
}

// gatherPages concatenates the requested page or all pages (§3), using
// the triple selected by pc.
func (d *Device) gatherPages(pc byte, pageCode byte) ([]byte, *senseError) {
	var out []byte

	appendPage := func(p *modePage) {
		switch pc {
		case pcChangeable:
			out = append(out, p.changeable()...)
		default:
			out = append(out, p.triple(pc)...)
		}
	}

	if pageCode == modePageAllPages {
		for i := range d.modePages.pages {
			appendPage(&d.modePages.pages[i])
		}

		return out, nil
	}

	p, ok := d.modePages.find(pageCode)
	if !ok {
		return nil, errInvalidFieldInCDB
	}

	appendPage(p)

	return out, nil
}

// cmdModeSense6 implements MODE SENSE(6).
func cmdModeSense6(d *Device, cmd *Command) (int, *senseError) {
	pc := cmd.CDB[2] >> 6
	pageCode := cmd.CDB[2] & 0x3F

	body, err := d.gatherPages(pc, pageCode)
	if err != nil {
		return 0, err
	}

	if len(cmd.Out) < 4+len(body) {
		return 0, errInvalidFieldInCDB
	}

	cmd.Out[0] = byte(3 + len(body))
	cmd.Out[1] = 0
	cmd.Out[2] = 0
	cmd.Out[3] = 0
	copy(cmd.Out[4:], body)

	return 4 + len(body), nil
}

// cmdModeSense10 implements MODE SENSE(10).
func cmdModeSense10(d *Device, cmd *Command) (int, *senseError) {
	pc := cmd.CDB[2] >> 6
	pageCode := cmd.CDB[2] & 0x3F

	body, err := d.gatherPages(pc, pageCode)
	if err != nil {
		return 0, err
	}

	if len(cmd.Out) < 8+len(body) {
		return 0, errInvalidFieldInCDB
	}

	total := 6 + len(body)
	cmd.Out[0] = byte(total >> 8)
	cmd.Out[1] = byte(total)
	cmd.Out[2] = 0
	cmd.Out[3] = 0
	cmd.Out[4] = 0
	cmd.Out[5] = 0
	cmd.Out[6] = 0
	cmd.Out[7] = 0
	copy(cmd.Out[8:], body)

	return 8 + len(body), nil
}

// applyModeSelectBody walks one or more {code,length,...} page blocks
// found after a mode-select header and block descriptor, applying each
// through its registered mask (§3's masked-write invariant).
func (d *Device) applyModeSelectBody(body []byte) *senseError {
	for len(body) >= 2 {
		code := body[0] & 0x3F
		length := int(body[1])

		if len(body) < 2+length {
			return errInvalidFieldInParameterList
		}

		page, ok := d.modePages.find(code)
		if !ok {
			return errInvalidFieldInParameterList
		}

		if err := page.applyMasked(body[:2+length]); err != nil {
			return errInvalidFieldInParameterList
		}

		body = body[2+length:]
	}

	if len(body) != 0 {
		return errInvalidFieldInParameterList
	}

	return nil
}

// cmdModeSelect6 implements MODE SELECT(6): header is 4 bytes, PF/SP
// bits in CDB[1]. SP (save pages) is not supported since this daemon
// has no persistent mode-page store (§9 Non-goal).
func cmdModeSelect6(d *Device, cmd *Command) (int, *senseError) {
	if cmd.CDB[1]&0x01 != 0 {
		return 0, errSavingParametersNotSupported
	}

	if len(cmd.In) < 4 {
		return 0, errInvalidFieldInParameterList
	}

	descLen := int(cmd.In[3])
	rest := cmd.In[4:]

	if len(rest) < descLen {
		return 0, errInvalidFieldInParameterList
	}

	return 0, d.applyModeSelectBody(rest[descLen:])
}

// cmdModeSelect10 implements MODE SELECT(10): 8-byte header.
func cmdModeSelect10(d *Device, cmd *Command) (int, *senseError) {
	if cmd.CDB[1]&0x01 != 0 {
		return 0, errSavingParametersNotSupported
	}

	if len(cmd.In) < 8 {
		return 0, errInvalidFieldInParameterList
	}

	descLen := int(cmd.In[6])<<8 | int(cmd.In[7])
	rest := cmd.In[8:]

	if len(rest) < descLen {
		return 0, errInvalidFieldInParameterList
	}

	return 0, d.applyModeSelectBody(rest[descLen:])
}

// cmdSetCDSpeed writes the requested read speed straight into mode
// page 0x2A's current_speed field (§3); CDB[2-3] is the read speed in
// KB/s, 0xFFFF meaning "as fast as possible".
func cmdSetCDSpeed(d *Device, cmd *Command) (int, *senseError) {
	if err := d.ensureLoaded(); err != nil {
		return 0, err
	}

	speed := uint16(cmd.CDB[2])<<8 | uint16(cmd.CDB[3])

	if p := d.modePages.page2A(); p != nil {
		if speed == 0xFFFF {
			speed = 5644 // Maximum emulated speed, 32x audio rate.
		}

		p.setCurReadSpeed(speed)
	}

	return 0, nil
}
