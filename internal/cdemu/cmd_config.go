package cdemu

/*------------------------------------------------------------------
 *
 * Purpose: GET CONFIGURATION (§3): walks the feature registry honoring
 *		the RT (request type) field and the starting feature number.
 *
 *------------------------------------------------------------------*/

// cmdGetConfiguration implements GET CONFIGURATION. CDB[1] bits 0-1 are
// RT (0 all, 1 current-only, 2 one named feature); CDB[2:4] is the
// starting feature number.
func cmdGetConfiguration(d *Device, cmd *Command) (int, *senseError) {
	rt := cmd.CDB[1] & 0x03
	starting := uint16(cmd.CDB[2])<<8 | uint16(cmd.CDB[3])

	if len(cmd.Out) < 8 {
		return 0, errInvalidFieldInCDB
	}

	out := cmd.Out
	profile := profileCode(d.profile)

	out[4] = 0
	out[5] = 0
	out[6] = byte(profile >> 8)
	out[7] = byte(profile)

	off := 8

	for i := range d.features.features {
		f := &d.features.features[i]

		if f.code < starting {
			continue
		}

		if rt == 2 && f.code != starting {
			continue
		}

		if rt == 1 && !f.current {
			continue
		}

		need := off + 4 + len(f.payload)
		if need > len(out) {
			return off, errInvalidFieldInCDB
		}

		off += f.encode(out[off:])

		if rt == 2 {
			break
		}
	}

	if rt == 2 && off == 8 {
		return 0, errInvalidFieldInCDB
	}

	dataLen := off - 4
	out[0] = byte(dataLen >> 24)
	out[1] = byte(dataLen >> 16)
	out[2] = byte(dataLen >> 8)
	out[3] = byte(dataLen)

	return off, nil
}
