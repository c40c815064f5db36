package cdemu

/*------------------------------------------------------------------
 *
 * Purpose: INQUIRY (§4.3, §4.6 device-id option): standard inquiry
 *		data built from the device's identity quadruple.
 *
 *------------------------------------------------------------------*/

// padField copies s into dst, space-padding on the right, SCSI's
// convention for vendor/product/revision strings.
func padField(dst []byte, s string) {
	for i := range dst {
		dst[i] = ' '
	}

	copy(dst, s)
}

// cmdInquiry writes the 36-byte standard INQUIRY response (§4.6).
// EVPD (CDB[1] bit 0) and CmdDt pass-through pages are not emulated;
// any VPD page request is answered with the standard data. The response
// ends at byte 35, so the identity's VendorSpecific field is not sent.
func cmdInquiry(d *Device, cmd *Command) (int, *senseError) {
	const length = 36

	if len(cmd.Out) < length {
		return 0, errInvalidFieldInCDB
	}

	buf := cmd.Out[:length]

	buf[0] = 0x05 // Peripheral qualifier 0, device type 5 = CD/DVD-ROM.
	buf[1] = 0x80 // RMB=1: removable medium.
	buf[2] = 0x00 // Version: does not claim SPC compliance.
	buf[3] = 0x02 // Response data format 2.
	buf[4] = length - 5
	buf[5] = 0x00
	buf[6] = 0x00
	buf[7] = 0x00

	padField(buf[8:16], d.identity.Vendor)
	padField(buf[16:32], d.identity.Product)
	padField(buf[32:36], d.identity.Revision)

	return length, nil
}
