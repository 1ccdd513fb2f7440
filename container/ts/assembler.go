/*
NAME
  assembler.go

DESCRIPTION
  assembler.go reassembles program specific information sections from the
  payloads of successive packets of one PID, following the payload unit
  start indicator, the pointer field and the continuity counter. It is
  shared by the signalization demux and the EIT processor.

AUTHOR
  Saxon Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package ts

import (
	"github.com/Comcast/gots/v2/packet"

	"github.com/ausocean/tsclean/container/ts/psi"
)

// sectionAssembler accumulates the section byte stream of one PID. It
// resynchronizes at the next payload unit start after a continuity break
// and drops one duplicate packet per counter value.
type sectionAssembler struct {
	buf    []byte
	synced bool
	lastCC int
	dup    bool // a duplicate of lastCC was already dropped.
}

func newSectionAssembler() *sectionAssembler {
	return &sectionAssembler{lastCC: -1}
}

func (a *sectionAssembler) reset() {
	a.buf = nil
	a.synced = false
}

// feed consumes the payload of pkt and returns the raw bytes of each
// section completed by it.
func (a *sectionAssembler) feed(pkt *packet.Packet) [][]byte {
	off := PayloadOffset(pkt)
	if off >= PacketSize {
		return nil
	}
	payload := pkt[off:]

	cc := pkt.ContinuityCounter()
	if a.lastCC >= 0 {
		switch cc {
		case a.lastCC:
			// Duplicate packet, permitted once.
			if !a.dup {
				a.dup = true
				return nil
			}
			// A second repeat is a discontinuity.
			a.reset()
		case (a.lastCC + 1) & 0xf:
			// Contiguous.
		default:
			// Discontinuity: drop the partial section and resync.
			a.reset()
		}
	}
	a.dup = false
	a.lastCC = cc

	if pkt.PayloadUnitStartIndicator() {
		if len(payload) < 1 {
			return nil
		}
		ptr := int(payload[0])
		rest := payload[1:]
		if ptr > len(rest) {
			a.reset()
			return nil
		}
		var out [][]byte
		if a.synced {
			// Bytes before the pointer complete the section in flight.
			a.buf = append(a.buf, rest[:ptr]...)
			out = a.extract()
			// Anything left over is garbage; the pointer is authoritative
			// about where the new section starts.
			a.buf = nil
		}
		a.buf = append(a.buf, rest[ptr:]...)
		a.synced = true
		return append(out, a.extract()...)
	}

	if !a.synced {
		return nil
	}
	a.buf = append(a.buf, payload...)
	return a.extract()
}

// extract pops complete sections off the front of the buffer. A stuffing
// table ID ends the payload unit; remaining bytes are discarded.
func (a *sectionAssembler) extract() [][]byte {
	var out [][]byte
	for {
		if len(a.buf) > 0 && a.buf[0] == psi.TIDStuffing {
			a.buf = nil
			break
		}
		tot := psi.SectionLen(a.buf)
		if tot == 0 || len(a.buf) < tot {
			break
		}
		out = append(out, append([]byte(nil), a.buf[:tot]...))
		a.buf = a.buf[tot:]
	}
	return out
}
