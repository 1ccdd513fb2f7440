/*
NAME
  packet.go - transport stream packet constants and byte-level helpers on
  top of the gots packet type.

DESCRIPTION
  An MPEG-TS packet is 188 bytes:

  ============================================================================
  | octet no | bit 0 | bit 1 | bit 2 | bit 3 | bit 4 | bit 5 | bit 6 | bit 7 |
  ============================================================================
  | octet 0  | sync byte (0x47)                                              |
  ----------------------------------------------------------------------------
  | octet 1  | TEI   | PUSI  | Prior | PID                                   |
  ----------------------------------------------------------------------------
  | octet 2  | PID cont.                                                     |
  ----------------------------------------------------------------------------
  | octet 3  | TSC           | AFC           | CC                            |
  ----------------------------------------------------------------------------
  | optional | adaptation field (AFL + fields + stuffing)                    |
  ----------------------------------------------------------------------------
  | optional | payload (variable length)                                     |
  ----------------------------------------------------------------------------

  The gots packet.Packet type supplies read accessors; this file adds the
  constants and the write operations the cleaner needs.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package ts provides the transport stream machinery of the file cleaner:
// packet helpers, signalization demux, cycling packetizer, EIT filtering,
// packet file I/O and the two-pass cleanup driver.
package ts

import (
	"github.com/Comcast/gots/v2/packet"
)

// PacketSize is the size of an MPEG-TS packet.
const PacketSize = 188

// HeadSize is the size of an MPEG-TS packet header.
const HeadSize = 4

// SyncByte leads every transport stream packet.
const SyncByte = 0x47

// PayloadLen is the payload capacity of a packet without adaptation field.
const PayloadLen = PacketSize - HeadSize

// Adaptation field control values (2 bits at octet 3).
const (
	AFCReserved       = 0x0
	AFCPayload        = 0x1
	AFCAdaptation     = 0x2
	AFCAdaptationBoth = 0x3
)

// AFC returns the adaptation field control bits of p.
func AFC(p *packet.Packet) byte {
	return p[3] >> 4 & 0x3
}

// HasPayload reports whether p carries payload bytes.
func HasPayload(p *packet.Packet) bool {
	return p[3]&0x10 != 0
}

// PayloadOffset returns the index of the first payload byte of p, or
// PacketSize when the packet carries no payload (including a malformed
// adaptation field length).
func PayloadOffset(p *packet.Packet) int {
	if !HasPayload(p) {
		return PacketSize
	}
	off := HeadSize
	if p[3]&0x20 != 0 {
		off += 1 + int(p[4])
	}
	if off > PacketSize {
		off = PacketSize
	}
	return off
}

// SetPID overwrites the PID of p in place.
func SetPID(p *packet.Packet, pid uint16) {
	p[1] = p[1]&0xe0 | byte(pid>>8)&0x1f
	p[2] = byte(pid)
}

// SetCC overwrites the continuity counter of p in place.
func SetCC(p *packet.Packet, cc byte) {
	p[3] = p[3]&0xf0 | cc&0x0f
}

// Nullify retargets p to the null PID and zeroes its payload bytes. The
// continuity counter and adaptation field are left untouched so the packet
// keeps its slot in the stream.
func Nullify(p *packet.Packet) {
	SetPID(p, 0x1fff)
	p[1] &= 0xbf // clear PUSI
	for i := PayloadOffset(p); i < PacketSize; i++ {
		p[i] = 0
	}
}
