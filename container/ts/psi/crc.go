/*
NAME
  crc.go

DESCRIPTION
  crc.go provides the MPEG-2 CRC32 used to protect program specific
  information sections: polynomial 0x04C11DB7, initial value 0xFFFFFFFF,
  MSB-first, no reflection and no final XOR.

AUTHORS
  Dan Kortschak <dan@ausocean.org>
  Saxon Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package psi

import (
	"encoding/binary"
	"hash/crc32"
	"math/bits"
)

// crcTable is the 256-entry MSB-first table for the MPEG-2 polynomial.
var crcTable = crcMakeTable(bits.Reverse32(crc32.IEEE))

// CRC32 accumulates the MPEG-2 CRC32 over successive chunks of data.
// The zero value is not ready for use; call Reset or use NewCRC32.
type CRC32 struct {
	crc uint32
}

// NewCRC32 returns a CRC32 ready to accumulate data.
func NewCRC32() CRC32 {
	return CRC32{crc: 0xffffffff}
}

// Reset returns the accumulator to its initial state.
func (c *CRC32) Reset() {
	c.crc = 0xffffffff
}

// Add folds p into the accumulated checksum. Adding a followed by b is
// equivalent to adding their concatenation.
func (c *CRC32) Add(p []byte) {
	c.crc = crcUpdate(c.crc, crcTable, p)
}

// Value returns the checksum of all data added since the last reset.
func (c *CRC32) Value() uint32 {
	return c.crc
}

// Checksum returns the MPEG-2 CRC32 of b in one shot.
func Checksum(b []byte) uint32 {
	return crcUpdate(0xffffffff, crcTable, b)
}

// AddCRC appends the CRC32 of b to a copy of b and returns it.
func AddCRC(b []byte) []byte {
	t := make([]byte, len(b)+4)
	copy(t, b)
	UpdateCRC(t)
	return t
}

// UpdateCRC computes the CRC32 of b excluding its last four bytes and
// writes the checksum into those bytes.
func UpdateCRC(b []byte) {
	binary.BigEndian.PutUint32(b[len(b)-4:], Checksum(b[:len(b)-4]))
}

func crcMakeTable(poly uint32) *crc32.Table {
	var t crc32.Table
	for i := range t {
		crc := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if crc&0x80000000 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
		t[i] = crc
	}
	return &t
}

func crcUpdate(crc uint32, tab *crc32.Table, p []byte) uint32 {
	for _, v := range p {
		crc = tab[byte(crc>>24)^v] ^ (crc << 8)
	}
	return crc
}
