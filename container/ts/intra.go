/*
NAME
  intra.go

DESCRIPTION
  intra.go scans video elementary stream bytes for the start of an
  intra-coded frame, used to find the first decodable boundary of a video
  PID. Byte stream NAL start codes are recognised and the unit type is read
  with the H.264 NAL header layout; a sequence parameter set or an IDR
  slice marks an intra point. H.265 NAL unit types are not decoded.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package ts

// H.264 NAL unit types of interest.
const (
	nalTypeIDR = 5
	nalTypeSEI = 6
	nalTypeSPS = 7
)

// containsIntraStart reports whether d holds a NAL start code followed by
// a unit that begins an intra frame (SPS or IDR slice). d may start or end
// mid-unit; only complete start codes within d are considered.
func containsIntraStart(d []byte) bool {
	sc := frameScanner{buf: d}
	for {
		b, ok := sc.readByte()
		if !ok {
			return false
		}
		for i := 1; b == 0x00 && i != 4; i++ {
			b, ok = sc.readByte()
			if !ok {
				return false
			}
			if b != 0x01 || (i != 2 && i != 3) {
				continue
			}

			b, ok = sc.readByte()
			if !ok {
				return false
			}
			switch int(b & 0x1f) {
			case nalTypeIDR, nalTypeSPS:
				return true
			}
		}
	}
}

type frameScanner struct {
	off int
	buf []byte
}

func (s *frameScanner) readByte() (b byte, ok bool) {
	if s.off >= len(s.buf) {
		return 0, false
	}
	b = s.buf[s.off]
	s.off++
	return b, true
}
