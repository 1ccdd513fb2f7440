/*
NAME
  packetizer.go

DESCRIPTION
  packetizer.go provides the cycling packetizer: it serializes one or more
  long tables onto a PID as an endlessly repeating sequence of packets,
  with a configurable stuffing policy, correct pointer fields and a
  contiguous continuity counter.

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

// StuffingPolicy selects how a cycling packetizer pads packets.
type StuffingPolicy int

const (
	// StuffAlways pads the rest of the packet after the end of each
	// section, so every section begins at a packet boundary.
	StuffAlways StuffingPolicy = iota
	// StuffAtEnd packs sections tightly and pads only the final packet
	// of each cycle.
	StuffAtEnd
	// StuffNever packs tightly across the cycle boundary.
	StuffNever
)

// CyclingPacketizer emits the sections of its tables in a repeating cycle
// on one PID. Tables are emitted in the order they were added, sections in
// number order within each table.
type CyclingPacketizer struct {
	pid    uint16
	policy StuffingPolicy

	sections [][]byte // serialized sections, one cycle.
	next     int      // next section to start.
	rem      []byte   // unsent tail of the section in flight.
	remLast  bool     // rem belongs to the cycle's last section.

	cc       byte
	boundary bool
	count    uint64
}

// NewCyclingPacketizer returns a packetizer for pid with the given
// stuffing policy and no tables loaded.
func NewCyclingPacketizer(pid uint16, policy StuffingPolicy) *CyclingPacketizer {
	return &CyclingPacketizer{pid: pid, policy: policy}
}

// PID returns the PID the packetizer emits on.
func (p *CyclingPacketizer) PID() uint16 { return p.pid }

// AddTable serializes t and appends its sections to the cycle.
func (p *CyclingPacketizer) AddTable(t psi.LongTable) error {
	ss, err := t.Sections()
	if err != nil {
		return err
	}
	for _, s := range ss {
		b, err := s.Bytes()
		if err != nil {
			return err
		}
		p.sections = append(p.sections, b)
	}
	return nil
}

// RemoveAll unloads every table and resets the cycle position. The
// continuity counter is preserved.
func (p *CyclingPacketizer) RemoveAll() {
	p.sections = nil
	p.next = 0
	p.rem = nil
	p.remLast = false
	p.boundary = false
}

// PacketCount returns the number of packets produced so far.
func (p *CyclingPacketizer) PacketCount() uint64 { return p.count }

// AtCycleBoundary reports whether the packet most recently produced
// completed a cycle with no section bytes left in flight.
func (p *CyclingPacketizer) AtCycleBoundary() bool { return p.boundary }

// GetNextPacket fills pkt with the next packet of the cycle and reports
// whether a packet was produced. It produces nothing when no tables are
// loaded.
func (p *CyclingPacketizer) GetNextPacket(pkt *packet.Packet) bool {
	if len(p.sections) == 0 {
		return false
	}

	var (
		cont        []byte   // continuation of the section in flight.
		starts      [][]byte // section runs starting in this packet.
		endedCycle  bool     // the cycle's last section ended here.
		startedNext bool     // a section was started after the cycle end.
	)

	// Continue the section in flight.
	if len(p.rem) > 0 {
		take := min(len(p.rem), PayloadLen)
		cont = p.rem[:take]
		p.rem = p.rem[take:]
		if len(p.rem) == 0 && p.remLast {
			endedCycle = true
			p.remLast = false
		}
	}

	// Start new sections while the policy and remaining space allow. One
	// byte is reserved for the pointer field as soon as a section starts.
	if len(p.rem) == 0 && !(p.policy == StuffAlways && len(cont) > 0) {
		avail := PayloadLen - len(cont) - 1
		for avail > 0 {
			if p.next == len(p.sections) {
				p.next = 0
			}
			if endedCycle && p.policy != StuffNever {
				break
			}
			s := p.sections[p.next]
			take := min(len(s), avail)
			starts = append(starts, s[:take])
			avail -= take
			if endedCycle {
				startedNext = true
			}
			if take < len(s) {
				p.rem = s[take:]
				p.remLast = p.next == len(p.sections)-1
				p.next++
				break
			}
			if p.next == len(p.sections)-1 {
				endedCycle = true
			}
			p.next++
			if p.policy == StuffAlways {
				break
			}
		}
	}

	// Assemble the packet.
	pkt[0] = SyncByte
	pusi := byte(0)
	if len(starts) > 0 {
		pusi = 0x40
	}
	pkt[1] = pusi | byte(p.pid>>8)&0x1f
	pkt[2] = byte(p.pid)
	pkt[3] = 0x10 | p.cc
	p.cc = (p.cc + 1) & 0xf

	n := HeadSize
	if len(starts) > 0 {
		pkt[n] = byte(len(cont)) // pointer field
		n++
	}
	n += copy(pkt[n:], cont)
	for _, s := range starts {
		n += copy(pkt[n:], s)
	}
	for ; n < PacketSize; n++ {
		pkt[n] = 0xff
	}

	p.boundary = endedCycle && !startedNext && len(p.rem) == 0
	p.count++
	return true
}
