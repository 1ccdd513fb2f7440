/*
NAME
  eit.go

DESCRIPTION
  eit.go provides the streaming EIT processor. It reassembles event
  information sections from the EIT PID, drops the configured categories
  (other-TS, schedule, services not kept) and re-packetizes the survivors
  into the same PID slots. Slots left over after a drop are nullified so
  the stream keeps its shape.

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
	"github.com/ausocean/utils/logging"

	"github.com/ausocean/tsclean/container/ts/psi"
)

// EITProcessor filters EIT sections in a packet stream. Configure with
// RemoveOther, RemoveSchedule and KeepService before feeding packets.
type EITProcessor struct {
	log            logging.Logger
	removeOther    bool
	removeSchedule bool
	keep           map[uint16]bool

	asm   *sectionAssembler
	queue [][]byte // packets carrying surviving sections.
	cc    byte
}

// NewEITProcessor returns a pass-everything EIT processor.
func NewEITProcessor(log logging.Logger) *EITProcessor {
	return &EITProcessor{
		log:  log,
		keep: make(map[uint16]bool),
		asm:  newSectionAssembler(),
	}
}

// RemoveOther drops sections describing other transport streams, along
// with any unrecognised table ID above the EITp/f Actual range.
func (p *EITProcessor) RemoveOther() { p.removeOther = true }

// RemoveSchedule drops EIT schedule sections.
func (p *EITProcessor) RemoveSchedule() { p.removeSchedule = true }

// KeepService whitelists a service. Once at least one service is kept,
// sections for services outside the list are dropped.
func (p *EITProcessor) KeepService(id uint16) { p.keep[id] = true }

// drop decides whether a section is removed from the stream.
func (p *EITProcessor) drop(tid byte, service uint16) bool {
	if p.removeOther && (psi.IsEITOther(tid) || (tid > psi.TIDEITPFActual && !psi.IsEITSchedule(tid))) {
		return true
	}
	if p.removeSchedule && psi.IsEITSchedule(tid) {
		return true
	}
	return len(p.keep) > 0 && !p.keep[service]
}

// ProcessPacket rewrites one packet in place. Packets of other PIDs pass
// through untouched. Each EIT PID slot either receives the next packet of
// a surviving re-packetized section or is nullified.
func (p *EITProcessor) ProcessPacket(pkt *packet.Packet) {
	if uint16(pkt.PID()) != psi.PIDEIT {
		return
	}

	for _, raw := range p.asm.feed(pkt) {
		s, _, err := psi.ParseSection(raw, true)
		if err != nil {
			p.log.Warning("dropping malformed EIT section", "error", err.Error())
			continue
		}
		if p.drop(s.TableID, s.TableIDExt) {
			p.log.Debug("removing EIT section", "table", s.TableID, "service", s.TableIDExt)
			continue
		}
		p.packetize(raw)
	}

	if len(p.queue) > 0 {
		copy(pkt[:], p.queue[0])
		p.queue = p.queue[1:]
		return
	}
	Nullify(pkt)
}

// packetize splits one serialized section into packets on the EIT PID,
// one section start per packet, stuffing the tail with 0xFF.
func (p *EITProcessor) packetize(sec []byte) {
	first := true
	for len(sec) > 0 {
		b := make([]byte, PacketSize)
		b[0] = SyncByte
		b[1] = byte(psi.PIDEIT >> 8 & 0x1f)
		b[2] = byte(psi.PIDEIT)
		b[3] = 0x10 | p.cc
		p.cc = (p.cc + 1) & 0xf

		n := HeadSize
		if first {
			b[1] |= 0x40
			b[n] = 0 // pointer field
			n++
			first = false
		}
		take := min(len(sec), PacketSize-n)
		n += copy(b[n:], sec[:take])
		sec = sec[take:]
		for ; n < PacketSize; n++ {
			b[n] = 0xff
		}
		p.queue = append(p.queue, b)
	}
}
