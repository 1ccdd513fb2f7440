/*
NAME
  demux.go

DESCRIPTION
  demux.go provides the signalization demux: it reassembles program
  specific information tables from a stream of packets, invokes a handler
  each time a table generation is complete (repeats of a generation are
  dispatched again), classifies every PID it sees and
  records the first decodable boundary of each elementary PID.

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
	"encoding/binary"

	"github.com/Comcast/gots/v2/packet"
	"github.com/Comcast/gots/v2/pes"
	"github.com/ausocean/utils/logging"

	"github.com/ausocean/tsclean/container/ts/psi"
)

// PIDClass is the broad classification of a PID's traffic.
type PIDClass int

const (
	ClassUnknown PIDClass = iota
	ClassPSI
	ClassECM
	ClassEMM
	ClassVideo
	ClassAudio
	ClassSubtitles
	ClassData
	ClassNull
)

var pidClassNames = map[PIDClass]string{
	ClassUnknown:   "unknown",
	ClassPSI:       "PSI",
	ClassECM:       "ECM",
	ClassEMM:       "EMM",
	ClassVideo:     "video",
	ClassAudio:     "audio",
	ClassSubtitles: "subtitles",
	ClassData:      "data",
	ClassNull:      "null",
}

func (c PIDClass) String() string {
	if n, ok := pidClassNames[c]; ok {
		return n
	}
	return "invalid"
}

// SignalHandler receives each complete table generation seen by the demux.
type SignalHandler interface {
	HandlePAT(pat *psi.PAT, pid uint16)
	HandleCAT(cat *psi.CAT, pid uint16)
	HandleSDT(sdt *psi.SDT, pid uint16)
	HandlePMT(pmt *psi.PMT, pid uint16)
}

// IndexUnknown marks a per-PID packet index that was never observed.
const IndexUnknown = int64(-1)

type gatherKey struct {
	tid     byte
	ext     uint16
	version byte
}

type pidState struct {
	class      PIDClass
	packets    int64
	firstPUSI  int64
	firstIntra int64
	asm        *sectionAssembler
	gathers    map[gatherKey]*gather
}

type gather struct {
	sections map[byte]*psi.Section
}

// SignalDemux extracts signalization from a packet stream. Feed packets in
// input order; the handler is invoked synchronously from FeedPacket.
type SignalDemux struct {
	log     logging.Logger
	handler SignalHandler
	filter  map[byte]bool
	pids    map[uint16]*pidState
	pmtPIDs map[uint16]bool
}

// NewSignalDemux returns a demux dispatching the table IDs in tids to h.
// Tables outside tids are still decoded for PID classification.
func NewSignalDemux(log logging.Logger, h SignalHandler, tids ...byte) *SignalDemux {
	d := &SignalDemux{
		log:     log,
		handler: h,
		filter:  make(map[byte]bool),
		pids:    make(map[uint16]*pidState),
		pmtPIDs: make(map[uint16]bool),
	}
	for _, tid := range tids {
		d.filter[tid] = true
	}
	return d
}

func (d *SignalDemux) state(pid uint16) *pidState {
	st, ok := d.pids[pid]
	if !ok {
		st = &pidState{
			firstPUSI:  IndexUnknown,
			firstIntra: IndexUnknown,
			asm:        newSectionAssembler(),
			gathers:    make(map[gatherKey]*gather),
		}
		switch {
		case pid == psi.PIDPAT, pid == psi.PIDCAT,
			pid >= psi.PIDNIT && pid <= psi.PIDEIT:
			st.class = ClassPSI
		case pid == psi.PIDNull:
			st.class = ClassNull
		}
		d.pids[pid] = st
	}
	return st
}

// FeedPacket pushes one packet through the demux.
func (d *SignalDemux) FeedPacket(pkt *packet.Packet) {
	pid := uint16(pkt.PID())
	st := d.state(pid)
	idx := st.packets
	st.packets++

	if AFC(pkt) == AFCReserved {
		d.log.Warning("packet with reserved adaptation field control", "pid", pid)
		return
	}

	pusi := pkt.PayloadUnitStartIndicator()
	if pusi && st.firstPUSI == IndexUnknown {
		st.firstPUSI = idx
	}

	switch {
	case d.sectionPID(pid):
		for _, raw := range st.asm.feed(pkt) {
			d.handleSection(pid, st, raw)
		}
	case st.class == ClassVideo && st.firstIntra == IndexUnknown:
		if videoIntra(pkt, pusi) {
			st.firstIntra = idx
		}
	}
}

// sectionPID reports whether section reassembly applies to pid.
func (d *SignalDemux) sectionPID(pid uint16) bool {
	switch pid {
	case psi.PIDPAT, psi.PIDCAT, psi.PIDSDT:
		return true
	}
	return d.pmtPIDs[pid]
}

// videoIntra reports whether the payload of a video packet contains the
// start of an intra frame. On a payload unit start the PES header is
// opened first so only elementary stream bytes are scanned.
func videoIntra(pkt *packet.Packet, pusi bool) bool {
	off := PayloadOffset(pkt)
	if off >= PacketSize {
		return false
	}
	payload := pkt[off:]
	if pusi {
		h, err := pes.NewPESHeader(payload)
		if err != nil {
			return false
		}
		return containsIntraStart(h.Data())
	}
	return containsIntraStart(payload)
}

// handleSection parses one raw section, gathers its generation and
// dispatches the table once all section numbers are present.
func (d *SignalDemux) handleSection(pid uint16, st *pidState, raw []byte) {
	s, _, err := psi.ParseSection(raw, true)
	if err != nil {
		d.log.Warning("dropping malformed section", "pid", pid, "error", err.Error())
		return
	}
	if !s.Current {
		// Next tables are not applicable yet.
		return
	}

	key := gatherKey{tid: s.TableID, ext: s.TableIDExt, version: s.Version}
	g, ok := st.gathers[key]
	if !ok {
		g = &gather{sections: make(map[byte]*psi.Section)}
		st.gathers[key] = g
	}
	g.sections[s.Number] = s
	if len(g.sections) != int(s.LastNumber)+1 {
		return
	}
	delete(st.gathers, key)

	ss := make([]*psi.Section, 0, len(g.sections))
	for _, sec := range g.sections {
		ss = append(ss, sec)
	}
	d.dispatch(pid, s.TableID, ss)
}

// dispatch decodes a complete section group into its typed table, applies
// classification side effects and invokes the handler if the table ID is
// filtered in.
func (d *SignalDemux) dispatch(pid uint16, tid byte, ss []*psi.Section) {
	switch tid {
	case psi.TIDPAT:
		pat := new(psi.PAT)
		if err := pat.FromSections(ss); err != nil {
			d.log.Warning("cannot decode PAT", "pid", pid, "error", err.Error())
			return
		}
		for _, pmtPID := range pat.PMTs {
			d.pmtPIDs[pmtPID] = true
			d.classify(pmtPID, ClassPSI)
		}
		if d.filter[tid] {
			d.handler.HandlePAT(pat, pid)
		}
	case psi.TIDCAT:
		cat := new(psi.CAT)
		if err := cat.FromSections(ss); err != nil {
			d.log.Warning("cannot decode CAT", "pid", pid, "error", err.Error())
			return
		}
		d.classifyCA(cat.Descs, ClassEMM)
		if d.filter[tid] {
			d.handler.HandleCAT(cat, pid)
		}
	case psi.TIDPMT:
		pmt := new(psi.PMT)
		if err := pmt.FromSections(ss); err != nil {
			d.log.Warning("cannot decode PMT", "pid", pid, "error", err.Error())
			return
		}
		d.classifyCA(pmt.Descs, ClassECM)
		for esPID, es := range pmt.Streams {
			d.classifyCA(es.Descs, ClassECM)
			d.classify(esPID, streamClass(es))
		}
		if d.filter[tid] {
			d.handler.HandlePMT(pmt, pid)
		}
	case psi.TIDSDTActual:
		sdt := new(psi.SDT)
		if err := sdt.FromSections(ss); err != nil {
			d.log.Warning("cannot decode SDT", "pid", pid, "error", err.Error())
			return
		}
		if d.filter[tid] {
			d.handler.HandleSDT(sdt, pid)
		}
	}
}

// streamClass maps a PMT elementary stream entry to a PID class.
func streamClass(es *psi.PMTStream) PIDClass {
	switch {
	case es.IsVideo():
		return ClassVideo
	case es.IsAudio():
		return ClassAudio
	case es.IsSubtitles():
		return ClassSubtitles
	}
	return ClassData
}

// classifyCA walks a descriptor list and classifies the PID of every CA
// descriptor found. The same descriptor carries EMM PIDs in the CAT and
// ECM PIDs in the PMT.
func (d *SignalDemux) classifyCA(dl psi.DescriptorList, class PIDClass) {
	for i := range dl {
		if dl[i].Tag != psi.DescTagCA || len(dl[i].Data) < 4 {
			continue
		}
		pid := binary.BigEndian.Uint16(dl[i].Data[2:4]) & 0x1fff
		d.classify(pid, class)
	}
}

func (d *SignalDemux) classify(pid uint16, class PIDClass) {
	st := d.state(pid)
	if st.class != class {
		d.log.Debug("PID classified", "pid", pid, "class", class.String())
		st.class = class
	}
}

// Class returns the classification of pid.
func (d *SignalDemux) Class(pid uint16) PIDClass {
	if st, ok := d.pids[pid]; ok {
		return st.class
	}
	return ClassUnknown
}

// IsPMTPID reports whether pid was named as a PMT PID by a PAT.
func (d *SignalDemux) IsPMTPID(pid uint16) bool {
	return d.pmtPIDs[pid]
}

// FirstPUSIIndex returns the index, within the packets of pid, of the
// first packet with a payload unit start, or IndexUnknown.
func (d *SignalDemux) FirstPUSIIndex(pid uint16) int64 {
	if st, ok := d.pids[pid]; ok {
		return st.firstPUSI
	}
	return IndexUnknown
}

// FirstIntraIndex returns the index, within the packets of pid, of the
// first packet carrying the start of an intra frame, or IndexUnknown.
func (d *SignalDemux) FirstIntraIndex(pid uint16) int64 {
	if st, ok := d.pids[pid]; ok {
		return st.firstIntra
	}
	return IndexUnknown
}
