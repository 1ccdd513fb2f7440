/*
NAME
  demux_test.go

DESCRIPTION
  See demux.go. This file also holds the packet builders shared by the
  demux, EIT and cleaner tests.

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
	"testing"

	"github.com/Comcast/gots/v2/packet"
	"github.com/ausocean/utils/logging"

	"github.com/ausocean/tsclean/container/ts/psi"
)

// sectionPacket builds one packet holding a complete section, stuffing the
// remainder with 0xff. The section must fit a single packet.
func sectionPacket(t *testing.T, pid uint16, cc byte, s *psi.Section) packet.Packet {
	t.Helper()
	b, err := s.Bytes()
	if err != nil {
		t.Fatalf("could not serialize section: %v", err)
	}
	if len(b) > PacketSize-5 {
		t.Fatalf("section of %d bytes does not fit one packet", len(b))
	}
	var p packet.Packet
	p[0] = SyncByte
	p[1] = 0x40 | byte(pid>>8)&0x1f
	p[2] = byte(pid)
	p[3] = 0x10 | cc&0xf
	p[4] = 0 // pointer field
	n := 5 + copy(p[5:], b)
	for ; n < PacketSize; n++ {
		p[n] = 0xff
	}
	return p
}

// longSectionPackets splits one serialized section over as many packets as
// it needs, continuity counters starting at cc.
func longSectionPackets(t *testing.T, pid uint16, cc byte, s *psi.Section) []packet.Packet {
	t.Helper()
	b, err := s.Bytes()
	if err != nil {
		t.Fatalf("could not serialize section: %v", err)
	}
	var out []packet.Packet
	first := true
	for len(b) > 0 {
		var p packet.Packet
		p[0] = SyncByte
		p[1] = byte(pid>>8) & 0x1f
		p[2] = byte(pid)
		p[3] = 0x10 | cc&0xf
		cc++
		n := HeadSize
		if first {
			p[1] |= 0x40
			p[n] = 0
			n++
			first = false
		}
		take := min(len(b), PacketSize-n)
		n += copy(p[n:], b[:take])
		b = b[take:]
		for ; n < PacketSize; n++ {
			p[n] = 0xff
		}
		out = append(out, p)
	}
	return out
}

// tablePackets serializes a table one section per packet.
func tablePackets(t *testing.T, pid uint16, cc byte, table psi.LongTable) []packet.Packet {
	t.Helper()
	ss, err := table.Sections()
	if err != nil {
		t.Fatalf("could not serialize table 0x%02x: %v", table.TableID(), err)
	}
	out := make([]packet.Packet, 0, len(ss))
	for _, s := range ss {
		out = append(out, sectionPacket(t, pid, cc, s))
		cc++
	}
	return out
}

// esPacket builds an elementary stream packet with the given payload,
// padded with 0xaa filler.
func esPacket(pid uint16, cc byte, pusi bool, payload []byte) packet.Packet {
	var p packet.Packet
	p[0] = SyncByte
	p[1] = byte(pid>>8) & 0x1f
	if pusi {
		p[1] |= 0x40
	}
	p[2] = byte(pid)
	p[3] = 0x10 | cc&0xf
	n := HeadSize + copy(p[HeadSize:], payload)
	for ; n < PacketSize; n++ {
		p[n] = 0xaa
	}
	return p
}

// pesPayload wraps es in a minimal video PES packet with a PTS.
func pesPayload(es []byte) []byte {
	head := []byte{
		0x00, 0x00, 0x01, // start code
		0xe0,       // video stream ID
		0x00, 0x00, // length unbounded
		0x80,                         // marker bits
		0x80,                         // PTS only
		0x05,                         // header data length
		0x21, 0x00, 0x01, 0x00, 0x01, // PTS
	}
	return append(head, es...)
}

// recordHandler collects the tables dispatched by a demux.
type recordHandler struct {
	pats []*psi.PAT
	cats []*psi.CAT
	sdts []*psi.SDT
	pmts []*psi.PMT
}

func (h *recordHandler) HandlePAT(p *psi.PAT, pid uint16) { h.pats = append(h.pats, p) }
func (h *recordHandler) HandleCAT(c *psi.CAT, pid uint16) { h.cats = append(h.cats, c) }
func (h *recordHandler) HandleSDT(s *psi.SDT, pid uint16) { h.sdts = append(h.sdts, s) }
func (h *recordHandler) HandlePMT(p *psi.PMT, pid uint16) { h.pmts = append(h.pmts, p) }

// feedAll pushes packets through the demux in order.
func feedAll(d *SignalDemux, pkts []packet.Packet) {
	for i := range pkts {
		d.FeedPacket(&pkts[i])
	}
}

func testLog(t *testing.T) logging.Logger { return (*logging.TestLogger)(t) }

func TestDemuxDispatchAndClassify(t *testing.T) {
	pat := psi.NewPAT()
	pat.TSID = 1
	pat.PMTs[0x0001] = 0x0100

	cat := psi.NewCAT()
	cat.Descs = psi.DescriptorList{{Tag: psi.DescTagCA, Data: []byte{0x01, 0x23, 0xe1, 0x05}}} // EMM on 0x0105

	pmt := psi.NewPMT()
	pmt.ServiceID = 0x0001
	pmt.PCRPID = 0x0101
	pmt.Descs = psi.DescriptorList{{Tag: psi.DescTagCA, Data: []byte{0x01, 0x23, 0xe1, 0x06}}} // ECM on 0x0106
	pmt.Streams[0x0101] = &psi.PMTStream{Type: psi.StreamTypeH264Video}
	pmt.Streams[0x0102] = &psi.PMTStream{Type: psi.StreamTypeMPEG2Audio}
	pmt.Streams[0x0103] = &psi.PMTStream{Type: psi.StreamTypePrivate, Descs: psi.DescriptorList{{Tag: psi.DescTagSubtitling}}}
	pmt.Streams[0x0104] = &psi.PMTStream{Type: psi.StreamTypePrivate}

	h := new(recordHandler)
	d := NewSignalDemux(testLog(t), h, psi.TIDPAT, psi.TIDCAT, psi.TIDPMT, psi.TIDSDTActual)
	feedAll(d, tablePackets(t, psi.PIDPAT, 0, pat))
	feedAll(d, tablePackets(t, psi.PIDCAT, 0, cat))
	feedAll(d, tablePackets(t, 0x0100, 0, pmt))

	if len(h.pats) != 1 || len(h.cats) != 1 || len(h.pmts) != 1 {
		t.Fatalf("dispatch counts PAT/CAT/PMT = %d/%d/%d, want 1/1/1", len(h.pats), len(h.cats), len(h.pmts))
	}
	if !d.IsPMTPID(0x0100) {
		t.Error("PMT PID not recorded from PAT")
	}

	classes := map[uint16]PIDClass{
		psi.PIDPAT:  ClassPSI,
		0x0100:      ClassPSI,
		0x0101:      ClassVideo,
		0x0102:      ClassAudio,
		0x0103:      ClassSubtitles,
		0x0104:      ClassData,
		0x0105:      ClassEMM,
		0x0106:      ClassECM,
		psi.PIDNull: ClassNull,
	}
	// The null PID class comes from seeing a packet of it.
	null := esPacket(psi.PIDNull, 0, false, nil)
	d.FeedPacket(&null)
	for pid, want := range classes {
		if got := d.Class(pid); got != want {
			t.Errorf("PID 0x%04x: class %v, want %v", pid, got, want)
		}
	}
}

func TestDemuxRepeatAndDuplicate(t *testing.T) {
	pat := psi.NewPAT()
	pat.PMTs[0x0001] = 0x0100

	h := new(recordHandler)
	d := NewSignalDemux(testLog(t), h, psi.TIDPAT)

	pkts := tablePackets(t, psi.PIDPAT, 0, pat)
	if len(pkts) != 1 {
		t.Fatalf("expected single PAT packet, got %d", len(pkts))
	}

	// A repeated packet with the same continuity counter is a duplicate
	// and is dropped; a repeat with the next counter dispatches again.
	d.FeedPacket(&pkts[0])
	d.FeedPacket(&pkts[0])
	if len(h.pats) != 1 {
		t.Fatalf("duplicate packet dispatched: got %d PATs", len(h.pats))
	}
	again := sectionPacket(t, psi.PIDPAT, 1, mustSections(t, pat)[0])
	d.FeedPacket(&again)
	if len(h.pats) != 2 {
		t.Fatalf("repeated table not dispatched: got %d PATs", len(h.pats))
	}
}

func mustSections(t *testing.T, table psi.LongTable) []*psi.Section {
	t.Helper()
	ss, err := table.Sections()
	if err != nil {
		t.Fatalf("could not serialize table: %v", err)
	}
	return ss
}

func TestDemuxCCDiscontinuity(t *testing.T) {
	sdt := psi.NewSDT()
	sdt.TSID = 1
	sdt.Services[0x0001] = &psi.SDTService{
		Descs: psi.DescriptorList{{Tag: psi.DescTagService, Data: make([]byte, 200)}},
	}

	h := new(recordHandler)
	d := NewSignalDemux(testLog(t), h, psi.TIDSDTActual)

	// Drop the continuation packet of a multi-packet section: the partial
	// reassembly must be discarded, and the next full table must land.
	pkts := longSectionPackets(t, psi.PIDSDT, 0, mustSections(t, sdt)[0])
	if len(pkts) < 2 {
		t.Fatalf("expected multi-packet section, got %d packets", len(pkts))
	}
	d.FeedPacket(&pkts[0])
	// Skip pkts[1]: resynchronisation happens at the next PUSI.
	retry := longSectionPackets(t, psi.PIDSDT, byte(len(pkts)), mustSections(t, sdt)[0])
	feedAll(d, retry)

	if len(h.sdts) != 1 {
		t.Fatalf("got %d SDTs, want 1", len(h.sdts))
	}
}

func TestDemuxBadCRC(t *testing.T) {
	pat := psi.NewPAT()
	pat.PMTs[0x0001] = 0x0100

	h := new(recordHandler)
	d := NewSignalDemux(testLog(t), h, psi.TIDPAT)

	bad := tablePackets(t, psi.PIDPAT, 0, pat)[0]
	bad[10] ^= 0xff // corrupt the section body; CRC no longer matches
	d.FeedPacket(&bad)
	if len(h.pats) != 0 {
		t.Fatal("corrupt section was dispatched")
	}

	good := tablePackets(t, psi.PIDPAT, 1, pat)[0]
	d.FeedPacket(&good)
	if len(h.pats) != 1 {
		t.Fatalf("got %d PATs after recovery, want 1", len(h.pats))
	}
}

func TestDemuxFirstIndices(t *testing.T) {
	pat := psi.NewPAT()
	pat.PMTs[0x0001] = 0x0100
	pmt := psi.NewPMT()
	pmt.ServiceID = 0x0001
	pmt.PCRPID = 0x0101
	pmt.Streams[0x0101] = &psi.PMTStream{Type: psi.StreamTypeH264Video}
	pmt.Streams[0x0102] = &psi.PMTStream{Type: psi.StreamTypeMPEG2Audio}

	d := NewSignalDemux(testLog(t), new(recordHandler), psi.TIDPAT, psi.TIDPMT)
	feedAll(d, tablePackets(t, psi.PIDPAT, 0, pat))
	feedAll(d, tablePackets(t, 0x0100, 0, pmt))

	// Audio: three headless packets, then the first payload unit start.
	audio := []packet.Packet{
		esPacket(0x0102, 0, false, nil),
		esPacket(0x0102, 1, false, nil),
		esPacket(0x0102, 2, false, nil),
		esPacket(0x0102, 3, true, pesPayload(nil)),
	}
	feedAll(d, audio)
	if got := d.FirstPUSIIndex(0x0102); got != 3 {
		t.Errorf("audio first PUSI index %d, want 3", got)
	}
	if got := d.FirstIntraIndex(0x0102); got != IndexUnknown {
		t.Errorf("audio first intra index %d, want unknown", got)
	}

	// Video: a non-intra access unit at index 1, an IDR at index 4.
	video := []packet.Packet{
		esPacket(0x0101, 0, false, nil),
		esPacket(0x0101, 1, true, pesPayload([]byte{0x00, 0x00, 0x00, 0x01, 0x41, 0x9a})),
		esPacket(0x0101, 2, false, nil),
		esPacket(0x0101, 3, false, nil),
		esPacket(0x0101, 4, true, pesPayload([]byte{0x00, 0x00, 0x00, 0x01, 0x65, 0x88})),
	}
	feedAll(d, video)
	if got := d.FirstPUSIIndex(0x0101); got != 1 {
		t.Errorf("video first PUSI index %d, want 1", got)
	}
	if got := d.FirstIntraIndex(0x0101); got != 4 {
		t.Errorf("video first intra index %d, want 4", got)
	}

	if got := d.FirstPUSIIndex(0x0999); got != IndexUnknown {
		t.Errorf("unseen PID first PUSI index %d, want unknown", got)
	}
}
