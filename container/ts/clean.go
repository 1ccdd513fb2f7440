/*
NAME
  clean.go

DESCRIPTION
  clean.go provides the transport stream file cleaner. Each input file is
  processed in two passes: the first collects and merges the signalization
  and finds per-PID boundaries, the second rewrites the file with a single
  authoritative PSI cycle up front, filtered EITs and elementary streams
  cut to start on decodable boundaries.

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
	"io"
	"sort"

	"github.com/Comcast/gots/v2/packet"
	"github.com/ausocean/utils/logging"
	"github.com/pkg/errors"

	"github.com/ausocean/tsclean/container/ts/psi"
)

// pmtContext carries the merged PMT of one PMT PID and the packetizer
// that re-emits it in the second pass.
type pmtContext struct {
	pid  uint16
	pmt  *psi.PMT
	pzer *CyclingPacketizer
}

// FileCleaner rewrites one transport stream file. It implements
// SignalHandler to merge tables during the first pass.
type FileCleaner struct {
	log logging.Logger
	out *PacketWriter
	err error

	pat     *psi.PAT
	patPzer *CyclingPacketizer
	cat     *psi.CAT
	catPzer *CyclingPacketizer
	sdt     *psi.SDT
	sdtPzer *CyclingPacketizer
	pmts    map[uint16]*pmtContext
}

// CleanFile cleans inName into outName. On any fatal error the partial
// output file is removed and the error returned; parse-level errors are
// logged and recovered from.
func CleanFile(log logging.Logger, inName, outName string) error {
	c := &FileCleaner{
		log:     log,
		patPzer: NewCyclingPacketizer(psi.PIDPAT, StuffAlways),
		catPzer: NewCyclingPacketizer(psi.PIDCAT, StuffAlways),
		sdtPzer: NewCyclingPacketizer(psi.PIDSDT, StuffAlways),
		pmts:    make(map[uint16]*pmtContext),
	}
	return c.clean(inName, outName)
}

func (c *FileCleaner) clean(inName, outName string) error {
	c.log.Info("cleaning", "input", inName, "output", outName)

	in, err := OpenPacketReader(inName)
	if err != nil {
		return err
	}
	defer in.Close()

	// Create the output before the first pass so a creation error is not
	// discovered after reading the whole input.
	c.out, err = CreatePacketWriter(outName)
	if err != nil {
		return err
	}

	// First pass: collect and merge signalization, track boundaries.
	demux := NewSignalDemux(c.log, c, psi.TIDPAT, psi.TIDCAT, psi.TIDPMT, psi.TIDSDTActual)
	var pkt packet.Packet
	for c.err == nil {
		err := in.ReadPacket(&pkt)
		if err == io.EOF {
			break
		}
		if err != nil {
			c.err = err
			break
		}
		demux.FeedPacket(&pkt)
	}

	if c.err == nil {
		c.err = in.Rewind()
	}
	if c.err != nil {
		c.out.Abort()
		return c.err
	}

	// Keep only EITp/f Actual for the services that survived the merge.
	eit := NewEITProcessor(c.log)
	eit.RemoveOther()
	eit.RemoveSchedule()
	for _, ctx := range c.pmtContexts() {
		eit.KeepService(ctx.pmt.ServiceID)
	}

	// Start the output with one full cycle of each PSI table so a decoder
	// sees complete signaling before any elementary packet.
	if c.pat.IsValid() {
		c.pat.Version = 0
		c.pat.Current = true
		c.initCycle(c.pat, c.patPzer)
	}
	if c.cat.IsValid() {
		c.cat.Version = 0
		c.cat.Current = true
		c.initCycle(c.cat, c.catPzer)
	}
	if c.sdt.IsValid() {
		c.sdt.Version = 0
		c.sdt.Current = true
		c.initCycle(c.sdt, c.sdtPzer)
	}
	for _, ctx := range c.pmtContexts() {
		ctx.pmt.Version = 0
		ctx.pmt.Current = true
		c.initCycle(ctx.pmt, ctx.pzer)
	}

	// Second pass: rewrite the stream.
	counts := make(map[uint16]int64)
	for c.err == nil {
		err := in.ReadPacket(&pkt)
		if err == io.EOF {
			break
		}
		if err != nil {
			c.err = err
			break
		}

		pid := uint16(pkt.PID())
		idx := counts[pid]
		counts[pid]++

		class := demux.Class(pid)
		switch {
		case pid == psi.PIDPAT:
			c.writeFromPacketizer(c.patPzer)
		case pid == psi.PIDCAT:
			c.writeFromPacketizer(c.catPzer)
		case pid == psi.PIDSDT:
			c.writeFromPacketizer(c.sdtPzer)
		case pid == psi.PIDEIT:
			// May be nullified or replaced; the slot is kept either way.
			eit.ProcessPacket(&pkt)
			c.write(&pkt)
		case class == ClassECM || class == ClassEMM:
			c.write(&pkt)
		case class == ClassPSI && c.pmts[pid] != nil:
			c.writeFromPacketizer(c.pmts[pid].pzer)
		case class == ClassAudio || class == ClassSubtitles || class == ClassData:
			// Transparent after the first payload unit start.
			first := demux.FirstPUSIIndex(pid)
			if first == IndexUnknown || idx >= first {
				c.write(&pkt)
			}
		case class == ClassVideo:
			// Transparent after the first intra frame, falling back to
			// the first payload unit start when none was found.
			first := demux.FirstIntraIndex(pid)
			if first == IndexUnknown {
				first = demux.FirstPUSIIndex(pid)
			}
			if first == IndexUnknown || idx >= first {
				c.write(&pkt)
			}
		}
	}

	if c.err != nil {
		c.out.Abort()
		return c.err
	}
	if err := c.out.Close(); err != nil {
		c.out.Abort()
		return err
	}
	return nil
}

// pmtContexts returns the PMT contexts ordered by PMT PID so output and
// logging are deterministic.
func (c *FileCleaner) pmtContexts() []*pmtContext {
	out := make([]*pmtContext, 0, len(c.pmts))
	for _, ctx := range c.pmts {
		out = append(out, ctx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].pid < out[j].pid })
	return out
}

func (c *FileCleaner) pmtContext(pid uint16) *pmtContext {
	ctx, ok := c.pmts[pid]
	if !ok {
		ctx = &pmtContext{pid: pid, pmt: new(psi.PMT), pzer: NewCyclingPacketizer(pid, StuffAlways)}
		ctx.pmt.Invalidate()
		c.pmts[pid] = ctx
	}
	return ctx
}

// initCycle loads a table into its packetizer and writes one full cycle.
func (c *FileCleaner) initCycle(t psi.LongTable, pzer *CyclingPacketizer) {
	if c.err != nil || !t.IsValid() {
		return
	}
	if err := pzer.AddTable(t); err != nil {
		c.err = err
		return
	}
	for c.err == nil {
		c.writeFromPacketizer(pzer)
		if pzer.AtCycleBoundary() {
			break
		}
	}
}

// writeFromPacketizer writes one packet from pzer, if it produces one.
func (c *FileCleaner) writeFromPacketizer(pzer *CyclingPacketizer) {
	var pkt packet.Packet
	if c.err == nil && pzer.GetNextPacket(&pkt) {
		c.write(&pkt)
	}
}

func (c *FileCleaner) write(pkt *packet.Packet) {
	if c.err == nil {
		c.err = c.out.WritePacket(pkt)
	}
}

// HandlePAT implements SignalHandler. The first PAT is adopted with its
// NIT reference stripped; later versions add services and must not move a
// service to another PMT PID.
func (c *FileCleaner) HandlePAT(pat *psi.PAT, pid uint16) {
	c.log.Debug("got PAT", "version", pat.Version)
	if !c.pat.IsValid() {
		c.pat = pat
		c.pat.NITPID = psi.PIDNull // no NIT in the output TS
		return
	}
	c.log.Info("got PAT update", "version", pat.Version)
	added, err := c.pat.Merge(pat)
	for _, service := range added {
		c.log.Info("added service from PAT update", "service", service)
	}
	if err != nil {
		c.log.Error("PAT update conflict", "error", err.Error())
		c.err = err
	}
}

// HandleCAT implements SignalHandler.
func (c *FileCleaner) HandleCAT(cat *psi.CAT, pid uint16) {
	c.log.Debug("got CAT", "version", cat.Version)
	if !c.cat.IsValid() {
		c.cat = cat
		return
	}
	c.log.Info("got CAT update", "version", cat.Version)
	if err := c.cat.Merge(cat); err != nil {
		c.err = errors.Wrap(err, "cannot merge CAT update")
	}
}

// HandleSDT implements SignalHandler.
func (c *FileCleaner) HandleSDT(sdt *psi.SDT, pid uint16) {
	c.log.Debug("got SDT", "version", sdt.Version)
	if !c.sdt.IsValid() {
		c.sdt = sdt
		return
	}
	c.log.Info("got SDT update", "version", sdt.Version)
	added, err := c.sdt.Merge(sdt)
	for _, service := range added {
		c.log.Info("added service from SDT update", "service", service)
	}
	if err != nil {
		c.err = errors.Wrap(err, "cannot merge SDT update")
	}
}

// HandlePMT implements SignalHandler.
func (c *FileCleaner) HandlePMT(pmt *psi.PMT, pid uint16) {
	c.log.Debug("got PMT", "version", pmt.Version, "pid", pid, "service", pmt.ServiceID)
	ctx := c.pmtContext(pid)
	if !ctx.pmt.IsValid() {
		ctx.pmt = pmt
		return
	}
	c.log.Info("got PMT update", "version", pmt.Version, "pid", pid, "service", pmt.ServiceID)
	added, err := ctx.pmt.Merge(pmt)
	for _, esPID := range added {
		c.log.Info("added component from PMT update", "pid", esPID)
	}
	if err != nil {
		c.err = errors.Wrap(err, "cannot merge PMT update")
	}
}
