/*
NAME
  pmt.go

DESCRIPTION
  pmt.go provides the typed program map table, including the elementary
  stream map and the stream type predicates used for PID classification.

AUTHOR
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

	"github.com/pkg/errors"
)

// Common elementary stream type values.
const (
	StreamTypeMPEG1Video = 0x01
	StreamTypeMPEG2Video = 0x02
	StreamTypeMPEG1Audio = 0x03
	StreamTypeMPEG2Audio = 0x04
	StreamTypePrivate    = 0x06
	StreamTypeADTSAudio  = 0x0f
	StreamTypeMPEG4Video = 0x10
	StreamTypeLATMAudio  = 0x11
	StreamTypeH264Video  = 0x1b
	StreamTypeHEVCVideo  = 0x24
	StreamTypeAC3Audio   = 0x81
)

// PMTStream is one elementary stream entry of a PMT.
type PMTStream struct {
	Type  byte
	Descs DescriptorList
}

// IsVideo reports whether the stream type carries video.
func (e *PMTStream) IsVideo() bool {
	switch e.Type {
	case StreamTypeMPEG1Video, StreamTypeMPEG2Video, StreamTypeMPEG4Video,
		StreamTypeH264Video, StreamTypeHEVCVideo:
		return true
	}
	return false
}

// IsAudio reports whether the stream type carries audio.
func (e *PMTStream) IsAudio() bool {
	switch e.Type {
	case StreamTypeMPEG1Audio, StreamTypeMPEG2Audio, StreamTypeADTSAudio,
		StreamTypeLATMAudio, StreamTypeAC3Audio:
		return true
	}
	return false
}

// IsSubtitles reports whether the stream is a private stream carrying
// subtitling or teletext, identified by descriptor.
func (e *PMTStream) IsSubtitles() bool {
	if e.Type != StreamTypePrivate {
		return false
	}
	if _, ok := e.Descs.HasTag(DescTagSubtitling); ok {
		return true
	}
	_, ok := e.Descs.HasTag(DescTagTeletext)
	return ok
}

// PMT is a program map table for one service.
type PMT struct {
	ServiceID uint16
	Version   byte
	Current   bool
	PCRPID    uint16
	Descs     DescriptorList
	Streams   map[uint16]*PMTStream

	valid bool
}

// NewPMT returns an empty, valid PMT.
func NewPMT() *PMT {
	return &PMT{Current: true, PCRPID: PIDNull, Streams: make(map[uint16]*PMTStream), valid: true}
}

func (p *PMT) TableID() byte { return TIDPMT }

// IsValid reports whether the table holds decoded content.
func (p *PMT) IsValid() bool { return p != nil && p.valid }

// Invalidate clears the table.
func (p *PMT) Invalidate() {
	*p = PMT{PCRPID: PIDNull, Streams: make(map[uint16]*PMTStream)}
}

// FromSections decodes a complete group of PMT sections.
func (p *PMT) FromSections(ss []*Section) error {
	ordered, err := checkGroup(TIDPMT, ss)
	if err != nil {
		return err
	}
	p.Invalidate()
	p.ServiceID = ordered[0].TableIDExt
	p.Version = ordered[0].Version
	p.Current = ordered[0].Current
	for _, sec := range ordered {
		b := sec.Payload
		if len(b) < 4 {
			return errors.Wrap(ErrTablePayload, "PMT section too short")
		}
		p.PCRPID = binary.BigEndian.Uint16(b[0:2]) & 0x1fff
		infoLen := int(b[2]&0x0f)<<8 | int(b[3])
		if len(b) < 4+infoLen {
			return errors.Wrap(ErrTablePayload, "PMT program info truncated")
		}
		dl, err := ParseDescriptors(b[4 : 4+infoLen])
		if err != nil {
			return err
		}
		p.Descs = append(p.Descs, dl...)
		b = b[4+infoLen:]
		for len(b) > 0 {
			if len(b) < 5 {
				return errors.Wrap(ErrTablePayload, "PMT stream entry truncated")
			}
			pid := binary.BigEndian.Uint16(b[1:3]) & 0x1fff
			es := &PMTStream{Type: b[0]}
			descLen := int(b[3]&0x0f)<<8 | int(b[4])
			if len(b) < 5+descLen {
				return errors.Wrap(ErrTablePayload, "PMT stream descriptor loop truncated")
			}
			if es.Descs, err = ParseDescriptors(b[5 : 5+descLen]); err != nil {
				return err
			}
			p.Streams[pid] = es
			b = b[5+descLen:]
		}
	}
	p.valid = true
	return nil
}

// Sections serializes the PMT. The PCR PID and program descriptors go in
// section zero; elementary streams follow in increasing PID order and are
// never split across sections.
func (p *PMT) Sections() ([]*Section, error) {
	if !p.IsValid() {
		return nil, ErrTableInvalid
	}
	progDescs := p.Descs.Bytes()
	head := make([]byte, 4, 4+len(progDescs))
	binary.BigEndian.PutUint16(head[0:], 0xe000|p.PCRPID&0x1fff)
	head[2] = 0xf0 | byte(len(progDescs)>>8)&0x03
	head[3] = byte(len(progDescs))
	head = append(head, progDescs...)
	if len(head) > MaxLongPayloadLen {
		return nil, errors.Wrap(ErrSectionLength, "program descriptors too long")
	}

	// Subsequent sections repeat the PCR PID with an empty program loop.
	contHead := make([]byte, 4)
	copy(contHead, head[:4])
	contHead[2] = 0xf0
	contHead[3] = 0x00

	payloads := [][]byte{append([]byte(nil), head...)}
	for _, pid := range sortedKeys(p.Streams) {
		es := p.Streams[pid]
		descs := es.Descs.Bytes()
		e := make([]byte, 5, 5+len(descs))
		e[0] = es.Type
		binary.BigEndian.PutUint16(e[1:3], 0xe000|pid&0x1fff)
		e[3] = 0xf0 | byte(len(descs)>>8)&0x03
		e[4] = byte(len(descs))
		e = append(e, descs...)
		if len(contHead)+len(e) > MaxLongPayloadLen {
			return nil, errors.Wrapf(ErrSectionLength, "stream entry of %d bytes", len(e))
		}
		last := len(payloads) - 1
		if len(payloads[last])+len(e) > MaxLongPayloadLen {
			payloads = append(payloads, append([]byte(nil), contHead...))
			last++
		}
		payloads[last] = append(payloads[last], e...)
	}
	if len(payloads) > 256 {
		return nil, ErrSectionLength
	}

	ss := make([]*Section, len(payloads))
	for i, pl := range payloads {
		ss[i] = &Section{
			TableID:    TIDPMT,
			Syntax:     true,
			TableIDExt: p.ServiceID,
			Version:    p.Version,
			Current:    p.Current,
			Number:     byte(i),
			LastNumber: byte(len(payloads) - 1),
			Payload:    pl,
		}
	}
	return ss, nil
}

// Merge folds a later PMT version into p: new elementary streams are added
// and their PIDs returned; descriptors of existing streams are merged by
// value.
func (p *PMT) Merge(other *PMT) (added []uint16, err error) {
	if !p.IsValid() || !other.IsValid() {
		return nil, ErrTableInvalid
	}
	for _, pid := range sortedKeys(other.Streams) {
		es := other.Streams[pid]
		cur, ok := p.Streams[pid]
		if !ok {
			cp := &PMTStream{Type: es.Type, Descs: es.Descs.Clone()}
			p.Streams[pid] = cp
			added = append(added, pid)
			continue
		}
		cur.Descs.Merge(es.Descs)
	}
	return added, nil
}
