/*
NAME
  pat.go

DESCRIPTION
  pat.go provides the typed program association table: deserialization from
  sections, serialization to sections, and merging of successive versions.

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

// PAT is a program association table. PMTs maps service ID to PMT PID.
// NITPID is PIDNull when the transport carries no NIT reference.
type PAT struct {
	TSID    uint16
	Version byte
	Current bool
	NITPID  uint16
	PMTs    map[uint16]uint16

	valid bool
}

// NewPAT returns an empty, valid PAT with no NIT reference.
func NewPAT() *PAT {
	return &PAT{Current: true, NITPID: PIDNull, PMTs: make(map[uint16]uint16), valid: true}
}

func (p *PAT) TableID() byte { return TIDPAT }

// IsValid reports whether the table holds decoded content.
func (p *PAT) IsValid() bool { return p != nil && p.valid }

// Invalidate clears the table. The next FromSections repopulates it.
func (p *PAT) Invalidate() {
	*p = PAT{NITPID: PIDNull, PMTs: make(map[uint16]uint16)}
}

// FromSections decodes a complete group of PAT sections. The group must
// cover section numbers 0..last of a single version.
func (p *PAT) FromSections(ss []*Section) error {
	ordered, err := checkGroup(TIDPAT, ss)
	if err != nil {
		return err
	}
	p.Invalidate()
	p.TSID = ordered[0].TableIDExt
	p.Version = ordered[0].Version
	p.Current = ordered[0].Current
	for _, s := range ordered {
		b := s.Payload
		if len(b)%4 != 0 {
			return errors.Wrap(ErrTablePayload, "PAT entry loop not a multiple of 4")
		}
		for i := 0; i+4 <= len(b); i += 4 {
			service := binary.BigEndian.Uint16(b[i:])
			pid := binary.BigEndian.Uint16(b[i+2:]) & 0x1fff
			if service == 0 {
				p.NITPID = pid
			} else {
				p.PMTs[service] = pid
			}
		}
	}
	p.valid = true
	return nil
}

// Sections serializes the PAT into sections numbered 0..last. Services are
// emitted in increasing service ID order, preceded by the NIT entry when
// one is present.
func (p *PAT) Sections() ([]*Section, error) {
	if !p.IsValid() {
		return nil, ErrTableInvalid
	}
	var chunks [][]byte
	entry := func(service, pid uint16) []byte {
		var b [4]byte
		binary.BigEndian.PutUint16(b[0:], service)
		binary.BigEndian.PutUint16(b[2:], 0xe000|pid&0x1fff)
		return b[:]
	}
	if p.NITPID != PIDNull {
		chunks = append(chunks, entry(0, p.NITPID))
	}
	for _, service := range sortedKeys(p.PMTs) {
		chunks = append(chunks, entry(service, p.PMTs[service]))
	}
	return splitSections(TIDPAT, p.TSID, p.Version, p.Current, false, chunks)
}

// Merge folds a later PAT version into p: new services are added and
// returned; a service whose PMT PID differs from the one already known is a
// structural conflict and fails the merge.
func (p *PAT) Merge(other *PAT) (added []uint16, err error) {
	if !p.IsValid() || !other.IsValid() {
		return nil, ErrTableInvalid
	}
	for _, service := range sortedKeys(other.PMTs) {
		pid := other.PMTs[service]
		cur, ok := p.PMTs[service]
		switch {
		case !ok:
			p.PMTs[service] = pid
			added = append(added, service)
		case cur != pid:
			return added, errors.Wrapf(ErrServiceConflict,
				"service 0x%04x moved from PID 0x%04x to 0x%04x", service, cur, pid)
		}
	}
	return added, nil
}
