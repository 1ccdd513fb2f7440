/*
NAME
  sdt.go

DESCRIPTION
  sdt.go provides the typed service description table for the actual
  transport stream, with per-service descriptor merging across versions.

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

// SDTService is the description of one service within an SDT.
type SDTService struct {
	EITSchedule   bool
	EITPresent    bool
	RunningStatus byte // 3 bits.
	FreeCAMode    bool
	Descs         DescriptorList
}

// SDT is a service description table (actual transport stream).
type SDT struct {
	TSID     uint16
	ONID     uint16
	Version  byte
	Current  bool
	Services map[uint16]*SDTService

	valid bool
}

// NewSDT returns an empty, valid SDT.
func NewSDT() *SDT {
	return &SDT{Current: true, Services: make(map[uint16]*SDTService), valid: true}
}

func (s *SDT) TableID() byte { return TIDSDTActual }

// IsValid reports whether the table holds decoded content.
func (s *SDT) IsValid() bool { return s != nil && s.valid }

// Invalidate clears the table.
func (s *SDT) Invalidate() {
	*s = SDT{Services: make(map[uint16]*SDTService)}
}

// FromSections decodes a complete group of SDT sections.
func (s *SDT) FromSections(ss []*Section) error {
	ordered, err := checkGroup(TIDSDTActual, ss)
	if err != nil {
		return err
	}
	s.Invalidate()
	s.TSID = ordered[0].TableIDExt
	s.Version = ordered[0].Version
	s.Current = ordered[0].Current
	for _, sec := range ordered {
		b := sec.Payload
		if len(b) < 3 {
			return errors.Wrap(ErrTablePayload, "SDT section too short")
		}
		s.ONID = binary.BigEndian.Uint16(b[0:2])
		b = b[3:]
		for len(b) > 0 {
			if len(b) < 5 {
				return errors.Wrap(ErrTablePayload, "SDT service entry truncated")
			}
			id := binary.BigEndian.Uint16(b[0:2])
			svc := &SDTService{
				EITSchedule:   b[2]&0x02 != 0,
				EITPresent:    b[2]&0x01 != 0,
				RunningStatus: b[3] >> 5,
				FreeCAMode:    b[3]&0x10 != 0,
			}
			descLen := int(b[3]&0x0f)<<8 | int(b[4])
			if len(b) < 5+descLen {
				return errors.Wrap(ErrTablePayload, "SDT descriptor loop truncated")
			}
			if svc.Descs, err = ParseDescriptors(b[5 : 5+descLen]); err != nil {
				return err
			}
			s.Services[id] = svc
			b = b[5+descLen:]
		}
	}
	s.valid = true
	return nil
}

// Sections serializes the SDT. Services are emitted in increasing service
// ID order and never split across sections. Every section repeats the
// original network ID header.
func (s *SDT) Sections() ([]*Section, error) {
	if !s.IsValid() {
		return nil, ErrTableInvalid
	}
	chunks := make([][]byte, 0, len(s.Services))
	for _, id := range sortedKeys(s.Services) {
		svc := s.Services[id]
		descs := svc.Descs.Bytes()
		e := make([]byte, 5, 5+len(descs))
		binary.BigEndian.PutUint16(e[0:], id)
		e[2] = 0xfc | flagByte(svc.EITSchedule)<<1 | flagByte(svc.EITPresent)
		e[3] = svc.RunningStatus<<5 | flagByte(svc.FreeCAMode)<<4 | byte(len(descs)>>8)&0x0f
		e[4] = byte(len(descs))
		chunks = append(chunks, append(e, descs...))
	}

	// Reserve the 3-byte ONID header that prefixes each section's payload.
	const head = 3
	payloads := [][]byte{nil}
	for _, c := range chunks {
		if head+len(c) > MaxLongPayloadLen {
			return nil, errors.Wrapf(ErrSectionLength, "service entry of %d bytes", len(c))
		}
		last := len(payloads) - 1
		if head+len(payloads[last])+len(c) > MaxLongPayloadLen {
			payloads = append(payloads, nil)
			last++
		}
		payloads[last] = append(payloads[last], c...)
	}
	if len(payloads) > 256 {
		return nil, ErrSectionLength
	}

	ss := make([]*Section, len(payloads))
	for i, p := range payloads {
		hdr := []byte{byte(s.ONID >> 8), byte(s.ONID), 0xff}
		ss[i] = &Section{
			TableID:    TIDSDTActual,
			Syntax:     true,
			Private:    true,
			TableIDExt: s.TSID,
			Version:    s.Version,
			Current:    s.Current,
			Number:     byte(i),
			LastNumber: byte(len(payloads) - 1),
			Payload:    append(hdr, p...),
		}
	}
	return ss, nil
}

// Merge folds a later SDT version into s: new services are added and
// returned; descriptors of existing services are merged by value.
func (s *SDT) Merge(other *SDT) (added []uint16, err error) {
	if !s.IsValid() || !other.IsValid() {
		return nil, ErrTableInvalid
	}
	for _, id := range sortedKeys(other.Services) {
		svc := other.Services[id]
		cur, ok := s.Services[id]
		if !ok {
			cp := *svc
			cp.Descs = svc.Descs.Clone()
			s.Services[id] = &cp
			added = append(added, id)
			continue
		}
		cur.Descs.Merge(svc.Descs)
	}
	return added, nil
}
