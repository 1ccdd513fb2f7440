/*
NAME
  eit.go

DESCRIPTION
  eit.go provides a typed view of event information table sections. Only
  the EIT header is decoded; event loops are carried opaquely, which is all
  the stream-level EIT filtering needs.

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

// EITSection is one event information section with its header decoded and
// the event loop kept as raw bytes.
type EITSection struct {
	TableID            byte
	ServiceID          uint16
	Version            byte
	Current            bool
	Number             byte
	LastNumber         byte
	TSID               uint16
	ONID               uint16
	SegmentLastSection byte
	LastTableID        byte
	Events             []byte
}

// ParseEITSection decodes the EIT-specific header of a parsed section.
func ParseEITSection(s *Section) (*EITSection, error) {
	if !IsEIT(s.TableID) {
		return nil, errors.Wrapf(ErrWrongTable, "table 0x%02x is not an EIT", s.TableID)
	}
	if len(s.Payload) < 6 {
		return nil, errors.Wrap(ErrTablePayload, "EIT section too short")
	}
	return &EITSection{
		TableID:            s.TableID,
		ServiceID:          s.TableIDExt,
		Version:            s.Version,
		Current:            s.Current,
		Number:             s.Number,
		LastNumber:         s.LastNumber,
		TSID:               binary.BigEndian.Uint16(s.Payload[0:2]),
		ONID:               binary.BigEndian.Uint16(s.Payload[2:4]),
		SegmentLastSection: s.Payload[4],
		LastTableID:        s.Payload[5],
		Events:             append([]byte(nil), s.Payload[6:]...),
	}, nil
}

// Section re-serializes the EIT section header and opaque event loop into
// a generic section.
func (e *EITSection) Section() *Section {
	payload := make([]byte, 6, 6+len(e.Events))
	binary.BigEndian.PutUint16(payload[0:2], e.TSID)
	binary.BigEndian.PutUint16(payload[2:4], e.ONID)
	payload[4] = e.SegmentLastSection
	payload[5] = e.LastTableID
	payload = append(payload, e.Events...)
	return &Section{
		TableID:    e.TableID,
		Syntax:     true,
		Private:    true,
		TableIDExt: e.ServiceID,
		Version:    e.Version,
		Current:    e.Current,
		Number:     e.Number,
		LastNumber: e.LastNumber,
		Payload:    payload,
	}
}

// IsOther reports whether the section describes another transport stream.
func (e *EITSection) IsOther() bool { return IsEITOther(e.TableID) }

// IsSchedule reports whether the section is an EIT schedule section.
func (e *EITSection) IsSchedule() bool { return IsEITSchedule(e.TableID) }
