/*
NAME
  tables.go

DESCRIPTION
  tables.go holds what is common to the typed program specific information
  tables: the long table interface consumed by packetizers, and validation
  of a complete group of sections belonging to one table generation.

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
	"sort"

	"github.com/pkg/errors"
)

// Errors common to table (de)serialization.
var (
	ErrNoSections      = errors.New("no sections")
	ErrMissingSection  = errors.New("incomplete section group")
	ErrWrongTable      = errors.New("section belongs to another table")
	ErrTableInvalid    = errors.New("table is invalid")
	ErrTablePayload    = errors.New("malformed table payload")
	ErrServiceConflict = errors.New("service changed PMT PID")
)

// LongTable is a typed table that can be serialized into long sections.
// PAT, CAT, SDT and PMT implement it; EITSection does not.
type LongTable interface {
	TableID() byte
	IsValid() bool
	Sections() ([]*Section, error)
}

// checkGroup verifies that ss is a complete, consistent group of sections
// for table ID tid: sections 0..last all present, one version, one table ID
// extension. It returns the sections ordered by section number.
func checkGroup(tid byte, ss []*Section) ([]*Section, error) {
	if len(ss) == 0 {
		return nil, ErrNoSections
	}
	ordered := append([]*Section(nil), ss...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Number < ordered[j].Number })
	last := ordered[0].LastNumber
	if len(ordered) != int(last)+1 {
		return nil, errors.Wrapf(ErrMissingSection, "got %d of %d", len(ordered), int(last)+1)
	}
	for i, s := range ordered {
		if s.TableID != tid {
			return nil, errors.Wrapf(ErrWrongTable, "table 0x%02x, want 0x%02x", s.TableID, tid)
		}
		if s.Number != byte(i) || s.LastNumber != last ||
			s.Version != ordered[0].Version || s.TableIDExt != ordered[0].TableIDExt {
			return nil, ErrMissingSection
		}
	}
	return ordered, nil
}

// sortedKeys returns the keys of m in increasing order. Map iteration order
// must not leak into serialized tables.
func sortedKeys[M ~map[uint16]V, V any](m M) []uint16 {
	keys := make([]uint16, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// splitSections builds long sections for tid from atomic payload chunks,
// filling each section up to the payload capacity and numbering them
// 0..last. A chunk is never split across sections.
func splitSections(tid byte, ext uint16, version byte, current bool, private bool, chunks [][]byte) ([]*Section, error) {
	payloads := [][]byte{nil}
	for _, c := range chunks {
		if len(c) > MaxLongPayloadLen {
			return nil, errors.Wrapf(ErrSectionLength, "entry of %d bytes", len(c))
		}
		last := len(payloads) - 1
		if len(payloads[last])+len(c) > MaxLongPayloadLen {
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
		ss[i] = &Section{
			TableID:    tid,
			Syntax:     true,
			Private:    private,
			TableIDExt: ext,
			Version:    version,
			Current:    current,
			Number:     byte(i),
			LastNumber: byte(len(payloads) - 1),
			Payload:    p,
		}
	}
	return ss, nil
}
