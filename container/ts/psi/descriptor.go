/*
NAME
  descriptor.go

DESCRIPTION
  descriptor.go provides the descriptor and descriptor list types carried
  by program specific information tables, including the value-based list
  merge used when folding successive table versions together.

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
	"bytes"

	"github.com/pkg/errors"
)

// ErrDescriptorLength indicates a descriptor loop whose contents overrun
// the enclosing length field.
var ErrDescriptorLength = errors.New("descriptor overruns loop")

// Descriptor is a single tagged descriptor.
type Descriptor struct {
	Tag  byte
	Data []byte
}

// Bytes returns the serialized descriptor: tag, length, data.
func (d *Descriptor) Bytes() []byte {
	out := make([]byte, 2, 2+len(d.Data))
	out[0] = d.Tag
	out[1] = byte(len(d.Data))
	return append(out, d.Data...)
}

// Equal reports whether two descriptors have the same tag and data.
func (d *Descriptor) Equal(o *Descriptor) bool {
	return d.Tag == o.Tag && bytes.Equal(d.Data, o.Data)
}

// DescriptorList is an ordered list of descriptors.
type DescriptorList []Descriptor

// ParseDescriptors parses a descriptor loop occupying the whole of b.
func ParseDescriptors(b []byte) (DescriptorList, error) {
	var dl DescriptorList
	for len(b) > 0 {
		if len(b) < 2 || len(b) < 2+int(b[1]) {
			return nil, ErrDescriptorLength
		}
		n := 2 + int(b[1])
		dl = append(dl, Descriptor{Tag: b[0], Data: append([]byte(nil), b[2:n]...)})
		b = b[n:]
	}
	return dl, nil
}

// Bytes returns the serialized descriptor loop.
func (dl DescriptorList) Bytes() []byte {
	var out []byte
	for i := range dl {
		out = append(out, dl[i].Bytes()...)
	}
	return out
}

// ByteLen returns the serialized length of the loop in bytes.
func (dl DescriptorList) ByteLen() int {
	n := 0
	for i := range dl {
		n += 2 + len(dl[i].Data)
	}
	return n
}

// Has reports whether the list contains a descriptor equal to d by value.
func (dl DescriptorList) Has(d *Descriptor) bool {
	for i := range dl {
		if dl[i].Equal(d) {
			return true
		}
	}
	return false
}

// HasTag reports whether the list contains a descriptor with the given tag
// and returns the first such descriptor.
func (dl DescriptorList) HasTag(tag byte) (*Descriptor, bool) {
	for i := range dl {
		if dl[i].Tag == tag {
			return &dl[i], true
		}
	}
	return nil, false
}

// Merge appends the descriptors of other that are not already present by
// value, preserving first-seen order. Merging a list into itself leaves it
// unchanged.
func (dl *DescriptorList) Merge(other DescriptorList) {
	for i := range other {
		if !dl.Has(&other[i]) {
			d := Descriptor{Tag: other[i].Tag, Data: append([]byte(nil), other[i].Data...)}
			*dl = append(*dl, d)
		}
	}
}

// Clone returns a deep copy of the list.
func (dl DescriptorList) Clone() DescriptorList {
	if dl == nil {
		return nil
	}
	out := make(DescriptorList, len(dl))
	for i := range dl {
		out[i] = Descriptor{Tag: dl[i].Tag, Data: append([]byte(nil), dl[i].Data...)}
	}
	return out
}
