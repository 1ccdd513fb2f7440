/*
NAME
  cat.go

DESCRIPTION
  cat.go provides the typed conditional access table. The CAT payload is a
  bare descriptor loop, so merging reduces to a value-based descriptor
  list merge.

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

// CAT is a conditional access table.
type CAT struct {
	Version byte
	Current bool
	Descs   DescriptorList

	valid bool
}

// NewCAT returns an empty, valid CAT.
func NewCAT() *CAT {
	return &CAT{Current: true, valid: true}
}

func (c *CAT) TableID() byte { return TIDCAT }

// IsValid reports whether the table holds decoded content.
func (c *CAT) IsValid() bool { return c != nil && c.valid }

// Invalidate clears the table.
func (c *CAT) Invalidate() {
	*c = CAT{}
}

// FromSections decodes a complete group of CAT sections, concatenating the
// descriptor loops of all sections.
func (c *CAT) FromSections(ss []*Section) error {
	ordered, err := checkGroup(TIDCAT, ss)
	if err != nil {
		return err
	}
	c.Invalidate()
	c.Version = ordered[0].Version
	c.Current = ordered[0].Current
	for _, s := range ordered {
		dl, err := ParseDescriptors(s.Payload)
		if err != nil {
			return err
		}
		c.Descs = append(c.Descs, dl...)
	}
	c.valid = true
	return nil
}

// Sections serializes the CAT, splitting the descriptor loop across
// sections as needed. Descriptors are never split.
func (c *CAT) Sections() ([]*Section, error) {
	if !c.IsValid() {
		return nil, ErrTableInvalid
	}
	chunks := make([][]byte, 0, len(c.Descs))
	for i := range c.Descs {
		chunks = append(chunks, c.Descs[i].Bytes())
	}
	return splitSections(TIDCAT, 0xffff, c.Version, c.Current, false, chunks)
}

// Merge folds a later CAT version into c, appending descriptors not
// already present by value.
func (c *CAT) Merge(other *CAT) error {
	if !c.IsValid() || !other.IsValid() {
		return ErrTableInvalid
	}
	c.Descs.Merge(other.Descs)
	return nil
}
