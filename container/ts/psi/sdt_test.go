/*
NAME
  sdt_test.go

DESCRIPTION
  See sdt.go.

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
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func testSDT() *SDT {
	s := NewSDT()
	s.TSID = 0x0101
	s.ONID = 0x2222
	s.Version = 2
	s.Services[0x0001] = &SDTService{
		EITPresent:    true,
		RunningStatus: 4,
		Descs:         DescriptorList{descSvcA, descCA},
	}
	s.Services[0x0002] = &SDTService{RunningStatus: 1, FreeCAMode: true}
	return s
}

func TestSDTRoundTrip(t *testing.T) {
	want := testSDT()
	ss, err := want.Sections()
	if err != nil {
		t.Fatalf("could not serialize SDT: %v", err)
	}

	got := new(SDT)
	if err := got.FromSections(ss); err != nil {
		t.Fatalf("could not decode SDT sections: %v", err)
	}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(SDT{}), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("SDT mismatch (-want +got):\n%s", diff)
	}
}

// TestSDTMergeDescriptors covers the descriptor merge across SDT versions:
// two distinct service descriptors survive, a common CA descriptor is kept
// once.
func TestSDTMergeDescriptors(t *testing.T) {
	s := testSDT()
	update := NewSDT()
	update.Services[0x0001] = &SDTService{
		Descs: DescriptorList{descSvcB, descCA},
	}
	update.Services[0x0003] = &SDTService{RunningStatus: 4}

	added, err := s.Merge(update)
	if err != nil {
		t.Fatalf("unexpected merge error: %v", err)
	}
	if len(added) != 1 || added[0] != 0x0003 {
		t.Errorf(errCmp, "added services", []uint16{3}, added)
	}

	want := DescriptorList{descSvcA, descCA, descSvcB}
	if diff := cmp.Diff(want, s.Services[0x0001].Descs); diff != "" {
		t.Errorf("merged descriptors mismatch (-want +got):\n%s", diff)
	}
}

func TestSDTMergeIdempotent(t *testing.T) {
	s := testSDT()
	if _, err := s.Merge(testSDT()); err != nil {
		t.Fatalf("unexpected merge error: %v", err)
	}
	if diff := cmp.Diff(testSDT(), s, cmp.AllowUnexported(SDT{})); diff != "" {
		t.Errorf("merging an identical SDT changed it (-want +got):\n%s", diff)
	}
}
