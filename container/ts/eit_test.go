/*
NAME
  eit_test.go

DESCRIPTION
  See eit.go.

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

	"github.com/ausocean/tsclean/container/ts/psi"
)

// eitSection builds a minimal EIT section with the given table ID and
// service ID.
func eitSection(tid byte, service uint16) *psi.Section {
	e := &psi.EITSection{
		TableID:     tid,
		ServiceID:   service,
		Current:     true,
		TSID:        0x0101,
		ONID:        0x2222,
		LastTableID: tid,
	}
	return e.Section()
}

func TestEITProcessorFiltering(t *testing.T) {
	proc := NewEITProcessor(testLog(t))
	proc.RemoveOther()
	proc.RemoveSchedule()
	proc.KeepService(0x0001)

	pkts := []struct {
		tid     byte
		service uint16
		keep    bool
	}{
		{tid: psi.TIDEITPFActual, service: 0x0001, keep: true},
		{tid: 0x50, service: 0x0001},              // schedule actual
		{tid: psi.TIDEITPFOther, service: 0x0002}, // other TS
		{tid: psi.TIDEITPFActual, service: 0x0002},
		{tid: 0x7a, service: 0x0001}, // outside the DVB ranges
	}

	for i, test := range pkts {
		pkt := sectionPacket(t, psi.PIDEIT, byte(i), eitSection(test.tid, test.service))
		ccBefore := pkt.ContinuityCounter()
		proc.ProcessPacket(&pkt)

		if !test.keep {
			if got := uint16(pkt.PID()); got != psi.PIDNull {
				t.Errorf("packet %d: PID 0x%04x, want nullified", i, got)
			}
			if got := pkt.ContinuityCounter(); got != ccBefore {
				t.Errorf("packet %d: CC changed from %d to %d on nullification", i, ccBefore, got)
			}
			for j := HeadSize; j < PacketSize; j++ {
				if pkt[j] != 0 {
					t.Fatalf("packet %d: nullified payload byte %d is 0x%02x", i, j, pkt[j])
				}
			}
			continue
		}

		if got := uint16(pkt.PID()); got != psi.PIDEIT {
			t.Fatalf("packet %d: PID 0x%04x, want EIT", i, got)
		}
		if !pkt.PayloadUnitStartIndicator() {
			t.Fatalf("packet %d: expected PUSI on re-emitted section", i)
		}
		s, _, err := psi.ParseSection(pkt[5:], true)
		if err != nil {
			t.Fatalf("packet %d: could not parse re-emitted section: %v", i, err)
		}
		if s.TableID != test.tid || s.TableIDExt != test.service {
			t.Errorf("packet %d: got table 0x%02x service 0x%04x, want 0x%02x 0x%04x",
				i, s.TableID, s.TableIDExt, test.tid, test.service)
		}
	}
}

func TestEITProcessorPassesOtherPIDs(t *testing.T) {
	proc := NewEITProcessor(testLog(t))
	proc.RemoveOther()

	pkt := esPacket(0x0101, 0, true, pesPayload(nil))
	want := pkt
	proc.ProcessPacket(&pkt)
	if pkt != want {
		t.Error("non-EIT packet was modified")
	}
}

func TestEITProcessorKeepAllByDefault(t *testing.T) {
	proc := NewEITProcessor(testLog(t))

	pkt := sectionPacket(t, psi.PIDEIT, 0, eitSection(psi.TIDEITPFOther, 0x0005))
	proc.ProcessPacket(&pkt)
	if got := uint16(pkt.PID()); got != psi.PIDEIT {
		t.Errorf("unconfigured processor dropped a section: PID 0x%04x", got)
	}
}
