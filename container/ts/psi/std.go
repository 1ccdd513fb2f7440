/*
NAME
  std.go

DESCRIPTION
  std.go provides the well-known MPEG and DVB PID and table ID assignments
  used by program specific information.

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

// Reserved PIDs for program specific information.
const (
	PIDPAT  uint16 = 0x0000 // Program association table.
	PIDCAT  uint16 = 0x0001 // Conditional access table.
	PIDNIT  uint16 = 0x0010 // Network information table.
	PIDSDT  uint16 = 0x0011 // Service description table (also BAT).
	PIDEIT  uint16 = 0x0012 // Event information table.
	PIDNull uint16 = 0x1fff // Null (stuffing) packets.
)

// Table IDs.
const (
	TIDPAT         = 0x00 // Program association section.
	TIDCAT         = 0x01 // Conditional access section.
	TIDPMT         = 0x02 // Program map section.
	TIDNITActual   = 0x40 // Network information section, actual network.
	TIDSDTActual   = 0x42 // Service description section, actual TS.
	TIDSDTOther    = 0x46 // Service description section, other TS.
	TIDEITPFActual = 0x4e // EIT present/following, actual TS.
	TIDEITPFOther  = 0x4f // EIT present/following, other TS.
	TIDStuffing    = 0xff // Stuffing, marks the end of a payload unit.
)

// EIT schedule table ID ranges.
const (
	TIDEITSchedActualFirst = 0x50
	TIDEITSchedActualLast  = 0x5f
	TIDEITSchedOtherFirst  = 0x60
	TIDEITSchedOtherLast   = 0x6f
)

// Common descriptor tags understood by the cleaner.
const (
	DescTagCA         = 0x09
	DescTagService    = 0x48
	DescTagTeletext   = 0x56
	DescTagSubtitling = 0x59
)

// IsEIT reports whether tid is an EIT table ID of any flavour.
func IsEIT(tid byte) bool {
	return tid >= TIDEITPFActual && tid <= TIDEITSchedOtherLast
}

// IsEITOther reports whether tid describes events of another transport
// stream, i.e. EITp/f Other or an EIT schedule Other section.
func IsEITOther(tid byte) bool {
	return tid == TIDEITPFOther || (tid >= TIDEITSchedOtherFirst && tid <= TIDEITSchedOtherLast)
}

// IsEITSchedule reports whether tid is an EIT schedule table ID, actual
// or other.
func IsEITSchedule(tid byte) bool {
	return tid >= TIDEITSchedActualFirst && tid <= TIDEITSchedOtherLast
}
