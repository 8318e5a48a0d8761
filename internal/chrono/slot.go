// Package chrono converts between unix timestamps and network slots.
//
// The conversion is anchored on a single pinned genesis pair: slot 4492800
// occurred at unix second 1596059091, and slots advance one per second from
// there. All slot math in the repository goes through this package so the
// anchor exists in exactly one place.
package chrono

const (
	genesisSlot int64 = 4492800
	genesisUnix int64 = 1596059091
)

// UnixToSlot converts a unix timestamp (seconds) to the network slot that was
// current at that time. Timestamps before genesis clamp to slot 0.
func UnixToSlot(timestamp int64) int64 {
	if timestamp < genesisUnix {
		return 0
	}

	return timestamp - genesisUnix + genesisSlot
}

// SlotToUnix converts a network slot to the unix timestamp (seconds) at which
// it was current.
func SlotToUnix(slot int64) int64 {
	return genesisUnix + slot - genesisSlot
}
