package scene

import (
	"math"
	"sync/atomic"
)

// ID identifies an addressable entity (cloud, plane, room, corner, pickable
// point). IDs are process-wide and monotonically issued; they are never
// reused while the issuing process lives.
type ID uint32

// NoID is the reserved sentinel meaning "no entity".
const NoID ID = math.MaxUint32

// Allocator issues process-unique IDs. It is safe for concurrent use; the
// editing thread and the asynchronous upload thread both draw from it.
type Allocator struct {
	ctr atomic.Uint32
}

// Next returns the current counter value and advances it modulo NoID.
// Concurrent callers never observe the same value twice.
func (a *Allocator) Next() ID {
	for {
		cur := a.ctr.Load()
		next := cur + 1
		if next == uint32(NoID) {
			next = 0
		}
		if a.ctr.CompareAndSwap(cur, next) {
			return ID(cur)
		}
	}
}

// HighWater returns the next value Next would issue. Used as the bump
// amount when adopting IDs from a save file.
func (a *Allocator) HighWater() uint32 {
	return a.ctr.Load()
}

// AdvancePast raises the counter so every future ID is greater than id.
// No-op if the counter is already past it.
func (a *Allocator) AdvancePast(id ID) {
	want := (uint32(id) + 1) % uint32(NoID)
	for {
		cur := a.ctr.Load()
		if cur >= want {
			return
		}
		if a.ctr.CompareAndSwap(cur, want) {
			return
		}
	}
}

// bumpID shifts an ID by n modulo NoID, so the result can never collide
// with the sentinel. NoID itself is preserved: absence stays absence.
func bumpID(id ID, n uint32) ID {
	if id == NoID {
		return NoID
	}
	return ID((uint32(id) + n) % uint32(NoID))
}
