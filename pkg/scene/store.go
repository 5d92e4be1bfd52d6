package scene

import (
	"fmt"
	"sort"
)

// Store owns the entity maps for one editing session. All mutations run on
// the editing thread; only the Allocator is shared with other goroutines.
// The store's lifetime is tied to the session, there is no process-wide
// singleton.
type Store struct {
	alloc    *Allocator
	rooms    map[ID]*Room
	free     map[ID]*Plane // planes not owned by any room
	released func(ID)      // cloud IDs whose GPU resources can be dropped
}

// NewStore creates an empty store drawing IDs from alloc.
func NewStore(alloc *Allocator) *Store {
	return &Store{
		alloc: alloc,
		rooms: make(map[ID]*Room),
		free:  make(map[ID]*Plane),
	}
}

// Alloc returns the store's ID allocator.
func (s *Store) Alloc() *Allocator { return s.alloc }

// OnCloudReleased registers the hook called with each cloud ID orphaned by
// a delete or clear, so the caller can free GPU-side buffers.
func (s *Store) OnCloudReleased(fn func(ID)) { s.released = fn }

// PutRoom inserts or replaces a room (idempotent upsert). It panics on
// invariant violations: duplicate plane IDs inside the room, a plane ID
// already owned elsewhere, or a cloud ID already in use by another room —
// all of these indicate an ID-allocation bug.
func (s *Store) PutRoom(r *Room) {
	r.checkInvariants()
	for _, p := range r.Planes {
		if _, clash := s.free[p.ID]; clash {
			panic(fmt.Sprintf("scene: plane %d owned by both room %d and the free pool", p.ID, r.ID))
		}
		for _, other := range s.rooms {
			if other.ID != r.ID && other.Plane(p.ID) != nil {
				panic(fmt.Sprintf("scene: plane %d owned by rooms %d and %d", p.ID, other.ID, r.ID))
			}
		}
	}
	if r.Cloud != nil {
		for _, other := range s.rooms {
			if other.ID != r.ID && other.Cloud != nil && other.Cloud.ID == r.Cloud.ID {
				panic(fmt.Sprintf("scene: cloud %d already in use by room %d", r.Cloud.ID, other.ID))
			}
		}
	}
	s.rooms[r.ID] = r
}

// Room returns the room with the given ID, or nil.
func (s *Store) Room(id ID) *Room { return s.rooms[id] }

// Rooms returns all rooms ordered by ID.
func (s *Store) Rooms() []*Room {
	out := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// DeleteRoom removes a room and returns the cloud IDs orphaned by the
// removal (fired through the release hook as well).
func (s *Store) DeleteRoom(id ID) []ID {
	r, ok := s.rooms[id]
	if !ok {
		return nil
	}
	delete(s.rooms, id)
	var orphaned []ID
	if r.Cloud != nil {
		orphaned = append(orphaned, r.Cloud.ID)
	}
	s.fireReleased(orphaned)
	return orphaned
}

// PutPlane inserts or replaces a plane in the free pool. Panics if the ID
// is already owned by a room.
func (s *Store) PutPlane(p *Plane) {
	for _, r := range s.rooms {
		if r.Plane(p.ID) != nil {
			panic(fmt.Sprintf("scene: plane %d already owned by room %d", p.ID, r.ID))
		}
	}
	s.free[p.ID] = p
}

// FreePlanes returns the unowned planes ordered by ID.
func (s *Store) FreePlanes() []*Plane {
	out := make([]*Plane, 0, len(s.free))
	for _, p := range s.free {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// DeletePlane removes a plane from the free pool. It does not reach into
// rooms; room walls are removed by replacing the room.
func (s *Store) DeletePlane(id ID) bool {
	if _, ok := s.free[id]; !ok {
		return false
	}
	delete(s.free, id)
	return true
}

// FindPlane resolves a plane ID process-wide: first the free pool, then
// every room's wall list. The second result is the owning room's ID, or
// NoID for a free plane. Returns (nil, NoID) when absent.
func (s *Store) FindPlane(id ID) (*Plane, ID) {
	if p, ok := s.free[id]; ok {
		return p, NoID
	}
	for _, r := range s.rooms {
		if p := r.Plane(id); p != nil {
			return p, r.ID
		}
	}
	return nil, NoID
}

// RoomOfPlane returns the room owning the given plane ID, or nil.
func (s *Store) RoomOfPlane(id ID) *Room {
	_, owner := s.FindPlane(id)
	if owner == NoID {
		return nil
	}
	return s.rooms[owner]
}

// Clear drops every entity and returns the orphaned cloud IDs.
func (s *Store) Clear() []ID {
	var orphaned []ID
	for _, r := range s.rooms {
		if r.Cloud != nil {
			orphaned = append(orphaned, r.Cloud.ID)
		}
	}
	sort.Slice(orphaned, func(i, j int) bool { return orphaned[i] < orphaned[j] })
	s.rooms = make(map[ID]*Room)
	s.free = make(map[ID]*Plane)
	s.fireReleased(orphaned)
	return orphaned
}

// ReplaceAll swaps in a fully-built state. Used by persistence and the
// script engine so that a failed load or run never touches the previous
// state: the caller builds the new maps completely before this is called.
// The release hook fires only for clouds absent from the new state.
func (s *Store) ReplaceAll(rooms map[ID]*Room, free map[ID]*Plane) {
	kept := make(map[ID]bool)
	for _, r := range rooms {
		if r.Cloud != nil {
			kept[r.Cloud.ID] = true
		}
	}
	var orphaned []ID
	for _, r := range s.rooms {
		if r.Cloud != nil && !kept[r.Cloud.ID] {
			orphaned = append(orphaned, r.Cloud.ID)
		}
	}
	sort.Slice(orphaned, func(i, j int) bool { return orphaned[i] < orphaned[j] })

	s.rooms = make(map[ID]*Room)
	s.free = make(map[ID]*Plane)
	for _, r := range rooms {
		s.PutRoom(r)
	}
	for _, p := range free {
		s.PutPlane(p)
	}
	s.fireReleased(orphaned)
}

func (s *Store) fireReleased(ids []ID) {
	if s.released == nil {
		return
	}
	for _, id := range ids {
		s.released(id)
	}
}
