package scene

import "sort"

// ID bumping. On load, every ID embedded in a persisted entity is shifted
// by the allocator's high-water mark so it cannot collide with IDs issued
// since startup. The shift is structural: rooms, their planes, cloud and
// both corner sets are rewritten together.

// BumpPlane returns a copy of p with its ID shifted by n.
func BumpPlane(n uint32, p *Plane) *Plane {
	c := p.Clone()
	c.ID = bumpID(p.ID, n)
	return c
}

// BumpCloud returns a copy of c with its ID shifted by n.
func BumpCloud(n uint32, c *Cloud) *Cloud {
	cl := c.Clone()
	cl.ID = bumpID(c.ID, n)
	return cl
}

// BumpRoom returns a copy of r with every embedded ID shifted by n.
func BumpRoom(n uint32, r *Room) *Room {
	c := r.Clone()
	c.ID = bumpID(r.ID, n)
	for i, p := range r.Planes {
		c.Planes[i] = BumpPlane(n, p)
	}
	if r.Cloud != nil {
		c.Cloud = BumpCloud(n, r.Cloud)
	}
	for i, cr := range r.Corners {
		c.Corners[i].ID = bumpID(cr.ID, n)
	}
	for i, cr := range r.Suggested {
		c.Suggested[i].ID = bumpID(cr.ID, n)
	}
	return c
}

// RoomIDs returns every ID embedded in the room (its own, planes, cloud,
// corners), sorted ascending. NoID never appears.
func RoomIDs(r *Room) []ID {
	var ids []ID
	add := func(id ID) {
		if id != NoID {
			ids = append(ids, id)
		}
	}
	add(r.ID)
	for _, p := range r.Planes {
		add(p.ID)
	}
	if r.Cloud != nil {
		add(r.Cloud.ID)
	}
	for _, c := range r.Corners {
		add(c.ID)
	}
	for _, c := range r.Suggested {
		add(c.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// MaxRoomID returns the largest ID embedded in the room, or 0 for an
// entirely empty room.
func MaxRoomID(r *Room) ID {
	ids := RoomIDs(r)
	if len(ids) == 0 {
		return 0
	}
	return ids[len(ids)-1]
}
