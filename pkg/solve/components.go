package solve

import "sort"

// Components partitions the entities of an edge list into connected
// components by union-find. Components are returned with their members
// ascending, ordered by smallest member, so the grouping is deterministic.
func Components(edges []Pair) [][]uint32 {
	parent := make(map[uint32]uint32)

	var find func(x uint32) uint32
	find = func(x uint32) uint32 {
		p, ok := parent[x]
		if !ok {
			parent[x] = x
			return x
		}
		if p == x {
			return x
		}
		root := find(p)
		parent[x] = root
		return root
	}
	union := func(x, y uint32) {
		rx, ry := find(x), find(y)
		if rx != ry {
			parent[ry] = rx
		}
	}

	for _, e := range edges {
		union(e.A, e.B)
	}

	groups := make(map[uint32][]uint32)
	for x := range parent {
		r := find(x)
		groups[r] = append(groups[r], x)
	}

	out := make([][]uint32, 0, len(groups))
	for _, members := range groups {
		sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
		out = append(out, members)
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}
