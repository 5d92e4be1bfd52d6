// Package align turns declared wall relations into globally consistent
// room placements. Each world axis is optimized independently (axis
// translations never interact), and within an axis each connected
// component of the room graph is solved on its own so that unrelated
// clusters of rooms never get pulled toward a shared anchor.
package align
