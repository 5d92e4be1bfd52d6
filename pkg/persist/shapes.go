// Package persist serializes the entity store and the wall connectivity
// graph as a single binary blob with a forward-only migration chain. Every
// historical shape is kept as a distinct frozen type, so a migration is a
// pure data transformation with no coupling to the live model; old save
// files keep loading as the schema evolves.
package persist

// The frozen shapes below must never change once released. New fields go
// into a new version plus a migration from its predecessor.

// Vec3R is a persisted 3D point.
type Vec3R [3]float64

// CornerRec is a persisted corner (accepted or suggested).
type CornerRec struct {
	ID    uint32
	Point Vec3R
}

// PlaneRec is a persisted wall plane. Unchanged across all room versions.
type PlaneRec struct {
	ID       uint32
	Normal   Vec3R
	Offset   float64
	Color    string
	Boundary []Vec3R
}

// CloudRec is a persisted point cloud. Exactly one of Uniform/PerPoint is
// set.
type CloudRec struct {
	ID       uint32
	Uniform  *[3]uint8
	PerPoint [][3]uint8
	Points   []Vec3R
}

// ---------------------------------------------------------------------------
// Room: 4 historical shapes
// ---------------------------------------------------------------------------

// RoomV1 held only the fitted walls and the source cloud.
type RoomV1 struct {
	ID     uint32
	Planes []PlaneRec
	Cloud  CloudRec
}

// RoomV2 added accepted corners.
type RoomV2 struct {
	ID      uint32
	Planes  []PlaneRec
	Cloud   CloudRec
	Corners []CornerRec
}

// RoomV3 added suggested corners and the cumulative pose (row-major).
type RoomV3 struct {
	ID        uint32
	Planes    []PlaneRec
	Cloud     CloudRec
	Corners   []CornerRec
	Suggested []CornerRec
	Pose      [16]float64
}

// RoomV4 added the source-path name. Current shape.
type RoomV4 struct {
	ID        uint32
	Planes    []PlaneRec
	Cloud     CloudRec
	Corners   []CornerRec
	Suggested []CornerRec
	Pose      [16]float64
	Name      string
}

const roomVersion = 4

// RoomRecord is the tagged envelope for one persisted room. Exactly the
// pointer matching Version is set.
type RoomRecord struct {
	Version uint32
	V1      *RoomV1
	V2      *RoomV2
	V3      *RoomV3
	V4      *RoomV4
}

// ---------------------------------------------------------------------------
// WallRelation: 2 historical shapes
// ---------------------------------------------------------------------------

// WallRelationV1 could only declare "same wall".
type WallRelationV1 struct {
	Axis   uint8
	PlaneA uint32
	PlaneB uint32
}

// Relation kinds of WallRelationV2.
const (
	wallSame     = 0
	wallOpposite = 1
)

// WallRelationV2 added opposite-with-gap relations. Current shape.
type WallRelationV2 struct {
	Axis   uint8
	Kind   uint8
	Gap    float64
	PlaneA uint32
	PlaneB uint32
}

const wallVersion = 2

// WallRecord is the tagged envelope for one persisted wall relation.
type WallRecord struct {
	Version uint32
	V1      *WallRelationV1
	V2      *WallRelationV2
}

// ---------------------------------------------------------------------------
// Save: 2 historical shapes
// ---------------------------------------------------------------------------

// SaveV1 persisted the room map only.
type SaveV1 struct {
	Rooms []RoomRecord
}

// SaveV2 added the wall connectivity edge list. Current shape.
type SaveV2 struct {
	Rooms []RoomRecord
	Walls []WallRecord
}

const saveVersion = 2

// SaveEnvelope is the top-level tagged envelope written after the magic.
type SaveEnvelope struct {
	Version uint32
	V1      *SaveV1
	V2      *SaveV2
}
