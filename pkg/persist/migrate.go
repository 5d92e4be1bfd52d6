package persist

import (
	"fmt"

	"github.com/chazu/roomweld/pkg/geom"
)

// Migration chains. Each step is total and pure; decoding walks from
// whatever version the file carries up to the current shape. Fields
// introduced by later versions take their documented defaults: empty
// corner lists, the identity pose, an empty name, a zero-gap Same
// relation, an empty wall list.

func migrateRoom1to2(v RoomV1) RoomV2 {
	return RoomV2{ID: v.ID, Planes: v.Planes, Cloud: v.Cloud}
}

func migrateRoom2to3(v RoomV2) RoomV3 {
	return RoomV3{
		ID:      v.ID,
		Planes:  v.Planes,
		Cloud:   v.Cloud,
		Corners: v.Corners,
		Pose:    geom.RowMajor(geom.Identity()),
	}
}

func migrateRoom3to4(v RoomV3) RoomV4 {
	return RoomV4{
		ID:        v.ID,
		Planes:    v.Planes,
		Cloud:     v.Cloud,
		Corners:   v.Corners,
		Suggested: v.Suggested,
		Pose:      v.Pose,
	}
}

// currentRoom walks a room record's migration chain to the current shape.
func currentRoom(rec RoomRecord) (RoomV4, error) {
	switch rec.Version {
	case 1:
		if rec.V1 == nil {
			return RoomV4{}, fmt.Errorf("persist: room record v1 missing payload")
		}
		return migrateRoom3to4(migrateRoom2to3(migrateRoom1to2(*rec.V1))), nil
	case 2:
		if rec.V2 == nil {
			return RoomV4{}, fmt.Errorf("persist: room record v2 missing payload")
		}
		return migrateRoom3to4(migrateRoom2to3(*rec.V2)), nil
	case 3:
		if rec.V3 == nil {
			return RoomV4{}, fmt.Errorf("persist: room record v3 missing payload")
		}
		return migrateRoom3to4(*rec.V3), nil
	case roomVersion:
		if rec.V4 == nil {
			return RoomV4{}, fmt.Errorf("persist: room record v4 missing payload")
		}
		return *rec.V4, nil
	default:
		return RoomV4{}, fmt.Errorf("persist: unknown room version %d", rec.Version)
	}
}

func migrateWall1to2(v WallRelationV1) WallRelationV2 {
	return WallRelationV2{Axis: v.Axis, Kind: wallSame, PlaneA: v.PlaneA, PlaneB: v.PlaneB}
}

// currentWall walks a wall record's migration chain to the current shape.
func currentWall(rec WallRecord) (WallRelationV2, error) {
	switch rec.Version {
	case 1:
		if rec.V1 == nil {
			return WallRelationV2{}, fmt.Errorf("persist: wall record v1 missing payload")
		}
		return migrateWall1to2(*rec.V1), nil
	case wallVersion:
		if rec.V2 == nil {
			return WallRelationV2{}, fmt.Errorf("persist: wall record v2 missing payload")
		}
		return *rec.V2, nil
	default:
		return WallRelationV2{}, fmt.Errorf("persist: unknown wall relation version %d", rec.Version)
	}
}

func migrateSave1to2(v SaveV1) SaveV2 {
	return SaveV2{Rooms: v.Rooms}
}

// currentSave walks the top-level envelope to the current shape.
func currentSave(env SaveEnvelope) (SaveV2, error) {
	switch env.Version {
	case 1:
		if env.V1 == nil {
			return SaveV2{}, fmt.Errorf("persist: save envelope v1 missing payload")
		}
		return migrateSave1to2(*env.V1), nil
	case saveVersion:
		if env.V2 == nil {
			return SaveV2{}, fmt.Errorf("persist: save envelope v2 missing payload")
		}
		return *env.V2, nil
	default:
		return SaveV2{}, fmt.Errorf("persist: unknown save version %d", env.Version)
	}
}
