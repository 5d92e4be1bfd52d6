package persist

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/chazu/roomweld/pkg/scene"
	"github.com/chazu/roomweld/pkg/walls"
)

// fileMagic prefixes every save file.
var fileMagic = [4]byte{'R', 'W', 'L', 'D'}

// ErrBadMagic is reported for files that are not roomweld saves.
var ErrBadMagic = errors.New("persist: not a roomweld save file")

// Write serializes the store's rooms and the connectivity graph under the
// current shapes.
func Write(w io.Writer, store *scene.Store, graph *walls.Graph) error {
	save := SaveV2{}
	for _, r := range store.Rooms() {
		save.Rooms = append(save.Rooms, encodeRoom(r))
	}
	for _, e := range graph.Edges() {
		save.Walls = append(save.Walls, encodeEdge(e))
	}

	if _, err := w.Write(fileMagic[:]); err != nil {
		return fmt.Errorf("persist: write magic: %w", err)
	}
	env := SaveEnvelope{Version: saveVersion, V2: &save}
	if err := gob.NewEncoder(w).Encode(env); err != nil {
		return fmt.Errorf("persist: encode save: %w", err)
	}
	return nil
}

// Snapshot is a fully decoded and migrated save, not yet adopted into a
// store. Keeping decode and adopt separate gives load its all-or-nothing
// semantics: nothing touches live state until the snapshot is complete.
type Snapshot struct {
	Rooms []*scene.Room
	Edges []walls.Edge
}

// Read decodes and migrates a save stream. If the payload does not parse
// as a versioned envelope it is retried as the legacy bare room-list
// format, with an empty connectivity list synthesized.
func Read(r io.Reader) (*Snapshot, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("persist: read magic: %w", err)
	}
	if magic != fileMagic {
		return nil, ErrBadMagic
	}

	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("persist: read payload: %w", err)
	}

	save, err := decodePayload(payload)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{}
	for _, rec := range save.Rooms {
		room, err := decodeRoom(rec)
		if err != nil {
			return nil, err
		}
		snap.Rooms = append(snap.Rooms, room)
	}
	for _, rec := range save.Walls {
		edge, err := decodeEdge(rec)
		if err != nil {
			return nil, err
		}
		snap.Edges = append(snap.Edges, edge)
	}
	return snap, nil
}

// decodePayload tries the current envelope first, then the legacy bare
// room-list shape.
func decodePayload(payload []byte) (SaveV2, error) {
	var env SaveEnvelope
	envErr := gob.NewDecoder(bytes.NewReader(payload)).Decode(&env)
	if envErr == nil {
		return currentSave(env)
	}

	var legacy []RoomRecord
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&legacy); err != nil {
		return SaveV2{}, fmt.Errorf("persist: decode save (envelope: %v): %w", envErr, err)
	}
	return migrateSave1to2(SaveV1{Rooms: legacy}), nil
}

// Adopt installs the snapshot into the store and graph. Every persisted ID
// is bumped by the allocator's high-water mark so it cannot collide with
// IDs issued since startup, and the allocator is advanced past the bumped
// maximum.
func (s *Snapshot) Adopt(store *scene.Store, graph *walls.Graph) {
	bump := store.Alloc().HighWater()

	rooms := make(map[scene.ID]*scene.Room, len(s.Rooms))
	var max scene.ID
	for _, r := range s.Rooms {
		b := scene.BumpRoom(bump, r)
		rooms[b.ID] = b
		if m := scene.MaxRoomID(b); m > max {
			max = m
		}
	}

	edges := make([]walls.Edge, len(s.Edges))
	for i, e := range s.Edges {
		e.A = bumpPlaneID(e.A, bump)
		e.B = bumpPlaneID(e.B, bump)
		edges[i] = e
		if e.A != scene.NoID && e.A > max {
			max = e.A
		}
		if e.B != scene.NoID && e.B > max {
			max = e.B
		}
	}

	store.Alloc().AdvancePast(max)
	store.ReplaceAll(rooms, nil)
	graph.Reset(edges)
}

func bumpPlaneID(id scene.ID, n uint32) scene.ID {
	if id == scene.NoID {
		return scene.NoID
	}
	return scene.ID((uint32(id) + n) % uint32(scene.NoID))
}

// SaveFile writes the session to path via a temp file rename, so a failed
// write never truncates an existing save.
func SaveFile(path string, store *scene.Store, graph *walls.Graph) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("persist: %w", err)
	}
	if err := Write(f, store, graph); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("persist: %w", err)
	}
	return os.Rename(tmp, path)
}

// LoadFile reads, migrates and adopts a save file. On any error the
// previously loaded state is left untouched.
func LoadFile(path string, store *scene.Store, graph *walls.Graph) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("persist: %w", err)
	}
	defer f.Close()

	snap, err := Read(f)
	if err != nil {
		return err
	}
	snap.Adopt(store, graph)
	return nil
}
