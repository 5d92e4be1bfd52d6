package script

import (
	"fmt"
	"math"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/roomweld/pkg/align"
	"github.com/chazu/roomweld/pkg/geom"
	"github.com/chazu/roomweld/pkg/mesh"
	"github.com/chazu/roomweld/pkg/pcd"
	"github.com/chazu/roomweld/pkg/persist"
	"github.com/chazu/roomweld/pkg/scene"
	"github.com/chazu/roomweld/pkg/walls"
)

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string, returning the
// bare keyword name.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds a parsed mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

func toID(s zygo.Sexp) (scene.ID, error) {
	v, ok := s.(*zygo.SexpInt)
	if !ok {
		return scene.NoID, fmt.Errorf("expected entity ID, got %T (%s)", s, s.SexpString(nil))
	}
	if v.Val < 0 || v.Val >= int64(scene.NoID) {
		return scene.NoID, fmt.Errorf("entity ID %d out of range", v.Val)
	}
	return scene.ID(v.Val), nil
}

// toAxis converts a keyword or string (:x, :y, :z) to an axis.
func toAxis(s zygo.Sexp) (geom.Axis, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return 0, fmt.Errorf("expected axis keyword (:x, :y, :z), got %T", s)
	}
	name := strings.TrimPrefix(str.S, kwPrefix)
	switch name {
	case "x":
		return geom.AxisX, nil
	case "y":
		return geom.AxisY, nil
	case "z":
		return geom.AxisZ, nil
	}
	return 0, fmt.Errorf("invalid axis %q, expected x, y, or z", name)
}

func v3vec(d [3]float64) v3.Vec {
	return v3.Vec{X: d[0], Y: d[1], Z: d[2]}
}

// roomArg resolves the first positional argument to a room in the store.
func roomArg(sess *Session, pa kwArgs, builtin string) (*scene.Room, error) {
	if len(pa.positional) < 1 {
		return nil, fmt.Errorf("%s requires a room ID", builtin)
	}
	id, err := toID(pa.positional[0])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", builtin, err)
	}
	room := sess.Store.Room(id)
	if room == nil {
		return nil, fmt.Errorf("%s: no room %d", builtin, id)
	}
	return room, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the session builtins into a zygomys
// environment. Script source must be preprocessed with preprocessSource
// first so :keyword tokens arrive as tagged string literals and kebab
// names match the registered underscore forms.
func registerBuiltins(env *zygo.Zlisp, sess *Session, tr *transcript) {

	// -----------------------------------------------------------------------
	// (rooms) -> array of room IDs
	// -----------------------------------------------------------------------
	env.AddFunction("rooms", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		var ids []zygo.Sexp
		for _, r := range sess.Store.Rooms() {
			ids = append(ids, &zygo.SexpInt{Val: int64(r.ID)})
		}
		return env.NewSexpArray(ids), nil
	})

	// -----------------------------------------------------------------------
	// (import-room :planes "walls.txt" :boundaries "polys/"
	//              :cloud "scan.pcd" :name "kitchen")
	// -----------------------------------------------------------------------
	env.AddFunction("import_room", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		alloc := sess.Store.Alloc()
		room := scene.NewRoom(alloc.Next(), "")

		planesPath, hasPlanes := pa.kw["planes"]
		if hasPlanes {
			lp, err := toString(planesPath)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("import-room: planes: %w", err)
			}
			bdir, ok := pa.kw["boundaries"]
			if !ok {
				return zygo.SexpNull, fmt.Errorf("import-room: :planes requires :boundaries")
			}
			bd, err := toString(bdir)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("import-room: boundaries: %w", err)
			}
			planes, err := persist.ImportPlaneSet(lp, bd, alloc, sess.Cfg.Palette)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("import-room: %w", err)
			}
			room.Planes = planes
		}

		if v, ok := pa.kw["cloud"]; ok {
			path, err := toString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("import-room: cloud: %w", err)
			}
			pc, err := pcd.LoadFile(path)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("import-room: %w", err)
			}
			cloud := &scene.Cloud{ID: alloc.Next(), Points: pc.Points}
			if pc.Colors != nil {
				colors := make(scene.PerPointColors, len(pc.Colors))
				for i, c := range pc.Colors {
					colors[i] = scene.RGB{R: c[0], G: c[1], B: c[2]}
				}
				cloud.Color = colors
			} else {
				cloud.Color = scene.UniformColor{R: 200, G: 200, B: 200}
			}
			room.Cloud = cloud
			room.Name = path
		}

		if v, ok := pa.kw["name"]; ok {
			n, err := toString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("import-room: name: %w", err)
			}
			room.Name = n
		}

		points := 0
		if room.Cloud != nil {
			points = len(room.Cloud.Points)
		}
		sess.Store.PutRoom(room)
		tr.printf("imported room %d (%d planes, %d cloud points)",
			room.ID, len(room.Planes), points)
		return &zygo.SexpInt{Val: int64(room.ID)}, nil
	})

	// -----------------------------------------------------------------------
	// (connect planeA planeB)            same wall
	// (connect planeA planeB :gap 0.07)  opposite sides of a wall
	// -----------------------------------------------------------------------
	env.AddFunction("connect", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("connect requires two plane IDs")
		}
		ida, err := toID(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("connect: %w", err)
		}
		idb, err := toID(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("connect: %w", err)
		}
		planeA, _ := sess.Store.FindPlane(ida)
		planeB, _ := sess.Store.FindPlane(idb)
		if planeA == nil || planeB == nil {
			return zygo.SexpNull, fmt.Errorf("connect: no plane %d or %d", ida, idb)
		}

		var rel walls.Relation = walls.Same{}
		if v, ok := pa.kw["gap"]; ok {
			gap, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("connect: gap: %w", err)
			}
			rel = walls.Opposite{Gap: gap}
		}

		edge, err := sess.Graph.Connect(planeA, planeB, rel)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("connect: %w", err)
		}
		tr.printf("connected planes %d and %d on axis %s (%s)", ida, idb, edge.Axis, edge.Rel)
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (disconnect planeA planeB)
	// -----------------------------------------------------------------------
	env.AddFunction("disconnect", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("disconnect requires two plane IDs")
		}
		ida, err := toID(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("disconnect: %w", err)
		}
		idb, err := toID(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("disconnect: %w", err)
		}
		if !sess.Graph.Disconnect(ida, idb) {
			return zygo.SexpNull, fmt.Errorf("disconnect: planes %d and %d are not connected", ida, idb)
		}
		tr.printf("disconnected planes %d and %d", ida, idb)
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (translate-room id dx dy dz)
	// -----------------------------------------------------------------------
	env.AddFunction("translate_room", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		room, err := roomArg(sess, pa, "translate-room")
		if err != nil {
			return zygo.SexpNull, err
		}
		if len(pa.positional) != 4 {
			return zygo.SexpNull, fmt.Errorf("translate-room requires a room ID and dx dy dz")
		}
		var d [3]float64
		for i := 0; i < 3; i++ {
			d[i], err = toFloat64(pa.positional[i+1])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("translate-room: %w", err)
			}
		}
		moved := scene.TranslateRoom(v3vec(d), room)
		sess.Store.PutRoom(moved)
		tr.printf("translated room %d by (%g, %g, %g)", room.ID, d[0], d[1], d[2])
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (rotate-room id :axis :z :degrees 90)
	// -----------------------------------------------------------------------
	env.AddFunction("rotate_room", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		room, err := roomArg(sess, pa, "rotate-room")
		if err != nil {
			return zygo.SexpNull, err
		}
		axSexp, ok := pa.kw["axis"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("rotate-room requires :axis")
		}
		axis, err := toAxis(axSexp)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("rotate-room: %w", err)
		}
		degSexp, ok := pa.kw["degrees"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("rotate-room requires :degrees")
		}
		deg, err := toFloat64(degSexp)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("rotate-room: degrees: %w", err)
		}

		rot := geom.RotationAbout(axis.Unit(), deg*math.Pi/180)
		moved := scene.RotateRoom(rot, room)
		sess.Store.PutRoom(moved)
		tr.printf("rotated room %d by %g degrees about %s", room.ID, deg, axis)
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (suggest-corners id) -> number of kept corners
	// -----------------------------------------------------------------------
	env.AddFunction("suggest_corners", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		room, err := roomArg(sess, pa, "suggest-corners")
		if err != nil {
			return zygo.SexpNull, err
		}
		out, stats, err := align.SuggestCorners(room, sess.Store.Alloc(), sess.Cfg.CornerCutoffMultiplier)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("suggest-corners: %w", err)
		}
		if stats.AutoAccepted && !sess.Cfg.CornerAutoAccept {
			// Demote the automatic acceptance back to suggestions.
			out.Suggested = out.Corners
			out.Corners = nil
			stats.AutoAccepted = false
		}
		sess.Store.PutRoom(out)
		tr.printf("room %d: %d corner candidates kept of %d triples (auto-accepted: %t)",
			room.ID, stats.Kept, stats.Triples, stats.AutoAccepted)
		return &zygo.SexpInt{Val: int64(stats.Kept)}, nil
	})

	// -----------------------------------------------------------------------
	// (optimize) -> worst component RMSE
	// -----------------------------------------------------------------------
	env.AddFunction("optimize", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		rep := align.New(sess.Store, sess.Graph).Optimize()
		worst := 0.0
		for _, ax := range rep.Axes {
			for _, c := range ax.Components {
				if c.Err != nil {
					tr.printf("axis %s: %v", ax.Axis, c.Err)
					continue
				}
				tr.printf("axis %s: component of %d rooms, rmse %g", ax.Axis, len(c.Rooms), c.RMSE)
				if c.RMSE > worst {
					worst = c.RMSE
				}
			}
			for _, s := range ax.Skipped {
				tr.printf("axis %s: skipped edge %d-%d: %s", ax.Axis, s.Edge.A, s.Edge.B, s.Reason)
			}
		}
		if failed := rep.Failed(); len(failed) > 0 {
			return zygo.SexpNull, fmt.Errorf("optimize: %d component(s) unsolvable", len(failed))
		}
		return &zygo.SexpFloat{Val: worst}, nil
	})

	// -----------------------------------------------------------------------
	// (export-projection id "room3.mat")
	// -----------------------------------------------------------------------
	env.AddFunction("export_projection", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		room, err := roomArg(sess, pa, "export-projection")
		if err != nil {
			return zygo.SexpNull, err
		}
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("export-projection requires a room ID and a path")
		}
		path, err := toString(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("export-projection: %w", err)
		}
		if err := persist.ExportProjection(path, room); err != nil {
			return zygo.SexpNull, fmt.Errorf("export-projection: %w", err)
		}
		tr.printf("exported projection of room %d to %s", room.ID, path)
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (export-mesh id "room3.obj")
	// -----------------------------------------------------------------------
	env.AddFunction("export_mesh", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		room, err := roomArg(sess, pa, "export-mesh")
		if err != nil {
			return zygo.SexpNull, err
		}
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("export-mesh requires a room ID and a path")
		}
		path, err := toString(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("export-mesh: %w", err)
		}
		meshes := mesh.FromRoom(room)
		if len(meshes) == 0 {
			return zygo.SexpNull, fmt.Errorf("export-mesh: room %d has no wall boundaries", room.ID)
		}
		if err := mesh.ExportOBJ(path, meshes); err != nil {
			return zygo.SexpNull, fmt.Errorf("export-mesh: %w", err)
		}
		tr.printf("exported %d wall meshes of room %d to %s", len(meshes), room.ID, path)
		return &zygo.SexpInt{Val: int64(len(meshes))}, nil
	})

	// -----------------------------------------------------------------------
	// (load-save "session.rwld") / (save-to "session.rwld")
	// -----------------------------------------------------------------------
	env.AddFunction("load_save", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("load-save requires a path")
		}
		path, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("load-save: %w", err)
		}
		if err := persist.LoadFile(path, sess.Store, sess.Graph); err != nil {
			return zygo.SexpNull, fmt.Errorf("load-save: %w", err)
		}
		tr.printf("loaded %s (%d rooms)", path, len(sess.Store.Rooms()))
		return zygo.SexpNull, nil
	})

	env.AddFunction("save_to", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("save-to requires a path")
		}
		path, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("save-to: %w", err)
		}
		if err := persist.SaveFile(path, sess.Store, sess.Graph); err != nil {
			return zygo.SexpNull, fmt.Errorf("save-to: %w", err)
		}
		tr.printf("saved %d rooms to %s", len(sess.Store.Rooms()), path)
		return zygo.SexpNull, nil
	})
}
