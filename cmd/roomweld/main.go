// Command roomweld is the batch driver for the room registration engine.
// It loads scans and saved sessions, runs alignment scripts against them
// and writes the session back out.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/chazu/roomweld/pkg/config"
	"github.com/chazu/roomweld/pkg/pcd"
	"github.com/chazu/roomweld/pkg/persist"
	"github.com/chazu/roomweld/pkg/scene"
	"github.com/chazu/roomweld/pkg/script"
	"github.com/chazu/roomweld/pkg/walls"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var (
		cfgPath    = flag.String("config", "roomweld.yaml", "editor config file")
		loadPath   = flag.String("load", "", "session save file to load")
		cloudPaths = flag.String("clouds", "", "comma-separated PCD files, one room each")
		planesPath = flag.String("planes", "", "plane-list file to import as a room")
		boundDir   = flag.String("boundaries", "", "boundary polygon directory for -planes")
		scriptPath = flag.String("script", "", "alignment script to run")
		savePath   = flag.String("save", "", "write the session here on exit")
	)
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	})))
	slog.Info("roomweld starting", "config", *cfgPath)

	var alloc scene.Allocator
	store := scene.NewStore(&alloc)
	graph := walls.New()

	if *loadPath != "" {
		if err := persist.LoadFile(*loadPath, store, graph); err != nil {
			return fmt.Errorf("loading session: %w", err)
		}
		slog.Info("session loaded", "path", *loadPath,
			"rooms", len(store.Rooms()), "edges", len(graph.Edges()))
	}

	if *cloudPaths != "" {
		if err := loadClouds(ctx, store, strings.Split(*cloudPaths, ",")); err != nil {
			return err
		}
	}

	if *planesPath != "" {
		if *boundDir == "" {
			return fmt.Errorf("-planes requires -boundaries")
		}
		planes, err := persist.ImportPlaneSet(*planesPath, *boundDir, &alloc, cfg.Palette)
		if err != nil {
			return fmt.Errorf("importing planes: %w", err)
		}
		room := scene.NewRoom(alloc.Next(), *planesPath)
		room.Planes = planes
		store.PutRoom(room)
		slog.Info("planes imported", "room", room.ID, "planes", len(planes))
	}

	if *scriptPath != "" {
		if err := runScript(store, graph, cfg, *scriptPath); err != nil {
			return err
		}
	}

	if *savePath != "" {
		if err := persist.SaveFile(*savePath, store, graph); err != nil {
			return fmt.Errorf("saving session: %w", err)
		}
		slog.Info("session saved", "path", *savePath, "rooms", len(store.Rooms()))
	}
	return nil
}

// loadClouds parses the scan files concurrently, then adopts them into the
// store on the main goroutine so room IDs stay in argument order.
func loadClouds(ctx context.Context, store *scene.Store, paths []string) error {
	clouds := make([]*pcd.Cloud, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			c, err := pcd.LoadFile(strings.TrimSpace(path))
			if err != nil {
				return fmt.Errorf("loading %s: %w", path, err)
			}
			clouds[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	alloc := store.Alloc()
	for i, c := range clouds {
		room := scene.NewRoom(alloc.Next(), strings.TrimSpace(paths[i]))
		cloud := &scene.Cloud{ID: alloc.Next(), Points: c.Points}
		if c.Colors != nil {
			colors := make(scene.PerPointColors, len(c.Colors))
			for j, rgb := range c.Colors {
				colors[j] = scene.RGB{R: rgb[0], G: rgb[1], B: rgb[2]}
			}
			cloud.Color = colors
		} else {
			cloud.Color = scene.UniformColor{R: 200, G: 200, B: 200}
		}
		room.Cloud = cloud
		store.PutRoom(room)
		slog.Info("scan loaded", "room", room.ID, "path", room.Name, "points", len(c.Points))
	}
	return nil
}

func runScript(store *scene.Store, graph *walls.Graph, cfg config.Editor, path string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading script: %w", err)
	}

	sess := &script.Session{Store: store, Graph: graph, Cfg: cfg}
	out, evalErrs, err := script.NewEngine(sess, 0).Run(string(source))
	if err != nil {
		return fmt.Errorf("running script: %w", err)
	}
	for _, e := range evalErrs {
		slog.Error("script error", "script", path, "line", e.Line, "msg", e.Message)
	}
	if len(evalErrs) > 0 {
		return fmt.Errorf("script %s failed with %d error(s)", path, len(evalErrs))
	}
	for _, line := range out {
		slog.Info(line)
	}
	return nil
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
