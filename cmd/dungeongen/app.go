package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/lawnchairsociety/dungeongen/internal/archive"
	"github.com/lawnchairsociety/dungeongen/internal/catalog"
	"github.com/lawnchairsociety/dungeongen/internal/config"
	"github.com/lawnchairsociety/dungeongen/internal/export"
	"github.com/lawnchairsociety/dungeongen/internal/generator"
	"github.com/lawnchairsociety/dungeongen/internal/logger"
	"github.com/lawnchairsociety/dungeongen/internal/server"
)

// app holds what every command needs once config is resolved.
type app struct {
	cfg       *config.Config
	cat       *catalog.Catalog
	wanderers catalog.WandererTable
	archive   *archive.Archive
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	cat, wanderers, err := catalog.Open(ctx, cfg.Catalog.Source())
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	logger.Info("Catalog loaded", "tiles", cat.Len(), "wanderer_levels", len(wanderers))

	a := &app{cfg: cfg, cat: cat, wanderers: wanderers}
	if cfg.Archive.Enabled {
		a.archive, err = archive.OpenWithConfig(cfg.Archive.Config)
		if err != nil {
			return nil, fmt.Errorf("open archive: %w", err)
		}
		logger.Info("Seed archive opened", "driver", cfg.Archive.Driver)
	}
	return a, nil
}

func (a *app) close() {
	if a.archive != nil {
		if err := a.archive.Close(); err != nil {
			logger.Warning("Failed to close archive", "error", err)
		}
	}
}

func (a *app) writer() *export.Writer {
	return export.NewWriter(a.cfg.Output.Dir, a.cat, a.cfg.Output.Files())
}

// generate runs one dungeon, writes its floors and optionally archives it.
func (a *app) generate(ctx context.Context, levels []int, store bool) error {
	opts, err := a.cfg.Generation.Options()
	if err != nil {
		return err
	}
	opts.Levels = levels

	w := a.writer()
	var options []generator.Option
	if a.cfg.Output.Debug {
		options = append(options, generator.WithObserver(debugObserver(w)))
	}

	gen, err := generator.New(a.cat, a.wanderers, opts, options...)
	if err != nil {
		return err
	}
	opts = gen.Options()
	logger.Info("Generating dungeon", "seed", opts.Seed, "run_key", opts.RunKey(), "floors", opts.Floors)

	start := time.Now()
	d, err := gen.Generate(ctx)
	if err != nil {
		var fe *generator.FloorError
		if errors.As(err, &fe) {
			logger.Error("Floor could not be generated", "floor", fe.Level, "attempts", fe.Attempts)
		}
		return fmt.Errorf("seed %s: %w", opts.Seed, err)
	}

	for _, f := range d.Floors {
		written, err := w.WriteFloor(f.Level, f.Lattice)
		if err != nil {
			return err
		}
		logger.Debug("Floor written", "floor", f.Level, "files", written)
	}
	logger.Info("Dungeon generated", "run", d.String(), "elapsed", time.Since(start).Round(time.Millisecond))

	if store && a.archive != nil {
		run, err := a.archive.SaveRun(ctx, d)
		switch {
		case errors.Is(err, archive.ErrDuplicateRun):
			logger.Warning("Run already archived", "run_key", opts.RunKey())
		case err != nil:
			return err
		default:
			logger.Info("Run archived", "id", run.ID, "run_key", run.Key)
		}
	}

	logger.Always("Run complete", "seed", opts.Seed, "run_key", opts.RunKey(), "dir", a.cfg.Output.Dir)
	fmt.Printf("Seed: %s\n", opts.Seed)
	return nil
}

// debugObserver saves the working lattice of every refine pass and rejected
// attempt under the debug directory.
func debugObserver(w *export.Writer) generator.Observer {
	return func(e generator.Event) {
		if e.Lattice == nil {
			return
		}
		var name string
		switch e.Kind {
		case generator.EventRefined:
			name = fmt.Sprintf("m%d_a%d_i%d", e.Level, e.Attempt, e.Iteration)
		case generator.EventAttemptRejected:
			name = fmt.Sprintf("m%d_a%d_rejected", e.Level, e.Attempt)
		default:
			return
		}
		if _, err := w.WriteDebug(name, e.Lattice); err != nil {
			logger.Warning("Failed to write debug image", "name", name, "error", err)
		}
	}
}

func (a *app) serve(ctx context.Context) error {
	defaults, err := a.cfg.Generation.Options()
	if err != nil {
		return err
	}
	defaults.Seed = ""

	var options []server.Option
	if a.archive != nil {
		options = append(options, server.WithRunStore(a.archive))
	}
	srv := server.New(a.cfg.Server, a.cat, a.wanderers, defaults, options...)

	if len(a.cfg.Server.WebSocket.AllowedOrigins) == 0 {
		logger.Info("WebSocket CORS policy", "mode", "same-origin")
	} else {
		logger.Info("WebSocket CORS policy", "allowed_origins", a.cfg.Server.WebSocket.AllowedOrigins)
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down generation service")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("Generation service stopped")
	return <-errc
}

func (a *app) listRuns(ctx context.Context, out io.Writer) error {
	runs, err := a.archive.ListRuns(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tFLOORS\tCREATED\tDIGEST")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%.12s\n", r.Key, r.Floors, r.CreatedAt.Format(time.RFC3339), r.Digest)
	}
	return tw.Flush()
}

// loadRun writes the floors of an archived run as if freshly generated.
func (a *app) loadRun(ctx context.Context, key string) error {
	run, floors, err := a.archive.LoadRun(ctx, key)
	if err != nil {
		return err
	}
	w := a.writer()
	for _, f := range floors {
		l, err := f.Lattice()
		if err != nil {
			return fmt.Errorf("level %d: %w", f.Level, err)
		}
		if _, err := w.WriteFloor(f.Level, l); err != nil {
			return err
		}
	}
	logger.Info("Run restored", "run_key", run.Key, "floors", len(floors), "dir", a.cfg.Output.Dir)
	return nil
}

func (a *app) deleteRun(ctx context.Context, key string) error {
	if err := a.archive.DeleteRun(ctx, key); err != nil {
		return err
	}
	logger.Info("Run deleted", "run_key", key)
	return nil
}

// reconstruct rebuilds the .bin next to a floor PNG.
func (a *app) reconstruct(pngPath string) error {
	binPath := strings.TrimSuffix(pngPath, filepath.Ext(pngPath)) + ".bin"
	if err := export.ReconstructBin(pngPath, binPath, a.cat); err != nil {
		return err
	}
	logger.Info("Binary rebuilt", "png", pngPath, "bin", binPath)
	return nil
}
