package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/lawnchairsociety/dungeongen/internal/catalog"
	"github.com/lawnchairsociety/dungeongen/internal/client"
	"github.com/lawnchairsociety/dungeongen/internal/export"
	"github.com/lawnchairsociety/dungeongen/internal/generator"
	"github.com/lawnchairsociety/dungeongen/internal/server"
)

func main() {
	serverAddr := flag.String("addr", "localhost:8080", "Generation service address")
	seed := flag.String("seed", "", "10-digit master seed (default: chosen by the service)")
	strategy := flag.String("strategy", "", "Terrain strategy (default: the service's)")
	param := flag.Int("param", 0, "Strategy parameter")
	floors := flag.Int("floors", 0, "Number of floors (default: the service's)")
	levels := flag.String("levels", "", "Comma-separated levels to generate")
	cheat := flag.Bool("cheat", false, "Cheat mode")
	archive := flag.Bool("archive", false, "Ask the service to archive the run")
	out := flag.String("out", "output", "Directory the floors are written to")
	tiles := flag.String("tiles", "", "Tile catalog used to render PNGs (default: embedded)")
	verbose := flag.Bool("v", false, "Print every progress event")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	req := server.Request{
		Seed:      *seed,
		Strategy:  *strategy,
		Param:     *param,
		Floors:    *floors,
		CheatMode: *cheat,
		Archive:   *archive,
	}
	for _, part := range strings.Split(*levels, ",") {
		if part = strings.TrimSpace(part); part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid level %q\n", part)
			os.Exit(2)
		}
		req.Levels = append(req.Levels, n)
	}

	if err := run(ctx, *serverAddr, req, *out, *tiles, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, addr string, req server.Request, out, tiles string, verbose bool) error {
	cat, _, err := catalog.Open(ctx, catalog.Source{Tiles: tiles})
	if err != nil {
		return err
	}

	c, err := client.Dial(ctx, addr)
	if err != nil {
		return err
	}
	defer c.Close()

	fmt.Printf("Requesting dungeon from %s\n", addr)
	result, err := c.Generate(ctx, req, func(p server.Progress) {
		switch {
		case p.Kind == generator.EventFloorAccepted:
			fmt.Printf("  floor %d accepted after %d attempt(s)\n", p.Level, p.Attempt)
		case verbose && p.Reason != "":
			fmt.Printf("  floor %d attempt %d: %s (%s)\n", p.Level, p.Attempt, p.Kind, p.Reason)
		case verbose:
			fmt.Printf("  floor %d attempt %d: %s\n", p.Level, p.Attempt, p.Kind)
		}
	})
	if err != nil {
		return err
	}

	w := export.NewWriter(out, cat, export.Files{PNG: true, Bin: true})
	for _, f := range result.Floors {
		l, err := export.UnmarshalBin(f.Bin)
		if err != nil {
			return fmt.Errorf("level %d: %w", f.Level, err)
		}
		if _, err := w.WriteFloor(f.Level, l); err != nil {
			return err
		}
	}

	fmt.Printf("Seed: %s\n", result.Seed)
	fmt.Printf("Run:  %s (%d floors written to %s)\n", result.RunKey, len(result.Floors), out)
	if result.RunID != "" {
		fmt.Printf("Archived as %s\n", result.RunID)
	}
	return nil
}
