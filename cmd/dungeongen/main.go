package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/lawnchairsociety/dungeongen/internal/config"
	"github.com/lawnchairsociety/dungeongen/internal/logger"
	"github.com/lawnchairsociety/dungeongen/internal/telemetry"
	"github.com/lawnchairsociety/dungeongen/internal/terrain"
)

// flags holds the command line. Generation flags override the config file
// only when given explicitly.
type flags struct {
	configFile  string
	seed        string
	strategy    string
	param       int
	floors      int
	levels      string
	cheat       bool
	diversify   float64
	out         string
	debug       bool
	archive     bool
	serve       bool
	listRuns    bool
	loadRun     string
	deleteRun   string
	reconstruct string

	set map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (*flags, error) {
	f := &flags{set: make(map[string]bool)}
	fs := flag.NewFlagSet("dungeongen", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&f.configFile, "config", "dungeongen.yaml", "Path to config YAML file")
	fs.StringVar(&f.seed, "seed", "", "10-digit master seed (default: random)")
	fs.StringVar(&f.strategy, "strategy", "", "Terrain strategy: "+terrain.StrategyList())
	fs.IntVar(&f.param, "param", 0, "Strategy parameter (0 selects the strategy default)")
	fs.IntVar(&f.floors, "floors", 0, "Number of floors in the dungeon")
	fs.StringVar(&f.levels, "levels", "", "Comma-separated levels to generate (default: all)")
	fs.BoolVar(&f.cheat, "cheat", false, "Place every treasure, movement and battle tile on floor 0")
	fs.Float64Var(&f.diversify, "diversify", 0, "Share of corridor cells the diversifier visits")
	fs.StringVar(&f.out, "out", "", "Output directory")
	fs.BoolVar(&f.debug, "debug", false, "Write a debug image for every rejected attempt and refine pass")
	fs.BoolVar(&f.archive, "archive", false, "Store the generated dungeon in the seed archive")
	fs.BoolVar(&f.serve, "serve", false, "Run the WebSocket generation service")
	fs.BoolVar(&f.listRuns, "list-runs", false, "List archived runs and exit")
	fs.StringVar(&f.loadRun, "load-run", "", "Write the floors of an archived run key to the output directory")
	fs.StringVar(&f.deleteRun, "delete-run", "", "Delete an archived run key")
	fs.StringVar(&f.reconstruct, "reconstruct", "", "Rebuild Map_m*.bin from the given floor PNG")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })
	return f, nil
}

// apply overlays explicitly given flags on the loaded config.
func (f *flags) apply(cfg *config.Config) {
	g := &cfg.Generation
	if f.set["seed"] {
		g.Seed = f.seed
	}
	if f.set["strategy"] {
		g.Strategy = f.strategy
	}
	if f.set["param"] {
		g.Param = f.param
	}
	if f.set["floors"] {
		g.Floors = f.floors
	}
	if f.set["cheat"] {
		g.CheatMode = f.cheat
	}
	if f.set["diversify"] {
		g.DiversifyFraction = f.diversify
	}
	if f.set["out"] {
		cfg.Output.Dir = f.out
	}
	if f.set["debug"] {
		cfg.Output.Debug = f.debug
	}
	if f.archive || f.listRuns || f.loadRun != "" || f.deleteRun != "" {
		cfg.Archive.Enabled = true
	}
}

// parseLevels reads "3,4, 7" into levels. Empty means every floor.
func parseLevels(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var levels []int
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid level %q: %w", part, err)
		}
		levels = append(levels, n)
	}
	return levels, nil
}

func main() {
	f, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Note: .env file not loaded: %v\n", err)
	}

	logConfig, err := logger.LoadConfig(f.configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v; using default logging\n", err)
	}
	if err := logger.Initialize(logConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, f); err != nil {
		logger.Error("dungeongen failed", "error", err)
		stop()
		logger.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, f *flags) error {
	cfg, err := config.LoadConfig(f.configFile)
	if err != nil {
		return err
	}
	f.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		logger.Warning("Telemetry setup failed, continuing without tracing", "error", err)
	} else {
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Warning("Telemetry shutdown failed", "error", err)
			}
		}()
	}

	app, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.close()

	switch {
	case f.reconstruct != "":
		return app.reconstruct(f.reconstruct)
	case f.listRuns:
		return app.listRuns(ctx, os.Stdout)
	case f.loadRun != "":
		return app.loadRun(ctx, f.loadRun)
	case f.deleteRun != "":
		return app.deleteRun(ctx, f.deleteRun)
	case f.serve:
		return app.serve(ctx)
	}

	levels, err := parseLevels(f.levels)
	if err != nil {
		return err
	}
	return app.generate(ctx, levels, f.archive)
}
