package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gdamore/tcell/v2"

	"github.com/lawnchairsociety/dungeongen/internal/catalog"
	"github.com/lawnchairsociety/dungeongen/internal/export"
	"github.com/lawnchairsociety/dungeongen/internal/lattice"
)

func main() {
	inputFile := flag.String("input", "output/Map_m0.bin", "Path to a .bin floor")
	tiles := flag.String("tiles", "", "Tile catalog path or URL (default: embedded)")
	outputFile := flag.String("output", "", "Output file (empty for stdout)")
	showLegend := flag.Bool("legend", true, "Show legend")
	colour := flag.Bool("tui", false, "Open an interactive colour view instead of printing")
	flag.Parse()

	cat, _, err := catalog.Open(context.Background(), catalog.Source{Tiles: *tiles})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading catalog: %v\n", err)
		os.Exit(1)
	}

	l, err := readBin(*inputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading floor: %v\n", err)
		os.Exit(1)
	}

	if *colour {
		if err := view(l, cat, filepath.Base(*inputFile)); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	out := renderASCII(l, cat, *showLegend)
	if *outputFile == "" {
		fmt.Print(out)
		return
	}
	if err := os.WriteFile(*outputFile, []byte(out), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Map written to %s\n", *outputFile)
}

func readBin(path string) (*lattice.Lattice, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return export.DecodeBin(f)
}

func view(l *lattice.Lattice, cat *catalog.Catalog, title string) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()
	screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))

	newViewer(screen, l, cat, title).run()
	return nil
}
