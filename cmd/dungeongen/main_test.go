package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/lawnchairsociety/dungeongen/internal/config"
	"github.com/lawnchairsociety/dungeongen/internal/export"
)

func TestParseLevels(t *testing.T) {
	tests := []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{"", nil, false},
		{"  ", nil, false},
		{"3", []int{3}, false},
		{"3,4, 7", []int{3, 4, 7}, false},
		{"3,x", nil, true},
	}
	for _, tt := range tests {
		got, err := parseLevels(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseLevels(%q) error = %v", tt.in, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseLevels(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFlagsOverrideOnlyWhenSet(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Generation.Strategy = "road"
	cfg.Generation.Param = 9
	cfg.Output.Dir = "from-config"

	f, err := parseFlags([]string{"-seed", "0000000042", "-floors", "3", "-cheat"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("parseFlags error: %v", err)
	}
	f.apply(cfg)

	g := cfg.Generation
	if g.Seed != "0000000042" || g.Floors != 3 || !g.CheatMode {
		t.Errorf("flags not applied: %+v", g)
	}
	if g.Strategy != "road" || g.Param != 9 || cfg.Output.Dir != "from-config" {
		t.Errorf("unset flags overrode config: %+v, dir %q", g, cfg.Output.Dir)
	}
	if cfg.Archive.Enabled {
		t.Error("archive should stay disabled without archive flags")
	}
}

func TestArchiveFlagsEnableArchive(t *testing.T) {
	for _, args := range [][]string{{"-archive"}, {"-list-runs"}, {"-load-run", "maze_0000000001_0_nocheat"}, {"-delete-run", "k"}} {
		cfg := config.DefaultConfig()
		f, err := parseFlags(args, &bytes.Buffer{})
		if err != nil {
			t.Fatalf("parseFlags(%v) error: %v", args, err)
		}
		f.apply(cfg)
		if !cfg.Archive.Enabled {
			t.Errorf("%v should enable the archive", args)
		}
	}
}

func TestParseFlagsRejectsUnknown(t *testing.T) {
	var stderr bytes.Buffer
	if _, err := parseFlags([]string{"-colour", "red"}, &stderr); err == nil {
		t.Fatal("expected an error for an unknown flag")
	}
	if !strings.Contains(stderr.String(), "colour") {
		t.Errorf("usage output = %q", stderr.String())
	}
}

func TestRunGeneratesAndArchives(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "dungeongen.yaml")
	content := "archive:\n  sqlite_path: " + filepath.Join(dir, "archive.db") + "\n"
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "out")

	f, err := parseFlags([]string{
		"-config", configPath,
		"-seed", "0000000001",
		"-strategy", "maze",
		"-floors", "2",
		"-out", out,
		"-archive",
	}, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if err := run(context.Background(), f); err != nil {
		t.Fatalf("run error: %v", err)
	}

	for level := 0; level < 2; level++ {
		for _, name := range []string{export.PNGName(level), export.UpscaledName(level), export.BinName(level)} {
			if _, err := os.Stat(filepath.Join(out, name)); err != nil {
				t.Errorf("missing %s: %v", name, err)
			}
		}
	}

	// Restoring the archived run into a fresh directory reproduces the floors.
	restored := filepath.Join(dir, "restored")
	f, err = parseFlags([]string{"-config", configPath, "-out", restored, "-load-run", "maze_0000000001_0_nocheat"}, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if err := run(context.Background(), f); err != nil {
		t.Fatalf("load-run error: %v", err)
	}
	for level := 0; level < 2; level++ {
		want, err := os.ReadFile(filepath.Join(out, export.BinName(level)))
		if err != nil {
			t.Fatal(err)
		}
		got, err := os.ReadFile(filepath.Join(restored, export.BinName(level)))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("restored level %d differs from the generated one", level)
		}
	}
}
