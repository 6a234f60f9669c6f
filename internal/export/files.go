package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lawnchairsociety/dungeongen/internal/catalog"
	"github.com/lawnchairsociety/dungeongen/internal/lattice"
)

// Files selects which artifacts WriteFloor produces.
type Files struct {
	PNG      bool
	Upscaled bool
	Bin      bool
	// UpscaleSize is the preview side in pixels; zero means DefaultUpscale.
	UpscaleSize int
}

// Writer writes floor artifacts under one directory.
type Writer struct {
	dir   string
	cat   *catalog.Catalog
	files Files
}

// NewWriter returns a Writer rooted at dir.
func NewWriter(dir string, cat *catalog.Catalog, files Files) *Writer {
	return &Writer{dir: dir, cat: cat, files: files}
}

// PNGName is the file name of a floor image.
func PNGName(level int) string { return fmt.Sprintf("Map_m%d.png", level) }

// UpscaledName is the file name of a floor preview.
func UpscaledName(level int) string { return fmt.Sprintf("Map_m%d_preview.png", level) }

// BinName is the file name the game loads a floor from.
func BinName(level int) string { return fmt.Sprintf("Map_m%d.bin", level) }

// WriteFloor writes the selected artifacts for one floor and returns their
// paths.
func (w *Writer) WriteFloor(level int, l *lattice.Lattice) ([]string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("export: create %s: %w", w.dir, err)
	}
	var written []string
	if w.files.PNG {
		path := filepath.Join(w.dir, PNGName(level))
		if err := w.writeFile(path, func(f *os.File) error { return WritePNG(f, l, w.cat) }); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	if w.files.Upscaled {
		path := filepath.Join(w.dir, UpscaledName(level))
		if err := w.writeFile(path, func(f *os.File) error {
			return WriteUpscaledPNG(f, l, w.cat, w.files.UpscaleSize)
		}); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	if w.files.Bin {
		path := filepath.Join(w.dir, BinName(level))
		if err := w.writeFile(path, func(f *os.File) error { return EncodeBin(f, l, w.cat) }); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

// WriteDebug writes a one-pixel-per-cell PNG under the debug subdirectory.
func (w *Writer) WriteDebug(name string, l *lattice.Lattice) (string, error) {
	dir := filepath.Join(w.dir, "debug")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("export: create %s: %w", dir, err)
	}
	path := filepath.Join(dir, name+".png")
	return path, w.writeFile(path, func(f *os.File) error { return WritePNG(f, l, w.cat) })
}

func (w *Writer) writeFile(path string, encode func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := encode(f); err != nil {
		f.Close()
		return fmt.Errorf("export: write %s: %w", path, err)
	}
	return f.Close()
}

// ReconstructBin rebuilds a .bin from a floor PNG.
func ReconstructBin(pngPath, binPath string, cat *catalog.Catalog) error {
	in, err := os.Open(pngPath)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	defer in.Close()

	l, err := ReadPNG(in, cat)
	if err != nil {
		return err
	}
	out, err := os.Create(binPath)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := EncodeBin(out, l, cat); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
