// Package export writes accepted floors in the formats the game loads: a
// 100x100 PNG coloured from the catalog, an upscaled preview, and the .bin
// level file. A .bin can also be rebuilt from a PNG.
package export

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"

	"golang.org/x/image/draw"

	"github.com/lawnchairsociety/dungeongen/internal/catalog"
	"github.com/lawnchairsociety/dungeongen/internal/lattice"
)

// DefaultUpscale is the side of the preview render, in pixels.
const DefaultUpscale = 700

var (
	// ErrSize is returned for lattices and images that are not Size x Size.
	ErrSize = fmt.Errorf("export: floors must be %dx%d", lattice.Size, lattice.Size)
	// ErrUnknownTile is returned for ids the catalog does not know.
	ErrUnknownTile = errors.New("export: unknown tile id")
	// ErrUnknownColor is returned for pixels no catalog tile uses.
	ErrUnknownColor = errors.New("export: no tile for colour")
)

// Image renders l with one pixel per cell, coloured from cat.
func Image(l *lattice.Lattice, cat *catalog.Catalog) (*image.RGBA, error) {
	if l.N() != lattice.Size {
		return nil, ErrSize
	}
	img := image.NewRGBA(image.Rect(0, 0, lattice.Size, lattice.Size))
	var err error
	l.Each(func(p lattice.Point, v lattice.TileValue) {
		if err != nil {
			return
		}
		c, ok := cat.Color(v)
		if !ok {
			err = fmt.Errorf("%w %s at %v", ErrUnknownTile, v, p)
			return
		}
		img.SetRGBA(p.X, p.Y, c.ToRGBA())
	})
	if err != nil {
		return nil, err
	}
	return img, nil
}

// Upscale scales img to a size x size square with nearest-neighbour
// sampling, so every cell stays a flat block of colour.
func Upscale(img image.Image, size int) *image.RGBA {
	if size <= 0 {
		size = DefaultUpscale
	}
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// WritePNG encodes l as a one-pixel-per-cell PNG.
func WritePNG(w io.Writer, l *lattice.Lattice, cat *catalog.Catalog) error {
	img, err := Image(l, cat)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

// WriteUpscaledPNG encodes l as a size x size preview PNG.
func WriteUpscaledPNG(w io.Writer, l *lattice.Lattice, cat *catalog.Catalog, size int) error {
	img, err := Image(l, cat)
	if err != nil {
		return err
	}
	return png.Encode(w, Upscale(img, size))
}

// FromImage maps every pixel of a Size x Size image back to its tile id.
func FromImage(img image.Image, cat *catalog.Catalog) (*lattice.Lattice, error) {
	b := img.Bounds()
	if b.Dx() != lattice.Size || b.Dy() != lattice.Size {
		return nil, fmt.Errorf("%w: got %dx%d", ErrSize, b.Dx(), b.Dy())
	}
	l := lattice.New(lattice.Size, cat.Roles().Empty)
	for y := 0; y < lattice.Size; y++ {
		for x := 0; x < lattice.Size; x++ {
			col := catalog.FromRGBA(img.At(b.Min.X+x, b.Min.Y+y))
			id, ok := cat.ByColor(col)
			if !ok {
				return nil, fmt.Errorf("%w %s at (%d,%d)", ErrUnknownColor, col, x, y)
			}
			l.Set(lattice.Point{X: x, Y: y}, id)
		}
	}
	return l, nil
}

// ReadPNG decodes a floor PNG into a lattice.
func ReadPNG(r io.Reader, cat *catalog.Catalog) (*lattice.Lattice, error) {
	img, err := png.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("export: decode png: %w", err)
	}
	return FromImage(img, cat)
}
