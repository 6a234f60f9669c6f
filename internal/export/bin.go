package export

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/lawnchairsociety/dungeongen/internal/catalog"
	"github.com/lawnchairsociety/dungeongen/internal/lattice"
)

// cellBytes is the width of one id in a .bin file.
const cellBytes = 3

// BinSize is the length of a .bin level file.
const BinSize = lattice.Size * lattice.Size * cellBytes

// ErrTruncated is returned when a .bin file is shorter or longer than BinSize.
var ErrTruncated = errors.New("export: .bin must hold exactly one floor")

// EncodeBin writes l as 3-byte big-endian ids, rows first (y outer, x
// inner). Every id must be in cat.
func EncodeBin(w io.Writer, l *lattice.Lattice, cat *catalog.Catalog) error {
	if l.N() != lattice.Size {
		return ErrSize
	}
	bw := bufio.NewWriter(w)
	var cell [cellBytes]byte
	for y := 0; y < lattice.Size; y++ {
		for x := 0; x < lattice.Size; x++ {
			v := l.At(lattice.Point{X: x, Y: y})
			if v > lattice.MaxTileValue || !cat.Contains(v) {
				return fmt.Errorf("%w %s at (%d,%d)", ErrUnknownTile, v, x, y)
			}
			cell[0] = byte(v >> 16)
			cell[1] = byte(v >> 8)
			cell[2] = byte(v)
			if _, err := bw.Write(cell[:]); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// MarshalBin returns the .bin encoding of l.
func MarshalBin(l *lattice.Lattice, cat *catalog.Catalog) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(BinSize)
	if err := EncodeBin(&buf, l, cat); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeBin reads one .bin floor. Trailing bytes are an error.
func DecodeBin(r io.Reader) (*lattice.Lattice, error) {
	data := make([]byte, BinSize)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	var extra [1]byte
	if n, _ := r.Read(extra[:]); n > 0 {
		return nil, ErrTruncated
	}
	return UnmarshalBin(data)
}

// UnmarshalBin decodes a .bin held in memory.
func UnmarshalBin(data []byte) (*lattice.Lattice, error) {
	if len(data) != BinSize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrTruncated, len(data))
	}
	l := lattice.New(lattice.Size, 0)
	i := 0
	for y := 0; y < lattice.Size; y++ {
		for x := 0; x < lattice.Size; x++ {
			v := lattice.TileValue(data[i])<<16 | lattice.TileValue(data[i+1])<<8 | lattice.TileValue(data[i+2])
			l.Set(lattice.Point{X: x, Y: y}, v)
			i += cellBytes
		}
	}
	return l, nil
}
