package circuit

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Save file layout: a 4-byte magic, then three little-endian int32s
// (format version, width, height), then one byte per cell in row-major
// order. Each cell byte packs (kind << 2) | (level << 1) | default.

const saveMagic = "CCPG"

// FormatVersion is the current save format version.
const FormatVersion int32 = 0

var (
	// ErrBadMagic is returned when the header magic does not match.
	ErrBadMagic = errors.New("not a circuit save file")
	// ErrBadVersion is returned for save files from a newer format.
	ErrBadVersion = errors.New("unsupported save file version")
)

// encode packs a single cell into its save-file byte.
func (e Element) encode() byte {
	b := byte(e.Kind) << 2
	if e.Level {
		b |= 0b10
	}
	if e.Default {
		b |= 0b01
	}
	return b
}

// decodeElement unpacks a save-file cell byte.
func decodeElement(b byte) (Element, error) {
	k := Kind(b >> 2)
	if !k.Valid() {
		return Element{}, errors.Errorf("unknown element code %d", b>>2)
	}
	return Element{Kind: k, Level: b&0b10 != 0, Default: b&0b01 != 0}, nil
}

func putInt32(b []byte, v int32) {
	binary.LittleEndian.PutUint32(b, uint32(v))
}

// Encode writes the grid to w in the save file format.
func (g *Grid) Encode(w io.Writer) error {
	var hdr [16]byte
	copy(hdr[:4], saveMagic)
	putInt32(hdr[4:], FormatVersion)
	putInt32(hdr[8:], int32(g.w))
	putInt32(hdr[12:], int32(g.h))
	if _, err := w.Write(hdr[:]); err != nil {
		return errors.Wrap(err, "writing save header")
	}
	buf := make([]byte, len(g.cells))
	for i, e := range g.cells {
		buf[i] = e.encode()
	}
	if _, err := w.Write(buf); err != nil {
		return errors.Wrap(err, "writing cell data")
	}
	return nil
}

// Decode reads a grid from r in the save file format. The result is
// normalized, so the decoded grid may be smaller than the stored
// rectangle if it carries empty margins.
func Decode(r io.Reader) (Grid, error) {
	var hdr [16]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Grid{}, errors.Wrap(err, "reading save header")
	}
	if !bytes.Equal(hdr[:4], []byte(saveMagic)) {
		return Grid{}, ErrBadMagic
	}
	version := int32(binary.LittleEndian.Uint32(hdr[4:]))
	if version > FormatVersion {
		return Grid{}, errors.Wrapf(ErrBadVersion, "version %d", version)
	}
	w := int32(binary.LittleEndian.Uint32(hdr[8:]))
	h := int32(binary.LittleEndian.Uint32(hdr[12:]))
	if w < 0 || h < 0 {
		return Grid{}, errors.Errorf("invalid dimensions %dx%d", w, h)
	}
	g := NewGrid(int(w), int(h))
	buf := make([]byte, len(g.cells))
	if _, err := io.ReadFull(r, buf); err != nil {
		return Grid{}, errors.Wrap(err, "reading cell data")
	}
	for i, b := range buf {
		e, err := decodeElement(b)
		if err != nil {
			return Grid{}, errors.Wrapf(err, "cell %d", i)
		}
		g.cells[i] = e
	}
	g.Normalize()
	return g, nil
}
