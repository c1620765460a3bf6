package render

import (
	"fmt"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
)

// Faces holds the three type roles the layout uses.
type Faces struct {
	Value  font.Face // large power value
	Unit   font.Face // "W"/"kW" next to the value
	Status font.Face // status strip and voltage/current row
}

// point sizes for the TTF roles
const (
	valuePt  = 64
	unitPt   = 22
	statusPt = 18
)

// LoadFaces loads the display font from a TTF file. With an empty path it
// falls back to the built-in bitmap face, which keeps the daemon usable on
// a bare rootfs (and keeps tests hermetic).
func LoadFaces(path string) (Faces, error) {
	if path == "" {
		f := basicfont.Face7x13
		return Faces{Value: f, Unit: f, Status: f}, nil
	}

	fontBytes, err := os.ReadFile(path)
	if err != nil {
		return Faces{}, fmt.Errorf("error reading font file: %w", err)
	}
	ttf, err := opentype.Parse(fontBytes)
	if err != nil {
		return Faces{}, fmt.Errorf("error parsing font: %w", err)
	}

	mk := func(size float64) (font.Face, error) {
		return opentype.NewFace(ttf, &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
	}

	var faces Faces
	if faces.Value, err = mk(valuePt); err != nil {
		return Faces{}, err
	}
	if faces.Unit, err = mk(unitPt); err != nil {
		return Faces{}, err
	}
	if faces.Status, err = mk(statusPt); err != nil {
		return Faces{}, err
	}
	return faces, nil
}
