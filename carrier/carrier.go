// seehuhn.de/go/pdfmark - tamper-evident watermarks for PDF files
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package carrier builds and reads the carrier barcodes used as watermarks.
//
// A carrier is a Data Matrix symbol whose pixels additionally hide the
// secret message in the least significant bits of the red channel (see
// package [seehuhn.de/go/pdfmark/steg]).  The symbol payload is readable by
// any barcode scanner; verification only ever uses the hidden copy.
package carrier

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/datamatrix"
	dmencoder "github.com/makiuchi-d/gozxing/datamatrix/encoder"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"seehuhn.de/go/pdfmark/steg"
)

// Style controls the appearance of a rendered symbol.
type Style struct {
	// ModuleSize is the side length of one Data Matrix module in pixels.
	ModuleSize int

	// Padding is the width of the quiet zone around the symbol, in modules.
	Padding int

	// Background is the colour of the quiet zone and of light modules.
	Background color.NRGBA

	// Foreground is the colour of dark modules and of the caption.
	Foreground color.NRGBA

	// Caption, if non-empty, is drawn centered below the symbol.
	Caption string
}

// DefaultStyle is used by [Build]: a white quiet zone of two modules and
// no caption.
var DefaultStyle = Style{
	ModuleSize: 4,
	Padding:    2,
	Background: color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
	Foreground: color.NRGBA{A: 0xff},
}

// Carrier is a rendered symbol with a hidden message.
type Carrier struct {
	// Message is the secret message, both as symbol payload and hidden in
	// the red channel.  The terminator is not included.
	Message string

	// Image is the final carrier image.
	Image *image.NRGBA
}

// Build composes the secret message for a document, renders it as a Data
// Matrix symbol and hides the same message in the symbol's pixels.
func Build(author string, signedAt time.Time) (*Carrier, error) {
	msg := ComposeMessage(author, signedAt)

	img, err := Render(msg, DefaultStyle)
	if err != nil {
		return nil, err
	}

	marked, err := steg.Embed(img, msg)
	if err != nil {
		return nil, err
	}

	return &Carrier{
		Message: msg,
		Image:   marked,
	}, nil
}

// Render draws text as a square Data Matrix symbol.
func Render(text string, style Style) (*image.NRGBA, error) {
	if style.ModuleSize < 1 {
		return nil, errors.New("carrier: invalid module size")
	}

	hints := map[gozxing.EncodeHintType]interface{}{
		gozxing.EncodeHintType_DATA_MATRIX_SHAPE: dmencoder.SymbolShapeHint_FORCE_SQUARE,
	}
	// width and height 0 give one pixel per module
	bm, err := datamatrix.NewDataMatrixWriter().Encode(text, gozxing.BarcodeFormat_DATA_MATRIX, 0, 0, hints)
	if err != nil {
		return nil, fmt.Errorf("carrier: cannot encode symbol: %w", err)
	}

	modules := bm.GetWidth()
	pad := style.Padding * style.ModuleSize
	side := modules*style.ModuleSize + 2*pad

	var captionHeight int
	face := basicfont.Face7x13
	if style.Caption != "" {
		captionHeight = face.Metrics().Height.Ceil() + pad
	}

	img := image.NewNRGBA(image.Rect(0, 0, side, side+captionHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(style.Background), image.Point{}, draw.Src)

	symbol := image.NewNRGBA(image.Rect(0, 0, modules, bm.GetHeight()))
	for y := 0; y < bm.GetHeight(); y++ {
		for x := 0; x < modules; x++ {
			c := style.Background
			if bm.Get(x, y) {
				c = style.Foreground
			}
			symbol.SetNRGBA(x, y, c)
		}
	}
	dst := image.Rect(pad, pad, side-pad, pad+bm.GetHeight()*style.ModuleSize)
	draw.NearestNeighbor.Scale(img, dst, symbol, symbol.Bounds(), draw.Src, nil)

	if style.Caption != "" {
		d := &font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(style.Foreground),
			Face: face,
		}
		width := d.MeasureString(style.Caption)
		x := (fixed.I(side) - width) / 2
		if x < 0 {
			x = 0
		}
		d.Dot = fixed.Point26_6{
			X: x,
			Y: fixed.I(side + captionHeight - pad/2 - face.Metrics().Descent.Ceil()),
		}
		d.DrawString(style.Caption)
	}

	return img, nil
}
