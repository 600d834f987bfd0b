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

package carrier

import (
	"fmt"
	"image"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/datamatrix"

	"seehuhn.de/go/pdfmark/steg"
)

// Symbol is a Data Matrix symbol found in an image.
type Symbol struct {
	// Payload is the text encoded in the symbol.
	Payload string

	// Region lists the corner points of the symbol, in pixel coordinates.
	Region []image.Point
}

// DecodeSymbols looks for a Data Matrix symbol in img.
// The result is empty if no readable symbol is found.
func DecodeSymbols(img image.Image) ([]Symbol, error) {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, nil
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil, fmt.Errorf("carrier: cannot binarize image: %w", err)
	}

	reader := datamatrix.NewDataMatrixReader()
	result, err := reader.Decode(bmp, nil)
	if err != nil {
		// The detector looks for the symbol's white surroundings.
		// Images consisting of nothing but the symbol need the pure
		// barcode mode.
		pure := map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_PURE_BARCODE: true,
		}
		result, err = reader.Decode(bmp, pure)
		if err != nil {
			return nil, nil
		}
	}

	sym := Symbol{Payload: result.GetText()}
	for _, p := range result.GetResultPoints() {
		sym.Region = append(sym.Region, image.Pt(b.Min.X+int(p.GetX()), b.Min.Y+int(p.GetY())))
	}
	return []Symbol{sym}, nil
}

// IsSymbol reports whether img contains a readable Data Matrix symbol.
func IsSymbol(img image.Image) bool {
	syms, err := DecodeSymbols(img)
	return err == nil && len(syms) > 0
}

// ReadHidden returns the message hidden in a carrier image.  The second
// return value is false if the image carries no watermark.
func ReadHidden(img image.Image) (string, bool) {
	return steg.Extract(img)
}
