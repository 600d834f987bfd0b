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

// Package steg hides text messages in the least significant bits of the red
// channel of an image.
//
// Pixels are visited in column-major order: all rows of column 0 first, then
// all rows of column 1, and so on.  Each visited pixel stores [ChunkSize]
// bits of the message encoded by [bitstream.Encode].  Green, blue and alpha
// are never changed.
package steg

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"strings"

	"seehuhn.de/go/pdfmark/bitstream"
)

// ChunkSize is the number of low-order bits of the red channel used per
// pixel.
const ChunkSize = 2

// ErrCapacity is returned (wrapped in a [*CapacityError]) when a message
// does not fit into an image.
var ErrCapacity = errors.New("message exceeds image capacity")

// ErrTerminator is returned by [Embed] if the secret would be cut short
// on extraction because it contains the terminator, or ends with a prefix
// of it.
var ErrTerminator = errors.New("message contains the terminator")

// CapacityError gives details about a message which is too long for an
// image.
type CapacityError struct {
	Need, Have int // in bits
}

func (err *CapacityError) Error() string {
	return fmt.Sprintf("steg: message needs %d bits, image holds %d", err.Need, err.Have)
}

// Unwrap allows errors.Is(err, ErrCapacity).
func (err *CapacityError) Unwrap() error {
	return ErrCapacity
}

// Capacity returns the number of message bits which can be hidden in img,
// including the terminator.
func Capacity(img image.Image) int {
	b := img.Bounds()
	return b.Dx() * b.Dy() * ChunkSize
}

// Embed returns a copy of img with secret hidden in the red channel.
// The original image is not modified.
//
// If the encoded message, including the terminator, does not fit into the
// image, no data is embedded and a [*CapacityError] is returned.
func Embed(img image.Image, secret string) (*image.NRGBA, error) {
	if strings.Index(secret+bitstream.Terminator, bitstream.Terminator) != len(secret) {
		return nil, ErrTerminator
	}
	bits := bitstream.Encode(secret)
	if need, have := len(bits), Capacity(img); need > have {
		return nil, &CapacityError{Need: need, Have: have}
	}
	chunks := bitstream.Chunk(bits, ChunkSize)

	res := toNRGBA(img)
	width := res.Rect.Dx()
	height := res.Rect.Dy()

	k := 0
	for x := 0; x < width && k < len(chunks); x++ {
		for y := 0; y < height && k < len(chunks); y++ {
			chunk := chunks[k]
			k++

			mask := byte(1<<len(chunk)) - 1
			var val byte
			for _, d := range chunk {
				val <<= 1
				if d == '1' {
					val |= 1
				}
			}

			i := res.PixOffset(res.Rect.Min.X+x, res.Rect.Min.Y+y)
			res.Pix[i] = res.Pix[i]&^mask | val
		}
	}

	return res, nil
}

// Extract reads the hidden message from img.
//
// The second return value is false if the image does not contain the
// terminator.  This is the normal outcome for images which were never
// processed by [Embed].
func Extract(img image.Image) (string, bool) {
	src := toNRGBA(img)
	width := src.Rect.Dx()
	height := src.Rect.Dy()

	var bits strings.Builder
	bits.Grow(width * height * ChunkSize)
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			r := src.Pix[src.PixOffset(src.Rect.Min.X+x, src.Rect.Min.Y+y)]
			for bit := ChunkSize - 1; bit >= 0; bit-- {
				if r&(1<<bit) != 0 {
					bits.WriteByte('1')
				} else {
					bits.WriteByte('0')
				}
			}
		}
	}

	msg := bitstream.Decode(bits.String())
	idx := strings.Index(msg, bitstream.Terminator)
	if idx < 0 {
		return "", false
	}
	return msg[:idx], true
}

// toNRGBA returns a fresh copy of img in NRGBA format.
func toNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	res := image.NewNRGBA(b)
	if src, ok := img.(*image.NRGBA); ok {
		// copy the samples directly, so that partially transparent pixels
		// keep their exact red values
		for y := b.Min.Y; y < b.Max.Y; y++ {
			copy(res.Pix[res.PixOffset(b.Min.X, y):res.PixOffset(b.Max.X, y)],
				src.Pix[src.PixOffset(b.Min.X, y):src.PixOffset(b.Max.X, y)])
		}
		return res
	}
	draw.Draw(res, b, img, b.Min, draw.Src)
	return res
}
