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

// Package placement computes where a carrier image is placed on a page.
//
// All rectangles in this package use page coordinates with the origin in the
// top-left corner of the page and the y-axis pointing down.  Use
// [Rectangle.ToPDF] to convert to PDF user space.
package placement

import (
	"fmt"
	"math"
)

const (
	// PointsPerInch is the resolution of PDF user space.
	PointsPerInch = 72

	// Allowance is the gap between the carrier image and the page edges.
	Allowance = 3

	// Side is the side length of the square carrier image.
	Side = PointsPerInch - 2*Allowance

	// MinPageSize is the exclusive lower limit for page width and height.
	MinPageSize = 2 * PointsPerInch
)

// Corner selects one of the four page corners.
type Corner int

// The supported corners.
const (
	BottomRight Corner = iota
	BottomLeft
	TopRight
	TopLeft
)

// DefaultCorner is used whenever no valid corner was requested.
const DefaultCorner = BottomRight

var cornerNames = map[Corner]string{
	TopLeft:     "top-left",
	TopRight:    "top-right",
	BottomLeft:  "bottom-left",
	BottomRight: "bottom-right",
}

func (c Corner) String() string {
	if name, ok := cornerNames[c]; ok {
		return name
	}
	return fmt.Sprintf("placement.Corner(%d)", int(c))
}

// ParseCorner converts a corner name like "top-left" to a Corner.
// The second return value is false if the name is not recognised.
func ParseCorner(s string) (Corner, bool) {
	for c, name := range cornerNames {
		if name == s {
			return c, true
		}
	}
	return 0, false
}

// ResolveCorner returns the corner named by s.  If s is nil or does not
// name a valid corner, fallback is returned.
func ResolveCorner(s *string, fallback Corner) Corner {
	if s != nil {
		if c, ok := ParseCorner(*s); ok {
			return c
		}
	}
	return fallback
}

// Rectangle is an axis-aligned rectangle in top-left page coordinates.
type Rectangle struct {
	X0, Y0, X1, Y1 float64
}

// Dx returns the width of the rectangle.
func (r Rectangle) Dx() float64 { return r.X1 - r.X0 }

// Dy returns the height of the rectangle.
func (r Rectangle) Dy() float64 { return r.Y1 - r.Y0 }

// ToPDF converts the rectangle to PDF user space, for a page whose media
// box has lower-left corner (llx, lly) and the given height.
// The result is returned as lower-left and upper-right coordinates.
func (r Rectangle) ToPDF(llx, lly, pageHeight float64) (x0, y0, x1, y1 float64) {
	x0 = llx + r.X0
	x1 = llx + r.X1
	y0 = lly + pageHeight - r.Y1
	y1 = lly + pageHeight - r.Y0
	return
}

func (r Rectangle) String() string {
	return fmt.Sprintf("[%.2f %.2f %.2f %.2f]", r.X0, r.Y0, r.X1, r.Y1)
}

// Rect returns the square where the carrier image is placed on a page of
// the given size.  The square has side length [Side] and is inset by
// [Allowance] from the page edges adjacent to the corner.
func Rect(pageWidth, pageHeight float64, c Corner) Rectangle {
	switch c {
	case TopLeft:
		return Rectangle{
			X0: Allowance,
			Y0: Allowance,
			X1: Allowance + Side,
			Y1: Allowance + Side,
		}
	case TopRight:
		return Rectangle{
			X0: pageWidth - Side - Allowance,
			Y0: Allowance,
			X1: pageWidth - Allowance,
			Y1: Allowance + Side,
		}
	case BottomLeft:
		return Rectangle{
			X0: Allowance,
			Y0: pageHeight - Side - Allowance,
			X1: Allowance + Side,
			Y1: pageHeight - Allowance,
		}
	default:
		return Rectangle{
			X0: pageWidth - Side - Allowance,
			Y0: pageHeight - Side - Allowance,
			X1: pageWidth - Allowance,
			Y1: pageHeight - Allowance,
		}
	}
}

// PageSize gives the dimensions of a page in PDF points.
type PageSize struct {
	Width, Height float64
}

// MarginsOK reports whether a document with the given page sizes can
// receive a carrier image.  Every page, after rounding down, must be
// strictly larger than [MinPageSize] in both directions.  A document
// without pages fails the check.
func MarginsOK(pages []PageSize) bool {
	if len(pages) == 0 {
		return false
	}
	for _, p := range pages {
		if math.Floor(p.Width) <= MinPageSize || math.Floor(p.Height) <= MinPageSize {
			return false
		}
	}
	return true
}
