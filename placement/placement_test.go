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

package placement

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestResolveCorner(t *testing.T) {
	str := func(s string) *string { return &s }
	cases := []struct {
		in   *string
		want Corner
	}{
		{nil, BottomRight},
		{str(""), BottomRight},
		{str("not-a-corner"), BottomRight},
		{str("guatemala"), BottomRight},
		{str("Top-Left"), BottomRight},
		{str("top-left"), TopLeft},
		{str("top-right"), TopRight},
		{str("bottom-left"), BottomLeft},
		{str("bottom-right"), BottomRight},
	}
	for _, c := range cases {
		if got := ResolveCorner(c.in, DefaultCorner); got != c.want {
			t.Errorf("ResolveCorner(%v) = %s, want %s", c.in, got, c.want)
		}
	}

	if got := ResolveCorner(str("sideways"), TopLeft); got != TopLeft {
		t.Errorf("fallback ignored, got %s", got)
	}
	if got := ResolveCorner(nil, TopRight); got != TopRight {
		t.Errorf("fallback ignored, got %s", got)
	}
	if got := ResolveCorner(str("bottom-left"), TopLeft); got != BottomLeft {
		t.Errorf("valid name overridden by fallback, got %s", got)
	}
}

func TestCornerNames(t *testing.T) {
	for _, c := range []Corner{TopLeft, TopRight, BottomLeft, BottomRight} {
		c2, ok := ParseCorner(c.String())
		if !ok || c2 != c {
			t.Errorf("%s does not round-trip", c)
		}
	}
	if s := Corner(17).String(); s != "placement.Corner(17)" {
		t.Errorf("unexpected name %q", s)
	}
}

func TestRect(t *testing.T) {
	const w, h = 612, 792
	cases := []struct {
		corner Corner
		want   Rectangle
	}{
		{TopLeft, Rectangle{3, 3, 69, 69}},
		{TopRight, Rectangle{543, 3, 609, 69}},
		{BottomLeft, Rectangle{3, 723, 69, 789}},
		{BottomRight, Rectangle{543, 723, 609, 789}},
	}
	for _, c := range cases {
		got := Rect(w, h, c.corner)
		if d := cmp.Diff(c.want, got); d != "" {
			t.Errorf("%s (-want +got):\n%s", c.corner, d)
		}
		if got.Dx() != Side || got.Dy() != Side {
			t.Errorf("%s: not a %dx%d square", c.corner, Side, Side)
		}
	}
}

func TestRectDistinct(t *testing.T) {
	seen := map[Rectangle]Corner{}
	for _, c := range []Corner{TopLeft, TopRight, BottomLeft, BottomRight} {
		r := Rect(300, 400, c)
		if other, dup := seen[r]; dup {
			t.Errorf("%s and %s give the same rectangle", c, other)
		}
		seen[r] = c
	}
}

func TestToPDF(t *testing.T) {
	r := Rect(612, 792, TopLeft)
	x0, y0, x1, y1 := r.ToPDF(0, 0, 792)
	got := []float64{x0, y0, x1, y1}
	want := []float64{3, 723, 69, 789}
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("top-left (-want +got):\n%s", d)
	}

	r = Rect(612, 792, BottomRight)
	x0, y0, x1, y1 = r.ToPDF(10, 20, 792)
	got = []float64{x0, y0, x1, y1}
	want = []float64{553, 23, 619, 89}
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("bottom-right (-want +got):\n%s", d)
	}
}

func TestMarginsOK(t *testing.T) {
	cases := []struct {
		pages []PageSize
		want  bool
	}{
		{nil, false},
		{[]PageSize{{612, 792}}, true},
		{[]PageSize{{145, 200}}, true},
		{[]PageSize{{144.9, 200}}, false}, // rounds down to the limit
		{[]PageSize{{144, 200}}, false},
		{[]PageSize{{200, 144}}, false},
		{[]PageSize{{100, 200}}, false},
		{[]PageSize{{612, 792}, {612, 100}}, false},
		{[]PageSize{{612, 792}, {842, 595}}, true},
	}
	for _, c := range cases {
		if got := MarginsOK(c.pages); got != c.want {
			t.Errorf("MarginsOK(%v) = %t, want %t", c.pages, got, c.want)
		}
	}
}
