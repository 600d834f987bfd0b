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
	"image"
	"strings"
	"testing"
	"time"

	"seehuhn.de/go/pdfmark/bitstream"
)

var signedAt = time.Date(2026, time.March, 7, 15, 4, 5, 0, time.UTC)

func TestComposeMessage(t *testing.T) {
	got := ComposeMessage("Jane Doe", signedAt)
	want := "This document was signed using 3-sys API on March 7, 2026 and is owned by Jane Doe"
	if got != want {
		t.Errorf("got %q\nwant %q", got, want)
	}
}

func TestComposeMessageTerminator(t *testing.T) {
	cases := map[string]string{
		"ACME //3.sys// Legal": "ACME / /3.sys/ / Legal",
		"abc//3.sys/":          "abc/ /3.sys/",
		"a///b":                "a/ / /b",
		"R&D / Legal":          "R&D / Legal",
	}
	for author, want := range cases {
		msg := ComposeMessage(author, signedAt)
		if !strings.HasSuffix(msg, " by "+want) {
			t.Errorf("%q: got %q", author, msg)
		}
		if i := strings.Index(msg+bitstream.Terminator, bitstream.Terminator); i != len(msg) {
			t.Errorf("%q: terminator found at %d in %q", author, i, msg)
		}

		c, err := Build(author, signedAt)
		if err != nil {
			t.Fatal(err)
		}
		hidden, ok := ReadHidden(c.Image)
		if !ok || hidden != msg {
			t.Errorf("%q: hidden message %q, want %q", author, hidden, msg)
		}
	}
}

func TestASCIIFold(t *testing.T) {
	cases := map[string]string{
		"":              "",
		"plain":         "plain",
		"Jürgen Müller": "Jurgen Muller",
		"Zoë\tCrête":    "Zoe?Crete",
		"東京":            "??",
	}
	for in, want := range cases {
		if got := ASCIIFold(in); got != want {
			t.Errorf("ASCIIFold(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBuild(t *testing.T) {
	c, err := Build("Jane Doe", signedAt)
	if err != nil {
		t.Fatal(err)
	}
	if c.Message != ComposeMessage("Jane Doe", signedAt) {
		t.Errorf("unexpected message %q", c.Message)
	}

	b := c.Image.Bounds()
	if b.Dx() != b.Dy() {
		t.Errorf("carrier is not square: %v", b)
	}

	hidden, ok := ReadHidden(c.Image)
	if !ok {
		t.Fatal("no hidden message found")
	}
	if hidden != c.Message {
		t.Errorf("hidden message %q, want %q", hidden, c.Message)
	}
}

func TestBuildIsReadableSymbol(t *testing.T) {
	c, err := Build("Jane Doe", signedAt)
	if err != nil {
		t.Fatal(err)
	}
	syms, err := DecodeSymbols(c.Image)
	if err != nil {
		t.Fatal(err)
	}
	if len(syms) != 1 {
		t.Fatalf("found %d symbols, want 1", len(syms))
	}
	if syms[0].Payload != c.Message {
		t.Errorf("payload %q, want %q", syms[0].Payload, c.Message)
	}
}

func TestRenderCaption(t *testing.T) {
	style := DefaultStyle
	plain, err := Render("hello", style)
	if err != nil {
		t.Fatal(err)
	}
	style.Caption = "3-sys"
	captioned, err := Render("hello", style)
	if err != nil {
		t.Fatal(err)
	}
	if captioned.Bounds().Dx() != plain.Bounds().Dx() {
		t.Error("caption changed the width")
	}
	if captioned.Bounds().Dy() <= plain.Bounds().Dy() {
		t.Error("caption did not add space below the symbol")
	}

	// The caption must put some dark pixels below the symbol.
	dark := 0
	for y := plain.Bounds().Dy(); y < captioned.Bounds().Dy(); y++ {
		for x := 0; x < captioned.Bounds().Dx(); x++ {
			if captioned.NRGBAAt(x, y).R < 128 {
				dark++
			}
		}
	}
	if dark == 0 {
		t.Error("caption is not visible")
	}
}

func TestRenderInvalidStyle(t *testing.T) {
	_, err := Render("x", Style{})
	if err == nil {
		t.Error("expected an error for module size 0")
	}
}

func TestDecodeSymbolsNoSymbol(t *testing.T) {
	blank := image.NewGray(image.Rect(0, 0, 50, 50))
	for i := range blank.Pix {
		blank.Pix[i] = 0xff
	}
	images := []image.Image{
		image.NewNRGBA(image.Rect(0, 0, 0, 0)),
		blank,
	}
	for _, img := range images {
		syms, err := DecodeSymbols(img)
		if err != nil {
			t.Errorf("%v: %v", img.Bounds(), err)
		}
		if len(syms) != 0 {
			t.Errorf("%v: found %d symbols", img.Bounds(), len(syms))
		}
		if IsSymbol(img) {
			t.Errorf("%v: IsSymbol returned true", img.Bounds())
		}
	}
}
