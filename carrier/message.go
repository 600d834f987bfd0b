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
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DateLayout is the format of the signing date in secret messages.
const DateLayout = "January 2, 2006"

// ComposeMessage returns the secret message for a document owned by author
// and signed at the given time.
//
// The author name is folded to ASCII and every "//" in it is split by a
// space.  Since the terminator starts with "//", the message then cannot
// contain it, and extraction stops exactly at the end of the message.
func ComposeMessage(author string, signedAt time.Time) string {
	return fmt.Sprintf("This document was signed using 3-sys API on %s and is owned by %s",
		signedAt.Format(DateLayout), splitSlashes(ASCIIFold(author)))
}

func splitSlashes(s string) string {
	for strings.Contains(s, "//") {
		s = strings.ReplaceAll(s, "//", "/ /")
	}
	return s
}

// ASCIIFold maps s to printable 7-bit ASCII.  Accents are removed where
// possible, all other non-ASCII characters and control characters are
// replaced by '?'.
func ASCIIFold(s string) string {
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
		runes.Map(asciiOnly))
	res, _, err := transform.String(t, s)
	if err != nil {
		return strings.Map(asciiOnly, s)
	}
	return res
}

func asciiOnly(r rune) rune {
	if r > unicode.MaxASCII || unicode.IsControl(r) {
		return '?'
	}
	return r
}
