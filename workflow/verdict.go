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

package workflow

import "fmt"

// Verdict is the outcome of verifying a document.
type Verdict int

// These are the possible verdicts.
const (
	// Unsigned means that the document carries no recognisable watermark,
	// or that the watermark is not known to the store.
	Unsigned Verdict = iota

	// AlreadySigned is reported when signing a document which has been
	// signed before.
	AlreadySigned

	// Authentic means that the watermark is known and that the document
	// metadata is unchanged since signing.
	Authentic

	// Modified means that the metadata changed after signing, or that the
	// first page carries more than one symbol.
	Modified

	// Ambiguous is reserved for a policy which reports multiple symbols
	// separately.  It is not currently produced.
	Ambiguous
)

var verdictNames = []string{
	Unsigned:      "unsigned",
	AlreadySigned: "already-signed",
	Authentic:     "authentic",
	Modified:      "modified",
	Ambiguous:     "ambiguous",
}

func (v Verdict) String() string {
	if v >= 0 && int(v) < len(verdictNames) {
		return verdictNames[v]
	}
	return fmt.Sprintf("workflow.Verdict(%d)", int(v))
}

// MarshalText implements [encoding.TextMarshaler].
func (v Verdict) MarshalText() ([]byte, error) {
	if v < 0 || int(v) >= len(verdictNames) {
		return nil, fmt.Errorf("workflow: invalid verdict %d", int(v))
	}
	return []byte(verdictNames[v]), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (v *Verdict) UnmarshalText(text []byte) error {
	for i, name := range verdictNames {
		if name == string(text) {
			*v = Verdict(i)
			return nil
		}
	}
	return fmt.Errorf("workflow: unknown verdict %q", text)
}
