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

// Pdfmark signs PDF files with a hidden watermark and verifies signed
// files.
//
// Usage:
//
//	pdfmark sign [-o out.pdf] [--location corner] in.pdf
//	pdfmark verify [--json] in.pdf
//	pdfmark inspect in.pdf
//	pdfmark serve
//	pdfmark version
//
// Records of signed documents are kept in memory by default, which is
// only useful for the server.  Use --store postgres together with --dsn
// to keep them in a database.
package main

import (
	"fmt"
	"os"
)

func main() {
	err := newRootCmd().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "pdfmark:", err)
		os.Exit(1)
	}
}
