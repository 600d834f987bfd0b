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

// Package pdfdoc provides the PDF operations needed for watermarking:
// reading document metadata and page geometry, extracting the images of a
// page, and adding an image to a page.
//
// Documents are held in memory in their entirety, using [pdf.Data].
package pdfdoc

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/pagetree"

	"seehuhn.de/go/pdfmark/placement"
)

// FormatError is returned by [Open] if the data cannot be parsed as a PDF
// file.
type FormatError struct {
	Err error
}

func (err *FormatError) Error() string {
	return "pdfdoc: not a valid PDF file: " + err.Err.Error()
}

func (err *FormatError) Unwrap() error {
	return err.Err
}

// Metadata is the part of the document information dictionary used to
// identify a document.
type Metadata struct {
	Author   string
	Created  time.Time
	Modified time.Time
}

// Document is a PDF document loaded into memory.
type Document struct {
	data *pdf.Data
}

// Open parses a PDF file.
func Open(raw []byte) (*Document, error) {
	if len(raw) == 0 {
		return nil, &FormatError{Err: errors.New("empty file")}
	}
	data, err := pdf.Read(bytes.NewReader(raw), nil)
	if err != nil {
		return nil, &FormatError{Err: err}
	}
	if data.GetMeta().Catalog == nil || data.GetMeta().Catalog.Pages == 0 {
		return nil, &FormatError{Err: errors.New("missing page tree")}
	}
	return &Document{data: data}, nil
}

// Metadata returns the author, creation date and modification date of the
// document.  Missing entries are returned as zero values.  Times are
// converted to UTC and truncated to whole seconds, the resolution of PDF
// date strings.
func (d *Document) Metadata() Metadata {
	info := d.data.GetMeta().Info
	if info == nil {
		return Metadata{}
	}
	return Metadata{
		Author:   info.Author,
		Created:  normalizeTime(info.CreationDate),
		Modified: normalizeTime(info.ModDate),
	}
}

func normalizeTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return t.UTC().Truncate(time.Second)
}

// PageCount returns the number of pages in the document.
func (d *Document) PageCount() (int, error) {
	return pagetree.NumPages(d.data)
}

// PageSizes returns the media box dimensions of all pages.
func (d *Document) PageSizes() ([]placement.PageSize, error) {
	n, err := d.PageCount()
	if err != nil {
		return nil, err
	}
	res := make([]placement.PageSize, 0, n)
	for i := 0; i < n; i++ {
		box, err := d.mediaBox(i)
		if err != nil {
			return nil, err
		}
		res = append(res, placement.PageSize{
			Width:  box.URx - box.LLx,
			Height: box.URy - box.LLy,
		})
	}
	return res, nil
}

func (d *Document) mediaBox(pageNo int) (*pdf.Rectangle, error) {
	page, err := pagetree.GetPage(d.data, pageNo)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", pageNo+1, err)
	}
	box, err := pdf.GetRectangle(d.data, page["MediaBox"])
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", pageNo+1, err)
	}
	if box == nil {
		return nil, fmt.Errorf("page %d: missing media box", pageNo+1)
	}
	return box, nil
}

// Bytes serializes the document, including all changes made by
// [Document.InsertImage].
func (d *Document) Bytes() ([]byte, error) {
	buf := &bytes.Buffer{}
	err := d.data.Write(buf)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
