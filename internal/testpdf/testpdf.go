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

// Package testpdf generates small PDF files for use in tests.
package testpdf

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"time"

	"seehuhn.de/go/pdf"
)

// Letter is the size of a US letter page in PDF points.
var Letter = [2]float64{612, 792}

// File describes a PDF file to generate.
type File struct {
	// Pages lists the width and height of every page.  If empty, a
	// single letter-sized page is used.
	Pages [][2]float64

	Author   string
	Created  time.Time
	Modified time.Time

	// Images are placed on the first page, in order, as lossless RGB
	// images.
	Images []image.Image

	// Content, if non-empty, is used as the content stream of the first
	// page.
	Content string
}

// Build returns the encoded PDF file.
func Build(f *File) ([]byte, error) {
	pages := f.Pages
	if len(pages) == 0 {
		pages = [][2]float64{Letter}
	}

	data := pdf.NewData(pdf.V1_7)
	pagesRef := data.Alloc()

	var kids pdf.Array
	for i, size := range pages {
		pageRef := data.Alloc()
		page := pdf.Dict{
			"Type":     pdf.Name("Page"),
			"Parent":   pagesRef,
			"MediaBox": pdf.Array{pdf.Integer(0), pdf.Integer(0), pdf.Real(size[0]), pdf.Real(size[1])},
		}

		xobjects := pdf.Dict{}
		content := ""
		if i == 0 {
			for k, img := range f.Images {
				ref := data.Alloc()
				err := writeImage(data, ref, img)
				if err != nil {
					return nil, err
				}
				name := pdf.Name(fmt.Sprintf("Im%d", k))
				xobjects[name] = ref
				content += fmt.Sprintf("q 50 0 0 50 %d 100 cm /%s Do Q\n", 100+60*k, name)
			}
			if f.Content != "" {
				content = f.Content + "\n" + content
			}
		}
		page["Resources"] = pdf.Dict{"XObject": xobjects}
		if content != "" {
			ref := data.Alloc()
			w, err := data.OpenStream(ref, nil)
			if err != nil {
				return nil, err
			}
			_, err = io.WriteString(w, content)
			if err != nil {
				return nil, err
			}
			err = w.Close()
			if err != nil {
				return nil, err
			}
			page["Contents"] = ref
		}

		err := data.Put(pageRef, page)
		if err != nil {
			return nil, err
		}
		kids = append(kids, pageRef)
	}

	err := data.Put(pagesRef, pdf.Dict{
		"Type":  pdf.Name("Pages"),
		"Kids":  kids,
		"Count": pdf.Integer(len(kids)),
	})
	if err != nil {
		return nil, err
	}

	meta := data.GetMeta()
	meta.Catalog.Pages = pagesRef
	meta.Info = &pdf.Info{
		Author:       f.Author,
		CreationDate: f.Created,
		ModDate:      f.Modified,
		Producer:     "seehuhn.de/go/pdfmark/internal/testpdf",
	}

	buf := &bytes.Buffer{}
	err = data.Write(buf)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeImage(data *pdf.Data, ref pdf.Reference, img image.Image) error {
	b := img.Bounds()
	w, err := data.OpenStream(ref, pdf.Dict{
		"Type":             pdf.Name("XObject"),
		"Subtype":          pdf.Name("Image"),
		"Width":            pdf.Integer(b.Dx()),
		"Height":           pdf.Integer(b.Dy()),
		"ColorSpace":       pdf.Name("DeviceRGB"),
		"BitsPerComponent": pdf.Integer(8),
	}, pdf.FilterFlate{})
	if err != nil {
		return err
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			_, err = w.Write([]byte{byte(r >> 8), byte(g >> 8), byte(bl >> 8)})
			if err != nil {
				return err
			}
		}
	}
	return w.Close()
}
