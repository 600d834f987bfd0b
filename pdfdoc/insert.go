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

package pdfdoc

import (
	"fmt"
	"image"
	"io"
	"strconv"

	"golang.org/x/exp/maps"
	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/pagetree"

	"seehuhn.de/go/pdfmark/placement"
)

// InsertImage draws img on the given page, filling the rectangle rect.
// The image is stored losslessly, so that the exact pixel values can be
// recovered by [Document.FirstPageImages].
//
// The existing page content is wrapped in a q/Q pair, so that changes to
// the graphics state made by the page cannot affect the position of the
// new image.
func (d *Document) InsertImage(pageNo int, rect placement.Rectangle, img image.Image) error {
	refs, err := pagetree.FindPages(d.data)
	if err != nil {
		return err
	}
	if pageNo < 0 || pageNo >= len(refs) || refs[pageNo] == 0 {
		return fmt.Errorf("pdfdoc: cannot modify page %d", pageNo+1)
	}
	pageRef := refs[pageNo]

	box, err := d.mediaBox(pageNo)
	if err != nil {
		return err
	}
	inherited, err := pagetree.GetPage(d.data, pageNo)
	if err != nil {
		return err
	}
	pageDict, err := pdf.GetDict(d.data, pageRef)
	if err != nil {
		return err
	}
	page := maps.Clone(pageDict)

	// resources
	res, err := pdf.GetDict(d.data, inherited["Resources"])
	if err != nil {
		return err
	}
	res = maps.Clone(res)
	if res == nil {
		res = pdf.Dict{}
	}
	xobjects, err := pdf.GetDict(d.data, res["XObject"])
	if err != nil {
		return err
	}
	xobjects = maps.Clone(xobjects)
	if xobjects == nil {
		xobjects = pdf.Dict{}
	}
	name := freshName(xobjects, "Mark")

	imgRef := d.data.Alloc()
	err = embedImage(d.data, imgRef, img)
	if err != nil {
		return err
	}
	xobjects[name] = imgRef
	res["XObject"] = xobjects
	page["Resources"] = res

	// content streams
	x0, y0, x1, y1 := rect.ToPDF(box.LLx, box.LLy, box.URy-box.LLy)
	pre := "q\n"
	post := "Q\nq\n" +
		formatNum(x1-x0) + " 0 0 " + formatNum(y1-y0) + " " +
		formatNum(x0) + " " + formatNum(y0) + " cm\n" +
		"/" + string(name) + " Do\nQ\n"

	old, err := d.contentRefs(page["Contents"])
	if err != nil {
		return err
	}
	preRef, err := d.writeContent(pre)
	if err != nil {
		return err
	}
	postRef, err := d.writeContent(post)
	if err != nil {
		return err
	}
	contents := pdf.Array{preRef}
	contents = append(contents, old...)
	contents = append(contents, postRef)
	page["Contents"] = contents

	// Put refuses to replace an existing object.
	err = d.data.Put(pageRef, nil)
	if err != nil {
		return err
	}
	return d.data.Put(pageRef, page)
}

// contentRefs returns the elements of a page's /Contents entry as an array.
func (d *Document) contentRefs(obj pdf.Object) (pdf.Array, error) {
	if obj == nil {
		return nil, nil
	}
	resolved, err := pdf.Resolve(d.data, obj)
	if err != nil {
		return nil, err
	}
	switch resolved := resolved.(type) {
	case pdf.Array:
		return append(pdf.Array{}, resolved...), nil
	case *pdf.Stream:
		return pdf.Array{obj}, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("pdfdoc: invalid /Contents of type %T", resolved)
	}
}

func (d *Document) writeContent(s string) (pdf.Reference, error) {
	ref := d.data.Alloc()
	w, err := d.data.OpenStream(ref, nil, pdf.FilterFlate{})
	if err != nil {
		return 0, err
	}
	_, err = io.WriteString(w, s)
	if err != nil {
		return 0, err
	}
	err = w.Close()
	if err != nil {
		return 0, err
	}
	return ref, nil
}

// embedImage writes src as an image XObject, using lossless compression.
// Transparency is ignored.
func embedImage(w *pdf.Data, ref pdf.Reference, src image.Image) error {
	b := src.Bounds()
	width := b.Dx()
	height := b.Dy()

	stream, err := w.OpenStream(ref, pdf.Dict{
		"Type":             pdf.Name("XObject"),
		"Subtype":          pdf.Name("Image"),
		"Width":            pdf.Integer(width),
		"Height":           pdf.Integer(height),
		"ColorSpace":       pdf.Name("DeviceRGB"),
		"BitsPerComponent": pdf.Integer(8),
	}, pdf.FilterFlate{})
	if err != nil {
		return err
	}

	row := make([]byte, 3*width)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			var r, g, bb uint8
			if nrgba, ok := src.(*image.NRGBA); ok {
				c := nrgba.NRGBAAt(x, y)
				r, g, bb = c.R, c.G, c.B
			} else {
				r32, g32, b32, _ := src.At(x, y).RGBA()
				r, g, bb = uint8(r32>>8), uint8(g32>>8), uint8(b32>>8)
			}
			k := 3 * (x - b.Min.X)
			row[k], row[k+1], row[k+2] = r, g, bb
		}
		_, err = stream.Write(row)
		if err != nil {
			return err
		}
	}

	return stream.Close()
}

func freshName(dict pdf.Dict, prefix string) pdf.Name {
	for i := 0; ; i++ {
		name := pdf.Name(prefix + strconv.Itoa(i))
		if _, used := dict[name]; !used {
			return name
		}
	}
}

func formatNum(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
