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
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"slices"

	"golang.org/x/exp/maps"
	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/pagetree"
)

// PageImage is an image XObject found in the resources of a page.
type PageImage struct {
	// Name is the resource name of the image.
	Name pdf.Name

	// Image holds the decoded samples.
	Image image.Image
}

// SkippedImage describes an image XObject which could not be decoded.
type SkippedImage struct {
	Name   pdf.Name
	Reason error
}

// MaxImagePixels is the largest image, in pixels, which is decoded by
// [Document.FirstPageImages].  Larger images are reported as skipped.
const MaxImagePixels = 4 << 20

var (
	errUnsupported = errors.New("unsupported image format")

	// ErrImageTooLarge is the reason given for images with more than
	// [MaxImagePixels] pixels.
	ErrImageTooLarge = errors.New("image too large")
)

// FirstPageImages decodes all images in the resource dictionary of the
// first page, in order of their resource names.  Images in formats which
// cannot be decoded are returned separately.
func (d *Document) FirstPageImages() ([]*PageImage, []SkippedImage, error) {
	page, err := pagetree.GetPage(d.data, 0)
	if err != nil {
		return nil, nil, err
	}
	res, err := pdf.GetDict(d.data, page["Resources"])
	if err != nil {
		return nil, nil, err
	}
	xobjects, err := pdf.GetDict(d.data, res["XObject"])
	if err != nil {
		return nil, nil, err
	}

	var images []*PageImage
	var skipped []SkippedImage
	names := maps.Keys(xobjects)
	slices.Sort(names)
	for _, name := range names {
		stm, err := pdf.GetStream(d.data, xobjects[name])
		if err != nil {
			skipped = append(skipped, SkippedImage{Name: name, Reason: err})
			continue
		}
		if stm == nil {
			continue
		}
		subtype, _ := pdf.GetName(d.data, stm.Dict["Subtype"])
		if subtype != "Image" {
			continue
		}

		img, err := d.decodeImage(stm)
		if err != nil {
			skipped = append(skipped, SkippedImage{Name: name, Reason: err})
			continue
		}
		images = append(images, &PageImage{Name: name, Image: img})
	}
	return images, skipped, nil
}

func (d *Document) decodeImage(stm *pdf.Stream) (image.Image, error) {
	width, err := pdf.GetInteger(d.data, stm.Dict["Width"])
	if err != nil {
		return nil, err
	}
	height, err := pdf.GetInteger(d.data, stm.Dict["Height"])
	if err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", width, height)
	}
	if width > MaxImagePixels/height {
		return nil, fmt.Errorf("%dx%d: %w", width, height, ErrImageTooLarge)
	}

	filters, err := d.filterNames(stm.Dict["Filter"])
	if err != nil {
		return nil, err
	}
	if len(filters) > 0 && filters[len(filters)-1] == "DCTDecode" {
		if len(filters) > 1 {
			return nil, errUnsupported
		}
		// The JPEG header, not the image dictionary, decides how much
		// memory the decoder allocates.
		raw, err := io.ReadAll(stm.R)
		if err != nil {
			return nil, err
		}
		cfg, err := jpeg.DecodeConfig(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		if cfg.Width != int(width) || cfg.Height != int(height) {
			return nil, fmt.Errorf("JPEG size %dx%d does not match %dx%d",
				cfg.Width, cfg.Height, width, height)
		}
		return jpeg.Decode(bytes.NewReader(raw))
	}

	bpc, err := pdf.GetInteger(d.data, stm.Dict["BitsPerComponent"])
	if err != nil {
		return nil, err
	}
	if bpc != 8 {
		return nil, errUnsupported
	}
	comps, err := d.colorComponents(stm.Dict["ColorSpace"])
	if err != nil {
		return nil, err
	}

	body, err := pdf.DecodeStream(d.data, stm, 0)
	if err != nil {
		return nil, err
	}

	w, h := int(width), int(height)
	samples := make([]byte, w*h*comps)
	_, err = io.ReadFull(body, samples)
	if err != nil {
		return nil, err
	}

	switch comps {
	case 1:
		img := image.NewGray(image.Rect(0, 0, w, h))
		copy(img.Pix, samples)
		return img, nil
	default:
		img := image.NewNRGBA(image.Rect(0, 0, w, h))
		for i := 0; i < w*h; i++ {
			copy(img.Pix[4*i:4*i+3], samples[3*i:3*i+3])
			img.Pix[4*i+3] = 0xff
		}
		return img, nil
	}
}

func (d *Document) filterNames(obj pdf.Object) ([]pdf.Name, error) {
	obj, err := pdf.Resolve(d.data, obj)
	if err != nil {
		return nil, err
	}
	switch obj := obj.(type) {
	case nil:
		return nil, nil
	case pdf.Name:
		return []pdf.Name{obj}, nil
	case pdf.Array:
		res := make([]pdf.Name, 0, len(obj))
		for _, f := range obj {
			name, err := pdf.GetName(d.data, f)
			if err != nil {
				return nil, err
			}
			res = append(res, name)
		}
		return res, nil
	default:
		return nil, errUnsupported
	}
}

// colorComponents returns the number of colour components for the
// supported colour spaces: DeviceGray, DeviceRGB, and ICCBased profiles
// with one or three components.
func (d *Document) colorComponents(obj pdf.Object) (int, error) {
	obj, err := pdf.Resolve(d.data, obj)
	if err != nil {
		return 0, err
	}
	switch cs := obj.(type) {
	case pdf.Name:
		switch cs {
		case "DeviceGray", "G":
			return 1, nil
		case "DeviceRGB", "RGB":
			return 3, nil
		}
	case pdf.Array:
		if len(cs) == 2 {
			family, _ := pdf.GetName(d.data, cs[0])
			if family == "ICCBased" {
				profile, err := pdf.GetStream(d.data, cs[1])
				if err != nil {
					return 0, err
				}
				if profile != nil {
					n, _ := pdf.GetInteger(d.data, profile.Dict["N"])
					if n == 1 || n == 3 {
						return int(n), nil
					}
				}
			}
		}
	}
	return 0, errUnsupported
}
