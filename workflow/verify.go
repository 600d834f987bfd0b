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

import (
	"context"
	"fmt"
	"image"

	"go.uber.org/zap"

	"seehuhn.de/go/pdfmark/carrier"
	"seehuhn.de/go/pdfmark/pdfdoc"
	"seehuhn.de/go/pdfmark/placement"
	"seehuhn.de/go/pdfmark/store"
)

// VerifyRequest is the input for [Service.Verify].
type VerifyRequest struct {
	Filename string
	Data     []byte
}

// VerifyResult describes the outcome of a verification.
type VerifyResult struct {
	Verdict Verdict `json:"verdict"`
	Detail  string  `json:"detail"`

	// Candidates is the number of Data Matrix symbols found on the first
	// page.
	Candidates int `json:"candidates"`

	// Secret is the hidden message, if one was found.
	Secret string `json:"secret,omitempty"`

	// SymbolText is the visible payload of the symbol.  It is informational
	// only and plays no part in the verdict.
	SymbolText string `json:"symbol_text,omitempty"`

	// OriginalID identifies the stored original the document was matched
	// against.
	OriginalID string `json:"original_id,omitempty"`
}

// Verify classifies a document as unsigned, authentic or modified.
//
// Zero symbols on the first page, or a symbol without a hidden message,
// give [Unsigned].  More than one symbol gives [Modified].  Otherwise the
// hidden message is looked up in the store and the document metadata is
// compared to the signed record.
func (s *Service) Verify(ctx context.Context, req *VerifyRequest) (*VerifyResult, error) {
	log := s.logger.With(zap.String("op", "verify"), zap.String("file", req.Filename))

	err := checkUpload(req.Filename, req.Data)
	if err != nil {
		return nil, err
	}
	log.Debug("state", zap.String("state", "received"))

	doc, err := openDocument(req.Filename, req.Data)
	if err != nil {
		return nil, err
	}

	sc, err := s.scan(log, req.Filename, doc)
	if err != nil {
		return nil, err
	}

	sessions := &lazySession{st: s.store}
	defer sessions.close()

	return s.compare(ctx, log, sessions, doc, sc)
}

// InspectRequest is the input for [Service.Inspect].
type InspectRequest struct {
	Filename string
	Data     []byte
}

// Traits summarise the properties of a document relevant for signing and
// verification.
type Traits struct {
	Pages int `json:"pages"`

	// Margins is true if all pages are large enough for a symbol.
	Margins bool `json:"margins"`

	// Images is true if the first page contains images.
	Images bool `json:"images"`

	// Barcodes is true if one of the first page images is a Data Matrix
	// symbol.
	Barcodes bool `json:"dm_images"`

	// Watermark is true if one of the symbols carries a hidden message.
	Watermark bool `json:"dm_steg"`

	// Modified is true if verification gives [Modified].
	Modified bool `json:"modified"`

	// AlreadySigned is true if a document with the same metadata has
	// been signed before.
	AlreadySigned bool `json:"already_signed"`

	Verdict Verdict `json:"verdict"`

	// Skipped lists first page images which could not be decoded.
	Skipped []string `json:"skipped,omitempty"`
}

// Inspect reports the traits of a document without modifying anything.
func (s *Service) Inspect(ctx context.Context, req *InspectRequest) (*Traits, error) {
	log := s.logger.With(zap.String("op", "inspect"), zap.String("file", req.Filename))

	err := checkUpload(req.Filename, req.Data)
	if err != nil {
		return nil, err
	}
	doc, err := openDocument(req.Filename, req.Data)
	if err != nil {
		return nil, err
	}
	sizes, err := doc.PageSizes()
	if err != nil {
		return nil, &ValidationError{Filename: req.Filename, Reason: "cannot read page sizes", Err: err}
	}

	traits := &Traits{
		Pages:   len(sizes),
		Margins: placement.MarginsOK(sizes),
	}

	sc, err := s.scan(log, req.Filename, doc)
	if err != nil {
		return nil, err
	}
	traits.Images = sc.images > 0
	traits.Barcodes = len(sc.candidates) > 0
	for _, c := range sc.candidates {
		if _, ok := carrier.ReadHidden(c.img); ok {
			traits.Watermark = true
			break
		}
	}
	for _, sk := range sc.skipped {
		traits.Skipped = append(traits.Skipped, string(sk.Name)+": "+sk.Reason.Error())
	}

	sessions := &lazySession{st: s.store}
	defer sessions.close()

	sess, err := sessions.get(ctx)
	if err != nil {
		return nil, err
	}
	prev, err := sess.FindOriginalByMetadata(ctx, storeMetadata(doc.Metadata()))
	if err != nil {
		return nil, infraError("duplicate check", err)
	}
	traits.AlreadySigned = prev != nil

	res, err := s.compare(ctx, log, sessions, doc, sc)
	if err != nil {
		return nil, err
	}
	traits.Verdict = res.Verdict
	traits.Modified = res.Verdict == Modified

	return traits, nil
}

type candidate struct {
	img     image.Image
	payload string
}

type scanResult struct {
	images     int
	skipped    []pdfdoc.SkippedImage
	candidates []candidate
}

// scan collects the images on the first page and picks out the Data Matrix
// symbols, in the order the images appear in the page resources.
func (s *Service) scan(log *zap.Logger, filename string, doc *pdfdoc.Document) (*scanResult, error) {
	images, skipped, err := doc.FirstPageImages()
	if err != nil {
		return nil, &ValidationError{Filename: filename, Reason: "cannot read first page", Err: err}
	}
	for _, sk := range skipped {
		log.Debug("image skipped", zap.String("image", string(sk.Name)), zap.Error(sk.Reason))
	}
	log.Debug("state", zap.String("state", "images-extracted"), zap.Int("images", len(images)))

	sc := &scanResult{
		images:  len(images) + len(skipped),
		skipped: skipped,
	}
	for _, im := range images {
		syms, err := carrier.DecodeSymbols(im.Image)
		if err != nil {
			return nil, infraError("decode symbol", err)
		}
		if len(syms) == 0 {
			continue
		}
		sc.candidates = append(sc.candidates, candidate{
			img:     im.Image,
			payload: syms[0].Payload,
		})
	}
	log.Debug("state", zap.String("state", "barcodes-extracted"), zap.Int("candidates", len(sc.candidates)))

	return sc, nil
}

// compare turns the scan result into a verdict.  The store is only
// consulted if exactly one symbol with a hidden message was found.
func (s *Service) compare(ctx context.Context, log *zap.Logger, sessions *lazySession, doc *pdfdoc.Document, sc *scanResult) (*VerifyResult, error) {
	res := &VerifyResult{Candidates: len(sc.candidates)}

	switch len(sc.candidates) {
	case 0:
		res.Verdict = Unsigned
		res.Detail = "no Data Matrix symbol on the first page"
		return res, nil
	case 1:
		// handled below
	default:
		res.Verdict = Modified
		res.Detail = fmt.Sprintf("%d Data Matrix symbols on the first page, a signed document has exactly one",
			len(sc.candidates))
		log.Debug("state", zap.String("state", "compared"), zap.Stringer("verdict", res.Verdict))
		return res, nil
	}

	cand := sc.candidates[0]
	res.SymbolText = cand.payload
	secret, ok := carrier.ReadHidden(cand.img)
	if !ok {
		res.Verdict = Unsigned
		res.Detail = "the symbol carries no hidden message"
		return res, nil
	}
	res.Secret = secret
	log.Debug("state", zap.String("state", "steg-extracted"))

	sess, err := sessions.get(ctx)
	if err != nil {
		return nil, err
	}
	records, err := sess.FindSignedBySecret(ctx, secret)
	if err != nil {
		return nil, infraError("lookup", err)
	}

	md := storeMetadata(doc.Metadata())
	switch {
	case len(records) == 0:
		res.Verdict = Unsigned
		res.Detail = "the hidden message does not match any signed document"
	default:
		res.Verdict = Modified
		res.Detail = "the document metadata differs from the signed record"
		res.OriginalID = records[len(records)-1].OriginalID
		for _, rec := range records {
			if rec.Metadata.Equal(md) {
				res.Verdict = Authentic
				res.Detail = "the document matches the signed record"
				res.OriginalID = rec.OriginalID
				break
			}
		}
	}
	log.Debug("state", zap.String("state", "compared"),
		zap.Stringer("verdict", res.Verdict),
		zap.Int("records", len(records)))

	return res, nil
}

// lazySession acquires a store session on first use.  The session is
// released by close.
type lazySession struct {
	st   store.Store
	sess store.Session
}

func (l *lazySession) get(ctx context.Context) (store.Session, error) {
	if l.sess == nil {
		sess, err := l.st.Acquire(ctx)
		if err != nil {
			return nil, infraError("acquire session", err)
		}
		l.sess = sess
	}
	return l.sess, nil
}

func (l *lazySession) close() {
	if l.sess != nil {
		l.sess.Close()
		l.sess = nil
	}
}
