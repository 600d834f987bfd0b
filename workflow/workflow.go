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

// Package workflow implements signing and verification of PDF documents.
//
// Signing stamps a Data Matrix symbol onto the first page of a document.
// The symbol encodes a message naming the owner of the document and the
// signing date, and the same message is hidden in the least significant
// bits of the symbol's pixels.  Verification extracts the hidden message
// and compares the document against the records kept in a [store.Store].
package workflow

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"seehuhn.de/go/pdfmark/carrier"
	"seehuhn.de/go/pdfmark/pdfdoc"
	"seehuhn.de/go/pdfmark/placement"
	"seehuhn.de/go/pdfmark/store"
)

// Options configure a [Service].  The zero value is valid.
type Options struct {
	Logger *zap.Logger

	// Now returns the signing time.  If nil, [time.Now] is used.
	Now func() time.Time

	// DefaultCorner is used when a request names no valid corner.
	DefaultCorner placement.Corner
}

// Service signs and verifies documents.  It is safe for concurrent use; all
// per-request state lives in the request and in one store session.
type Service struct {
	store         store.Store
	logger        *zap.Logger
	now           func() time.Time
	defaultCorner placement.Corner
}

// New returns a service which keeps its records in st.
func New(st store.Store, opt *Options) *Service {
	if opt == nil {
		opt = &Options{}
	}
	s := &Service{
		store:         st,
		logger:        opt.Logger,
		now:           opt.Now,
		defaultCorner: opt.DefaultCorner,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// SignRequest is the input for [Service.Sign].
type SignRequest struct {
	Filename string
	Data     []byte

	// Corner optionally names the corner of the first page where the
	// symbol is placed, for example "top-left".
	Corner *string
}

// SignResult is the outcome of a successful signing.
type SignResult struct {
	// Data is the watermarked PDF file.
	Data []byte

	// Filename is the suggested name for the watermarked file.
	Filename string

	// SecretMessage is the message hidden in the symbol, without
	// terminator.
	SecretMessage string

	Corner     placement.Corner
	OriginalID string
}

// Sign watermarks a document and records both the original and the signed
// version in the store.
//
// The document must have sufficiently large pages, and no document with the
// same author, creation date and modification date may have been signed
// before.
func (s *Service) Sign(ctx context.Context, req *SignRequest) (*SignResult, error) {
	log := s.logger.With(zap.String("op", "sign"), zap.String("file", req.Filename))

	err := checkUpload(req.Filename, req.Data)
	if err != nil {
		return nil, err
	}
	corner := placement.ResolveCorner(req.Corner, s.defaultCorner)
	log.Debug("state", zap.String("state", "received"), zap.Stringer("corner", corner))

	doc, err := openDocument(req.Filename, req.Data)
	if err != nil {
		return nil, err
	}
	sizes, err := doc.PageSizes()
	if err != nil {
		return nil, &ValidationError{Filename: req.Filename, Reason: "cannot read page sizes", Err: err}
	}
	if len(sizes) == 0 {
		return nil, &ValidationError{Filename: req.Filename, Reason: "document has no pages"}
	}
	for i, size := range sizes {
		if !placement.MarginsOK([]placement.PageSize{size}) {
			return nil, &GeometryError{Page: i + 1, Size: size}
		}
	}
	log.Debug("state", zap.String("state", "margin-checked"), zap.Int("pages", len(sizes)))

	md := storeMetadata(doc.Metadata())

	sess, err := s.store.Acquire(ctx)
	if err != nil {
		return nil, infraError("acquire session", err)
	}
	defer sess.Close()

	prev, err := sess.FindOriginalByMetadata(ctx, md)
	if err != nil {
		return nil, infraError("duplicate check", err)
	}
	if prev != nil {
		log.Debug("state", zap.String("state", "already-signed"), zap.String("original", prev.ID))
		return nil, &DuplicateSignatureError{OriginalID: prev.ID, Metadata: md}
	}
	log.Debug("state", zap.String("state", "duplicate-checked"))

	c, err := carrier.Build(md.Author, s.now())
	if err != nil {
		return nil, infraError("render symbol", err)
	}
	rect := placement.Rect(sizes[0].Width, sizes[0].Height, corner)
	err = doc.InsertImage(0, rect, c.Image)
	if err != nil {
		return nil, infraError("insert symbol", err)
	}
	signed, err := doc.Bytes()
	if err != nil {
		return nil, infraError("write document", err)
	}
	log.Debug("state", zap.String("state", "watermarked"), zap.Stringer("rect", rect))

	// A concurrent request may have signed the same document since the
	// first check.  The check is repeated inside the transaction, and the
	// store refuses a second original with the same metadata.
	var originalID string
	err = sess.WithinTx(ctx, func(tx store.Session) error {
		prev, err := tx.FindOriginalByMetadata(ctx, md)
		if err != nil {
			return err
		}
		if prev != nil {
			return &DuplicateSignatureError{OriginalID: prev.ID, Metadata: md}
		}
		id, err := tx.InsertOriginal(ctx, req.Data, md)
		if errors.Is(err, store.ErrDuplicate) {
			return &DuplicateSignatureError{Metadata: md}
		} else if err != nil {
			return err
		}
		originalID = id
		return tx.InsertSigned(ctx, md, signed, id, c.Message)
	})
	var dup *DuplicateSignatureError
	if errors.As(err, &dup) {
		log.Debug("state", zap.String("state", "already-signed"), zap.String("original", dup.OriginalID))
		return nil, dup
	} else if err != nil {
		return nil, infraError("persist", err)
	}
	log.Debug("state", zap.String("state", "persisted"), zap.String("original", originalID))

	return &SignResult{
		Data:          signed,
		Filename:      SignedFilename(req.Filename),
		SecretMessage: c.Message,
		Corner:        corner,
		OriginalID:    originalID,
	}, nil
}

// allowedExtensions lists the accepted file name extensions, in lower case
// and without the dot.
var allowedExtensions = map[string]bool{
	"pdf": true,
}

func checkUpload(filename string, data []byte) error {
	if filename == "" && len(data) == 0 {
		return &ValidationError{Reason: "no file uploaded"}
	}
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	if !allowedExtensions[strings.ToLower(ext)] {
		return &ValidationError{Filename: filename, Reason: "file type not allowed"}
	}
	if len(data) == 0 {
		return &ValidationError{Filename: filename, Reason: "empty file"}
	}
	return nil
}

func openDocument(filename string, data []byte) (*pdfdoc.Document, error) {
	doc, err := pdfdoc.Open(data)
	if err != nil {
		return nil, &ValidationError{Filename: filename, Reason: "cannot parse PDF", Err: err}
	}
	return doc, nil
}

// SignedFilename returns the name used for the watermarked version of a
// file: "report.pdf" becomes "report_signed.pdf".
func SignedFilename(name string) string {
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) {
		base = "document.pdf"
	}
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return stem + "_signed.pdf"
}

func storeMetadata(md pdfdoc.Metadata) store.Metadata {
	return store.Metadata{
		Author:   md.Author,
		Created:  md.Created,
		Modified: md.Modified,
	}
}
