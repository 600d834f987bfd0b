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
	"errors"
	"fmt"

	"seehuhn.de/go/pdfmark/placement"
	"seehuhn.de/go/pdfmark/store"
)

// Sentinel errors for use with [errors.Is].  Every error returned by the
// workflow matches one of these.
var (
	ErrValidation     = errors.New("invalid request")
	ErrGeometry       = errors.New("insufficient page margins")
	ErrDuplicate      = errors.New("document already signed")
	ErrInfrastructure = errors.New("infrastructure failure")
)

// ValidationError indicates that a request was rejected before any
// processing, for example because the upload is not a PDF file.
type ValidationError struct {
	Filename string
	Reason   string
	Err      error
}

func (err *ValidationError) Error() string {
	msg := "workflow: " + err.Reason
	if err.Filename != "" {
		msg += " (" + err.Filename + ")"
	}
	if err.Err != nil {
		msg += ": " + err.Err.Error()
	}
	return msg
}

func (err *ValidationError) Unwrap() []error {
	return []error{err.Err, ErrValidation}
}

// GeometryError indicates that a page of the document is too small to
// receive a carrier image.
type GeometryError struct {
	// Page is the first offending page, starting at 1.
	Page int

	Size placement.PageSize
}

func (err *GeometryError) Error() string {
	return fmt.Sprintf("workflow: page %d is too small (%gx%g, need more than %d in both directions)",
		err.Page, err.Size.Width, err.Size.Height, placement.MinPageSize)
}

func (err *GeometryError) Unwrap() error {
	return ErrGeometry
}

// DuplicateSignatureError indicates that a document with identical metadata
// has been signed before.
type DuplicateSignatureError struct {
	OriginalID string
	Metadata   store.Metadata
}

func (err *DuplicateSignatureError) Error() string {
	if err.OriginalID == "" {
		return "workflow: document already signed"
	}
	return "workflow: document already signed (original " + err.OriginalID + ")"
}

func (err *DuplicateSignatureError) Unwrap() error {
	return ErrDuplicate
}

// Verdict returns [AlreadySigned].
func (err *DuplicateSignatureError) Verdict() Verdict {
	return AlreadySigned
}

// InfrastructureError indicates that a collaborator, the store or the
// symbol renderer, failed.  The request may succeed if repeated later.
type InfrastructureError struct {
	Op  string
	Err error
}

func (err *InfrastructureError) Error() string {
	return "workflow: " + err.Op + ": " + err.Err.Error()
}

func (err *InfrastructureError) Unwrap() []error {
	return []error{err.Err, ErrInfrastructure}
}

func infraError(op string, err error) error {
	var infra *InfrastructureError
	if errors.As(err, &infra) {
		return err
	}
	return &InfrastructureError{Op: op, Err: err}
}
