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

// Package store defines how signed documents are persisted.
//
// A [Store] hands out one [Session] per request.  The session owns a single
// connection to the underlying database until it is closed.  Callers must
// close every session they acquire, on all code paths.
package store

import (
	"context"
	"errors"
	"time"
)

// Metadata identifies a document.  Two documents are considered the same
// if all three fields match exactly.
type Metadata struct {
	Author   string
	Created  time.Time
	Modified time.Time
}

// Equal reports whether m and other match field by field.
func (m Metadata) Equal(other Metadata) bool {
	return m.Author == other.Author &&
		m.Created.Equal(other.Created) &&
		m.Modified.Equal(other.Modified)
}

// Original is a document as it was uploaded for signing.
type Original struct {
	ID        string
	Data      []byte
	Metadata  Metadata
	CreatedAt time.Time
}

// Signed is a watermarked document.  Records are created once and never
// updated.
type Signed struct {
	ID         string
	OriginalID string

	// Secret is the message hidden in the carrier barcode.
	Secret string

	Data      []byte
	Metadata  Metadata
	CreatedAt time.Time
}

// Store gives access to the persistent records.
type Store interface {
	// Acquire opens a session bound to a single connection.
	Acquire(ctx context.Context) (Session, error)

	// Close releases all resources held by the store.
	Close() error
}

// Session is a connection-scoped view of the store.  A session must not be
// used concurrently.
type Session interface {
	// InsertOriginal stores an uploaded document and returns the ID of the
	// new record.  If an original with the same metadata exists, the
	// error wraps [ErrDuplicate].
	InsertOriginal(ctx context.Context, data []byte, md Metadata) (string, error)

	// InsertSigned stores a watermarked document, linked to its original.
	InsertSigned(ctx context.Context, md Metadata, data []byte, originalID, secret string) error

	// FindOriginalByMetadata returns an original whose metadata matches md
	// exactly, or nil if there is none.
	FindOriginalByMetadata(ctx context.Context, md Metadata) (*Original, error)

	// FindSignedBySecret returns all signed records carrying the given
	// secret message, oldest first.
	FindSignedBySecret(ctx context.Context, secret string) ([]*Signed, error)

	// WithinTx runs fn inside a transaction.  If fn returns an error, all
	// changes made through the session passed to fn are rolled back.
	WithinTx(ctx context.Context, fn func(Session) error) error

	// Close releases the connection.  Calling Close more than once is
	// allowed.
	Close() error
}

// ErrUnavailable indicates that the store could not be reached or failed
// to execute a request.
var ErrUnavailable = errors.New("store unavailable")

// ErrDuplicate indicates that an original with the same metadata has
// already been stored.
var ErrDuplicate = errors.New("duplicate original")

// Error wraps failures of the underlying database.
type Error struct {
	Op  string
	Err error
}

func (err *Error) Error() string {
	return "store: " + err.Op + ": " + err.Err.Error()
}

// Unwrap returns both the underlying error and [ErrUnavailable].
// Duplicates are not failures of the store and unwrap to [ErrDuplicate]
// only.
func (err *Error) Unwrap() []error {
	if errors.Is(err.Err, ErrDuplicate) {
		return []error{err.Err}
	}
	return []error{err.Err, ErrUnavailable}
}

// Wrap returns nil if err is nil, and an [*Error] otherwise.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var storeErr *Error
	if errors.As(err, &storeErr) {
		return err
	}
	return &Error{Op: op, Err: err}
}

// Normalize converts the timestamps in md to UTC with second resolution,
// the form used for storage and comparison.
func Normalize(md Metadata) Metadata {
	return Metadata{
		Author:   md.Author,
		Created:  normalizeTime(md.Created),
		Modified: normalizeTime(md.Modified),
	}
}

func normalizeTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return t.UTC().Truncate(time.Second)
}
