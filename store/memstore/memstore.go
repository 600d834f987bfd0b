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

// Package memstore implements an in-memory [store.Store].
//
// The store is safe for concurrent use.  Its contents are lost when the
// process exits.
package memstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"seehuhn.de/go/pdfmark/store"
)

// Store keeps all records in memory.
type Store struct {
	// Fail, if set, is called at the start of every operation with the
	// operation name.  A non-nil return value makes the operation fail.
	// This is used to simulate an unreachable database.
	Fail func(op string) error

	mu        sync.Mutex
	originals []*store.Original
	signed    []*store.Signed
	open      int
	closed    bool

	txMu sync.Mutex
	now  func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{now: time.Now}
}

var errClosed = errors.New("store is closed")

func (s *Store) check(op string) error {
	if s.Fail != nil {
		if err := s.Fail(op); err != nil {
			return store.Wrap(op, err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.Wrap(op, errClosed)
	}
	return nil
}

// Acquire implements [store.Store].
func (s *Store) Acquire(ctx context.Context) (store.Session, error) {
	if err := s.check("acquire"); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, store.Wrap("acquire", err)
	}
	s.mu.Lock()
	s.open++
	s.mu.Unlock()
	return &session{s: s}, nil
}

// Close implements [store.Store].
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// OpenSessions returns the number of sessions which have been acquired but
// not yet closed.
func (s *Store) OpenSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Originals returns a copy of all original records.
func (s *Store) Originals() []store.Original {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make([]store.Original, len(s.originals))
	for i, o := range s.originals {
		res[i] = *o
	}
	return res
}

// SignedRecords returns a copy of all signed records.
func (s *Store) SignedRecords() []store.Signed {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make([]store.Signed, len(s.signed))
	for i, r := range s.signed {
		res[i] = *r
	}
	return res
}

type session struct {
	s      *Store
	closed bool

	// undo is non-nil while a transaction is active
	undo []func()
}

func (ss *session) InsertOriginal(ctx context.Context, data []byte, md store.Metadata) (string, error) {
	if err := ss.check("insert original"); err != nil {
		return "", err
	}
	rec := &store.Original{
		ID:        uuid.NewString(),
		Data:      append([]byte(nil), data...),
		Metadata:  store.Normalize(md),
		CreatedAt: ss.s.now(),
	}

	ss.s.mu.Lock()
	for _, o := range ss.s.originals {
		if o.Metadata.Equal(rec.Metadata) {
			ss.s.mu.Unlock()
			return "", store.Wrap("insert original", store.ErrDuplicate)
		}
	}
	ss.s.originals = append(ss.s.originals, rec)
	ss.s.mu.Unlock()

	if ss.undo != nil {
		ss.undo = append(ss.undo, func() {
			ss.s.originals = removeOriginal(ss.s.originals, rec)
		})
	}
	return rec.ID, nil
}

func (ss *session) InsertSigned(ctx context.Context, md store.Metadata, data []byte, originalID, secret string) error {
	if err := ss.check("insert signed"); err != nil {
		return err
	}
	rec := &store.Signed{
		ID:         uuid.NewString(),
		OriginalID: originalID,
		Secret:     secret,
		Data:       append([]byte(nil), data...),
		Metadata:   store.Normalize(md),
		CreatedAt:  ss.s.now(),
	}

	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()
	found := false
	for _, o := range ss.s.originals {
		if o.ID == originalID {
			found = true
			break
		}
	}
	if !found {
		return store.Wrap("insert signed", errors.New("unknown original "+originalID))
	}
	ss.s.signed = append(ss.s.signed, rec)

	if ss.undo != nil {
		ss.undo = append(ss.undo, func() {
			ss.s.signed = removeSigned(ss.s.signed, rec)
		})
	}
	return nil
}

func (ss *session) FindOriginalByMetadata(ctx context.Context, md store.Metadata) (*store.Original, error) {
	if err := ss.check("find original"); err != nil {
		return nil, err
	}
	md = store.Normalize(md)

	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()
	for _, o := range ss.s.originals {
		if o.Metadata.Equal(md) {
			res := *o
			return &res, nil
		}
	}
	return nil, nil
}

func (ss *session) FindSignedBySecret(ctx context.Context, secret string) ([]*store.Signed, error) {
	if err := ss.check("find signed"); err != nil {
		return nil, err
	}

	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()
	var res []*store.Signed
	for _, r := range ss.s.signed {
		if r.Secret == secret {
			rec := *r
			res = append(res, &rec)
		}
	}
	return res, nil
}

func (ss *session) WithinTx(ctx context.Context, fn func(store.Session) error) error {
	if err := ss.check("begin"); err != nil {
		return err
	}
	if ss.undo != nil {
		return fn(ss)
	}

	ss.s.txMu.Lock()
	defer ss.s.txMu.Unlock()

	ss.undo = []func(){}
	defer func() { ss.undo = nil }()

	err := fn(ss)
	if err == nil {
		err = ss.check("commit")
	}
	if err != nil {
		ss.s.mu.Lock()
		for i := len(ss.undo) - 1; i >= 0; i-- {
			ss.undo[i]()
		}
		ss.s.mu.Unlock()
		return err
	}
	return nil
}

func (ss *session) Close() error {
	if ss.closed {
		return nil
	}
	ss.closed = true
	ss.s.mu.Lock()
	ss.s.open--
	ss.s.mu.Unlock()
	return nil
}

func (ss *session) check(op string) error {
	if ss.closed {
		return store.Wrap(op, errors.New("session is closed"))
	}
	return ss.s.check(op)
}

func removeOriginal(list []*store.Original, rec *store.Original) []*store.Original {
	for i, o := range list {
		if o == rec {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

func removeSigned(list []*store.Signed, rec *store.Signed) []*store.Signed {
	for i, r := range list {
		if r == rec {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
