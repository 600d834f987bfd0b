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

// Package gormstore implements [store.Store] on top of a relational
// database, using gorm.
//
// Every session pins a single connection from the pool.  All statements of
// the session, including transactions, run on that connection.
package gormstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"seehuhn.de/go/pdfmark/store"
)

// Options control the connection pool and logging.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// SlowQuery is the threshold above which statements are logged.
	// If zero, slow statements are not reported.
	SlowQuery time.Duration

	Logger *zap.Logger
}

// Store is a database-backed store.
type Store struct {
	db     *gorm.DB
	sqlDB  *sql.DB
	logger *zap.Logger
}

// OpenPostgres connects to a PostgreSQL server.
func OpenPostgres(dsn string, opt *Options) (*Store, error) {
	return Open(postgres.Open(dsn), opt)
}

// Open connects to the database described by dialector and creates the
// tables if needed.
func Open(dialector gorm.Dialector, opt *Options) (*Store, error) {
	if opt == nil {
		opt = &Options{}
	}
	logger := opt.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "gormstore"))

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newGormLogger(logger, opt.SlowQuery),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, store.Wrap("connect", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, store.Wrap("connect", err)
	}
	if opt.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opt.MaxOpenConns)
	}
	if opt.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opt.MaxIdleConns)
	}
	if opt.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opt.ConnMaxLifetime)
	}

	err = db.AutoMigrate(&originalModel{}, &signedModel{})
	if err != nil {
		sqlDB.Close()
		return nil, store.Wrap("migrate", err)
	}
	logger.Debug("database ready", zap.String("dialect", dialector.Name()))

	return &Store{
		db:     db,
		sqlDB:  sqlDB,
		logger: logger,
	}, nil
}

// Acquire implements [store.Store].
func (s *Store) Acquire(ctx context.Context) (store.Session, error) {
	conn, err := s.sqlDB.Conn(ctx)
	if err != nil {
		return nil, store.Wrap("acquire", err)
	}

	db := s.db.Session(&gorm.Session{NewDB: true, Context: ctx})
	db.Statement.ConnPool = conn

	return &session{db: db, conn: conn}, nil
}

// Close implements [store.Store].
func (s *Store) Close() error {
	return store.Wrap("close", s.sqlDB.Close())
}

// Stats returns the connection pool statistics.
func (s *Store) Stats() sql.DBStats {
	return s.sqlDB.Stats()
}

type session struct {
	db *gorm.DB

	// conn is nil for sessions which are bound to a transaction
	conn   *sql.Conn
	closed bool
}

func (ss *session) InsertOriginal(ctx context.Context, data []byte, md store.Metadata) (string, error) {
	if ss.closed {
		return "", store.Wrap("insert original", errSessionClosed)
	}
	rec := &originalModel{ID: uuid.NewString(), Data: data}
	rec.setMetadata(md)
	err := ss.db.WithContext(ctx).Create(rec).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		err = fmt.Errorf("%w: %w", store.ErrDuplicate, err)
	}
	if err != nil {
		return "", store.Wrap("insert original", err)
	}
	return rec.ID, nil
}

func (ss *session) InsertSigned(ctx context.Context, md store.Metadata, data []byte, originalID, secret string) error {
	if ss.closed {
		return store.Wrap("insert signed", errSessionClosed)
	}
	rec := &signedModel{
		ID:         uuid.NewString(),
		OriginalID: originalID,
		Secret:     secret,
		Data:       data,
	}
	rec.setMetadata(md)
	err := ss.db.WithContext(ctx).Create(rec).Error
	return store.Wrap("insert signed", err)
}

func (ss *session) FindOriginalByMetadata(ctx context.Context, md store.Metadata) (*store.Original, error) {
	if ss.closed {
		return nil, store.Wrap("find original", errSessionClosed)
	}
	md = store.Normalize(md)

	// Timestamps are compared in Go, since drivers differ in how they
	// round-trip time values.
	var recs []originalModel
	err := ss.db.WithContext(ctx).
		Where("author = ?", md.Author).
		Order("created_at, id").
		Find(&recs).Error
	if err != nil {
		return nil, store.Wrap("find original", err)
	}
	for i := range recs {
		if recs[i].metadata().Equal(md) {
			return recs[i].record(), nil
		}
	}
	return nil, nil
}

func (ss *session) FindSignedBySecret(ctx context.Context, secret string) ([]*store.Signed, error) {
	if ss.closed {
		return nil, store.Wrap("find signed", errSessionClosed)
	}
	var recs []signedModel
	err := ss.db.WithContext(ctx).
		Where("secret = ?", secret).
		Order("created_at, id").
		Find(&recs).Error
	if err != nil {
		return nil, store.Wrap("find signed", err)
	}
	res := make([]*store.Signed, len(recs))
	for i := range recs {
		res[i] = recs[i].record()
	}
	return res, nil
}

func (ss *session) WithinTx(ctx context.Context, fn func(store.Session) error) error {
	if ss.closed {
		return store.Wrap("begin", errSessionClosed)
	}

	var fnErr error
	err := ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(&session{db: tx})
		return fnErr
	})
	if fnErr != nil {
		return fnErr
	}
	return store.Wrap("commit", err)
}

func (ss *session) Close() error {
	if ss.closed {
		return nil
	}
	ss.closed = true
	if ss.conn == nil {
		return nil
	}
	err := ss.conn.Close()
	if errors.Is(err, sql.ErrConnDone) {
		err = nil
	}
	return store.Wrap("release", err)
}

var errSessionClosed = errors.New("session is closed")
