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

package gormstore

import (
	"time"

	"seehuhn.de/go/pdfmark/store"
)

type originalModel struct {
	ID        string `gorm:"primaryKey;size:36"`
	Data      []byte
	Author    string    `gorm:"uniqueIndex:idx_originals_metadata,priority:1"`
	Created   time.Time `gorm:"column:doc_created;uniqueIndex:idx_originals_metadata,priority:2"`
	Modified  time.Time `gorm:"column:doc_modified;uniqueIndex:idx_originals_metadata,priority:3"`
	CreatedAt time.Time
}

func (originalModel) TableName() string {
	return "originals"
}

func (m *originalModel) setMetadata(md store.Metadata) {
	md = store.Normalize(md)
	m.Author = md.Author
	m.Created = md.Created
	m.Modified = md.Modified
}

func (m *originalModel) metadata() store.Metadata {
	return store.Normalize(store.Metadata{
		Author:   m.Author,
		Created:  m.Created,
		Modified: m.Modified,
	})
}

func (m *originalModel) record() *store.Original {
	return &store.Original{
		ID:        m.ID,
		Data:      m.Data,
		Metadata:  m.metadata(),
		CreatedAt: m.CreatedAt,
	}
}

type signedModel struct {
	ID         string `gorm:"primaryKey;size:36"`
	OriginalID string `gorm:"size:36;not null;index"`
	Secret     string `gorm:"not null;index:idx_signed_secret"`
	Data       []byte
	Author     string
	Created    time.Time `gorm:"column:doc_created"`
	Modified   time.Time `gorm:"column:doc_modified"`
	CreatedAt  time.Time
}

func (signedModel) TableName() string {
	return "signed_documents"
}

func (m *signedModel) setMetadata(md store.Metadata) {
	md = store.Normalize(md)
	m.Author = md.Author
	m.Created = md.Created
	m.Modified = md.Modified
}

func (m *signedModel) record() *store.Signed {
	return &store.Signed{
		ID:         m.ID,
		OriginalID: m.OriginalID,
		Secret:     m.Secret,
		Data:       m.Data,
		Metadata: store.Normalize(store.Metadata{
			Author:   m.Author,
			Created:  m.Created,
			Modified: m.Modified,
		}),
		CreatedAt: m.CreatedAt,
	}
}
