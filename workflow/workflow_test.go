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
	"encoding/json"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.uber.org/zap/zaptest"

	"seehuhn.de/go/pdfmark/carrier"
	"seehuhn.de/go/pdfmark/internal/testpdf"
	"seehuhn.de/go/pdfmark/pdfdoc"
	"seehuhn.de/go/pdfmark/placement"
	"seehuhn.de/go/pdfmark/store"
	"seehuhn.de/go/pdfmark/store/memstore"
)

var (
	created  = time.Date(2024, time.February, 1, 9, 30, 0, 0, time.UTC)
	modified = time.Date(2024, time.February, 3, 17, 45, 12, 0, time.UTC)
	signedAt = time.Date(2024, time.March, 14, 12, 0, 0, 0, time.UTC)
)

func newService(t *testing.T) (*Service, *memstore.Store) {
	t.Helper()
	st := memstore.New()
	svc := New(st, &Options{
		Logger: zaptest.NewLogger(t),
		Now:    func() time.Time { return signedAt },
	})
	return svc, st
}

func buildPDF(t *testing.T, f *testpdf.File) []byte {
	t.Helper()
	if f.Author == "" {
		f.Author = "Jane Doe"
	}
	if f.Created.IsZero() {
		f.Created = created
	}
	if f.Modified.IsZero() {
		f.Modified = modified
	}
	raw, err := testpdf.Build(f)
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func sign(t *testing.T, svc *Service, raw []byte) *SignResult {
	t.Helper()
	res, err := svc.Sign(context.Background(), &SignRequest{Filename: "report.pdf", Data: raw})
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func verify(t *testing.T, svc *Service, raw []byte) *VerifyResult {
	t.Helper()
	res, err := svc.Verify(context.Background(), &VerifyRequest{Filename: "report.pdf", Data: raw})
	if err != nil {
		t.Fatal(err)
	}
	return res
}

// carrierImage returns the symbol inserted into a signed document.
func carrierImage(t *testing.T, signed []byte) image.Image {
	t.Helper()
	doc, err := pdfdoc.Open(signed)
	if err != nil {
		t.Fatal(err)
	}
	images, _, err := doc.FirstPageImages()
	if err != nil {
		t.Fatal(err)
	}
	for _, im := range images {
		if carrier.IsSymbol(im.Image) {
			return im.Image
		}
	}
	t.Fatal("no symbol in signed document")
	return nil
}

func TestSignVerifyAuthentic(t *testing.T) {
	svc, st := newService(t)
	raw := buildPDF(t, &testpdf.File{Content: "0 0 1 rg 100 100 200 200 re f"})

	res := sign(t, svc, raw)
	if res.Filename != "report_signed.pdf" {
		t.Errorf("wrong filename %q", res.Filename)
	}
	if res.Corner != placement.BottomRight {
		t.Errorf("wrong corner %s", res.Corner)
	}
	want := carrier.ComposeMessage("Jane Doe", signedAt)
	if res.SecretMessage != want {
		t.Errorf("wrong secret %q", res.SecretMessage)
	}
	if n := len(st.Originals()); n != 1 {
		t.Errorf("%d originals stored, want 1", n)
	}
	if n := len(st.SignedRecords()); n != 1 {
		t.Errorf("%d signed records stored, want 1", n)
	}

	v := verify(t, svc, res.Data)
	if v.Verdict != Authentic {
		t.Errorf("verdict %s (%s), want authentic", v.Verdict, v.Detail)
	}
	if v.Candidates != 1 || v.Secret != want || v.SymbolText != want {
		t.Errorf("unexpected result %+v", v)
	}
	if v.OriginalID != res.OriginalID {
		t.Errorf("matched original %q, want %q", v.OriginalID, res.OriginalID)
	}
	if st.OpenSessions() != 0 {
		t.Errorf("%d sessions left open", st.OpenSessions())
	}
}

func TestVerifyUnsigned(t *testing.T) {
	svc, st := newService(t)

	plain := buildPDF(t, &testpdf.File{})
	v := verify(t, svc, plain)
	if v.Verdict != Unsigned || v.Candidates != 0 {
		t.Errorf("plain document: %+v", v)
	}

	photo := image.NewNRGBA(image.Rect(0, 0, 30, 20))
	for i := range photo.Pix {
		photo.Pix[i] = uint8(i * 7)
	}
	withImage := buildPDF(t, &testpdf.File{Images: []image.Image{photo}})
	v = verify(t, svc, withImage)
	if v.Verdict != Unsigned || v.Candidates != 0 {
		t.Errorf("document with image: %+v", v)
	}

	if st.OpenSessions() != 0 {
		t.Errorf("%d sessions left open", st.OpenSessions())
	}
}

func TestVerifySymbolWithoutSecret(t *testing.T) {
	svc, _ := newService(t)
	img, err := carrier.Render("just a barcode", carrier.DefaultStyle)
	if err != nil {
		t.Fatal(err)
	}
	raw := buildPDF(t, &testpdf.File{Images: []image.Image{img}})

	v := verify(t, svc, raw)
	if v.Verdict != Unsigned || v.Candidates != 1 {
		t.Errorf("unexpected result %+v", v)
	}
	if v.SymbolText != "just a barcode" {
		t.Errorf("wrong symbol text %q", v.SymbolText)
	}
}

func TestVerifyUnknownSecret(t *testing.T) {
	svc, _ := newService(t)
	c, err := carrier.Build("Somebody Else", signedAt)
	if err != nil {
		t.Fatal(err)
	}
	raw := buildPDF(t, &testpdf.File{Images: []image.Image{c.Image}})

	v := verify(t, svc, raw)
	if v.Verdict != Unsigned {
		t.Errorf("verdict %s, want unsigned", v.Verdict)
	}
	if v.Secret != c.Message {
		t.Errorf("wrong secret %q", v.Secret)
	}
}

func TestVerifyModifiedMetadata(t *testing.T) {
	svc, _ := newService(t)
	res := sign(t, svc, buildPDF(t, &testpdf.File{}))
	mark := carrierImage(t, res.Data)

	// same symbol, later modification date
	edited := buildPDF(t, &testpdf.File{
		Modified: modified.Add(time.Hour),
		Images:   []image.Image{mark},
	})
	v := verify(t, svc, edited)
	if v.Verdict != Modified {
		t.Errorf("verdict %s (%s), want modified", v.Verdict, v.Detail)
	}
	if v.OriginalID != res.OriginalID {
		t.Errorf("matched original %q, want %q", v.OriginalID, res.OriginalID)
	}

	// same symbol, same metadata
	copied := buildPDF(t, &testpdf.File{Images: []image.Image{mark}})
	v = verify(t, svc, copied)
	if v.Verdict != Authentic {
		t.Errorf("verdict %s (%s), want authentic", v.Verdict, v.Detail)
	}
}

func TestVerifyTwoSymbols(t *testing.T) {
	svc, _ := newService(t)
	res := sign(t, svc, buildPDF(t, &testpdf.File{}))
	mark := carrierImage(t, res.Data)

	other, err := carrier.Render("something else", carrier.DefaultStyle)
	if err != nil {
		t.Fatal(err)
	}
	raw := buildPDF(t, &testpdf.File{Images: []image.Image{mark, other}})
	v := verify(t, svc, raw)
	if v.Verdict != Modified || v.Candidates != 2 {
		t.Errorf("unexpected result %+v", v)
	}
}

func TestSignAlreadySigned(t *testing.T) {
	svc, st := newService(t)
	raw := buildPDF(t, &testpdf.File{})
	sign(t, svc, raw)

	_, err := svc.Sign(context.Background(), &SignRequest{Filename: "copy.pdf", Data: raw})
	var dup *DuplicateSignatureError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateSignatureError, got %v", err)
	}
	if !errors.Is(err, ErrDuplicate) || dup.Verdict() != AlreadySigned {
		t.Errorf("wrong error classification: %v", err)
	}
	if n := len(st.Originals()); n != 1 {
		t.Errorf("%d originals stored, want 1", n)
	}
	if st.OpenSessions() != 0 {
		t.Errorf("%d sessions left open", st.OpenSessions())
	}
}

func TestSignConcurrentDuplicates(t *testing.T) {
	svc, st := newService(t)
	raw := buildPDF(t, &testpdf.File{})

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Sign(context.Background(), &SignRequest{Filename: "report.pdf", Data: raw})
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case !errors.Is(err, ErrDuplicate):
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("%d successful signings, want 1", succeeded)
	}
	if n := len(st.Originals()); n != 1 {
		t.Errorf("%d originals stored, want 1", n)
	}
	if n := len(st.SignedRecords()); n != 1 {
		t.Errorf("%d signed records stored, want 1", n)
	}
	if st.OpenSessions() != 0 {
		t.Errorf("%d sessions left open", st.OpenSessions())
	}
}

// staleStore hides existing originals from lookups, like a read which
// happened before a concurrent commit.
type staleStore struct {
	*memstore.Store
}

func (s staleStore) Acquire(ctx context.Context) (store.Session, error) {
	sess, err := s.Store.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return staleSession{sess}, nil
}

type staleSession struct {
	store.Session
}

func (staleSession) FindOriginalByMetadata(context.Context, store.Metadata) (*store.Original, error) {
	return nil, nil
}

func (s staleSession) WithinTx(ctx context.Context, fn func(store.Session) error) error {
	return s.Session.WithinTx(ctx, func(tx store.Session) error {
		return fn(staleSession{tx})
	})
}

func TestSignDuplicateOnInsert(t *testing.T) {
	st := memstore.New()
	svc := New(staleStore{st}, &Options{Logger: zaptest.NewLogger(t)})
	raw := buildPDF(t, &testpdf.File{})
	sign(t, svc, raw)

	_, err := svc.Sign(context.Background(), &SignRequest{Filename: "copy.pdf", Data: raw})
	var dup *DuplicateSignatureError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateSignatureError, got %v", err)
	}
	if errors.Is(err, ErrInfrastructure) {
		t.Errorf("duplicate reported as infrastructure failure: %v", err)
	}
	if n := len(st.Originals()); n != 1 {
		t.Errorf("%d originals stored, want 1", n)
	}
	if n := len(st.SignedRecords()); n != 1 {
		t.Errorf("%d signed records stored, want 1", n)
	}
}

func TestSignAuthorWithTerminator(t *testing.T) {
	svc, _ := newService(t)
	for _, author := range []string{"ACME //3.sys// Legal", "abc//3.sys/", "//3.sys//"} {
		raw := buildPDF(t, &testpdf.File{Author: author})
		res := sign(t, svc, raw)

		v := verify(t, svc, res.Data)
		if v.Verdict != Authentic {
			t.Errorf("%q: verdict %s (%s), want authentic", author, v.Verdict, v.Detail)
		}
		if v.Secret != res.SecretMessage {
			t.Errorf("%q: recovered %q, want %q", author, v.Secret, res.SecretMessage)
		}
	}
}

func TestSignGeometry(t *testing.T) {
	svc, st := newService(t)
	cases := []struct {
		pages [][2]float64
		page  int
	}{
		{[][2]float64{{100, 200}}, 1},
		{[][2]float64{{612, 792}, {144, 200}}, 2},
		{[][2]float64{{612, 792}, {612, 144.9}}, 2},
	}
	for _, c := range cases {
		raw := buildPDF(t, &testpdf.File{Pages: c.pages})
		_, err := svc.Sign(context.Background(), &SignRequest{Filename: "a.pdf", Data: raw})
		var geom *GeometryError
		if !errors.As(err, &geom) {
			t.Errorf("%v: expected GeometryError, got %v", c.pages, err)
			continue
		}
		if geom.Page != c.page {
			t.Errorf("%v: page %d reported, want %d", c.pages, geom.Page, c.page)
		}
		if !errors.Is(err, ErrGeometry) {
			t.Errorf("%v: errors.Is(ErrGeometry) failed", c.pages)
		}
	}
	if n := len(st.Originals()); n != 0 {
		t.Errorf("%d originals stored, want 0", n)
	}

	raw := buildPDF(t, &testpdf.File{Pages: [][2]float64{{145, 145}}})
	_, err := svc.Sign(context.Background(), &SignRequest{Filename: "a.pdf", Data: raw})
	if err != nil {
		t.Errorf("145x145 page rejected: %v", err)
	}
}

func TestValidation(t *testing.T) {
	svc, st := newService(t)
	raw := buildPDF(t, &testpdf.File{})
	cases := []struct {
		name string
		data []byte
	}{
		{"", nil},
		{"report.txt", raw},
		{"report", raw},
		{"report.pdf", nil},
		{"report.pdf", []byte("not a PDF file")},
	}
	for _, c := range cases {
		_, err := svc.Sign(context.Background(), &SignRequest{Filename: c.name, Data: c.data})
		if !errors.Is(err, ErrValidation) {
			t.Errorf("sign %q: expected validation error, got %v", c.name, err)
		}
		_, err = svc.Verify(context.Background(), &VerifyRequest{Filename: c.name, Data: c.data})
		if !errors.Is(err, ErrValidation) {
			t.Errorf("verify %q: expected validation error, got %v", c.name, err)
		}
	}
	if st.OpenSessions() != 0 {
		t.Errorf("%d sessions left open", st.OpenSessions())
	}

	_, err := svc.Sign(context.Background(), &SignRequest{Filename: "REPORT.PDF", Data: raw})
	if err != nil {
		t.Errorf("upper case extension rejected: %v", err)
	}
}

func TestCorner(t *testing.T) {
	cases := []struct {
		in   *string
		want placement.Corner
	}{
		{nil, placement.BottomRight},
		{ptr("top-left"), placement.TopLeft},
		{ptr("bottom-left"), placement.BottomLeft},
		{ptr("middle"), placement.BottomRight},
		{ptr(""), placement.BottomRight},
	}
	for i, c := range cases {
		svc, _ := newService(t)
		raw := buildPDF(t, &testpdf.File{Author: "Author " + string(rune('A'+i))})
		res, err := svc.Sign(context.Background(), &SignRequest{Filename: "a.pdf", Data: raw, Corner: c.in})
		if err != nil {
			t.Fatal(err)
		}
		if res.Corner != c.want {
			t.Errorf("%d: corner %s, want %s", i, res.Corner, c.want)
		}
	}

	svc := New(memstore.New(), &Options{DefaultCorner: placement.TopRight})
	res, err := svc.Sign(context.Background(), &SignRequest{Filename: "a.pdf", Data: buildPDF(t, &testpdf.File{}), Corner: ptr("nowhere")})
	if err != nil {
		t.Fatal(err)
	}
	if res.Corner != placement.TopRight {
		t.Errorf("configured default ignored, got %s", res.Corner)
	}
}

func TestStoreUnavailable(t *testing.T) {
	for _, op := range []string{"acquire", "find original", "insert original", "insert signed"} {
		svc, st := newService(t)
		st.Fail = func(o string) error {
			if o == op {
				return errors.New("connection refused")
			}
			return nil
		}
		_, err := svc.Sign(context.Background(), &SignRequest{Filename: "a.pdf", Data: buildPDF(t, &testpdf.File{})})
		var infra *InfrastructureError
		if !errors.As(err, &infra) || !errors.Is(err, ErrInfrastructure) {
			t.Errorf("%s: expected InfrastructureError, got %v", op, err)
		}
		if st.OpenSessions() != 0 {
			t.Errorf("%s: %d sessions left open", op, st.OpenSessions())
		}
		st.Fail = nil
		if n := len(st.Originals()); n != 0 {
			t.Errorf("%s: %d originals left behind", op, n)
		}
		if n := len(st.SignedRecords()); n != 0 {
			t.Errorf("%s: %d signed records left behind", op, n)
		}
	}
}

func TestVerifyStoreUnavailable(t *testing.T) {
	svc, st := newService(t)
	res := sign(t, svc, buildPDF(t, &testpdf.File{}))

	st.Fail = func(op string) error {
		if op == "find signed" {
			return errors.New("connection reset by peer")
		}
		return nil
	}
	_, err := svc.Verify(context.Background(), &VerifyRequest{Filename: "a.pdf", Data: res.Data})
	if !errors.Is(err, ErrInfrastructure) {
		t.Errorf("expected InfrastructureError, got %v", err)
	}
	if st.OpenSessions() != 0 {
		t.Errorf("%d sessions left open", st.OpenSessions())
	}
}

func TestInspect(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	raw := buildPDF(t, &testpdf.File{})
	traits, err := svc.Inspect(ctx, &InspectRequest{Filename: "a.pdf", Data: raw})
	if err != nil {
		t.Fatal(err)
	}
	want := Traits{Pages: 1, Margins: true, Verdict: Unsigned}
	if d := cmp.Diff(want, *traits, ignoreSkipped); d != "" {
		t.Errorf("clean document (-want +got):\n%s", d)
	}

	res := sign(t, svc, raw)
	traits, err = svc.Inspect(ctx, &InspectRequest{Filename: "a.pdf", Data: res.Data})
	if err != nil {
		t.Fatal(err)
	}
	want = Traits{
		Pages:         1,
		Margins:       true,
		Images:        true,
		Barcodes:      true,
		Watermark:     true,
		AlreadySigned: true,
		Verdict:       Authentic,
	}
	if d := cmp.Diff(want, *traits, ignoreSkipped); d != "" {
		t.Errorf("signed document (-want +got):\n%s", d)
	}

	small := buildPDF(t, &testpdf.File{
		Pages:  [][2]float64{{100, 200}},
		Author: "Small",
		Images: []image.Image{carrierImage(t, res.Data), carrierImage(t, res.Data)},
	})
	traits, err = svc.Inspect(ctx, &InspectRequest{Filename: "a.pdf", Data: small})
	if err != nil {
		t.Fatal(err)
	}
	want = Traits{
		Pages:     1,
		Images:    true,
		Barcodes:  true,
		Watermark: true,
		Modified:  true,
		Verdict:   Modified,
	}
	if d := cmp.Diff(want, *traits, ignoreSkipped); d != "" {
		t.Errorf("tampered document (-want +got):\n%s", d)
	}
}

var ignoreSkipped = cmpopts.IgnoreFields(Traits{}, "Skipped")

func TestSignedFilename(t *testing.T) {
	cases := map[string]string{
		"report.pdf":        "report_signed.pdf",
		"REPORT.PDF":        "REPORT_signed.pdf",
		"dir/my.report.pdf": "my.report_signed.pdf",
		"":                  "document_signed.pdf",
		"archive.tar.pdf":   "archive.tar_signed.pdf",
	}
	for in, want := range cases {
		if got := SignedFilename(in); got != want {
			t.Errorf("SignedFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestVerdictJSON(t *testing.T) {
	res := &VerifyResult{Verdict: Modified, Detail: "x", Candidates: 2}
	data, err := json.Marshal(res)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"verdict":"modified","detail":"x","candidates":2}` {
		t.Errorf("unexpected JSON %s", data)
	}

	var v Verdict
	if err := v.UnmarshalText([]byte("already-signed")); err != nil || v != AlreadySigned {
		t.Errorf("UnmarshalText: %v %v", v, err)
	}
	if err := v.UnmarshalText([]byte("fine")); err == nil {
		t.Error("unknown verdict accepted")
	}
	if _, err := Verdict(17).MarshalText(); err == nil {
		t.Error("invalid verdict marshalled")
	}
}

func ptr(s string) *string {
	return &s
}
