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

package server

import (
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"seehuhn.de/go/pdfmark/internal/buildinfo"
	"seehuhn.de/go/pdfmark/workflow"
)

var errTooLarge = errors.New("upload too large")

// readUpload returns the name and contents of the uploaded file.
func readUpload(c *gin.Context) (string, []byte, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		if isTooLarge(err) {
			return "", nil, errTooLarge
		}
		return "", nil, &workflow.ValidationError{Reason: "no file uploaded", Err: err}
	}
	f, err := fh.Open()
	if err != nil {
		return "", nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return "", nil, err
	}
	return fh.Filename, data, nil
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || errors.Is(err, errTooLarge)
}

func (s *Server) sign(c *gin.Context) {
	name, data, err := readUpload(c)
	if err != nil {
		s.fail(c, "sign", err)
		return
	}
	s.metrics.ObserveSize("sign", int64(len(data)))

	req := &workflow.SignRequest{Filename: name, Data: data}
	if loc, ok := c.GetPostForm("location"); ok {
		req.Corner = &loc
	}
	res, err := s.svc.Sign(c.Request.Context(), req)
	if err != nil {
		s.fail(c, "sign", err)
		return
	}
	s.metrics.Inc("sign", "ok")

	c.Header("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": res.Filename}))
	c.Header("X-Watermark-Corner", res.Corner.String())
	c.Data(http.StatusOK, "application/pdf", res.Data)
}

func (s *Server) verify(c *gin.Context) {
	name, data, err := readUpload(c)
	if err != nil {
		s.fail(c, "verify", err)
		return
	}
	s.metrics.ObserveSize("verify", int64(len(data)))

	res, err := s.svc.Verify(c.Request.Context(), &workflow.VerifyRequest{Filename: name, Data: data})
	if err != nil {
		s.fail(c, "verify", err)
		return
	}
	s.metrics.Inc("verify", res.Verdict.String())
	c.JSON(http.StatusOK, res)
}

func (s *Server) inspect(c *gin.Context) {
	name, data, err := readUpload(c)
	if err != nil {
		s.fail(c, "inspect", err)
		return
	}

	traits, err := s.svc.Inspect(c.Request.Context(), &workflow.InspectRequest{Filename: name, Data: data})
	if err != nil {
		s.fail(c, "inspect", err)
		return
	}
	s.metrics.Inc("inspect", "ok")
	c.JSON(http.StatusOK, traits)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "up",
		"name":    "pdfmark",
		"version": buildinfo.Read().Version,
	})
}

func (s *Server) showMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.metrics.Snapshot())
}

// fail writes an error response.  The status code depends on the class of
// the error.
func (s *Server) fail(c *gin.Context, op string, err error) {
	status, outcome := classify(err)
	s.metrics.Inc(op, outcome)
	_ = c.Error(err)

	log := requestLogger(c, s.logger)
	if status >= 500 {
		log.Error(op+" failed", zap.Error(err))
	} else {
		log.Debug(op+" rejected", zap.Error(err), zap.String("outcome", outcome))
	}

	body := gin.H{
		"error":      err.Error(),
		"request_id": c.GetString(requestIDKey),
	}
	var dup *workflow.DuplicateSignatureError
	if errors.As(err, &dup) {
		body["verdict"] = dup.Verdict()
	}
	if status == http.StatusInternalServerError {
		body["error"] = "internal server error"
	}
	c.AbortWithStatusJSON(status, body)
}

func classify(err error) (int, string) {
	switch {
	case isTooLarge(err):
		return http.StatusRequestEntityTooLarge, "too-large"
	case errors.Is(err, workflow.ErrValidation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, workflow.ErrGeometry):
		return http.StatusUnprocessableEntity, "geometry"
	case errors.Is(err, workflow.ErrDuplicate):
		return http.StatusConflict, "duplicate"
	case errors.Is(err, workflow.ErrInfrastructure):
		return http.StatusServiceUnavailable, "infrastructure"
	default:
		return http.StatusInternalServerError, "error"
	}
}
