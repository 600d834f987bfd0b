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

// Package server exposes the signing workflow over HTTP.
//
// The routes are:
//
//	POST /sign     multipart field "file", optional field "location"
//	POST /verify   multipart field "file"
//	POST /inspect  multipart field "file"
//	GET  /health
//	GET  /metrics
package server

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"seehuhn.de/go/pdfmark/config"
	"seehuhn.de/go/pdfmark/workflow"
)

// Server is the HTTP front end of a [workflow.Service].
type Server struct {
	cfg     config.ServerConfig
	svc     *workflow.Service
	logger  *zap.Logger
	metrics *Metrics
	engine  *gin.Engine
}

// New sets up the routes and middleware.
func New(cfg *config.ServerConfig, svc *workflow.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "server"))

	gin.SetMode(cfg.Mode)
	engine := gin.New()

	s := &Server{
		cfg:     *cfg,
		svc:     svc,
		logger:  logger,
		metrics: NewMetrics(),
		engine:  engine,
	}

	engine.Use(requestID(logger))
	engine.Use(logRequests(logger, s.metrics))
	engine.Use(recoverPanic(logger, s.metrics))
	engine.MaxMultipartMemory = cfg.MaxUploadBytes

	engine.GET("/health", s.health)
	engine.GET("/metrics", s.showMetrics)

	upload := engine.Group("/")
	upload.Use(limitBody(cfg.MaxUploadBytes))
	{
		upload.POST("/sign", s.sign)
		upload.POST("/verify", s.verify)
		upload.POST("/inspect", s.inspect)
	}

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Metrics returns the metrics collector of the server.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Run serves HTTP requests on the configured address until ctx is
// cancelled.  Requests in progress are then given the configured shutdown
// timeout to complete.
func (s *Server) Run(ctx context.Context) error {
	l, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, l)
}

// Serve is like [Server.Run] but uses an existing listener.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:      s.engine,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
		ErrorLog:     zap.NewStdLog(s.logger),
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(l)
	}()
	s.logger.Info("listening", zap.String("address", l.Addr().String()))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	if err2 := <-errc; !errors.Is(err2, http.ErrServerClosed) && err == nil {
		err = err2
	}
	return err
}
