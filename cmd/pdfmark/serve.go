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

package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"seehuhn.de/go/pdfmark/internal/buildinfo"
	"seehuhn.de/go/pdfmark/server"
)

func (a *app) serveCmd() *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		Long: `Serve answers signing and verification requests over HTTP.  The
endpoints are POST /sign, POST /verify and POST /inspect, which take a
multipart upload in the form field "file", together with GET /health and
GET /metrics.  The server stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if address != "" {
				a.cfg.Server.Address = address
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			svc, st, err := a.service()
			if err != nil {
				return err
			}
			defer st.Close()

			a.log.Info("starting",
				zap.String("version", buildinfo.Read().Version),
				zap.String("address", a.cfg.Server.Address),
				zap.String("store", a.cfg.Store.Driver))
			srv := server.New(&a.cfg.Server, svc, a.log)
			err = srv.Run(ctx)
			if err != nil {
				return err
			}
			a.log.Info("stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "listen address, for example :8000")
	return cmd
}
