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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"seehuhn.de/go/pdfmark/placement"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	fname := filepath.Join(t.TempDir(), "pdfmark.yaml")
	require.NoError(t, os.WriteFile(fname, []byte(body), 0o644))
	return fname
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, placement.BottomRight, cfg.DefaultCorner())
}

func TestLoad(t *testing.T) {
	fname := writeFile(t, `
server:
  address: "127.0.0.1:9000"
  read_timeout: 3s
store:
  driver: postgres
  dsn: "host=db user=pdfmark dbname=pdfmark sslmode=disable"
  max_open_conns: 4
watermark:
  corner: top-left
`)
	cfg, err := Load(fname)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, "127.0.0.1:9000", cfg.Server.Address)
	require.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	require.Equal(t, Default().Server.WriteTimeout, cfg.Server.WriteTimeout)
	require.Equal(t, DriverPostgres, cfg.Store.Driver)
	require.Equal(t, 4, cfg.Store.MaxOpenConns)
	require.Equal(t, Default().Store.MaxIdleConns, cfg.Store.MaxIdleConns)
	require.Equal(t, placement.TopLeft, cfg.DefaultCorner())
}

func TestLoadEmpty(t *testing.T) {
	cfg, err := Load(writeFile(t, ""))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = Load(writeFile(t, "server:\n  adress: x\n"))
	require.Error(t, err, "unknown key accepted")

	_, err = Load(writeFile(t, "server:\n  read_timeout: soon\n"))
	require.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PDFMARK_ADDRESS", ":1234")
	t.Setenv("PDFMARK_MAX_UPLOAD_BYTES", "1000")
	t.Setenv("PDFMARK_STORE", "postgres")
	t.Setenv("PDFMARK_DSN", "postgres://localhost/pdfmark")
	t.Setenv("PDFMARK_CORNER", "top-right")

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv())
	require.NoError(t, cfg.Validate())
	require.Equal(t, ":1234", cfg.Server.Address)
	require.Equal(t, int64(1000), cfg.Server.MaxUploadBytes)
	require.Equal(t, DriverPostgres, cfg.Store.Driver)
	require.Equal(t, "postgres://localhost/pdfmark", cfg.Store.DSN)
	require.Equal(t, placement.TopRight, cfg.DefaultCorner())

	t.Setenv("PDFMARK_MAX_UPLOAD_BYTES", "lots")
	require.Error(t, Default().ApplyEnv())
}

func TestApplyEnvDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://fallback/db")
	os.Unsetenv("PDFMARK_DSN")

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv())
	require.Equal(t, "postgres://fallback/db", cfg.Store.DSN)
}

func TestValidate(t *testing.T) {
	cases := []func(*Config){
		func(c *Config) { c.Server.Address = "" },
		func(c *Config) { c.Server.MaxUploadBytes = 0 },
		func(c *Config) { c.Server.Mode = "fast" },
		func(c *Config) { c.Server.IdleTimeout = -time.Second },
		func(c *Config) { c.Store.Driver = "mysql" },
		func(c *Config) { c.Store.Driver = DriverPostgres; c.Store.DSN = "" },
		func(c *Config) { c.Store.MaxIdleConns = -1 },
		func(c *Config) { c.Log.Level = "chatty" },
		func(c *Config) { c.Log.Format = "xml" },
		func(c *Config) { c.Watermark.Corner = "middle" },
	}
	for i, modify := range cases {
		cfg := Default()
		modify(cfg)
		require.Error(t, cfg.Validate(), "case %d", i)
	}
}
