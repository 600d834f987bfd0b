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

// Package buildinfo reports the version of the running binary.
package buildinfo

import (
	"runtime/debug"
)

// Info describes the running binary.
type Info struct {
	Path      string `json:"path,omitempty"`
	Version   string `json:"version"`
	Revision  string `json:"revision,omitempty"`
	Dirty     bool   `json:"dirty,omitempty"`
	GoVersion string `json:"go"`
}

// Read collects the version information embedded by the Go toolchain.
// If no information is available, Version is "unknown".
func Read() Info {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Info{Version: "unknown"}
	}

	res := Info{
		Path:      info.Main.Path,
		Version:   info.Main.Version,
		GoVersion: info.GoVersion,
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			res.Revision = s.Value
		case "vcs.modified":
			res.Dirty = s.Value == "true"
		}
	}
	if res.Version == "" {
		res.Version = "(devel)"
	}
	return res
}

// Short returns a short version string for the named program, e.g.
// "pdfmark (seehuhn.de/go/pdfmark v0.1.0)".
func Short(name string) string {
	return Read().Short(name)
}

// Short formats the version information for the named program.  Tagged
// versions are shown as is; development builds show the abbreviated VCS
// revision instead.
func (info Info) Short(name string) string {
	if info.Path == "" {
		return name
	}
	if info.Version != "(devel)" && info.Version != "unknown" {
		return name + " (" + info.Path + " " + info.Version + ")"
	}

	rev := info.Revision
	if rev == "" {
		return name
	}
	if len(rev) > 8 {
		rev = rev[:8]
	}
	if info.Dirty {
		rev += "+dirty"
	}
	return name + " (" + info.Path + " " + rev + ")"
}
