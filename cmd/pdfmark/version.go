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
	"fmt"

	"github.com/spf13/cobra"

	"seehuhn.de/go/pdfmark/internal/buildinfo"
)

func versionCmd() *cobra.Command {
	var long bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !long {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), buildinfo.Short("pdfmark"))
				return err
			}
			info := buildinfo.Read()
			_, err := fmt.Fprintf(cmd.OutOrStdout(),
				"path:     %s\nversion:  %s\nrevision: %s\ndirty:    %t\ngo:       %s\n",
				info.Path, info.Version, info.Revision, info.Dirty, info.GoVersion)
			return err
		},
	}
	cmd.Flags().BoolVarP(&long, "long", "l", false, "print details of the build")
	return cmd
}
