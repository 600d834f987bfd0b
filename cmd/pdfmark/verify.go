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
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"seehuhn.de/go/pdfmark/workflow"
)

func (a *app) verifyCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "verify <file.pdf>...",
		Short: "Check the watermark of PDF files",
		Long: `Verify reads the watermark of each file and reports one of the verdicts
"unsigned", "authentic" or "modified".  The exit status is non-zero if a
file could not be read or if the record store is unavailable.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, st, err := a.service()
			if err != nil {
				return err
			}
			defer st.Close()

			out := cmd.OutOrStdout()
			for _, fname := range args {
				data, err := os.ReadFile(fname)
				if err != nil {
					return err
				}
				res, err := svc.Verify(cmd.Context(), &workflow.VerifyRequest{
					Filename: filepath.Base(fname),
					Data:     data,
				})
				if err != nil {
					return fmt.Errorf("%s: %w", fname, err)
				}
				if asJSON {
					err = writeJSON(out, res)
				} else {
					err = writeVerdict(out, fname, res)
				}
				if err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	return cmd
}

func writeVerdict(w io.Writer, fname string, res *workflow.VerifyResult) error {
	line := fmt.Sprintf("%s: %s", fname, res.Verdict)
	if res.Detail != "" {
		line += " (" + res.Detail + ")"
	}
	_, err := fmt.Fprintln(w, line)
	return err
}

func (a *app) inspectCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "inspect <file.pdf>",
		Short: "Show the properties of a PDF file relevant for signing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fname := args[0]
			data, err := os.ReadFile(fname)
			if err != nil {
				return err
			}

			svc, st, err := a.service()
			if err != nil {
				return err
			}
			defer st.Close()

			traits, err := svc.Inspect(cmd.Context(), &workflow.InspectRequest{
				Filename: filepath.Base(fname),
				Data:     data,
			})
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), traits)
			}
			return writeTraits(cmd.OutOrStdout(), traits)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func writeTraits(w io.Writer, t *workflow.Traits) error {
	b := &strings.Builder{}
	fmt.Fprintf(b, "pages:          %d\n", t.Pages)
	fmt.Fprintf(b, "margins ok:     %t\n", t.Margins)
	fmt.Fprintf(b, "images:         %t\n", t.Images)
	fmt.Fprintf(b, "data matrix:    %t\n", t.Barcodes)
	fmt.Fprintf(b, "hidden message: %t\n", t.Watermark)
	fmt.Fprintf(b, "already signed: %t\n", t.AlreadySigned)
	fmt.Fprintf(b, "verdict:        %s\n", t.Verdict)
	for _, s := range t.Skipped {
		fmt.Fprintf(b, "skipped:        %s\n", s)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
