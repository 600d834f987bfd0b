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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"seehuhn.de/go/pdfmark/workflow"
)

type signOptions struct {
	output   string
	location string
	force    bool
}

func (a *app) signCmd() *cobra.Command {
	opt := &signOptions{}
	cmd := &cobra.Command{
		Use:   "sign <file.pdf>",
		Short: "Stamp a watermark onto a PDF file",
		Long: `Sign stamps a Data Matrix symbol onto the first page of a PDF file and
records the original and the signed version.  By default the result is
written next to the input, with "_signed" appended to the file name.
Use "-o -" to write to standard output.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.sign(cmd, args[0], opt)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&opt.output, "output", "o", "", "output file name, or - for standard output")
	flags.StringVar(&opt.location, "location", "", "corner for the symbol: top-left, top-right, bottom-left or bottom-right")
	flags.BoolVarP(&opt.force, "force", "f", false, "overwrite an existing output file")
	return cmd
}

func (a *app) sign(cmd *cobra.Command, fname string, opt *signOptions) error {
	data, err := os.ReadFile(fname)
	if err != nil {
		return err
	}

	out := opt.output
	if out == "" {
		out = filepath.Join(filepath.Dir(fname), workflow.SignedFilename(filepath.Base(fname)))
	}
	if out == "-" {
		if f, ok := cmd.OutOrStdout().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			return errors.New("refusing to write PDF data to a terminal")
		}
	} else if !opt.force {
		_, err := os.Stat(out)
		if err == nil {
			return fmt.Errorf("%s: %w (use --force to overwrite)", out, fs.ErrExist)
		}
	}

	svc, st, err := a.service()
	if err != nil {
		return err
	}
	defer st.Close()

	req := &workflow.SignRequest{
		Filename: filepath.Base(fname),
		Data:     data,
	}
	if cmd.Flags().Changed("location") {
		req.Corner = &opt.location
	}
	res, err := svc.Sign(cmd.Context(), req)
	if err != nil {
		return err
	}

	if out == "-" {
		_, err = cmd.OutOrStdout().Write(res.Data)
		return err
	}
	err = os.WriteFile(out, res.Data, 0o644)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "signed %s -> %s (%s corner)\n", fname, out, res.Corner)
	return nil
}
