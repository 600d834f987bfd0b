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

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"seehuhn.de/go/pdfmark/config"
	"seehuhn.de/go/pdfmark/internal/logger"
	"seehuhn.de/go/pdfmark/internal/profile"
	"seehuhn.de/go/pdfmark/store"
	"seehuhn.de/go/pdfmark/store/gormstore"
	"seehuhn.de/go/pdfmark/store/memstore"
	"seehuhn.de/go/pdfmark/workflow"
)

// app holds the state shared by all subcommands.
type app struct {
	configFile string
	storeName  string
	dsn        string
	verbose    bool
	cpuprofile string
	memprofile string

	// newStore, if set, replaces the configured record store.
	newStore func() (store.Store, error)

	cfg         *config.Config
	log         *zap.Logger
	stopProfile func() error
}

func newRootCmd() *cobra.Command {
	return (&app{}).rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pdfmark",
		Short: "Tamper-evident watermarks for PDF files",
		Long: `Pdfmark stamps a Data Matrix symbol onto the first page of a PDF file.
The symbol names the owner of the document, and the same message is hidden
in the pixels of the symbol.  Verification finds the hidden message and
compares the document with the stored record of the signed file.`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "YAML configuration file")
	flags.StringVar(&a.storeName, "store", "", "record store: memory or postgres")
	flags.StringVar(&a.dsn, "dsn", "", "PostgreSQL connection string")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&a.cpuprofile, "cpuprofile", "", "write CPU profile to `file`")
	flags.StringVar(&a.memprofile, "memprofile", "", "write memory profile to `file`")

	root.AddCommand(
		a.signCmd(),
		a.verifyCmd(),
		a.inspectCmd(),
		a.serveCmd(),
		versionCmd(),
	)
	return root
}

// setup loads the configuration and creates the logger.  Command line
// flags take precedence over the environment, which takes precedence over
// the configuration file.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if a.configFile != "" {
		var err error
		cfg, err = config.Load(a.configFile)
		if err != nil {
			return err
		}
	}
	err := cfg.ApplyEnv()
	if err != nil {
		return err
	}
	if a.storeName != "" {
		cfg.Store.Driver = a.storeName
	}
	if a.dsn != "" {
		cfg.Store.DSN = a.dsn
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	}
	err = cfg.Validate()
	if err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}
	a.cfg = cfg

	a.log, err = logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	a.stopProfile, err = profile.Start(a.cpuprofile, a.memprofile)
	return err
}

func (a *app) teardown(cmd *cobra.Command, args []string) error {
	var errs []error
	if a.stopProfile != nil {
		errs = append(errs, a.stopProfile())
	}
	if a.log != nil {
		// Sync fails for unbuffered terminals; there is nothing to report.
		_ = a.log.Sync()
	}
	return errors.Join(errs...)
}

// openStore connects to the configured record store.
func (a *app) openStore() (store.Store, error) {
	if a.newStore != nil {
		return a.newStore()
	}
	switch a.cfg.Store.Driver {
	case config.DriverPostgres:
		st, err := gormstore.OpenPostgres(a.cfg.Store.DSN, &gormstore.Options{
			MaxOpenConns:    a.cfg.Store.MaxOpenConns,
			MaxIdleConns:    a.cfg.Store.MaxIdleConns,
			ConnMaxLifetime: a.cfg.Store.ConnMaxLifetime,
			SlowQuery:       a.cfg.Store.SlowQuery,
			Logger:          a.log,
		})
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return memstore.New(), nil
	}
}

// service opens the store and returns a workflow using it.  The caller
// must close the store.
func (a *app) service() (*workflow.Service, store.Store, error) {
	st, err := a.openStore()
	if err != nil {
		return nil, nil, err
	}
	svc := workflow.New(st, &workflow.Options{
		Logger:        a.log,
		DefaultCorner: a.cfg.DefaultCorner(),
	})
	return svc, st, nil
}
