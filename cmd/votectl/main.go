// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Command votectl administers a tokenvote store directly, without going
// through the HTTP API.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/danielhkuo/tokenvote/cliparse"
	"github.com/danielhkuo/tokenvote/db"
	"github.com/danielhkuo/tokenvote/voting"
)

// app is the state shared by every subcommand
type app struct {
	databaseURL  string
	databaseType string

	cfg  cliparse.Config
	conn *sql.DB
	svc  *voting.Service
	out  io.Writer
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	cmd := cobra.Command{
		Use:          "votectl",
		Short:        "Administer a tokenvote store",
		SilenceUsage: true,
	}

	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.SetOut(out)
	cmd.PersistentFlags().StringVarP(&a.databaseURL, "database-url", "d", "", "Database URL (default $DATABASE_URL)")
	cmd.PersistentFlags().StringVarP(&a.databaseType, "database-type", "t", "", "sqlite or postgres (default $DATABASE_TYPE)")

	cmd.AddCommand(newMigrateCmd(a))
	cmd.AddCommand(newIssueCmd(a))
	cmd.AddCommand(newTokensCmd(a))
	cmd.AddCommand(newRevokeCmd(a))
	cmd.AddCommand(newResultsCmd(a))

	return &cmd
}

// withStore opens the store around fn and always closes it
func (a *app) withStore(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		if err := a.open(cmd.Context()); err != nil {
			return err
		}
		defer func() {
			if cerr := a.close(); err == nil {
				err = cerr
			}
		}()
		return fn(cmd, args)
	}
}

func (a *app) open(ctx context.Context) error {
	if err := cliparse.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := cliparse.ToolConfig(a.databaseURL, a.databaseType)
	if err != nil {
		return err
	}
	a.cfg = cfg

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, err := db.Open(ctx, cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	a.conn = conn
	a.svc = voting.NewService(conn, voting.OptionsFromConfig(cfg))

	slog.Debug("store opened", "type", cfg.DatabaseType)
	return nil
}

func (a *app) close() error {
	if a.conn == nil {
		return nil
	}
	err := a.conn.Close()
	a.conn = nil
	if err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
