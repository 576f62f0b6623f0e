// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Command mattermost-proxybot reposts tagged Mattermost messages under the
// name and avatar of a system member.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.mau.fi/util/exzerolog"

	"github.com/aiku/mattermost-proxybot/pkg/config"
	"github.com/aiku/mattermost-proxybot/pkg/database"
)

const programName = "mattermost-proxybot"

// These are filled at build time with -ldflags.
var (
	Tag       = "unknown"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var globalFlags struct {
	configPath string
	noUpdate   bool
}

// loadConfig reads the config file and installs the configured logger.
func loadConfig() (*config.Config, *zerolog.Logger, error) {
	cfg, err := config.Load(globalFlags.configPath, !globalFlags.noUpdate)
	if err != nil {
		return nil, nil, err
	}
	log, err := cfg.Logging.Compile()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	exzerolog.SetupDefaults(log)
	return cfg, log, nil
}

func openDatabase(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*database.Database, error) {
	db, err := database.Open(cfg.Database.Type, cfg.Database.URI, database.PoolConfig{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxIdleTime: cfg.Database.MaxConnIdleTime,
	}, log)
	if err != nil {
		return nil, err
	}
	if err = db.Upgrade(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to upgrade database: %w", err)
	}
	return db, nil
}

func runCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to Mattermost and start proxying",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, *log)
		},
	}
}

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Upgrade the database schema and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openDatabase(cmd.Context(), cfg, *log)
			if err != nil {
				return err
			}
			log.Info().Msg("Database is up to date")
			return db.Close()
		},
	}
}

func generateConfigCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "generate-config",
		Short: "Write the example config to the config path",
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
			if !force {
				flags |= os.O_EXCL
			}
			f, err := os.OpenFile(globalFlags.configPath, flags, 0o600)
			if errors.Is(err, os.ErrExist) {
				return fmt.Errorf("%s already exists, pass --force to overwrite it", globalFlags.configPath)
			} else if err != nil {
				return err
			}
			if _, err = f.WriteString(config.ExampleConfig); err != nil {
				_ = f.Close()
				return err
			}
			if err = f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote example config to %s\n", globalFlags.configPath)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	return cmd
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (commit %s, built %s)\n", programName, Tag, Commit, BuildTime)
		},
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           programName,
		Short:         "A proxy bot for plural systems on Mattermost",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&globalFlags.configPath, "config", "c", "config.yaml", "path to the config file")
	root.PersistentFlags().BoolVarP(&globalFlags.noUpdate, "no-update", "n", false, "don't save the upgraded config file")

	runCmd := runCommand()
	root.RunE = runCmd.RunE
	root.AddCommand(runCmd, migrateCommand(), generateConfigCommand(), versionCommand())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
