// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/poiesic/scriptvault"
	"github.com/poiesic/scriptvault/config"
	"github.com/poiesic/scriptvault/core"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "scriptvault",
		Usage: "Versioned script storage with bounded history",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the store over HTTP",
				Action: serveCommand,
				Flags: append(storeFlags(),
					&cli.StringFlag{
						Name:  "listen",
						Usage: "HTTP listen address",
						Value: ":8000",
					},
					&cli.StringSliceFlag{
						Name:    "api-key",
						Usage:   "Key accepted in the x-api-key header (repeatable)",
						EnvVars: []string{"SCRIPTVAULT_API_KEYS"},
					},
					&cli.Int64Flag{
						Name:  "max-payload-bytes",
						Usage: "Largest accepted upload in bytes",
						Value: 1 << 20,
					},
					&cli.IntFlag{
						Name:  "pool-size",
						Usage: "Maximum concurrent storage operations",
						Value: 64,
					},
				),
			},
			{
				Name:      "put",
				Usage:     "Store a new version of a script",
				ArgsUsage: "<group> <entity>",
				Action:    putCommand,
				Flags: append(storeFlags(),
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "Read the script from this file instead of stdin",
					},
				),
			},
			{
				Name:      "versions",
				Usage:     "List stored versions, oldest first",
				ArgsUsage: "<group> <entity>",
				Action:    versionsCommand,
				Flags:     storeFlags(),
			},
			{
				Name:      "info",
				Usage:     "Print the latest version id",
				ArgsUsage: "<group> <entity>",
				Action:    infoCommand,
				Flags:     storeFlags(),
			},
			{
				Name:      "latest",
				Usage:     "Print the content of the latest version",
				ArgsUsage: "<group> <entity>",
				Action:    latestCommand,
				Flags:     storeFlags(),
			},
		},
	}
}

// storeFlags are shared by every command that opens the store.
func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to a YAML config file",
		},
		&cli.StringFlag{
			Name:    "data-dir",
			Aliases: []string{"d"},
			Usage:   "Storage root directory",
			Value:   "./data_storage",
		},
		&cli.StringFlag{
			Name:  "backend",
			Usage: "Storage backend (fs, badger)",
			Value: config.BackendFilesystem,
		},
		&cli.IntFlag{
			Name:  "retention",
			Usage: "Number of versions kept per script",
			Value: 3,
		},
	}
}

// loadConfig reads --config if given and applies any flags set explicitly.
func loadConfig(c *cli.Context) (*config.Config, error) {
	var opts []config.Option
	if c.IsSet("data-dir") {
		opts = append(opts, config.WithDataDir(c.String("data-dir")))
	}
	if c.IsSet("backend") {
		opts = append(opts, config.WithBackend(c.String("backend")))
	}
	if c.IsSet("retention") {
		opts = append(opts, config.WithRetention(c.Int("retention")))
	}
	if c.IsSet("listen") {
		opts = append(opts, config.WithListen(c.String("listen")))
	}
	if c.IsSet("api-key") {
		opts = append(opts, config.WithAPIKeys(c.StringSlice("api-key")...))
	}
	if c.IsSet("max-payload-bytes") {
		opts = append(opts, config.WithMaxPayloadBytes(c.Int64("max-payload-bytes")))
	}
	if c.IsSet("pool-size") {
		opts = append(opts, config.WithWorkerPoolSize(c.Int("pool-size")))
	}

	cfg := config.NewConfig(opts...)
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.LoadFile(path, opts...); err != nil {
			return nil, err
		}
	}

	// An explicit --log-level wins over the config file.
	if !c.IsSet("log-level") {
		if err := configureLogger(cfg.LogLevel); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func namespaceArgs(c *cli.Context) (string, string, error) {
	if c.NArg() != 2 {
		return "", "", fmt.Errorf("expected <group> <entity>, got %d arguments", c.NArg())
	}
	return c.Args().Get(0), c.Args().Get(1), nil
}

// openVault loads config and opens the vault for a local command.
func openVault(c *cli.Context) (*scriptvault.Vault, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	v, err := scriptvault.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return v, nil
}

func serveCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	v, err := scriptvault.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer v.Close()

	srv, err := v.NewServer()
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer srv.Release()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("starting scriptvault", "listen", cfg.Listen, "backend", cfg.Backend, "data_dir", cfg.DataDir)
	if err := srv.ListenAndServe(ctx, cfg.Listen); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	slog.Info("scriptvault stopped")
	return nil
}

func putCommand(c *cli.Context) error {
	group, entity, err := namespaceArgs(c)
	if err != nil {
		return err
	}

	var payload []byte
	if path := c.String("file"); path != "" {
		payload, err = os.ReadFile(path)
	} else {
		payload, err = io.ReadAll(c.App.Reader)
	}
	if err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}

	v, err := openVault(c)
	if err != nil {
		return err
	}
	defer v.Close()

	outcome, err := v.Store().Put(context.Background(), group, entity, payload)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%s %s\n", outcome.Kind, outcome.Version)
	for _, id := range outcome.Pruned {
		fmt.Fprintf(c.App.ErrWriter, "pruned %s\n", id)
	}
	return nil
}

func versionsCommand(c *cli.Context) error {
	group, entity, err := namespaceArgs(c)
	if err != nil {
		return err
	}
	v, err := openVault(c)
	if err != nil {
		return err
	}
	defer v.Close()

	ids, err := v.Store().ListVersions(context.Background(), group, entity)
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Fprintln(c.App.Writer, id.FileName())
	}
	return nil
}

func infoCommand(c *cli.Context) error {
	group, entity, err := namespaceArgs(c)
	if err != nil {
		return err
	}
	v, err := openVault(c)
	if err != nil {
		return err
	}
	defer v.Close()

	latest, err := v.Store().GetLatestInfo(context.Background(), group, entity)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, latest)
	return nil
}

func latestCommand(c *cli.Context) error {
	group, entity, err := namespaceArgs(c)
	if err != nil {
		return err
	}
	v, err := openVault(c)
	if err != nil {
		return err
	}
	defer v.Close()

	_, payload, err := v.Store().GetLatestContent(context.Background(), group, entity)
	if errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("%s/%s: there is no versions for this file: %w", group, entity, err)
	}
	if err != nil {
		return err
	}
	_, err = c.App.Writer.Write(payload)
	return err
}

func setupLogger(c *cli.Context) error {
	return configureLogger(c.String("log-level"))
}

// configureLogger installs a stderr text logger at the named level as the
// slog default.
func configureLogger(levelStr string) error {
	levelStr = strings.ToLower(levelStr)

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
