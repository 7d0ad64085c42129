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
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/poiesic/kernelci"
	"github.com/poiesic/kernelci/config"
	"github.com/poiesic/kernelci/core"
	"github.com/poiesic/kernelci/hooks"
	"github.com/poiesic/kernelci/server"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	defaults := config.DefaultConfig()
	return &cli.App{
		Name:  "kernelci",
		Usage: "Import kernel CI build artifacts and notify subscribers",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory",
				Value:   defaults.DBPath,
			},
			&cli.StringFlag{
				Name:    "base-path",
				Aliases: []string{"b"},
				Usage:   "Root of the <job>/<kernel>/<variant> artifact tree",
				Value:   defaults.BasePath,
			},
			&cli.StringFlag{
				Name:  "hooks",
				Usage: "YAML file listing hook subscribers",
				Value: defaults.HooksFile,
			},
			&cli.DurationFlag{
				Name:  "http-timeout",
				Usage: "Timeout for each hook delivery request",
				Value: defaults.HTTPTimeout,
			},
			&cli.IntFlag{
				Name:  "max-attempts",
				Usage: "Delivery attempts per subscriber",
				Value: defaults.MaxAttempts,
			},
			&cli.DurationFlag{
				Name:  "retry-delay",
				Usage: "Base delay for exponential backoff between delivery attempts",
				Value: defaults.RetryDelay,
			},
			&cli.BoolFlag{
				Name:  "retry-server-errors",
				Usage: "Retry deliveries answered with a 5xx status",
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "Subscribers delivered to in parallel",
				Value: defaults.Concurrency,
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "import",
				Usage:  "Import one job/kernel directory",
				Action: importCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "job",
						Aliases:  []string{"j"},
						Usage:    "Job (tree) name",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "kernel",
						Aliases:  []string{"k"},
						Usage:    "Kernel version name",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "notify",
						Usage: "Send a build event to subscribers after importing",
					},
				},
			},
			{
				Name:   "import-all",
				Usage:  "Import every job/kernel directory under the base path",
				Action: importAllCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N kernels",
						Value: 10,
					},
				},
			},
			{
				Name:   "hook",
				Usage:  "Send a JSON payload to the subscribers of an event",
				Action: hookCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "event",
						Aliases:  []string{"e"},
						Usage:    "Event type (lava, boot, build)",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "payload",
						Usage: "JSON payload",
					},
					&cli.StringFlag{
						Name:  "payload-file",
						Usage: "File holding the JSON payload",
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Usage: "Address to listen on",
						Value: defaults.ListenAddr,
					},
				},
			},
			{
				Name:   "show",
				Usage:  "Print a stored job and its variants",
				Action: showCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "id",
						Usage: "Job ID (<job>-<kernel>)",
					},
					&cli.StringFlag{
						Name:  "job",
						Usage: "Job name, combined with --kernel instead of --id",
					},
					&cli.StringFlag{
						Name:  "kernel",
						Usage: "Kernel name, combined with --job instead of --id",
					},
				},
			},
		},
	}
}

// loadConfig builds the configuration from defaults, KERNELCI_* variables
// and explicitly set flags, in increasing precedence.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if c.IsSet("db") {
		cfg.DBPath = c.String("db")
	}
	if c.IsSet("base-path") {
		cfg.BasePath = c.String("base-path")
	}
	if c.IsSet("hooks") {
		cfg.HooksFile = c.String("hooks")
	}
	if c.IsSet("http-timeout") {
		cfg.HTTPTimeout = c.Duration("http-timeout")
	}
	if c.IsSet("max-attempts") {
		cfg.MaxAttempts = c.Int("max-attempts")
	}
	if c.IsSet("retry-delay") {
		cfg.RetryDelay = c.Duration("retry-delay")
	}
	if c.IsSet("retry-server-errors") {
		cfg.RetryServerErrors = c.Bool("retry-server-errors")
	}
	if c.IsSet("concurrency") {
		cfg.Concurrency = c.Int("concurrency")
	}
	if c.IsSet("listen") {
		cfg.ListenAddr = c.String("listen")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openService(c *cli.Context, opts ...kernelci.ServiceOption) (*kernelci.Service, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	svc, err := kernelci.NewService(cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return svc, nil
}

func importCommand(c *cli.Context) error {
	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	report, err := svc.ImportJob(c.Context, c.String("job"), c.String("kernel"), c.Bool("notify"))
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Fprintf(c.App.ErrWriter, "Imported %s: %d variants, %d documents saved\n",
		report.Result.JobID, len(report.Result.Variants), report.Result.Saved)
	if len(report.Outcomes) > 0 {
		return printOutcomes(c, report.Outcomes)
	}
	return nil
}

func importAllCommand(c *cli.Context) error {
	interval := c.Int("report-interval")
	if interval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}

	svc, err := openService(c, kernelci.WithProgress(c.App.ErrWriter, interval))
	if err != nil {
		return err
	}
	defer svc.Close()

	fmt.Fprintf(c.App.ErrWriter, "Base path: %s\n", svc.Config().BasePath)
	fmt.Fprintf(c.App.ErrWriter, "Database: %s\n", svc.Config().DBPath)
	fmt.Fprintln(c.App.ErrWriter)

	start := time.Now()
	results, err := svc.ImportAll(c.Context)
	fmt.Fprintf(c.App.ErrWriter, "Imported %d kernels in %s\n", len(results), time.Since(start).Round(time.Millisecond))
	if err != nil {
		var merr *multierror.Error
		if errors.As(err, &merr) {
			return fmt.Errorf("%d imports failed: %w", len(merr.Errors), err)
		}
		return err
	}
	return nil
}

func hookCommand(c *cli.Context) error {
	eventType, err := core.ParseEventType(c.String("event"))
	if err != nil {
		return err
	}

	payload, err := readPayload(c)
	if err != nil {
		return err
	}

	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	outcomes := svc.Dispatch(c.Context, eventType, payload)
	if err := printOutcomes(c, outcomes); err != nil {
		return err
	}

	failed := 0
	for _, o := range outcomes {
		if !o.Delivered {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d deliveries failed", failed, len(outcomes))
	}
	return nil
}

func readPayload(c *cli.Context) (json.RawMessage, error) {
	inline, file := c.String("payload"), c.String("payload-file")
	var data []byte
	switch {
	case inline != "" && file != "":
		return nil, fmt.Errorf("use only one of --payload and --payload-file")
	case inline != "":
		data = []byte(inline)
	case file != "":
		var err error
		data, err = os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read payload: %w", err)
		}
	default:
		return nil, fmt.Errorf("one of --payload or --payload-file is required")
	}

	if !json.Valid(data) {
		return nil, fmt.Errorf("payload is not valid JSON")
	}
	return json.RawMessage(data), nil
}

func serveCommand(c *cli.Context) error {
	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.New(svc, slog.Default()).ListenAndServe(ctx, svc.Config().ListenAddr)
}

func showCommand(c *cli.Context) error {
	id := c.String("id")
	if id == "" {
		job, kernel := c.String("job"), c.String("kernel")
		if job == "" || kernel == "" {
			return fmt.Errorf("either --id or both --job and --kernel are required")
		}
		id = core.JobID(job, kernel)
	}

	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	view, err := svc.Lookup(c.Context, id)
	if err != nil {
		if kernelci.IsNotFound(err) {
			return fmt.Errorf("job %q not found", id)
		}
		return err
	}
	return printJSON(c, view)
}

func printOutcomes(c *cli.Context, outcomes []hooks.Outcome) error {
	return printJSON(c, outcomes)
}

func printJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
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

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
