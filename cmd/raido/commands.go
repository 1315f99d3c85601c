package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/starford/raido/internal"
	"github.com/starford/raido/internal/engine"
	"github.com/starford/raido/internal/linkcheck"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/parser"
	"github.com/starford/raido/internal/report"
	pkgconfig "github.com/starford/raido/pkg/config"
)

// commonFlags are repeated on every subcommand so they can appear after the
// subcommand name.
func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to config file",
			Value:   "raido.yaml",
			Sources: cli.EnvVars("RAIDO_CONFIG_FILE"),
		},
		&cli.StringFlag{
			Name:    "vault",
			Usage:   "Document tree root (overrides config)",
			Sources: cli.EnvVars("RAIDO_VAULT"),
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: text, json, or csv",
			Value:   "text",
		},
		&cli.BoolFlag{
			Name:  "strict",
			Usage: "Treat unresolved link targets as errors",
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Enable debug logging",
		},
	}
}

func buildApp(cmd *cli.Command) (*internal.App, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if v := cmd.String("vault"); v != "" {
		cfg.Vault.Path = v
	}
	if cmd.Bool("verbose") {
		cfg.App.LogLevel = slog.LevelDebug
	}
	if cmd.Bool("strict") {
		cfg.App.Strict = true
	}
	return internal.NewApp(internal.WithConfig(cfg))
}

// emit renders the result to stdout and maps failure to exit code 1.
func emit(cmd *cli.Command, res *models.OperationResult) error {
	format, err := report.ParseFormat(cmd.String("output"))
	if err != nil {
		return err
	}
	if err := report.Render(os.Stdout, format, res); err != nil {
		return err
	}
	if !res.Success {
		return cli.Exit("", 1)
	}
	return nil
}

func moveCommand() *cli.Command {
	return &cli.Command{
		Name:      "move",
		Usage:     "Move a document and rewrite every link that points at it",
		ArgsUsage: "<from> <to>",
		Flags: append(commonFlags(),
			&cli.BoolFlag{Name: "dry-run", Usage: "Report changes without writing files"},
			&cli.BoolFlag{Name: "backup", Usage: "Write sibling backup copies before overwriting"},
			&cli.BoolFlag{Name: "continue-on-error", Usage: "Keep applying steps after a failure instead of rolling back"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args().Slice()
			if len(args) != 2 {
				return fmt.Errorf("move: want <from> <to>, got %d argument(s)", len(args))
			}
			app, err := buildApp(cmd)
			if err != nil {
				return err
			}
			res := app.Engine.Move(engine.MoveOptions{
				From:            args[0],
				To:              args[1],
				DryRun:          cmd.Bool("dry-run"),
				Strict:          app.Config.App.Strict,
				Backup:          cmd.Bool("backup") || app.Config.Backup.Enabled,
				ContinueOnError: cmd.Bool("continue-on-error"),
			})
			return emit(cmd, res)
		},
	}
}

func splitCommand() *cli.Command {
	return &cli.Command{
		Name:      "split",
		Usage:     "Partition a document into section files",
		ArgsUsage: "<file>",
		Flags: append(commonFlags(),
			&cli.StringFlag{Name: "strategy", Usage: "header, size, marker, or lines", Value: engine.SplitByHeader},
			&cli.IntFlag{Name: "level", Usage: "Heading level for the header strategy", Value: 2},
			&cli.IntFlag{Name: "max-bytes", Usage: "Per-section byte budget for the size strategy"},
			&cli.StringSliceFlag{Name: "marker", Usage: "Marker line for the marker strategy (repeatable)"},
			&cli.StringFlag{Name: "lines", Usage: "Comma-separated 1-based line numbers for the lines strategy"},
			&cli.StringFlag{Name: "out-dir", Usage: "Directory for section files (default: the source's directory)"},
			&cli.BoolFlag{Name: "keep-frontmatter", Usage: "Propagate the source frontmatter into every section"},
			&cli.BoolFlag{Name: "delete-source", Usage: "Remove the source document after splitting"},
			&cli.BoolFlag{Name: "dry-run", Usage: "Report changes without writing files"},
			&cli.BoolFlag{Name: "backup", Usage: "Write sibling backup copies before overwriting"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args().Slice()
			if len(args) != 1 {
				return fmt.Errorf("split: want <file>, got %d argument(s)", len(args))
			}
			lines, err := parseLines(cmd.String("lines"))
			if err != nil {
				return err
			}
			app, err := buildApp(cmd)
			if err != nil {
				return err
			}
			res := app.Engine.Split(engine.SplitOptions{
				File:            args[0],
				Strategy:        cmd.String("strategy"),
				Level:           int(cmd.Int("level")),
				MaxBytes:        int(cmd.Int("max-bytes")),
				Markers:         cmd.StringSlice("marker"),
				Lines:           lines,
				OutputDir:       cmd.String("out-dir"),
				KeepFrontmatter: cmd.Bool("keep-frontmatter"),
				DeleteSource:    cmd.Bool("delete-source"),
				DryRun:          cmd.Bool("dry-run"),
				Backup:          cmd.Bool("backup") || app.Config.Backup.Enabled,
			})
			return emit(cmd, res)
		},
	}
}

func joinCommand() *cli.Command {
	return &cli.Command{
		Name:      "join",
		Usage:     "Combine documents into one, keeping the sources",
		ArgsUsage: "<inputs...>",
		Flags:     append(commonFlags(), joinFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			opts, err := joinOptions(cmd)
			if err != nil {
				return err
			}
			app, err := buildApp(cmd)
			if err != nil {
				return err
			}
			return emit(cmd, app.Engine.Join(opts))
		},
	}
}

func mergeCommand() *cli.Command {
	return &cli.Command{
		Name:      "merge",
		Usage:     "Combine documents into one, delete the sources, and redirect incoming links",
		ArgsUsage: "<inputs...>",
		Flags: append(append(commonFlags(), joinFlags()...),
			&cli.BoolFlag{Name: "continue-on-error", Usage: "Keep applying steps after a failure instead of rolling back"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			opts, err := joinOptions(cmd)
			if err != nil {
				return err
			}
			app, err := buildApp(cmd)
			if err != nil {
				return err
			}
			res := app.Engine.Merge(engine.MergeOptions{
				JoinOptions:     opts,
				ContinueOnError: cmd.Bool("continue-on-error"),
			})
			return emit(cmd, res)
		},
	}
}

func joinFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "out", Usage: "Path of the combined document", Required: true},
		&cli.StringFlag{Name: "strategy", Usage: "dependency, alphabetical, manual, or chronological", Value: engine.JoinByDependency},
		&cli.StringSliceFlag{Name: "order", Usage: "Explicit file order for the manual strategy (repeatable)"},
		&cli.StringFlag{Name: "primary", Usage: "Section whose frontmatter wins merge conflicts"},
		&cli.BoolFlag{Name: "dry-run", Usage: "Report changes without writing files"},
		&cli.BoolFlag{Name: "backup", Usage: "Write sibling backup copies before overwriting"},
	}
}

func joinOptions(cmd *cli.Command) (engine.JoinOptions, error) {
	inputs := cmd.Args().Slice()
	if len(inputs) == 0 {
		return engine.JoinOptions{}, fmt.Errorf("%s: at least one input path or glob is required", cmd.Name)
	}
	return engine.JoinOptions{
		Files:    inputs,
		Output:   cmd.String("out"),
		Strategy: cmd.String("strategy"),
		Order:    cmd.StringSlice("order"),
		Primary:  cmd.String("primary"),
		DryRun:   cmd.Bool("dry-run"),
		Backup:   cmd.Bool("backup"),
	}, nil
}

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Validate links: internal targets always, external URLs on request",
		ArgsUsage: "[paths...]",
		Flags: append(commonFlags(),
			&cli.BoolFlag{Name: "external", Usage: "Also probe external URLs over HTTP"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := buildApp(cmd)
			if err != nil {
				return err
			}
			format, err := report.ParseFormat(cmd.String("output"))
			if err != nil {
				return err
			}

			res := app.Engine.Check(engine.CheckOptions{
				Paths:  cmd.Args().Slice(),
				Strict: app.Config.App.Strict,
			})
			if err := report.Render(os.Stdout, format, res); err != nil {
				return err
			}

			broken := !res.Success
			if cmd.Bool("external") {
				results, err := checkExternal(ctx, app, cmd.Args().Slice())
				if err != nil {
					return err
				}
				if err := report.RenderLinkResults(os.Stdout, format, results); err != nil {
					return err
				}
				for _, r := range results {
					if r.Status == linkcheck.StatusBroken {
						broken = true
					}
				}
			}
			if broken {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

func checkExternal(ctx context.Context, app *internal.App, patterns []string) ([]linkcheck.Result, error) {
	var paths []string
	if len(patterns) == 0 {
		infos, err := app.Store.List(".")
		if err != nil {
			return nil, fmt.Errorf("list vault: %w", err)
		}
		for _, info := range infos {
			if info.Err != "" {
				continue // the internal check reports unreadable entries
			}
			paths = append(paths, info.Path)
		}
	} else {
		var err error
		paths, err = app.Store.Glob(patterns...)
		if err != nil {
			return nil, fmt.Errorf("expand inputs: %w", err)
		}
	}

	docs := make([]*parser.Document, 0, len(paths))
	for _, p := range paths {
		b, err := app.Store.Read(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		docs = append(docs, parser.Parse(p, b))
	}
	return app.LinkChecker().Check(ctx, docs), nil
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Watch the document tree and revalidate links on every change",
		Flags: commonFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := buildApp(cmd)
			if err != nil {
				return err
			}
			format, err := report.ParseFormat(cmd.String("output"))
			if err != nil {
				return err
			}
			return app.Watch(ctx, func(res *models.OperationResult) {
				if err := report.Render(os.Stdout, format, res); err != nil {
					app.Logger.Error("render failed", slog.String("error", err.Error()))
				}
			})
		},
	}
}

// parseLines parses a comma-separated list of 1-based line numbers.
func parseLines(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid line number %q", p)
		}
		out = append(out, n)
	}
	return out, nil
}
