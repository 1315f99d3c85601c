package main

import (
	"context"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:  "raido",
		Usage: "Link-aware refactoring for Markdown document trees: move, split, join, and merge with link integrity",
		Commands: []*cli.Command{
			moveCommand(),
			splitCommand(),
			joinCommand(),
			mergeCommand(),
			checkCommand(),
			watchCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		if msg := err.Error(); msg != "" {
			slog.Error("application error", slog.String("error", msg))
		}
		os.Exit(1)
	}
}
