package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pkortright/flashdeck/internal/card"
	"github.com/pkortright/flashdeck/internal/config"
	"github.com/pkortright/flashdeck/internal/deck"
	"github.com/pkortright/flashdeck/internal/errors"
	"github.com/pkortright/flashdeck/internal/labels"
	"github.com/pkortright/flashdeck/internal/session"
	"github.com/pkortright/flashdeck/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(store *labels.Store, cfg *config.Config) *cli.App {
	app := &cli.App{
		Name:    "flashdeck",
		Usage:   "Single-page flashcard viewer",
		Version: Version,
		Commands: []*cli.Command{
			validateCmd(cfg),
			fetchCmd(store, cfg),
			serveCmd(store, cfg),
			statsCmd(store, cfg),
			labelsCmd(store),
			exportCmd(store, cfg),
			importCmd(store, cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// validateCmd creates the validate command.
func validateCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Validate a card dataset and report or fix common mistakes",
		ArgsUsage: "<source>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "fix", Usage: "Apply safe automatic fixes"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Write the fixed dataset to this file (default: stdout)"},
			&cli.BoolFlag{Name: "report", Usage: "Print a per-record report instead of JSON output"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("source argument is required"))
			}

			data, err := session.FetchDataset(c.Context, c.Args().First(), fetchTimeout(cfg))
			if err != nil {
				return outputError(err)
			}
			loaded, err := card.LoadJSON(data)
			if err != nil {
				return outputError(err)
			}

			lint := card.Lint(loaded.Cards, c.Bool("fix"))

			if c.Bool("report") {
				printReport(loaded, lint)
				if len(loaded.Issues) > 0 {
					return cli.Exit("", 1)
				}
				return nil
			}

			if c.Bool("fix") {
				out, err := json.MarshalIndent(lint.Cards, "", "  ")
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
				if path := c.String("out"); path != "" {
					if err := os.WriteFile(path, append(out, '\n'), 0600); err != nil {
						return outputError(errors.NewInternal(err))
					}
					fmt.Fprintf(os.Stderr, "wrote %d cards to %s (%d fixes)\n",
						len(lint.Cards), path, appliedCount(lint))
					return nil
				}
				fmt.Println(string(out))
				return nil
			}

			return outputJSON(map[string]any{
				"cards":       len(loaded.Cards),
				"issues":      loaded.Issues,
				"suggestions": lint.Suggestions,
			})
		},
	}
}

// fetchCmd creates the fetch command.
func fetchCmd(store *labels.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Load a dataset and print the matched cards as JSON",
		ArgsUsage: "[source]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dataset", Aliases: []string{"d"}, Usage: "Dataset to load (path or URL; overrides the positional source)"},
			&cli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "Substring match over question, categories, and answer"},
			&cli.StringFlag{Name: "category", Usage: "Require this exact category"},
			&cli.StringFlag{Name: "difficulty", Usage: "Match the effective difficulty (easy|medium|hard)"},
			&cli.StringFlag{Name: "usefulness", Usage: "Match the effective usefulness (useful|dangerous|information)"},
		},
		Action: func(c *cli.Context) error {
			source := c.String("dataset")
			if source == "" {
				source = c.Args().First()
			}

			s := session.New(store, cfg)
			if _, err := s.LoadDataset(c.Context, source); err != nil {
				return outputError(err)
			}

			q := deck.Query{
				Search:     c.String("search"),
				Category:   c.String("category"),
				Difficulty: c.String("difficulty"),
				Usefulness: c.String("usefulness"),
			}
			filter, err := s.SetFilter(q)
			if err != nil {
				return outputError(err)
			}
			views, err := s.Views()
			if err != nil {
				return outputError(err)
			}

			return outputJSON(map[string]any{
				"source": s.Source(),
				"query":  filter.Query,
				"shown":  filter.Shown,
				"total":  filter.Total,
				"cards":  views,
			})
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(store *labels.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Bind address"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 7434, Usage: "Port"},
			&cli.StringFlag{Name: "dataset", Aliases: []string{"d"}, Usage: "Dataset to load on startup (path or URL)"},
		},
		Action: func(c *cli.Context) error {
			s := session.New(store, cfg)

			source := c.String("dataset")
			if source == "" {
				source = cfg.Dataset
			}
			if source != "" {
				if _, err := s.LoadDataset(c.Context, source); err != nil {
					return outputError(err)
				}
			}

			srv := web.NewServer(s, cfg, Version, c.String("bind"), c.Int("port"))
			return web.Run(srv)
		},
	}
}

// statsCmd creates the stats command.
func statsCmd(store *labels.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "stats",
		Usage:     "Load a dataset and print aggregate counters and filter options",
		ArgsUsage: "[source]",
		Action: func(c *cli.Context) error {
			s := session.New(store, cfg)
			if _, err := s.LoadDataset(c.Context, c.Args().First()); err != nil {
				return outputError(err)
			}

			return outputJSON(map[string]any{
				"source":  s.Source(),
				"stats":   s.Stats(),
				"options": s.Options(),
				"issues":  s.Issues(),
			})
		},
	}
}

// labelsCmd creates the labels command group.
func labelsCmd(store *labels.Store) *cli.Command {
	return &cli.Command{
		Name:  "labels",
		Usage: "Inspect or clear the persistent label store",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Print all stored labels as JSON",
				Action: func(c *cli.Context) error {
					all, err := store.LoadAll(c.Context)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(all)
				},
			},
			{
				Name:  "clear",
				Usage: "Delete all stored labels",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "confirm", Usage: "Required to actually clear"},
				},
				Action: func(c *cli.Context) error {
					if !c.Bool("confirm") {
						return outputError(errors.NewInvalidRequest("pass --confirm to clear all labels"))
					}
					if err := store.Clear(c.Context); err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]any{"cleared": true})
				},
			},
		},
	}
}

// exportCmd creates the export command.
func exportCmd(store *labels.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Load a dataset and export it with labels to a JSON file",
		ArgsUsage: "[source]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Destination path (default: exports dir)"},
		},
		Action: func(c *cli.Context) error {
			s := session.New(store, cfg)
			if _, err := s.LoadDataset(c.Context, c.Args().First()); err != nil {
				return outputError(err)
			}

			output, err := s.Export(c.String("out"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// importCmd creates the import command.
func importCmd(store *labels.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import a card array or export file, replacing stored labels for envelopes",
		ArgsUsage: "<path>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("path argument is required"))
			}

			s := session.New(store, cfg)
			output, err := s.Import(c.Context, c.Args().First())
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// Helper functions

// printReport prints a human-readable validation report.
func printReport(loaded *card.LoadResult, lint *card.LintResult) {
	fmt.Printf("%d cards, %d issues, %d suggestions\n",
		len(loaded.Cards), len(loaded.Issues), len(lint.Suggestions))
	for _, issue := range loaded.Issues {
		fmt.Printf("  record %d: [%s] %s: %s\n", issue.Index, issue.Code, issue.Field, issue.Reason)
	}
	for _, sug := range lint.Suggestions {
		marker := " "
		if sug.Applied {
			marker = "*"
		}
		fmt.Printf("  record %d: %s %s: %s\n", sug.Index, marker, sug.Field, sug.Message)
	}
}

// appliedCount counts suggestions that were actually applied.
func appliedCount(lint *card.LintResult) int {
	n := 0
	for _, s := range lint.Suggestions {
		if s.Applied {
			n++
		}
	}
	return n
}

// fetchTimeout returns the configured fetch timeout.
func fetchTimeout(cfg *config.Config) time.Duration {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return time.Duration(cfg.FetchTimeoutSecs) * time.Second
}

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if deckErr, ok := err.(*errors.DeckError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", deckErr.Code, deckErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
