package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/ghostmcp/internal/errors"
	"github.com/hpungsan/ghostmcp/internal/ops"
	"github.com/hpungsan/ghostmcp/internal/postsync"
)

// newCLIApp creates the CLI application with all commands.
// e may be nil when only help or version output is needed.
func newCLIApp(e *env) *cli.App {
	app := &cli.App{
		Name:    "ghostmcp",
		Usage:   "Ghost admin tools and post sync",
		Version: Version,
		Commands: []*cli.Command{
			pullCmd(e),
			pushCmd(e),
			browseCmd(e),
			readCmd(e),
			historyCmd(e),
			purgeCmd(e),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// syncFlags are shared by pull and push.
func syncFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: string(postsync.FormatStructured), Usage: "Local content format: structured|html|markdown"},
		&cli.StringSliceFlag{Name: "id", Usage: "Post id to sync (repeatable; default all)"},
	}
}

// syncer returns a Syncer over the configured Ghost client.
func (e *env) syncer() (*postsync.Syncer, error) {
	store, err := e.store()
	if err != nil {
		return nil, err
	}
	return postsync.New(store, e.syncRoot, e.logger), nil
}

// store returns the Ghost client or the reason it is unavailable.
func (e *env) store() (ops.PostStore, error) {
	if e.client == nil {
		if e.clientErr != nil {
			return nil, e.clientErr
		}
		return nil, e.cfg.Validate()
	}
	return e.client, nil
}

// pullCmd creates the pull command.
func pullCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "pull",
		Usage: "Copy posts from Ghost into the sync directory",
		Flags: syncFlags(),
		Action: func(c *cli.Context) error {
			syncer, err := e.syncer()
			if err != nil {
				return outputError(err)
			}

			report, err := ops.Pull(c.Context, syncer, e.db, ops.SyncInput{
				IDs:    c.StringSlice("id"),
				Format: c.String("format"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputReport(report, len(report.Errors))
		},
	}
}

// pushCmd creates the push command.
func pushCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "push",
		Usage: "Upload local edits in the sync directory to Ghost",
		Flags: syncFlags(),
		Action: func(c *cli.Context) error {
			syncer, err := e.syncer()
			if err != nil {
				return outputError(err)
			}

			report, err := ops.Push(c.Context, syncer, e.db, ops.SyncInput{
				IDs:    c.StringSlice("id"),
				Format: c.String("format"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputReport(report, len(report.Errors))
		},
	}
}

// browseCmd creates the browse command.
func browseCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "browse",
		Usage: "List posts without content",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "filter", Usage: "Ghost NQL filter, e.g. status:draft"},
			&cli.StringFlag{Name: "order", Usage: "Sort order, e.g. \"published_at desc\""},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultBrowseLimit, Usage: "Posts per page"},
			&cli.IntFlag{Name: "page", Aliases: []string{"p"}, Value: 1, Usage: "Page number"},
		},
		Action: func(c *cli.Context) error {
			store, err := e.store()
			if err != nil {
				return outputError(err)
			}

			output, err := ops.Browse(c.Context, store, ops.BrowseInput{
				Filter: c.String("filter"),
				Order:  c.String("order"),
				Limit:  c.Int("limit"),
				Page:   c.Int("page"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// readCmd creates the read command.
func readCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "read",
		Usage:     "Read a post by id or slug",
		ArgsUsage: "[id]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "slug", Aliases: []string{"s"}, Usage: "Post slug"},
			&cli.StringFlag{Name: "formats", Usage: "Content formats: html|lexical|html,lexical"},
		},
		Action: func(c *cli.Context) error {
			store, err := e.store()
			if err != nil {
				return outputError(err)
			}

			input := ops.ReadInput{
				Slug:    c.String("slug"),
				Formats: c.String("formats"),
			}
			if c.NArg() > 0 {
				input.ID = c.Args().First()
			}

			post, err := ops.Read(c.Context, store, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(post)
		},
	}
}

// historyCmd creates the history command.
func historyCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "history",
		Usage:     "List recorded sync runs, or show one run with its report",
		ArgsUsage: "[run-id]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "direction", Aliases: []string{"d"}, Usage: "Filter by direction: pull|push"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultHistoryLimit, Usage: "Maximum runs to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Runs to skip"},
		},
		Action: func(c *cli.Context) error {
			input := ops.HistoryInput{
				Direction: c.String("direction"),
				Limit:     c.Int("limit"),
				Offset:    c.Int("offset"),
			}
			if c.NArg() > 0 {
				input.RunID = c.Args().First()
			}

			output, err := ops.History(e.db, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// purgeCmd creates the purge command.
func purgeCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "purge",
		Usage: "Delete recorded sync runs older than a number of days",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "older-than", Required: true, Usage: "Purge runs started more than N days ago (e.g., 30d)"},
		},
		Action: func(c *cli.Context) error {
			days, err := parseDuration(c.String("older-than"))
			if err != nil {
				return outputError(errors.NewInvalidRequest(err.Error()))
			}

			output, err := ops.Purge(e.db, ops.PurgeInput{OlderThanDays: days})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// outputReport prints a sync report and exits non-zero when any post failed,
// so scripts can detect partial failure without parsing the report.
func outputReport(report any, failures int) error {
	if err := outputJSON(report); err != nil {
		return err
	}
	if failures > 0 {
		return cli.Exit(fmt.Sprintf("%d post(s) failed", failures), 2)
	}
	return nil
}

// outputError formats error for CLI.
func outputError(err error) error {
	if gErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", gErr.Code, gErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// parseDuration parses "7d" format to days.
func parseDuration(s string) (int, error) {
	if numStr, ok := strings.CutSuffix(s, "d"); ok {
		days, err := strconv.Atoi(numStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		if days < 1 {
			return 0, fmt.Errorf("duration must be at least 1d")
		}
		return days, nil
	}
	return 0, fmt.Errorf("duration must end with 'd' (days), e.g., 30d")
}
