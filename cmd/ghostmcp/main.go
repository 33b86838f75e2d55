package main

import (
	"database/sql"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/ghostmcp/internal/config"
	"github.com/hpungsan/ghostmcp/internal/ghost"
	"github.com/hpungsan/ghostmcp/internal/journal"
	"github.com/hpungsan/ghostmcp/internal/logging"
	"github.com/hpungsan/ghostmcp/internal/mcp"
	"github.com/hpungsan/ghostmcp/internal/ops"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"pull": true, "push": true,
	"browse": true, "read": true,
	"history": true, "purge": true,
	"help": true,
}

// env is everything a command or the MCP server needs.
type env struct {
	db     *sql.DB
	cfg    *config.Config
	logger *slog.Logger

	// client is nil when the Ghost connection is not configured; clientErr says why.
	client    ops.PostStore
	clientErr error

	syncRoot string
}

// deps adapts env to the MCP handler dependencies.
func (e *env) deps() mcp.Deps {
	return mcp.Deps{
		DB:       e.db,
		Config:   e.cfg,
		Store:    e.client,
		StoreErr: e.clientErr,
		SyncRoot: e.syncRoot,
		Logger:   e.logger,
	}
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   ___ _               _
  / __| |_  ___ ___ __| |_   _ __  __ _ __
 | (_ | ' \/ _ (_-</ _|  _| | '  \/ _| '_ \
  \___|_||_\___/__/\__|\__| |_|_|_\__| .__/
                                     |_|
  Ghost admin tools and post sync

  Usage: ghostmcp <command> [options]
         ghostmcp --help

  MCP server mode requires piped input.`)
}

// bootstrap loads configuration, the journal and the Ghost client.
// A missing or invalid Ghost connection is not fatal: journal commands still work.
func bootstrap() (*env, error) {
	// .env never overrides variables already set in the environment.
	_ = godotenv.Load()

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("could not determine home directory: %w", err)
	}
	baseDir := filepath.Join(homeDir, config.RepoDirName)

	workDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("could not determine working directory: %w", err)
	}

	cfg, err := config.LoadWithRepo(baseDir, workDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg = config.ApplyEnv(cfg, os.Getenv)

	logger := logging.Setup(cfg.LogLevel)
	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		logger.Warn("unknown tools in disabled_tools", "tools", unknown)
	}
	if unknown := mcp.ValidateDisabledTypes(cfg.DisabledTypes); len(unknown) > 0 {
		logger.Warn("unknown types in disabled_types", "types", unknown)
	}

	database, err := journal.Init(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize journal: %w", err)
	}

	e := &env{
		db:       database,
		cfg:      cfg,
		logger:   logger,
		syncRoot: cfg.ResolveSyncDir(workDir),
	}
	client, err := ghost.NewFromConfig(cfg, Version)
	if err != nil {
		logger.Warn("ghost connection unavailable", "error", err)
		e.clientErr = err
	} else {
		e.client = client
	}
	return e, nil
}

// exitStatus prints err to w and returns the process exit code. Errors built
// with cli.Exit keep their own code and are printed as-is.
func exitStatus(w io.Writer, err error) int {
	var exitErr cli.ExitCoder
	if stderrors.As(err, &exitErr) {
		if msg := exitErr.Error(); msg != "" {
			fmt.Fprintln(w, msg)
		}
		return exitErr.ExitCode()
	}
	fmt.Fprintf(w, "error: %v\n", err)
	return 1
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before any setup
	if isHelpOrVersion() {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			os.Exit(exitStatus(os.Stderr, err))
		}
		return
	}

	e, err := bootstrap()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer e.db.Close()

	// CLI mode: known subcommand
	if isCLIMode() {
		app := newCLIApp(e)
		if err := app.Run(os.Args); err != nil {
			code := exitStatus(os.Stderr, err)
			e.db.Close()
			os.Exit(code)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'ghostmcp --help' for usage.\n")
		e.db.Close()
		os.Exit(1)
	}

	// MCP server mode (default)
	if err := mcp.Run(e.deps(), Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		e.db.Close()
		os.Exit(1)
	}
}
