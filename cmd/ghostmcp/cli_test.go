package main

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/ghostmcp/internal/config"
	"github.com/hpungsan/ghostmcp/internal/ghost"
	"github.com/hpungsan/ghostmcp/internal/ghost/ghosttest"
	"github.com/hpungsan/ghostmcp/internal/journal"
	"github.com/hpungsan/ghostmcp/internal/logging"
	"github.com/hpungsan/ghostmcp/internal/ops"
	"github.com/hpungsan/ghostmcp/internal/postsync"
)

// setupTestEnv creates an env backed by a fake Ghost site and a temporary journal.
func setupTestEnv(t *testing.T) (*env, *ghosttest.Server) {
	t.Helper()

	srv := ghosttest.NewServer(t)
	client, err := ghost.New(ghost.Options{APIURL: srv.URL, AdminAPIKey: ghosttest.AdminKey})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	database, err := journal.Init(t.TempDir())
	if err != nil {
		t.Fatalf("failed to init test journal: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	return &env{
		db:       database,
		cfg:      config.DefaultConfig(),
		logger:   logging.Discard(),
		client:   client,
		syncRoot: filepath.Join(t.TempDir(), "posts"),
	}, srv
}

// runCLI runs the app with args and returns what it wrote to stdout.
func runCLI(t *testing.T, e *env, args ...string) (string, error) {
	t.Helper()

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stdout = w

	done := make(chan []byte)
	go func() {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		done <- buf.Bytes()
	}()

	runErr := newCLIApp(e).Run(append([]string{"ghostmcp"}, args...))

	w.Close()
	out := <-done
	os.Stdout = oldStdout
	return string(out), runErr
}

// TestParseDuration tests the parseDuration helper function.
func TestParseDuration(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    int
		expectError bool
	}{
		{name: "valid days", input: "7d", expected: 7},
		{name: "large value", input: "365d", expected: 365},
		{name: "zero days", input: "0d", expectError: true},
		{name: "negative", input: "-1d", expectError: true},
		{name: "missing suffix", input: "7", expectError: true},
		{name: "hours not supported", input: "24h", expectError: true},
		{name: "not a number", input: "xd", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDuration(tt.input)
			if tt.expectError {
				if err == nil {
					t.Errorf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("parseDuration(%q) = %d, want %d", tt.input, got, tt.expected)
			}
		})
	}
}

// TestCLIPullPush tests a pull, a local edit and a push.
func TestCLIPullPush(t *testing.T) {
	e, srv := setupTestEnv(t)
	id := srv.AddPost(map[string]any{"title": "CLI", "slug": "cli", "html": "<h2>Intro</h2>\n<p>Hello</p>"})

	out, err := runCLI(t, e, "pull", "--format", "markdown")
	if err != nil {
		t.Fatalf("pull failed: %v", err)
	}
	var pull postsync.PullReport
	if err := json.Unmarshal([]byte(out), &pull); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if pull.Synced != 1 {
		t.Fatalf("pull synced = %d, want 1", pull.Synced)
	}

	mdPath := filepath.Join(e.syncRoot, "cli", postsync.MarkdownFile)
	md, err := os.ReadFile(mdPath)
	if err != nil {
		t.Fatalf("markdown file not written: %v", err)
	}
	if !strings.Contains(string(md), "## Intro") {
		t.Errorf("unexpected markdown: %q", md)
	}
	if err := os.WriteFile(mdPath, []byte("## Intro\n\nHello again\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err = runCLI(t, e, "push", "-f", "markdown", "--id", id)
	if err != nil {
		t.Fatalf("push failed: %v", err)
	}
	var push postsync.PushReport
	if err := json.Unmarshal([]byte(out), &push); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if push.Synced != 1 {
		t.Fatalf("push synced = %d, want 1: %s", push.Synced, out)
	}
	stored, _ := srv.Post(id)
	if html, _ := stored["html"].(string); !strings.Contains(html, "<p>Hello again</p>") {
		t.Errorf("remote html = %q", html)
	}
}

// TestCLIPush_PartialFailureExitsNonZero checks that per-post errors still
// print the report and surface as an exit error.
func TestCLIPush_PartialFailureExitsNonZero(t *testing.T) {
	e, srv := setupTestEnv(t)
	id := srv.AddPost(map[string]any{"title": "Busy", "slug": "busy", "html": "<p>v1</p>"})

	if _, err := runCLI(t, e, "pull", "--format", "html"); err != nil {
		t.Fatalf("pull failed: %v", err)
	}
	srv.Touch(id, map[string]any{"html": "<p>v2</p>"})
	htmlPath := filepath.Join(e.syncRoot, "busy", postsync.HTMLFile)
	if err := os.WriteFile(htmlPath, []byte("<p>local</p>"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, e, "push", "--format", "html")
	if err == nil {
		t.Fatal("expected an exit error for a conflicting push")
	}
	exitErr, ok := err.(cli.ExitCoder)
	if !ok || exitErr.ExitCode() != 2 {
		t.Errorf("err = %v, want exit code 2", err)
	}

	var push postsync.PushReport
	if err := json.Unmarshal([]byte(out), &push); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if len(push.Errors) != 1 || push.Errors[0].Kind != postsync.KindConflict {
		t.Errorf("errors = %+v, want one conflict", push.Errors)
	}
	stored, _ := srv.Post(id)
	if stored["html"] != "<p>v2</p>" {
		t.Errorf("remote must be untouched, got %v", stored["html"])
	}
}

// TestMain_PushPartialFailureExitCode runs the binary's main in a child
// process and checks that per-post failures set exit status 2.
func TestMain_PushPartialFailureExitCode(t *testing.T) {
	if args := os.Getenv("GHOSTMCP_MAIN_ARGS"); args != "" {
		os.Args = append([]string{"ghostmcp"}, strings.Fields(args)...)
		main()
		return
	}

	e, srv := setupTestEnv(t)
	id := srv.AddPost(map[string]any{"title": "Stale", "slug": "stale", "html": "<p>v1</p>"})
	if _, err := runCLI(t, e, "pull", "--format", "html"); err != nil {
		t.Fatalf("pull failed: %v", err)
	}
	srv.Touch(id, map[string]any{"html": "<p>v2</p>"})
	if err := os.WriteFile(filepath.Join(e.syncRoot, "stale", postsync.HTMLFile), []byte("<p>local</p>"), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := exec.Command(os.Args[0], "-test.run=^TestMain_PushPartialFailureExitCode$")
	cmd.Dir = t.TempDir()
	cmd.Env = append(os.Environ(),
		"GHOSTMCP_MAIN_ARGS=push --format html",
		"HOME="+t.TempDir(),
		config.EnvAPIURL+"="+srv.URL,
		config.EnvAdminAPIKey+"="+ghosttest.AdminKey,
		config.EnvSyncDir+"="+e.syncRoot,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	var exitErr *exec.ExitError
	if !stderrors.As(err, &exitErr) {
		t.Fatalf("expected a non-zero exit, got %v\nstderr: %s", err, stderr.String())
	}
	if exitErr.ExitCode() != 2 {
		t.Errorf("exit code = %d, want 2\nstderr: %s", exitErr.ExitCode(), stderr.String())
	}
	if !strings.Contains(stdout.String(), "conflict") {
		t.Errorf("expected the report on stdout, got: %s", stdout.String())
	}
	if !strings.Contains(stderr.String(), "1 post(s) failed") || strings.Contains(stderr.String(), "error: 1 post(s) failed") {
		t.Errorf("unexpected stderr: %s", stderr.String())
	}
}

func TestExitStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantOut  string
	}{
		{name: "partial failure", err: cli.Exit("1 post(s) failed", 2), wantCode: 2, wantOut: "1 post(s) failed\n"},
		{name: "coded error", err: outputError(stderrors.New("boom")), wantCode: 1, wantOut: "boom\n"},
		{name: "plain error", err: stderrors.New("flag provided but not defined"), wantCode: 1, wantOut: "error: flag provided but not defined\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if got := exitStatus(&buf, tt.err); got != tt.wantCode {
				t.Errorf("exitStatus() = %d, want %d", got, tt.wantCode)
			}
			if buf.String() != tt.wantOut {
				t.Errorf("output = %q, want %q", buf.String(), tt.wantOut)
			}
		})
	}
}

// TestCLIBrowseRead tests the browse and read commands.
func TestCLIBrowseRead(t *testing.T) {
	e, srv := setupTestEnv(t)
	id := srv.AddPost(map[string]any{"title": "Listed", "slug": "listed", "html": "<p>body</p>"})

	out, err := runCLI(t, e, "browse", "--limit", "3")
	if err != nil {
		t.Fatalf("browse failed: %v", err)
	}
	var listing ops.BrowseOutput
	if err := json.Unmarshal([]byte(out), &listing); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if len(listing.Posts) != 1 || listing.Limit != 3 {
		t.Errorf("unexpected listing: %+v", listing)
	}

	out, err = runCLI(t, e, "read", "--slug", "listed")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var post map[string]any
	if err := json.Unmarshal([]byte(out), &post); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if post["id"] != id || post["html"] != "<p>body</p>" {
		t.Errorf("unexpected post: %v", post)
	}

	_, err = runCLI(t, e, "read", "--slug", "listed", id)
	if err == nil || !strings.Contains(err.Error(), "AMBIGUOUS_ADDRESSING") {
		t.Errorf("err = %v, want AMBIGUOUS_ADDRESSING", err)
	}
}

// TestCLIHistoryPurge tests the journal commands.
func TestCLIHistoryPurge(t *testing.T) {
	e, srv := setupTestEnv(t)
	srv.AddPost(map[string]any{"title": "H"})

	if _, err := runCLI(t, e, "pull"); err != nil {
		t.Fatalf("pull failed: %v", err)
	}
	old := time.Now().AddDate(0, 0, -40)
	if err := journal.Record(e.db, &journal.Run{
		ID:         journal.NewRunID(old),
		Direction:  journal.DirectionPush,
		Format:     "structured",
		StartedAt:  old.Unix(),
		FinishedAt: old.Unix(),
	}); err != nil {
		t.Fatalf("failed to record old run: %v", err)
	}

	out, err := runCLI(t, e, "history")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	var history ops.HistoryOutput
	if err := json.Unmarshal([]byte(out), &history); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if history.Pagination.Total != 2 {
		t.Fatalf("total = %d, want 2", history.Pagination.Total)
	}
	if history.Runs[0].Direction != journal.DirectionPull {
		t.Errorf("newest run direction = %s, want pull", history.Runs[0].Direction)
	}

	out, err = runCLI(t, e, "history", history.Runs[0].ID)
	if err != nil {
		t.Fatalf("history by id failed: %v", err)
	}
	if !strings.Contains(out, `"report"`) {
		t.Errorf("expected the run report in output: %s", out)
	}

	out, err = runCLI(t, e, "purge", "--older-than", "30d")
	if err != nil {
		t.Fatalf("purge failed: %v", err)
	}
	var purge ops.PurgeOutput
	if err := json.Unmarshal([]byte(out), &purge); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if purge.Purged != 1 {
		t.Errorf("purged = %d, want 1", purge.Purged)
	}

	_, err = runCLI(t, e, "purge", "--older-than", "30")
	if err == nil || !strings.Contains(err.Error(), "INVALID_REQUEST") {
		t.Errorf("err = %v, want INVALID_REQUEST", err)
	}
}

// TestCLI_WithoutGhostConfig checks that network commands explain the
// missing configuration while journal commands keep working.
func TestCLI_WithoutGhostConfig(t *testing.T) {
	e, _ := setupTestEnv(t)
	e.client = nil

	for _, cmd := range []string{"pull", "push", "browse"} {
		_, err := runCLI(t, e, cmd)
		if err == nil || !strings.Contains(err.Error(), config.EnvAPIURL) {
			t.Errorf("%s: err = %v, want it to name %s", cmd, err, config.EnvAPIURL)
		}
	}

	if _, err := runCLI(t, e, "history"); err != nil {
		t.Errorf("history should not need Ghost: %v", err)
	}
}

func TestIsCLIMode(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	tests := []struct {
		args []string
		want bool
	}{
		{args: []string{"ghostmcp"}, want: false},
		{args: []string{"ghostmcp", "pull"}, want: true},
		{args: []string{"ghostmcp", "history"}, want: true},
		{args: []string{"ghostmcp", "--version"}, want: true},
		{args: []string{"ghostmcp", "serve"}, want: false},
	}
	for _, tt := range tests {
		os.Args = tt.args
		if got := isCLIMode(); got != tt.want {
			t.Errorf("isCLIMode(%v) = %v, want %v", tt.args, got, tt.want)
		}
	}
}
