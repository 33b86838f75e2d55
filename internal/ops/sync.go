package ops

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/hpungsan/ghostmcp/internal/journal"
	"github.com/hpungsan/ghostmcp/internal/postsync"
)

// SyncInput contains parameters for the Pull and Push operations.
type SyncInput struct {
	IDs    []string // empty means every post
	Format string   // structured (default), lexical, html or markdown
}

func (in SyncInput) options() (postsync.Options, error) {
	format, err := postsync.ParseFormat(in.Format)
	if err != nil {
		return postsync.Options{}, err
	}
	var ids []string
	for _, id := range in.IDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return postsync.Options{IDs: ids, Format: format}, nil
}

// Pull copies posts from Ghost into the sync directory and journals the run.
// database may be nil, in which case nothing is journaled.
func Pull(ctx context.Context, syncer *postsync.Syncer, database *sql.DB, input SyncInput) (*postsync.PullReport, error) {
	opts, err := input.options()
	if err != nil {
		return nil, err
	}
	started := time.Now()
	report, err := syncer.Pull(ctx, opts)
	if err != nil {
		return nil, err
	}

	recordRun(database, &journal.Run{
		Direction: journal.DirectionPull,
		Format:    string(opts.Format),
		IDs:       opts.IDs,
		Synced:    report.Synced,
		Skipped:   report.Skipped,
		Errors:    len(report.Errors),
	}, started, report)
	return report, nil
}

// Push sends local edits in the sync directory to Ghost and journals the run.
// database may be nil, in which case nothing is journaled.
func Push(ctx context.Context, syncer *postsync.Syncer, database *sql.DB, input SyncInput) (*postsync.PushReport, error) {
	opts, err := input.options()
	if err != nil {
		return nil, err
	}
	started := time.Now()
	report, err := syncer.Push(ctx, opts)
	if err != nil {
		return nil, err
	}

	recordRun(database, &journal.Run{
		Direction: journal.DirectionPush,
		Format:    string(opts.Format),
		IDs:       opts.IDs,
		Synced:    report.Synced,
		Skipped:   report.Skipped,
		Errors:    len(report.Errors),
		Info:      len(report.Info),
	}, started, report)
	return report, nil
}

// recordRun journals a finished run. Failures are logged, never returned:
// the sync itself already happened.
func recordRun(database *sql.DB, run *journal.Run, started time.Time, report any) {
	if database == nil {
		return
	}
	data, err := json.Marshal(report)
	if err != nil {
		slog.Warn("journal: encode report", "error", err)
		return
	}
	run.ID = journal.NewRunID(started)
	run.StartedAt = started.Unix()
	run.FinishedAt = time.Now().Unix()
	run.Report = data

	if err := journal.Record(database, run); err != nil {
		slog.Warn("journal: record sync run", "direction", run.Direction, "error", err)
	}
}
