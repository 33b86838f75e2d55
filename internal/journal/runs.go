package journal

import (
	"database/sql"
	"encoding/json"
	stderrors "errors"

	"github.com/hpungsan/ghostmcp/internal/errors"
)

// Sync directions.
const (
	DirectionPull = "pull"
	DirectionPush = "push"
)

// Run is one journaled sync run. Times are Unix seconds.
type Run struct {
	ID         string          `json:"id"`
	Direction  string          `json:"direction"`
	Format     string          `json:"format"`
	IDs        []string        `json:"ids,omitempty"`
	StartedAt  int64           `json:"started_at"`
	FinishedAt int64           `json:"finished_at"`
	Synced     int             `json:"synced"`
	Skipped    int             `json:"skipped"`
	Errors     int             `json:"errors"`
	Info       int             `json:"info"`
	Report     json.RawMessage `json:"report,omitempty"`
}

// Record stores a finished run.
func Record(db *sql.DB, r *Run) error {
	var idsJSON sql.NullString
	if len(r.IDs) > 0 {
		data, err := json.Marshal(r.IDs)
		if err != nil {
			return errors.NewInternal(err)
		}
		idsJSON = sql.NullString{String: string(data), Valid: true}
	}
	report := string(r.Report)
	if report == "" {
		report = "{}"
	}

	_, err := db.Exec(`
		INSERT INTO sync_runs (
			id, direction, format, ids_json, started_at, finished_at,
			synced, skipped, errors, info, report_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Direction, r.Format, idsJSON, r.StartedAt, r.FinishedAt,
		r.Synced, r.Skipped, r.Errors, r.Info, report,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ListFilters narrows List. Empty Direction lists both directions.
type ListFilters struct {
	Direction string
	Limit     int
	Offset    int
}

// List returns runs newest first, without the stored report, and the total
// number of matching runs.
func List(db *sql.DB, f ListFilters) ([]Run, int, error) {
	where := ""
	args := []any{}
	if f.Direction != "" {
		where = " WHERE direction = ?"
		args = append(args, f.Direction)
	}

	var total int
	if err := db.QueryRow("SELECT COUNT(*) FROM sync_runs"+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	query := `
		SELECT id, direction, format, ids_json, started_at, finished_at,
		       synced, skipped, errors, info
		FROM sync_runs` + where + `
		ORDER BY started_at DESC, id DESC
		LIMIT ? OFFSET ?`
	rows, err := db.Query(query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var (
			r       Run
			idsJSON sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Direction, &r.Format, &idsJSON, &r.StartedAt, &r.FinishedAt,
			&r.Synced, &r.Skipped, &r.Errors, &r.Info); err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		if err := decodeIDs(idsJSON, &r); err != nil {
			return nil, 0, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	return runs, total, nil
}

// Get returns one run including its full report.
func Get(db *sql.DB, id string) (*Run, error) {
	var (
		r       Run
		idsJSON sql.NullString
		report  string
	)
	err := db.QueryRow(`
		SELECT id, direction, format, ids_json, started_at, finished_at,
		       synced, skipped, errors, info, report_json
		FROM sync_runs WHERE id = ?`, id).
		Scan(&r.ID, &r.Direction, &r.Format, &idsJSON, &r.StartedAt, &r.FinishedAt,
			&r.Synced, &r.Skipped, &r.Errors, &r.Info, &report)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFound(id)
		}
		return nil, errors.NewInternal(err)
	}
	if err := decodeIDs(idsJSON, &r); err != nil {
		return nil, err
	}
	r.Report = json.RawMessage(report)
	return &r, nil
}

// Prune deletes runs that started before cutoff (Unix seconds) and returns
// how many were removed.
func Prune(db *sql.DB, cutoff int64) (int, error) {
	res, err := db.Exec("DELETE FROM sync_runs WHERE started_at < ?", cutoff)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return int(n), nil
}

func decodeIDs(idsJSON sql.NullString, r *Run) error {
	if !idsJSON.Valid || idsJSON.String == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(idsJSON.String), &r.IDs); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}
