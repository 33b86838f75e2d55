package ops

import (
	"database/sql"
	"strings"

	"github.com/hpungsan/ghostmcp/internal/errors"
	"github.com/hpungsan/ghostmcp/internal/journal"
)

// HistoryInput contains parameters for the History operation.
type HistoryInput struct {
	RunID     string // when set, return that run with its full report
	Direction string // optional filter: pull or push
	Limit     int    // default: 20, max: 100
	Offset    int
}

// HistoryOutput contains the result of the History operation.
type HistoryOutput struct {
	Runs       []journal.Run `json:"runs"`
	Pagination Pagination    `json:"pagination"`
	Sort       string        `json:"sort"`
}

// History lists journaled sync runs, newest first.
func History(database *sql.DB, input HistoryInput) (*HistoryOutput, error) {
	if database == nil {
		return nil, errors.NewInternal(errNoJournal)
	}

	if id := strings.TrimSpace(input.RunID); id != "" {
		run, err := journal.Get(database, id)
		if err != nil {
			return nil, err
		}
		return &HistoryOutput{
			Runs:       []journal.Run{*run},
			Pagination: Pagination{Limit: 1, Total: 1},
			Sort:       "started_at_desc",
		}, nil
	}

	direction := strings.ToLower(strings.TrimSpace(input.Direction))
	if direction != "" && direction != journal.DirectionPull && direction != journal.DirectionPush {
		return nil, errors.NewInvalidRequest("direction must be pull or push")
	}

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	offset := max(input.Offset, 0)

	runs, total, err := journal.List(database, journal.ListFilters{
		Direction: direction,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return nil, err
	}

	return &HistoryOutput{
		Runs: runs,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(runs) < total,
			Total:   total,
		},
		Sort: "started_at_desc",
	}, nil
}
