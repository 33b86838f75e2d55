package ops

import (
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/hpungsan/ghostmcp/internal/errors"
	"github.com/hpungsan/ghostmcp/internal/journal"
)

var errNoJournal = stderrors.New("sync journal is not available")

// PurgeInput contains parameters for the Purge operation.
type PurgeInput struct {
	OlderThanDays int // required, at least 1
}

// PurgeOutput contains the result of the Purge operation.
type PurgeOutput struct {
	Purged  int    `json:"purged"`
	Message string `json:"message"`
}

// Purge deletes journaled sync runs older than the given number of days.
func Purge(database *sql.DB, input PurgeInput) (*PurgeOutput, error) {
	if database == nil {
		return nil, errors.NewInternal(errNoJournal)
	}
	if input.OlderThanDays < 1 {
		return nil, errors.NewInvalidRequest("older_than_days must be at least 1")
	}

	cutoff := time.Now().AddDate(0, 0, -input.OlderThanDays).Unix()
	count, err := journal.Prune(database, cutoff)
	if err != nil {
		return nil, err
	}

	return &PurgeOutput{
		Purged:  count,
		Message: formatPurgeMessage(count, input.OlderThanDays),
	}, nil
}

// formatPurgeMessage creates a human-readable message for the purge result.
func formatPurgeMessage(count, olderThanDays int) string {
	if count == 0 {
		return "No sync runs to purge"
	}
	runWord := "run"
	if count > 1 {
		runWord = "runs"
	}
	return fmt.Sprintf("Deleted %d sync %s started more than %d days ago", count, runWord, olderThanDays)
}
