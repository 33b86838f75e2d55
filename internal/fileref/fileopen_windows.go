//go:build windows

package fileref

import (
	"os"

	"github.com/hpungsan/ghostmcp/internal/errors"
)

// openFileNoFollowRead opens path read-only.
// O_NOFOLLOW does not exist on Windows; ValidatePath has already rejected symlinks.
func openFileNoFollowRead(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewFileNotFound(path)
		}
		return nil, err
	}
	return f, nil
}
