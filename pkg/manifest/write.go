package manifest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/aspector/aspector/pkg/errors"
)

// WriteAtomic replaces the file at path with data. The bytes land in a
// temporary file in the same directory which is then renamed over the
// original, so an interrupted run never leaves a half-written manifest.
// The original file mode is preserved when the caller passes it.
func WriteAtomic(path string, data []byte, mode fs.FileMode) error {
	if mode == 0 {
		mode = 0o644
	}

	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.NewString()[:8]))
	if err := os.WriteFile(tmp, data, mode); err != nil {
		return errors.Wrap(errors.ErrCodeWrite, err, "write %s", path)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Wrap(errors.ErrCodeWrite, err, "replace %s", path)
	}
	return nil
}
