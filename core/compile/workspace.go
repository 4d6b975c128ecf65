package compile

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const workspacePrefix = "js-compute-"

// WithTempWorkspace creates a uniquely named directory under the OS temp root,
// runs fn with it and removes it afterwards, whatever fn returned.
func WithTempWorkspace(fn func(dir string) error) error {
	dir := filepath.Join(os.TempDir(), workspacePrefix+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create workspace %s", dir)
	}
	defer os.RemoveAll(dir)
	return fn(dir)
}
