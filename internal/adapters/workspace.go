package adapters

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"github.com/vegizombie/lal-build-manager/internal/ports"
)

type WorkspaceAdapter struct{}

func NewWorkspaceAdapter() WorkspaceAdapter {
	return WorkspaceAdapter{}
}

// FindManifest walks up from start to the nearest directory that holds
// fileName and returns the manifest path.
func (a WorkspaceAdapter) FindManifest(start string, fileName string) (string, error) {
	if strings.TrimSpace(start) == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("workspace root is empty")
	}
	if strings.TrimSpace(fileName) == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("manifest file name is empty")
	}
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid workspace root").
			WithCause(err)
	}
	for {
		candidate := filepath.Join(dir, fileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		if shouldStopWorkspaceSearch(dir) {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", errbuilder.New().
		WithCode(errbuilder.CodeNotFound).
		WithMsg(fmt.Sprintf("manifest not found: no %s in %s or any parent directory", fileName, start))
}

// A repository root bounds the search so a stray manifest higher up is
// never picked up.
func shouldStopWorkspaceSearch(dir string) bool {
	for _, marker := range []string{".git", ".hg"} {
		if pathExists(filepath.Join(dir, marker)) {
			return true
		}
	}
	return false
}

var _ ports.WorkspacePort = WorkspaceAdapter{}
