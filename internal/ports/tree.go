package ports

import (
	"context"

	"github.com/vegizombie/lal-build-manager/internal/types"
)

// InputTreePort owns the installed dependency tree. Content is staged under
// a private directory and only becomes visible through Commit.
type InputTreePort interface {
	Read(ctx context.Context) (types.InstalledTree, error)
	Stage(ctx context.Context) (string, error)
	StageBundle(ctx context.Context, staging string, name string, bundlePath string) (string, error)
	StageDirectory(ctx context.Context, staging string, name string, sourceDir string) (string, error)
	Commit(ctx context.Context, staging string, deps []types.InstalledDependency) error
	Discard(staging string) error
	Remove(ctx context.Context, names []string) ([]string, error)
}

type ArchivePort interface {
	PackDirectory(sourceDir string, destPath string) error
	CopyBundle(bundlePath string, destPath string) error
}
