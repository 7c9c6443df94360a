package ports

import (
	"context"

	"github.com/vegizombie/lal-build-manager/internal/types"
)

type ContainerRuntimePort interface {
	Run(ctx context.Context, descriptor types.BuildEnvironmentDescriptor) (types.ExitStatus, error)
}

type BuildRecordPort interface {
	WriteBuildRecord(dir string, record types.BuildRecord) (string, error)
	// ReadBuildRecord reports false when dir holds no record.
	ReadBuildRecord(dir string) (types.BuildRecord, bool, error)
}
