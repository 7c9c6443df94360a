package ports

import (
	"context"

	"github.com/vegizombie/lal-build-manager/internal/types"
)

type ArtifactStorePort interface {
	Fetch(ctx context.Context, name string, version string) (types.ArtifactBundle, error)
}
