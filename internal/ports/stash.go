package ports

import (
	"context"

	"github.com/vegizombie/lal-build-manager/internal/types"
)

type StashPort interface {
	Put(ctx context.Context, component string, label string, sourceDir string) (types.StashEntry, error)
	Get(ctx context.Context, component string, label string) (types.StashEntry, error)
	List(ctx context.Context, component string) ([]string, error)
}
