package ports

import "github.com/vegizombie/lal-build-manager/internal/types"

type ManifestPort interface {
	Load(path string) (types.Manifest, error)
	Save(path string, manifest types.Manifest) error
	Serialize(manifest types.Manifest) ([]byte, error)
}

type WorkspacePort interface {
	FindManifest(start string, fileName string) (string, error)
}
