package app

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"github.com/vegizombie/lal-build-manager/internal/adapters"
	"github.com/vegizombie/lal-build-manager/internal/ports"
	"github.com/vegizombie/lal-build-manager/internal/types"
)

const (
	ManifestFileName = "manifest.json"
	InputDirName     = "INPUT"
	OutputDirName    = "OUTPUT"
)

type Service struct {
	Manifests    ports.ManifestPort
	Workspace    ports.WorkspacePort
	Stash        ports.StashPort
	Store        ports.ArtifactStorePort
	Runtime      ports.ContainerRuntimePort
	Archive      ports.ArchivePort
	BuildRecords ports.BuildRecordPort
	Trees        func(root string) ports.InputTreePort
	Environments map[string]string
	Commands     CommandConfig
	Clock        func() time.Time
}

func NewService(cfg Config) (Service, error) {
	if strings.TrimSpace(cfg.CacheDir) == "" {
		return Service{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("cache directory is required")
	}
	store, err := newArtifactStore(cfg)
	if err != nil {
		return Service{}, err
	}
	return Service{
		Manifests:    adapters.NewManifestFileAdapter(),
		Workspace:    adapters.NewWorkspaceAdapter(),
		Stash:        adapters.NewStashDirAdapter(cfg.CacheDir),
		Store:        store,
		Runtime:      adapters.NewDockerRuntimeAdapter(),
		Archive:      adapters.NewArchiveAdapter(),
		BuildRecords: adapters.NewOutputFileAdapter(),
		Trees: func(root string) ports.InputTreePort {
			return adapters.NewInputTreeAdapter(root)
		},
		Environments: cfg.Environments,
		Commands:     cfg.Commands.withDefaults(),
		Clock:        time.Now,
	}, nil
}

func newArtifactStore(cfg Config) (ports.ArtifactStorePort, error) {
	backend := types.StoreBackend(strings.ToLower(strings.TrimSpace(string(cfg.Store.Backend))))
	switch backend {
	case "", types.StoreBackendHTTP:
		return adapters.NewStoreHTTPAdapter(
			cfg.Store.Endpoint,
			cfg.CacheDir,
			cfg.Store.User,
			cfg.Store.APIKey,
			cfg.Store.TimeoutSec,
			cfg.Store.Retries,
			cfg.Store.RetryDelayMs,
		), nil
	case types.StoreBackendDir:
		return adapters.NewStoreDirAdapter(cfg.Store.Endpoint), nil
	default:
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unsupported store backend: %s", backend))
	}
}

// component is a located working copy: the manifest and the directory
// holding it.
type component struct {
	Root         string
	ManifestPath string
	Manifest     types.Manifest
}

func (c component) inputDir() string {
	return filepath.Join(c.Root, InputDirName)
}

func (c component) outputDir() string {
	return filepath.Join(c.Root, OutputDirName)
}

func (s Service) locate(dir string) (component, error) {
	start := strings.TrimSpace(dir)
	if start == "" {
		start = "."
	}
	path, err := s.Workspace.FindManifest(start, ManifestFileName)
	if err != nil {
		return component{}, err
	}
	manifest, err := s.Manifests.Load(path)
	if err != nil {
		return component{}, err
	}
	return component{Root: filepath.Dir(path), ManifestPath: path, Manifest: manifest}, nil
}

func (s Service) tree(root string) ports.InputTreePort {
	if s.Trees == nil {
		return adapters.NewInputTreeAdapter(root)
	}
	return s.Trees(root)
}
