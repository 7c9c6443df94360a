package app

import "github.com/vegizombie/lal-build-manager/internal/types"

type InitRequest struct {
	Dir         string
	Name        string
	Environment string
	Force       bool
}

type InitResult struct {
	ManifestPath string
	Manifest     types.Manifest
}

type InstallRequest struct {
	Dir        string
	Components []string
	Dev        bool
	Save       bool
	SaveDev    bool
	Force      bool
}

type InstallResult struct {
	ManifestPath string
	Installed    []string
	Reused       []string
	Saved        bool
}

type RemoveRequest struct {
	Dir        string
	Components []string
	Save       bool
	SaveDev    bool
}

type RemoveResult struct {
	Removed []string
	Saved   bool
}

type ExportRequest struct {
	Component string
	OutputDir string
}

type ExportResult struct {
	Path string
	Ref  types.VersionRef
}

type StashRequest struct {
	Dir       string
	Label     string
	SourceDir string
}

type StashResult struct {
	Entry types.StashEntry
}

type StatusRequest struct {
	Dir string
	Dev bool
}

type StatusResult struct {
	Manifest  types.Manifest
	Installed types.InstalledTree
	Drift     []types.DriftEntry
}

type VerifyRequest struct {
	Dir string
	Dev bool
}

type VerifyResult struct {
	Checked int
}

type RunKind string

const (
	RunKindBuild RunKind = "build"
	RunKindTest  RunKind = "test"
	RunKindShell RunKind = "shell"
	RunKindExec  RunKind = "run"
)

type RunRequest struct {
	Dir         string
	Kind        RunKind
	Args        []string
	Strict      bool
	Version     string
	ToolVersion string
	User        string
	Env         []string
	Interactive bool
}

type RunResult struct {
	Environment string
	Image       string
	Status      types.ExitStatus
	Drift       []types.DriftEntry
	RecordPath  string
}
