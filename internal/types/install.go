package types

import "time"

type PlanEntry struct {
	Name     string
	Ref      VersionRef
	Source   PlanSource
	Location string
}

// InstallPlan lists one resolved source per dependency, ordered by name.
type InstallPlan struct {
	Entries []PlanEntry
}

type ArtifactBundle struct {
	Name    string
	Version string
	Path    string
	Digest  string
}

type StashEntry struct {
	Component string
	Label     string
	Path      string
	Source    string
	Digest    string
	CreatedAt time.Time
}

type InstalledDependency struct {
	Name        string     `yaml:"name"`
	Ref         VersionRef `yaml:"ref"`
	Digest      string     `yaml:"digest,omitempty"`
	InstalledAt time.Time  `yaml:"installed_at"`
}

type InstalledTree struct {
	Root         string
	Dependencies map[string]InstalledDependency
}

type DriftEntry struct {
	Name      string
	Kind      DriftKind
	Declared  VersionRef
	Installed VersionRef
}
