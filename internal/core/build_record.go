package core

import (
	"github.com/vegizombie/lal-build-manager/internal/shared"
	"github.com/vegizombie/lal-build-manager/internal/types"
)

// NewBuildRecord captures the component, environment and installed
// dependencies a successful build ran against.
func NewBuildRecord(manifest types.Manifest, descriptor types.BuildEnvironmentDescriptor, deps map[string]types.BuildRecord, version string, tool string) types.BuildRecord {
	return types.BuildRecord{
		Name:         manifest.Name,
		Version:      version,
		Environment:  descriptor.Environment,
		Container:    SplitImage(descriptor.Image),
		Tool:         tool,
		Dependencies: deps,
	}
}

// NestDependencyRecords returns one record per installed dependency. The
// record an artifact shipped with is used as is; dependencies without one get
// a stub carrying the installed pin.
func NestDependencyRecords(tree types.InstalledTree, shipped map[string]types.BuildRecord) map[string]types.BuildRecord {
	deps := make(map[string]types.BuildRecord, len(tree.Dependencies))
	for name, dep := range tree.Dependencies {
		if record, ok := shipped[name]; ok {
			deps[name] = record
			continue
		}
		deps[name] = types.BuildRecord{Name: name, Version: dep.Ref.String()}
	}
	return deps
}

// DependencyUsage walks nested records and collects every version seen for
// each component name, sorted.
func DependencyUsage(deps map[string]types.BuildRecord) map[string][]string {
	seen := map[string]map[string]struct{}{}
	var walk func(level map[string]types.BuildRecord)
	walk = func(level map[string]types.BuildRecord) {
		for name, dep := range level {
			if seen[name] == nil {
				seen[name] = map[string]struct{}{}
			}
			seen[name][dep.Version] = struct{}{}
			walk(dep.Dependencies)
		}
	}
	walk(deps)
	usage := make(map[string][]string, len(seen))
	for name, versions := range seen {
		usage[name] = shared.SortedKeys(versions)
	}
	return usage
}

// MultipleVersions keeps the names used at more than one version anywhere
// in the tree.
func MultipleVersions(deps map[string]types.BuildRecord) map[string][]string {
	conflicts := map[string][]string{}
	for name, versions := range DependencyUsage(deps) {
		if len(versions) > 1 {
			conflicts[name] = versions
		}
	}
	return conflicts
}
