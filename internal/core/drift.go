package core

import (
	"fmt"
	"sort"

	"github.com/vegizombie/lal-build-manager/internal/types"
)

// Diff compares declared pins with the installed tree. Names that agree are
// omitted. Dev dependencies only count as missing when includeDev is set,
// but an installed dev dependency is never reported as extra.
func Diff(manifest types.Manifest, tree types.InstalledTree, includeDev bool) []types.DriftEntry {
	declared := DeclaredDependencies(manifest, true)
	required := DeclaredDependencies(manifest, includeDev)

	var entries []types.DriftEntry
	for name, ref := range required {
		if _, ok := tree.Dependencies[name]; !ok {
			entries = append(entries, types.DriftEntry{Name: name, Kind: types.DriftKindMissing, Declared: ref})
		}
	}
	for name, installed := range tree.Dependencies {
		ref, ok := declared[name]
		switch {
		case !ok:
			entries = append(entries, types.DriftEntry{Name: name, Kind: types.DriftKindExtra, Installed: installed.Ref})
		case ref != installed.Ref:
			entries = append(entries, types.DriftEntry{
				Name:      name,
				Kind:      types.DriftKindMismatched,
				Declared:  ref,
				Installed: installed.Ref,
			})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries
}

// StashedDependencies lists installed names that came from the stash.
func StashedDependencies(tree types.InstalledTree) []string {
	var names []string
	for name, dep := range tree.Dependencies {
		if dep.Ref.IsStashed() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func DescribeDrift(entry types.DriftEntry) string {
	switch entry.Kind {
	case types.DriftKindMissing:
		return fmt.Sprintf("%s: missing (declared %s)", entry.Name, entry.Declared)
	case types.DriftKindExtra:
		return fmt.Sprintf("%s: extraneous (installed %s)", entry.Name, entry.Installed)
	default:
		return fmt.Sprintf("%s: installed %s, declared %s", entry.Name, entry.Installed, entry.Declared)
	}
}
