package types

// VersionRef pins a dependency either to an immutable published version or
// to a label in the local stash.
type VersionRef struct {
	Kind  RefKind `yaml:"kind"`
	Value string  `yaml:"value"`
}

func Published(version string) VersionRef {
	return VersionRef{Kind: RefKindPublished, Value: version}
}

func Stashed(label string) VersionRef {
	return VersionRef{Kind: RefKindStashed, Value: label}
}

func (r VersionRef) IsStashed() bool {
	return r.Kind == RefKindStashed
}

func (r VersionRef) String() string {
	if r.IsStashed() {
		return "stash:" + r.Value
	}
	return r.Value
}

type Manifest struct {
	Name            string
	Dependencies    map[string]VersionRef
	DevDependencies map[string]VersionRef
	Environment     string
}

type OverrideSpec struct {
	Name string
	Ref  VersionRef
}
