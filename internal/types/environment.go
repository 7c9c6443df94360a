package types

type Mount struct {
	Source   string
	Target   string
	ReadOnly bool
}

type BuildEnvironmentDescriptor struct {
	Environment string
	Image       string
	Mounts      []Mount
	WorkingDir  string
	User        string
	Env         []string
	Command     []string
	Mode        CommandMode
}

type ExitStatus struct {
	Code        int
	Interrupted bool
}

func (s ExitStatus) Success() bool {
	return s.Code == 0 && !s.Interrupted
}

type ContainerImage struct {
	Name string `yaml:"name"`
	Tag  string `yaml:"tag"`
}

// BuildRecord is written next to build outputs and describes exactly what a
// build ran against. Dependencies nest the records shipped inside each
// installed artifact, so the whole tree of builds can be inspected.
type BuildRecord struct {
	Name         string                 `yaml:"name"`
	Version      string                 `yaml:"version"`
	Environment  string                 `yaml:"environment,omitempty"`
	Container    ContainerImage         `yaml:"container,omitempty"`
	Tool         string                 `yaml:"tool,omitempty"`
	Dependencies map[string]BuildRecord `yaml:"dependencies,omitempty"`
}
