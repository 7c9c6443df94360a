package app

import (
	"path/filepath"

	"github.com/vegizombie/lal-build-manager/internal/types"
)

const (
	defaultBuildCommand = "./.lal/BUILD"
	defaultTestCommand  = "./.lal/TEST"
	defaultShellCommand = "/bin/bash"
)

type StoreConfig struct {
	Backend      types.StoreBackend
	Endpoint     string
	User         string
	APIKey       string
	TimeoutSec   int
	Retries      int
	RetryDelayMs int
}

type CommandConfig struct {
	Build []string
	Test  []string
	Shell []string
}

// Config is the resolved tool configuration. It is read once per
// invocation and stays fixed for the life of the process.
type Config struct {
	CacheDir     string
	Store        StoreConfig
	Environments map[string]string
	Commands     CommandConfig
}

func DefaultConfig(home string) Config {
	return Config{
		CacheDir: filepath.Join(home, ".lal", "cache"),
		Store: StoreConfig{
			Backend:      types.StoreBackendHTTP,
			TimeoutSec:   60,
			Retries:      3,
			RetryDelayMs: 200,
		},
		Environments: map[string]string{},
		Commands:     CommandConfig{}.withDefaults(),
	}
}

func (c CommandConfig) withDefaults() CommandConfig {
	if len(c.Build) == 0 {
		c.Build = []string{defaultBuildCommand}
	}
	if len(c.Test) == 0 {
		c.Test = []string{defaultTestCommand}
	}
	if len(c.Shell) == 0 {
		c.Shell = []string{defaultShellCommand}
	}
	return c
}
