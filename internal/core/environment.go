package core

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"github.com/vegizombie/lal-build-manager/internal/ports"
	"github.com/vegizombie/lal-build-manager/internal/types"
)

const (
	ContainerWorkDir   = "/volume"
	ContainerInputDir  = "/volume/INPUT"
	ContainerOutputDir = "/volume/OUTPUT"
)

type EnvironmentCore struct {
	Runtime ports.ContainerRuntimePort
	Catalog map[string]string
}

type EnvironmentRequest struct {
	SourceDir string
	InputDir  string
	OutputDir string
	User      string
	Env       []string
	Command   []string
	Mode      types.CommandMode
}

func NewEnvironmentCore(runtime ports.ContainerRuntimePort, catalog map[string]string) EnvironmentCore {
	return EnvironmentCore{Runtime: runtime, Catalog: catalog}
}

// Describe maps the manifest's environment onto a configured image and lays
// out the mounts: the source tree read-write, the input tree read-only and
// the output area read-write.
func (e EnvironmentCore) Describe(ctx context.Context, manifest types.Manifest, req EnvironmentRequest) (types.BuildEnvironmentDescriptor, error) {
	if err := RequireEnvironment(manifest); err != nil {
		return types.BuildEnvironmentDescriptor{}, err
	}
	image, ok := LookupImage(e.Catalog, manifest.Environment)
	if !ok {
		return types.BuildEnvironmentDescriptor{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("environment not configured: %s", manifest.Environment))
	}
	if len(req.Command) == 0 {
		return types.BuildEnvironmentDescriptor{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("command is empty")
	}
	source, err := filepath.Abs(req.SourceDir)
	if err != nil {
		return types.BuildEnvironmentDescriptor{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid source directory").
			WithCause(err)
	}
	input := absOr(req.InputDir, filepath.Join(source, "INPUT"))
	output := absOr(req.OutputDir, filepath.Join(source, "OUTPUT"))
	mode := req.Mode
	if mode == "" {
		mode = types.CommandModeOneShot
	}

	descriptor := types.BuildEnvironmentDescriptor{
		Environment: manifest.Environment,
		Image:       NormalizeImage(image),
		Mounts: []types.Mount{
			{Source: source, Target: ContainerWorkDir},
			{Source: input, Target: ContainerInputDir, ReadOnly: true},
			{Source: output, Target: ContainerOutputDir},
		},
		WorkingDir: ContainerWorkDir,
		User:       req.User,
		Env:        req.Env,
		Command:    append([]string(nil), req.Command...),
		Mode:       mode,
	}
	log.Ctx(ctx).Debug().
		Str("environment", descriptor.Environment).
		Str("image", descriptor.Image).
		Strs("command", descriptor.Command).
		Msg("environment described")
	return descriptor, nil
}

// Run hands the descriptor to the runtime. A non-zero exit inside the
// environment is a normal result, not an error.
func (e EnvironmentCore) Run(ctx context.Context, descriptor types.BuildEnvironmentDescriptor) (types.ExitStatus, error) {
	if e.Runtime == nil {
		return types.ExitStatus{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to launch environment %s: no container runtime", descriptor.Environment))
	}
	status, err := e.Runtime.Run(ctx, descriptor)
	if err != nil {
		return types.ExitStatus{}, err
	}
	log.Ctx(ctx).Debug().Int("exit_code", status.Code).Bool("interrupted", status.Interrupted).Msg("environment exited")
	return status, nil
}

// LookupImage finds the image configured for an environment. Config keys
// are lowercased on load, so names match regardless of case.
func LookupImage(catalog map[string]string, environment string) (string, bool) {
	image, ok := catalog[environment]
	if !ok {
		for name, candidate := range catalog {
			if strings.EqualFold(name, environment) {
				image, ok = candidate, true
				break
			}
		}
	}
	if !ok || strings.TrimSpace(image) == "" {
		return "", false
	}
	return image, true
}

// NormalizeImage appends the latest tag to references that carry neither a
// tag nor a digest.
func NormalizeImage(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.Contains(ref, "@") {
		return ref
	}
	last := ref[strings.LastIndex(ref, "/")+1:]
	if strings.Contains(last, ":") {
		return ref
	}
	return ref + ":latest"
}

// SplitImage splits a normalized reference into name and tag.
func SplitImage(ref string) types.ContainerImage {
	normalized := NormalizeImage(ref)
	slash := strings.LastIndex(normalized, "/")
	colon := strings.LastIndex(normalized, ":")
	if colon <= slash {
		return types.ContainerImage{Name: normalized}
	}
	return types.ContainerImage{Name: normalized[:colon], Tag: normalized[colon+1:]}
}

func absOr(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	abs, err := filepath.Abs(value)
	if err != nil {
		return value
	}
	return abs
}
