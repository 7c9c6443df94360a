package core

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"github.com/vegizombie/lal-build-manager/internal/shared"
	"github.com/vegizombie/lal-build-manager/internal/types"
)

// ParseOverride reads a command-line override. "name=6" pins a published
// version, "name=asan" pins a stash label. A bare name is rejected since
// versions are never inferred.
func ParseOverride(raw string) (types.OverrideSpec, error) {
	raw = strings.TrimSpace(raw)
	name, value, ok := strings.Cut(raw, "=")
	name = strings.TrimSpace(name)
	value = strings.TrimSpace(value)
	if !ok || name == "" || value == "" {
		return types.OverrideSpec{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid override: %s (expected name=version or name=label)", raw))
	}
	if shared.IsPublishedVersion(value) {
		return types.OverrideSpec{Name: name, Ref: types.Published(value)}, nil
	}
	return types.OverrideSpec{Name: name, Ref: types.Stashed(value)}, nil
}

func ParseOverrides(raw []string) ([]types.OverrideSpec, error) {
	overrides := make([]types.OverrideSpec, 0, len(raw))
	for _, item := range raw {
		if strings.TrimSpace(item) == "" {
			continue
		}
		override, err := ParseOverride(item)
		if err != nil {
			return nil, err
		}
		overrides = append(overrides, override)
	}
	return overrides, nil
}
