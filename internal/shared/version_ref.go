package shared

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"github.com/vegizombie/lal-build-manager/internal/types"
)

// IsPublishedVersion reports whether value has the shape of a published
// version: digits optionally separated by dots. Anything else at the
// command surface is a stash label.
func IsPublishedVersion(value string) bool {
	if value == "" || value[0] == '.' || value[len(value)-1] == '.' {
		return false
	}
	for _, r := range value {
		if r != '.' && (r < '0' || r > '9') {
			return false
		}
	}
	return !strings.Contains(value, "..")
}

// ParseVersionRef converts a manifest value into a VersionRef. A bare
// version is Published; "name=label" is Stashed and the prefix must match
// the dependency it is declared under.
func ParseVersionRef(name string, raw string) (types.VersionRef, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return types.VersionRef{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("empty version for dependency %s", name))
	}
	prefix, label, stashed := strings.Cut(value, "=")
	if !stashed {
		return types.Published(value), nil
	}
	prefix = strings.TrimSpace(prefix)
	label = strings.TrimSpace(label)
	if prefix != name || label == "" {
		return types.VersionRef{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid stash reference for dependency %s: %s", name, value))
	}
	return types.Stashed(label), nil
}

// FormatVersionRef is the inverse of ParseVersionRef.
func FormatVersionRef(name string, ref types.VersionRef) string {
	if ref.IsStashed() {
		return name + "=" + ref.Value
	}
	return ref.Value
}
