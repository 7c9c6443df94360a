package app

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"github.com/vegizombie/lal-build-manager/internal/core"
	"github.com/vegizombie/lal-build-manager/internal/types"
)

// hintOutput receives user-facing hints. Tests swap it out.
var hintOutput io.Writer = os.Stderr

// driftHints suggests the command that would clear each kind of drift.
func driftHints(entries []types.DriftEntry) []string {
	var missing, extra bool
	for _, entry := range entries {
		switch entry.Kind {
		case types.DriftKindMissing, types.DriftKindMismatched:
			missing = true
		case types.DriftKindExtra:
			extra = true
		}
	}
	var hints []string
	if missing {
		hints = append(hints, "hint: run 'lal install' to bring INPUT in line with the manifest")
	}
	if extra {
		hints = append(hints, "hint: run 'lal remove <name>' to drop dependencies the manifest no longer declares")
	}
	return hints
}

func driftError(entries []types.DriftEntry) error {
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, core.DescribeDrift(entry))
	}
	return errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg(fmt.Sprintf("input tree does not match manifest: %s", strings.Join(lines, "; ")))
}

// emitHints writes hint messages to stderr.
func emitHints(hints []string) {
	for _, h := range hints {
		fmt.Fprintln(hintOutput, h)
	}
}
