package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

// Stash publishes the component's build output into the local cache under
// <component>=<label>.
func (s Service) Stash(ctx context.Context, req StashRequest) (StashResult, error) {
	label := strings.TrimSpace(req.Label)
	if label == "" {
		return StashResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("stash label is required")
	}
	comp, err := s.locate(req.Dir)
	if err != nil {
		return StashResult{}, err
	}
	source := strings.TrimSpace(req.SourceDir)
	if source == "" {
		source = comp.outputDir()
	}
	if info, err := os.Stat(source); err != nil || !info.IsDir() {
		return StashResult{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("nothing to stash: no build output in %s", source))
	}
	entry, err := s.Stash.Put(ctx, comp.Manifest.Name, label, source)
	if err != nil {
		return StashResult{}, err
	}
	return StashResult{Entry: entry}, nil
}
