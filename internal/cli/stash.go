package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vegizombie/lal-build-manager/internal/app"
)

type stashOptions struct {
	SourceDir string
}

func newStashCommand(root *RootConfig) *cobra.Command {
	opts := stashOptions{}
	cmd := &cobra.Command{
		Use:     "stash <label>",
		Aliases: []string{"save"},
		Short:   "Publish the build output to the local stash",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStash(cmd.Context(), root.Dir, args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.SourceDir, "source", "", "Directory to stash (default OUTPUT)")
	return cmd
}

func runStash(ctx context.Context, dir string, label string, opts stashOptions) error {
	service, err := newAppService()
	if err != nil {
		return err
	}
	result, err := service.Stash(ctx, app.StashRequest{
		Dir:       dir,
		Label:     label,
		SourceDir: opts.SourceDir,
	})
	if err != nil {
		return err
	}
	fmt.Printf("stashed: %s=%s\n", result.Entry.Component, result.Entry.Label)
	return nil
}
