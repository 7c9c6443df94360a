package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vegizombie/lal-build-manager/internal/app"
)

type removeOptions struct {
	Save    bool
	SaveDev bool
}

func newRemoveCommand(root *RootConfig) *cobra.Command {
	opts := removeOptions{}
	cmd := &cobra.Command{
		Use:     "remove <name>...",
		Aliases: []string{"rm"},
		Short:   "Remove installed dependencies from INPUT",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemove(cmd.Context(), root.Dir, args, opts)
		},
	}
	cmd.Flags().BoolVarP(&opts.Save, "save", "S", false, "Also remove the pins from dependencies")
	cmd.Flags().BoolVar(&opts.SaveDev, "save-dev", false, "Also remove the pins from devDependencies")
	return cmd
}

func runRemove(ctx context.Context, dir string, components []string, opts removeOptions) error {
	service, err := newAppService()
	if err != nil {
		return err
	}
	result, err := service.Remove(ctx, app.RemoveRequest{
		Dir:        dir,
		Components: components,
		Save:       opts.Save,
		SaveDev:    opts.SaveDev,
	})
	if err != nil {
		return err
	}
	for _, name := range result.Removed {
		fmt.Printf("removed: %s\n", name)
	}
	return nil
}
