package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vegizombie/lal-build-manager/internal/app"
)

type initOptions struct {
	Environment string
	Force       bool
}

func newInitCommand(root *RootConfig) *cobra.Command {
	opts := initOptions{}
	cmd := &cobra.Command{
		Use:   "init [name]",
		Short: "Create a manifest for the component in the current directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return runInit(cmd.Context(), root.Dir, name, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.Environment, "env", "e", "", "Build environment name")
	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false, "Overwrite an existing manifest")
	return cmd
}

func runInit(ctx context.Context, dir string, name string, opts initOptions) error {
	service, err := newAppService()
	if err != nil {
		return err
	}
	result, err := service.Init(ctx, app.InitRequest{
		Dir:         dir,
		Name:        name,
		Environment: opts.Environment,
		Force:       opts.Force,
	})
	if err != nil {
		return err
	}
	fmt.Printf("initialized: %s (%s)\n", result.Manifest.Name, result.ManifestPath)
	return nil
}
