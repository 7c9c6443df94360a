package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vegizombie/lal-build-manager/internal/app"
)

type exportOptions struct {
	OutputDir string
}

func newExportCommand() *cobra.Command {
	opts := exportOptions{}
	cmd := &cobra.Command{
		Use:   "export <name=version|name=label>",
		Short: "Write a published or stashed component as a tarball",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), args[0], opts)
		},
	}
	cmd.Flags().StringVarP(&opts.OutputDir, "output", "o", ".", "Destination directory")
	return cmd
}

func runExport(ctx context.Context, component string, opts exportOptions) error {
	service, err := newAppService()
	if err != nil {
		return err
	}
	result, err := service.Export(ctx, app.ExportRequest{
		Component: component,
		OutputDir: opts.OutputDir,
	})
	if err != nil {
		return err
	}
	fmt.Printf("exported: %s\n", result.Path)
	return nil
}
