package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vegizombie/lal-build-manager/internal/app"
)

type installOptions struct {
	Dev     bool
	Save    bool
	SaveDev bool
	Force   bool
}

func newInstallCommand(root *RootConfig) *cobra.Command {
	opts := installOptions{}
	cmd := &cobra.Command{
		Use:     "install [name=version|name=label]...",
		Aliases: []string{"i"},
		Short:   "Install dependencies into INPUT",
		Long: "Install every dependency declared in the manifest, or only the named ones.\n" +
			"A numeric value installs a published version; anything else names a stash label.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd.Context(), root.Dir, args, opts)
		},
	}
	cmd.Flags().BoolVarP(&opts.Dev, "dev", "D", false, "Include devDependencies")
	cmd.Flags().BoolVarP(&opts.Save, "save", "S", false, "Pin the installed versions in dependencies")
	cmd.Flags().BoolVar(&opts.SaveDev, "save-dev", false, "Pin the installed versions in devDependencies")
	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false, "Reinstall dependencies that are already installed")
	return cmd
}

func runInstall(ctx context.Context, dir string, components []string, opts installOptions) error {
	service, err := newAppService()
	if err != nil {
		return err
	}
	result, err := service.Install(ctx, app.InstallRequest{
		Dir:        dir,
		Components: components,
		Dev:        opts.Dev,
		Save:       opts.Save,
		SaveDev:    opts.SaveDev,
		Force:      opts.Force,
	})
	if err != nil {
		return err
	}
	fmt.Printf("installed: %d, reused: %d\n", len(result.Installed), len(result.Reused))
	if len(result.Installed) > 0 {
		fmt.Printf("  %s\n", strings.Join(result.Installed, ", "))
	}
	if result.Saved {
		fmt.Printf("saved: %s\n", result.ManifestPath)
	}
	return nil
}
