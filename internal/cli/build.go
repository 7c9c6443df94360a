package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vegizombie/lal-build-manager/internal/app"
	"github.com/vegizombie/lal-build-manager/internal/core"
)

type runOptions struct {
	Strict      bool
	Version     string
	User        string
	Env         []string
	Interactive bool
}

func newBuildCommand(root *RootConfig) *cobra.Command {
	opts := runOptions{}
	cmd := &cobra.Command{
		Use:   "build [args...]",
		Short: "Run the build script inside the configured environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInEnvironment(cmd.Context(), cmd, root.Dir, app.RunKindBuild, args, opts)
		},
	}
	addRunFlags(cmd, &opts)
	cmd.Flags().StringVar(&opts.Version, "with-version", "", "Version recorded in the build record (default EXPERIMENTAL+<id>)")
	return cmd
}

func newTestCommand(root *RootConfig) *cobra.Command {
	opts := runOptions{}
	cmd := &cobra.Command{
		Use:   "test [args...]",
		Short: "Run the test script inside the configured environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInEnvironment(cmd.Context(), cmd, root.Dir, app.RunKindTest, args, opts)
		},
	}
	addRunFlags(cmd, &opts)
	return cmd
}

func newShellCommand(root *RootConfig) *cobra.Command {
	opts := runOptions{}
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Open an interactive shell inside the configured environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInEnvironment(cmd.Context(), cmd, root.Dir, app.RunKindShell, nil, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.User, "user", "u", "", "Container user (default current uid:gid)")
	cmd.Flags().StringArrayVarP(&opts.Env, "env", "e", nil, "Extra environment variable KEY=VALUE")
	return cmd
}

func newRunCommand(root *RootConfig) *cobra.Command {
	opts := runOptions{}
	cmd := &cobra.Command{
		Use:   "run <command> [args...]",
		Short: "Run an arbitrary command inside the configured environment",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInEnvironment(cmd.Context(), cmd, root.Dir, app.RunKindExec, args, opts)
		},
	}
	cmd.Flags().SetInterspersed(false)
	cmd.Flags().StringVarP(&opts.User, "user", "u", "", "Container user (default current uid:gid)")
	cmd.Flags().StringArrayVarP(&opts.Env, "env", "e", nil, "Extra environment variable KEY=VALUE")
	cmd.Flags().BoolVarP(&opts.Interactive, "interactive", "i", false, "Attach stdin and allocate a terminal")
	return cmd
}

func addRunFlags(cmd *cobra.Command, opts *runOptions) {
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "Fail when INPUT does not match the manifest")
	cmd.Flags().StringVarP(&opts.User, "user", "u", "", "Container user (default current uid:gid)")
	cmd.Flags().StringArrayVarP(&opts.Env, "env", "e", nil, "Extra environment variable KEY=VALUE")
}

func runInEnvironment(ctx context.Context, cmd *cobra.Command, dir string, kind app.RunKind, args []string, opts runOptions) error {
	service, err := newAppService()
	if err != nil {
		return err
	}
	result, err := service.Run(ctx, app.RunRequest{
		Dir:         dir,
		Kind:        kind,
		Args:        args,
		Strict:      resolveBool(cmd, opts.Strict, "run.strict", "strict"),
		Version:     opts.Version,
		ToolVersion: version,
		User:        resolveString(cmd, opts.User, "run.user", "user"),
		Env:         resolveStrings(cmd, opts.Env, "run.env", "env"),
		Interactive: opts.Interactive,
	})
	if err != nil {
		return err
	}
	for _, entry := range result.Drift {
		fmt.Printf("drift: %s\n", core.DescribeDrift(entry))
	}
	if !result.Status.Success() {
		code := result.Status.Code
		if code == 0 {
			code = 1
		}
		return exitStatusError{code: code, interrupted: result.Status.Interrupted}
	}
	if result.RecordPath != "" {
		fmt.Printf("build record: %s\n", result.RecordPath)
	}
	return nil
}
