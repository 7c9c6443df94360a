package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vegizombie/lal-build-manager/internal/app"
	"github.com/vegizombie/lal-build-manager/internal/core"
	"github.com/vegizombie/lal-build-manager/internal/shared"
	"github.com/vegizombie/lal-build-manager/internal/types"
)

type statusOptions struct {
	Dev bool
}

func newStatusCommand(root *RootConfig) *cobra.Command {
	opts := statusOptions{}
	cmd := &cobra.Command{
		Use:     "status",
		Aliases: []string{"ls"},
		Short:   "Compare the manifest with the installed INPUT tree",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd.Context(), root.Dir, opts)
		},
	}
	cmd.Flags().BoolVarP(&opts.Dev, "dev", "D", false, "Include devDependencies")
	return cmd
}

func runStatus(ctx context.Context, dir string, opts statusOptions) error {
	service, err := newAppService()
	if err != nil {
		return err
	}
	result, err := service.Status(ctx, app.StatusRequest{Dir: dir, Dev: opts.Dev})
	if err != nil {
		return err
	}
	fmt.Printf("%s (%s)\n", result.Manifest.Name, result.Manifest.Environment)
	for _, line := range statusLines(result) {
		fmt.Printf("  %s\n", line)
	}
	for _, entry := range result.Drift {
		fmt.Printf("drift: %s\n", core.DescribeDrift(entry))
	}
	return nil
}

// statusLines lists every declared or installed dependency once, in name
// order.
func statusLines(result app.StatusResult) []string {
	declared := core.DeclaredDependencies(result.Manifest, true)
	all := map[string]struct{}{}
	for name := range declared {
		all[name] = struct{}{}
	}
	for name := range result.Installed.Dependencies {
		all[name] = struct{}{}
	}
	var lines []string
	for _, name := range shared.SortedKeys(all) {
		installed, ok := result.Installed.Dependencies[name]
		state := "not installed"
		if ok {
			state = "installed " + refLabel(installed.Ref)
		}
		dev := ""
		if _, isDev := result.Manifest.DevDependencies[name]; isDev {
			dev = " (dev)"
		}
		pin := "undeclared"
		if ref, ok := declared[name]; ok {
			pin = refLabel(ref)
		}
		lines = append(lines, fmt.Sprintf("%s %s%s: %s", name, pin, dev, state))
	}
	return lines
}

func refLabel(ref types.VersionRef) string {
	if ref.Value == "" {
		return "unknown"
	}
	return ref.String()
}

type verifyOptions struct {
	Dev bool
}

func newVerifyCommand(root *RootConfig) *cobra.Command {
	opts := verifyOptions{}
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Fail unless INPUT matches the manifest and holds no stashed components",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVerify(cmd.Context(), root.Dir, opts)
		},
	}
	cmd.Flags().BoolVarP(&opts.Dev, "dev", "D", false, "Include devDependencies")
	return cmd
}

func runVerify(ctx context.Context, dir string, opts verifyOptions) error {
	service, err := newAppService()
	if err != nil {
		return err
	}
	result, err := service.Verify(ctx, app.VerifyRequest{Dir: dir, Dev: opts.Dev})
	if err != nil {
		return err
	}
	fmt.Printf("verified: %d dependencies\n", result.Checked)
	return nil
}
