package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type configureOptions struct {
	Force bool
}

func newConfigureCommand(root *RootConfig) *cobra.Command {
	opts := configureOptions{}
	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Write the current configuration to the config file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runConfigure(root.ConfigFile, opts)
		},
	}
	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false, "Overwrite an existing config file")
	return cmd
}

func runConfigure(configFile string, opts configureOptions) error {
	path := strings.TrimSpace(configFile)
	if path == "" {
		path = filepath.Join(configDir(), "config.yaml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create config directory").
			WithCause(err)
	}
	write := viper.SafeWriteConfigAs
	if opts.Force {
		write = viper.WriteConfigAs
	}
	if err := write(path); err != nil {
		var exists viper.ConfigFileAlreadyExistsError
		if errors.As(err, &exists) {
			return errbuilder.New().
				WithCode(errbuilder.CodeAlreadyExists).
				WithMsg(fmt.Sprintf("config file already exists: %s", path)).
				WithCause(err)
		}
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write config file").
			WithCause(err)
	}
	fmt.Printf("configured: %s\n", path)
	return nil
}
