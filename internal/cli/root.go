package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vegizombie/lal-build-manager/internal/app"
)

// version is set at build time via ldflags.
var version = "dev"

const envPrefix = "LAL"

type RootConfig struct {
	ConfigFile string
	LogLevel   string
	Dir        string
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	root := newRootCommand()
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		var status exitStatusError
		if !errors.As(err, &status) {
			log.Debug().Err(err).Msg("command failed")
			fmt.Fprintf(os.Stderr, "error: %s\n", errorMessage(err))
		}
		os.Exit(exitCodeForError(err))
	}
}

func newRootCommand() *cobra.Command {
	cfg := &RootConfig{}
	cmd := &cobra.Command{
		Use:           "lal",
		Short:         "Dependency manager for component based native builds",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := initConfig(cfg.ConfigFile); err != nil {
				return err
			}
			setupLogging(viper.GetString("log_level"))
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&cfg.ConfigFile, "config", "", "Config file path (default ~/.lal/config.yaml)")
	cmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", "info", "Log level")
	cmd.PersistentFlags().StringVarP(&cfg.Dir, "dir", "C", ".", "Component directory")
	_ = viper.BindPFlag("log_level", cmd.PersistentFlags().Lookup("log-level"))

	cmd.AddCommand(newInitCommand(cfg))
	cmd.AddCommand(newConfigureCommand(cfg))
	cmd.AddCommand(newInstallCommand(cfg))
	cmd.AddCommand(newRemoveCommand(cfg))
	cmd.AddCommand(newExportCommand())
	cmd.AddCommand(newStashCommand(cfg))
	cmd.AddCommand(newStatusCommand(cfg))
	cmd.AddCommand(newVerifyCommand(cfg))
	cmd.AddCommand(newBuildCommand(cfg))
	cmd.AddCommand(newTestCommand(cfg))
	cmd.AddCommand(newShellCommand(cfg))
	cmd.AddCommand(newRunCommand(cfg))
	return cmd
}

func initConfig(configFile string) error {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setConfigDefaults()

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("failed to read config file").
				WithCause(err)
		}
		return nil
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir())
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to read config file").
			WithCause(err)
	}
	return nil
}

func setConfigDefaults() {
	defaults := app.DefaultConfig(homeDir())
	viper.SetDefault("cache", defaults.CacheDir)
	viper.SetDefault("store.backend", string(defaults.Store.Backend))
	viper.SetDefault("store.endpoint", "")
	viper.SetDefault("store.user", "")
	viper.SetDefault("store.timeout", defaults.Store.TimeoutSec)
	viper.SetDefault("store.retries", defaults.Store.Retries)
	viper.SetDefault("store.retry_delay", defaults.Store.RetryDelayMs)
	viper.SetDefault("environments", defaults.Environments)
	viper.SetDefault("commands.build", defaults.Commands.Build)
	viper.SetDefault("commands.test", defaults.Commands.Test)
	viper.SetDefault("commands.shell", defaults.Commands.Shell)
}

func setupLogging(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.DefaultContextLogger = &log.Logger
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// exitStatusError carries a container command's own exit code out of the
// command tree.
type exitStatusError struct {
	code        int
	interrupted bool
}

func (e exitStatusError) Error() string {
	if e.interrupted {
		return "interrupted"
	}
	return fmt.Sprintf("command exited with status %d", e.code)
}

func exitCodeForError(err error) int {
	var status exitStatusError
	if errors.As(err, &status) {
		return status.code
	}
	switch errbuilder.CodeOf(err) {
	case errbuilder.CodeInvalidArgument:
		return 2
	case errbuilder.CodeNotFound:
		return 3
	case errbuilder.CodeFailedPrecondition:
		return 4
	case errbuilder.CodeAlreadyExists:
		return 5
	case errbuilder.CodePermissionDenied:
		return 6
	default:
		return 1
	}
}

func errorMessage(err error) string {
	var builder *errbuilder.ErrBuilder
	if errors.As(err, &builder) && strings.TrimSpace(builder.Msg) != "" {
		return builder.Msg
	}
	return err.Error()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

func configDir() string {
	return filepath.Join(homeDir(), ".lal")
}
