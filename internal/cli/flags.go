package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// resolveFlag picks an explicitly set flag first, then the viper key (config
// file or LAL_* environment), then the flag's default.
func resolveFlag[T any](cmd *cobra.Command, value T, key string, flagName string, lookup func(string) T) T {
	if flagChanged(cmd, flagName) || !viper.IsSet(key) {
		return value
	}
	return lookup(key)
}

func resolveString(cmd *cobra.Command, value string, key string, flagName string) string {
	return resolveFlag(cmd, value, key, flagName, viper.GetString)
}

func resolveStrings(cmd *cobra.Command, values []string, key string, flagName string) []string {
	return resolveFlag(cmd, values, key, flagName, viper.GetStringSlice)
}

func resolveBool(cmd *cobra.Command, value bool, key string, flagName string) bool {
	return resolveFlag(cmd, value, key, flagName, viper.GetBool)
}

func flagChanged(cmd *cobra.Command, name string) bool {
	if cmd == nil || strings.TrimSpace(name) == "" {
		return false
	}
	return cmd.Flags().Changed(name) || cmd.PersistentFlags().Changed(name)
}
