package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/vegizombie/lal-build-manager/internal/app"
	"github.com/vegizombie/lal-build-manager/internal/types"
)

func newAppService() (app.Service, error) {
	return app.NewService(loadAppConfig())
}

// loadAppConfig reads the merged viper state (defaults, config file, LAL_*
// environment) into the application config.
func loadAppConfig() app.Config {
	cfg := app.DefaultConfig(homeDir())
	if cache := strings.TrimSpace(viper.GetString("cache")); cache != "" {
		cfg.CacheDir = expandHome(cache)
	}
	cfg.Store = app.StoreConfig{
		Backend:      types.StoreBackend(viper.GetString("store.backend")),
		Endpoint:     expandHome(viper.GetString("store.endpoint")),
		User:         viper.GetString("store.user"),
		APIKey:       viper.GetString("store.api_key"),
		TimeoutSec:   viper.GetInt("store.timeout"),
		Retries:      viper.GetInt("store.retries"),
		RetryDelayMs: viper.GetInt("store.retry_delay"),
	}
	if environments := viper.GetStringMapString("environments"); len(environments) > 0 {
		cfg.Environments = environments
	}
	cfg.Commands = app.CommandConfig{
		Build: viper.GetStringSlice("commands.build"),
		Test:  viper.GetStringSlice("commands.test"),
		Shell: viper.GetStringSlice("commands.shell"),
	}
	return cfg
}

func expandHome(path string) string {
	if path == "~" {
		return homeDir()
	}
	if strings.HasPrefix(path, "~"+string(os.PathSeparator)) {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}
