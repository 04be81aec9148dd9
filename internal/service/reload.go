// File: internal/service/reload.go
package service

import (
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/flux-cli/internal/config"
)

// SimulationTarget receives reloaded simulation settings.
type SimulationTarget interface {
	UpdateConfig(sim config.SimulationConfig) error
}

// WatchConfig reloads the simulation section whenever the config file
// changes. It is a no-op when v has no config file.
func WatchConfig(v *viper.Viper, target SimulationTarget, logger *zap.Logger) {
	if v.ConfigFileUsed() == "" {
		logger.Debug("No config file in use; live reload disabled.")
		return
	}
	v.OnConfigChange(ReloadHandler(v, target, logger))
	v.WatchConfig()
	logger.Info("Watching config file for changes.", zap.String("file", v.ConfigFileUsed()))
}

// ReloadHandler re-reads v and pushes the new simulation settings to target.
// Invalid files are logged and ignored; the previous settings stay live.
func ReloadHandler(v *viper.Viper, target SimulationTarget, logger *zap.Logger) func(fsnotify.Event) {
	logger = logger.Named("reload")
	return func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := config.NewConfigFromViper(v)
		if err != nil {
			logger.Warn("Ignoring invalid config change.", zap.String("file", e.Name), zap.Error(err))
			return
		}
		if err := target.UpdateConfig(cfg.Simulation()); err != nil {
			logger.Warn("Failed to apply simulation settings.", zap.Error(err))
			return
		}
		logger.Info("Simulation settings reloaded.", zap.String("file", e.Name), zap.Int("resolution", cfg.Simulation().Resolution))
	}
}
