package config

import (
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watch re-reads the config file whenever it changes on disk and passes the
// freshly validated result to onChange. Invalid edits are logged and skipped,
// leaving the running configuration untouched.
//
// It returns false when no config file is in use (defaults and environment
// only), in which case there is nothing to watch. Only settings that can change
// safely at runtime should be applied by onChange; the listener address,
// registry seed and rate limiter are fixed for the lifetime of the process.
func Watch(configPath string, onChange func(*Config)) (bool, error) {
	v, err := newViper(configPath)
	if err != nil {
		return false, err
	}
	if v.ConfigFileUsed() == "" {
		return false, nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := decode(v)
		if err != nil {
			slog.Warn("ignoring config change", "file", e.Name, "error", err)
			return
		}
		slog.Info("config file changed", "file", e.Name)
		onChange(cfg)
	})
	v.WatchConfig()
	return true, nil
}
