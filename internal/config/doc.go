// Package config loads archiplaned's process configuration.
//
// Every field has an environment-variable default (ARCHIPLANE_* prefix),
// named in the per-section loader that sets it in config.go. An optional YAML
// overlay file, pointed to by ARCHIPLANE_CONFIG_FILE, can override any of
// those defaults; in development the overlay file is watched and changes
// are hot-reloaded into registered callbacks (watcher.go) without a
// restart. Call Load() once at process startup and pass the resulting
// *Config down to the components that need it.
package config
