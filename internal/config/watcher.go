package config

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher watches the optional YAML overlay file for changes and notifies
// registered callbacks with the reloaded configuration. Hot reload only
// runs in development; archiplaned never restarts a production process for
// a config edit.
type Watcher struct {
	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
	logger    *zap.Logger
	fsw       *fsnotify.Watcher
	stopCh    chan struct{}
}

// NewWatcher creates a watcher over cfg.ConfigFilePath. If the environment
// is not Development or no overlay file is configured, it returns a
// Watcher with hot reload disabled.
func NewWatcher(cfg *Config, logger *zap.Logger) (*Watcher, error) {
	w := &Watcher{config: cfg, logger: logger, stopCh: make(chan struct{})}

	if cfg.Environment != Development || cfg.ConfigFilePath == "" {
		return w, nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(cfg.ConfigFilePath); err != nil {
		fsw.Close()
		return nil, err
	}
	w.fsw = fsw
	go w.loop()

	logger.Info("configuration hot reload enabled", zap.String("file", cfg.ConfigFilePath))
	return w, nil
}

func (w *Watcher) loop() {
	defer w.fsw.Close()

	var debounce *time.Timer
	const delay = 300 * time.Millisecond

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(delay, w.reload)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watcher error", zap.Error(err))
		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) reload() {
	next, err := Load()
	if err != nil {
		w.logger.Error("config reload produced an invalid configuration, keeping previous", zap.Error(err))
		return
	}

	w.mu.Lock()
	w.config = next
	callbacks := append([]func(*Config){}, w.callbacks...)
	w.mu.Unlock()

	w.logger.Info("configuration reloaded")
	for _, cb := range callbacks {
		cb(next)
	}
}

// OnChange registers a callback invoked with the new Config after a
// successful hot reload.
func (w *Watcher) OnChange(cb func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, cb)
}

// Config returns the most recently loaded configuration.
func (w *Watcher) Config() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

// Stop stops the underlying file watcher, if one was started.
func (w *Watcher) Stop() {
	if w.fsw != nil {
		close(w.stopCh)
	}
}
