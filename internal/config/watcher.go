package config

import (
	"fmt"
	"strings"
	"sync"

	"trailbot/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Watcher reloads the config file on change and publishes the new value.
// Only the latest config is kept when the consumer falls behind.
type Watcher struct {
	path string
	v    *viper.Viper

	mu      sync.RWMutex
	current *Config
	version int64

	updates chan *Config
}

// NewWatcher starts from initial, the config already loaded from path.
func NewWatcher(path string, initial *Config) (*Watcher, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config watcher requires path")
	}
	if initial == nil {
		return nil, fmt.Errorf("config watcher requires an initial config")
	}
	w := &Watcher{
		path:    path,
		current: initial,
		updates: make(chan *Config, 1),
	}
	return w, nil
}

// Start registers the file watch. Reload errors keep the previous config.
func (w *Watcher) Start() error {
	v := viper.New()
	v.SetConfigFile(w.path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config for watch failed: %w", err)
	}
	w.v = v
	v.OnConfigChange(func(evt fsnotify.Event) {
		if _, err := w.Reload(); err != nil {
			logger.Errorf("config reload failed (%s): %v", evt.Name, err)
		}
	})
	v.WatchConfig()
	logger.Infof("watching config %s", w.path)
	return nil
}

// Updates delivers each accepted reload.
func (w *Watcher) Updates() <-chan *Config {
	return w.updates
}

// Current returns the last accepted config.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

func (w *Watcher) Version() int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.version
}

// Reload re-reads the file. It reports whether a changed config was published.
func (w *Watcher) Reload() (bool, error) {
	next, err := Load(w.path)
	if err != nil {
		return false, err
	}
	w.mu.Lock()
	if w.current != nil && *w.current == *next {
		w.mu.Unlock()
		return false, nil
	}
	w.current = next
	w.version++
	w.mu.Unlock()
	w.publish(next)
	return true, nil
}

func (w *Watcher) publish(cfg *Config) {
	for {
		select {
		case w.updates <- cfg:
			return
		default:
		}
		select {
		case <-w.updates:
		default:
		}
	}
}
