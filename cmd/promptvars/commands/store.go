package commands

import (
	"context"
	"strings"

	"github.com/teranos/promptvars/am"
	"github.com/teranos/promptvars/errors"
	"github.com/teranos/promptvars/logger"
	"github.com/teranos/promptvars/store/adapter"
)

// StorageOverride replaces storage.kind when set (root --storage flag)
var StorageOverride string

// loadConfig returns the validated configuration with overrides applied
func loadConfig() (*am.Config, error) {
	loaded, err := am.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}
	cfg := *loaded
	if StorageOverride != "" {
		cfg.Storage.Kind = StorageOverride
	}
	cfg.Storage.Kind = strings.ToLower(strings.TrimSpace(cfg.Storage.Kind))
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return &cfg, nil
}

// openStore opens the configured template store. Callers close the handle.
func openStore(ctx context.Context) (*adapter.Handle, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	h, err := adapter.New(ctx, cfg, adapter.Options{Logger: logger.ComponentLogger("store")})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s store", cfg.Storage.Kind)
	}
	return h, nil
}
