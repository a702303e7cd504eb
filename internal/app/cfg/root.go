package cfg

import (
	"tftp/internal"
	"tftp/internal/app/apps"
)

// RootCfg is configuration for the served directory.
type RootCfg struct {
	root string
}

// NewRootCfg creates a new RootCfg from the given config.
func NewRootCfg(root string) *RootCfg {
	return &RootCfg{
		root: root,
	}
}

// RootFromEnv creates a new RootCfg from the current environment.
func RootFromEnv() *RootCfg {
	return &RootCfg{
		root: internal.RootDir,
	}
}

// ApplyServerApp applies the RootCfg to a ServerApp.
func (cfg RootCfg) ApplyServerApp(app *apps.ServerApp) error {
	app.Root = cfg.root
	return nil
}
