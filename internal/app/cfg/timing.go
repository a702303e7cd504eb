package cfg

import (
	"tftp/internal"
	"tftp/internal/app/apps"
)

// TimingCfg is configuration for the retransmission policy.
type TimingCfg struct {
	timeoutMS  uint
	maxRetries uint
}

// NewTimingCfg creates a new TimingCfg from the given config.
func NewTimingCfg(timeoutMS, maxRetries uint) *TimingCfg {
	return &TimingCfg{
		timeoutMS:  timeoutMS,
		maxRetries: maxRetries,
	}
}

// TimingFromEnv creates a new TimingCfg from the current environment.
func TimingFromEnv() *TimingCfg {
	return &TimingCfg{
		timeoutMS:  internal.TimeoutMS,
		maxRetries: internal.MaxRetries,
	}
}

// ApplyServerApp applies the TimingCfg to a ServerApp.
func (cfg TimingCfg) ApplyServerApp(app *apps.ServerApp) error {
	app.TimeoutMS = cfg.timeoutMS
	app.MaxRetries = cfg.maxRetries
	return nil
}
