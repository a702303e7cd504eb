package apps

import (
	"context"
	"fmt"
	"time"

	"tftp/internal"
	"tftp/internal/pkg/server"
	"tftp/internal/pkg/storage"
	"tftp/internal/pkg/validate"

	"github.com/pkg/errors"
)

// App is a runnable application.
type App interface {
	Run(ctx context.Context, args []string) error
}

// ServerAppCfg configures a ServerApp.
type ServerAppCfg interface {
	ApplyServerApp(*ServerApp) error
}

// ServerApp is the TFTP server application.
type ServerApp struct {
	Port       uint16 `validate:"required"`
	Root       string `validate:"required"`
	TimeoutMS  uint   `validate:"required"`
	MaxRetries uint
}

// NewServerApp creates a new ServerApp.
func NewServerApp(cfgs ...ServerAppCfg) (*ServerApp, error) {
	app := &ServerApp{}
	for _, cfg := range cfgs {
		if err := cfg.ApplyServerApp(app); err != nil {
			return nil, errors.Wrap(err, "apply ServerApp cfg failed")
		}
	}
	if app.Port == 0 {
		app.Port = internal.Port
	}
	if err := validate.Validate().Struct(app); err != nil {
		return nil, errors.Wrap(err, "validate ServerApp failed")
	}
	return app, nil
}

// Run serves TFTP requests until the context is canceled.
func (app *ServerApp) Run(ctx context.Context, args []string) error {
	srv, err := server.NewServer(
		server.WithStore(storage.NewFileStore(app.Root)),
		server.WithAddr(fmt.Sprintf(":%d", app.Port)),
		server.WithTimeout(time.Duration(app.TimeoutMS)*time.Millisecond),
		server.WithMaxRetries(int(app.MaxRetries)),
	)
	if err != nil {
		return errors.Wrap(err, "create server failed")
	}
	return errors.Wrap(srv.Serve(ctx), "serve failed")
}
