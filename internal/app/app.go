// Package app provides the main application structure and lifecycle management.
package app

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/aliahq/voicebridge/internal/voice"
)

// Application represents the main application with its lifecycle.
type Application struct {
	app *fx.App
}

// New creates a new Application with the provided modules and options.
func New(modules ...fx.Option) *Application {
	options := append(modules, fx.Invoke(registerLifecycleHooks))

	app := fx.New(options...)

	return &Application{
		app: app,
	}
}

// Run starts the application and blocks until it's stopped.
func (a *Application) Run() {
	a.app.Run()
}

// Stop gracefully stops the application.
func (a *Application) Stop(ctx context.Context) error {
	return a.app.Stop(ctx)
}

// registerLifecycleHooks ties the voice session to the Fx lifecycle.
func registerLifecycleHooks(lc fx.Lifecycle, svc *voice.Service, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Starting application: acquiring devices and connecting to agent")

			session, err := svc.Start(ctx)
			if err != nil {
				logger.Error("Failed to start audio session", zap.Error(err))

				return err
			}

			logger.Info("Application started successfully",
				zap.String("session_id", session.ID))

			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping application: ending audio session")

			if err := svc.Stop(); err != nil {
				logger.Error("Failed to stop audio session", zap.Error(err))

				return err
			}

			logger.Info("Application stopped successfully")

			return nil
		},
	})
}
