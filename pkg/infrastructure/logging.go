// Package infrastructure provides reusable infrastructure components for Go
// applications.
package infrastructure

import (
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// FxLoggerAdapter routes Fx's own lifecycle events through a zap.Logger so
// the dependency graph logs with the same sink as the application.
type FxLoggerAdapter struct {
	logger *zap.SugaredLogger
}

// NewFxLoggerAdapter creates an fxevent.Logger backed by the given zap logger.
func NewFxLoggerAdapter(logger *zap.Logger) fxevent.Logger {
	return &FxLoggerAdapter{logger: logger.Sugar()}
}

// LogEvent implements fxevent.Logger. Routine graph-construction events log
// at debug; failures and shutdown transitions are promoted.
func (a *FxLoggerAdapter) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.OnStartExecuted:
		a.hookResult("OnStart", e.FunctionName, e.Err)
	case *fxevent.OnStopExecuted:
		a.hookResult("OnStop", e.FunctionName, e.Err)
	case *fxevent.Provided:
		if e.Err != nil {
			a.logger.Errorf("PROVIDE failed: %v", e.Err)
		}
	case *fxevent.Invoked:
		if e.Err != nil {
			a.logger.Errorf("INVOKE failed: %s: %v", e.FunctionName, e.Err)
		} else {
			a.logger.Debugf("INVOKE: %s", e.FunctionName)
		}
	case *fxevent.Started:
		if e.Err != nil {
			a.logger.Errorf("START failed: %v", e.Err)
		} else {
			a.logger.Info("STARTED")
		}
	case *fxevent.Stopping:
		a.logger.Infof("STOPPING: %s", e.Signal)
	case *fxevent.Stopped:
		if e.Err != nil {
			a.logger.Errorf("STOP failed: %v", e.Err)
		} else {
			a.logger.Info("STOPPED")
		}
	case *fxevent.RollingBack:
		a.logger.Errorf("ROLLING BACK: %v", e.StartErr)
	default:
		a.logger.Debugf("fx event: %T", event)
	}
}

func (a *FxLoggerAdapter) hookResult(hook, function string, err error) {
	if err != nil {
		a.logger.Errorf("HOOK %s failed: %s: %v", hook, function, err)
	} else {
		a.logger.Debugf("HOOK %s executed: %s", hook, function)
	}
}
