// Package inactivity reacts to a user that has been idle for too long: the
// idle hook is announced and the session is locked.
package inactivity

import (
	"context"

	"github.com/pkg/errors"

	"github.com/logtime/logtime/hooks"
	"github.com/logtime/logtime/internal/logging"
	"github.com/logtime/logtime/screensaver"
)

// Locker locks the session unless the screensaver is already active.
type Locker interface {
	LockIfInactive() (bool, error)
}

// Action is the idle-threshold handler.
type Action struct {
	hooks  *hooks.Bus
	locker Locker
	log    *logging.Logger
}

// NewAction creates an idle action.
func NewAction(bus *hooks.Bus, locker Locker, log *logging.Logger) *Action {
	return &Action{hooks: bus, locker: locker, log: log}
}

// Handle executes the inactivity.idle.run hook and then locks the screen.
// It matches idle.ExceededFunc. A screensaver failure is returned wrapped in
// screensaver.ErrUnavailable and is meant to stop the monitor.
func (a *Action) Handle(ctx context.Context, idleSeconds int64) error {
	a.hooks.Execute(ctx, hooks.IdleRun, idleSeconds)

	locked, err := a.locker.LockIfInactive()
	if err != nil {
		a.log.Output("inactivity", "Got exception while trying to lock screen: %v", err)
		if !errors.Is(err, screensaver.ErrUnavailable) {
			err = errors.Wrap(screensaver.ErrUnavailable, err.Error())
		}
		return err
	}

	if locked {
		a.log.Output("inactivity", "Locked screen after %d seconds of inactivity", idleSeconds)
	}
	return nil
}
