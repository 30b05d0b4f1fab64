// Package breaktime measures how long the screensaver was active and tells
// the user about it when they come back.
package breaktime

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/logtime/logtime/hooks"
	"github.com/logtime/logtime/internal/logging"
	"github.com/logtime/logtime/screensaver"
)

// State is the last observed screensaver state.
type State int

const (
	StateUnknown State = iota
	StateActive
	StateInactive
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateInactive:
		return "inactive"
	default:
		return "unknown"
	}
}

// Interval is one completed break.
type Interval struct {
	StartedAt time.Time
	Duration  time.Duration
}

// Notifier shows a desktop notification.
type Notifier interface {
	Notify(summary, body string) (uint32, error)
}

// Tracker is the break-time state machine. It is driven by a single
// goroutine and is not safe for concurrent use.
type Tracker struct {
	state       State
	activatedAt time.Time

	hooks    *hooks.Bus
	notifier Notifier
	log      *logging.Logger
	now      func() time.Time
}

// NewTracker creates a tracker in StateUnknown.
func NewTracker(bus *hooks.Bus, notifier Notifier, log *logging.Logger) *Tracker {
	return &Tracker{
		state:    StateUnknown,
		hooks:    bus,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// State returns the last observed state.
func (t *Tracker) State() State {
	return t.state
}

// Handle applies one ActiveChanged value. It returns the completed break on
// an Active to Inactive transition and nil otherwise.
func (t *Tracker) Handle(ctx context.Context, active bool) *Interval {
	prev := t.state
	if active {
		t.state = StateActive
	} else {
		t.state = StateInactive
	}

	switch {
	case active && prev != StateActive:
		t.activatedAt = t.now()
		t.log.Output("breaktime", "Screensaver activated at %s", t.activatedAt.Format(time.TimeOnly))
		return nil
	case !active && prev == StateActive:
		return t.finish(ctx)
	default:
		// first signal was Inactive, or a duplicate
		return nil
	}
}

func (t *Tracker) finish(ctx context.Context) *Interval {
	d := t.now().Sub(t.activatedAt)
	if d < 0 {
		d = 0
	}
	iv := &Interval{StartedAt: t.activatedAt, Duration: d}

	t.hooks.Execute(ctx, hooks.BreakTime, d.Seconds())

	body := "Your break time is: " + FormatDuration(d)
	t.log.Output("breaktime", "%s", body)
	if _, err := t.notifier.Notify("logtime", body); err != nil {
		t.log.Warningf("cannot display break time notification: %v", err)
	}

	return iv
}

// Run consumes screensaver states until ctx is done. A states channel that
// closes while ctx is live means the session bus went away, which is fatal.
func (t *Tracker) Run(ctx context.Context, states <-chan bool) error {
	t.log.Output("breaktime", "Waiting for screensaver state changes")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case active, ok := <-states:
			if !ok {
				if err := ctx.Err(); err != nil {
					return err
				}
				return errors.Wrap(screensaver.ErrUnavailable, "session bus closed ActiveChanged subscription")
			}
			t.Handle(ctx, active)
		}
	}
}

// FormatDuration renders a break length the way the notification shows it:
// whole minutes above one minute, whole seconds otherwise. Both round down.
func FormatDuration(d time.Duration) string {
	s := d.Seconds()
	if s > 60 {
		return fmt.Sprintf("%d minutes", int64(s/60))
	}
	return fmt.Sprintf("%d seconds", int64(s))
}
