package breaktime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/logtime/logtime/hooks"
	"github.com/logtime/logtime/internal/logging"
	"github.com/logtime/logtime/screensaver"
)

type fakeNotifier struct {
	bodies []string
	err    error
}

func (f *fakeNotifier) Notify(summary, body string) (uint32, error) {
	f.bodies = append(f.bodies, body)
	return uint32(len(f.bodies)), f.err
}

// clock is a manually advanced time source
type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestTracker(n Notifier) (*Tracker, *clock, *[]hooks.Event) {
	c := &clock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local)}
	bus := hooks.NewBus(logging.Discard())
	var events []hooks.Event
	bus.Add(hooks.BreakTime, "test", func(ctx context.Context, ev hooks.Event) error {
		events = append(events, ev)
		return nil
	})
	tr := NewTracker(bus, n, logging.Discard())
	tr.now = c.now
	return tr, c, &events
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0 seconds"},
		{45 * time.Second, "45 seconds"},
		{59*time.Second + 900*time.Millisecond, "59 seconds"},
		{60 * time.Second, "60 seconds"},
		{60*time.Second + 500*time.Millisecond, "1 minutes"},
		{75 * time.Second, "1 minutes"},
		{119 * time.Second, "1 minutes"},
		{125 * time.Second, "2 minutes"},
		{time.Hour, "60 minutes"},
	}

	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestBreakNotification(t *testing.T) {
	tests := []struct {
		name string
		away time.Duration
		want string
	}{
		{"short break", 45 * time.Second, "Your break time is: 45 seconds"},
		{"exactly a minute", 60 * time.Second, "Your break time is: 60 seconds"},
		{"long break", 75 * time.Second, "Your break time is: 1 minutes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &fakeNotifier{}
			tr, c, events := newTestTracker(n)
			ctx := context.Background()

			if iv := tr.Handle(ctx, true); iv != nil {
				t.Fatalf("activation returned interval %+v", iv)
			}
			c.advance(tt.away)
			iv := tr.Handle(ctx, false)

			if iv == nil || iv.Duration != tt.away {
				t.Fatalf("interval = %+v, want duration %v", iv, tt.away)
			}
			if len(n.bodies) != 1 || n.bodies[0] != tt.want {
				t.Errorf("notifications = %q, want [%q]", n.bodies, tt.want)
			}
			if len(*events) != 1 || (*events)[0].Payload != tt.away.Seconds() {
				t.Errorf("breaktime.time events = %+v", *events)
			}
		})
	}
}

func TestInactiveFirstIsSilent(t *testing.T) {
	n := &fakeNotifier{}
	tr, _, events := newTestTracker(n)

	if iv := tr.Handle(context.Background(), false); iv != nil {
		t.Errorf("Handle(false) from Unknown returned %+v", iv)
	}
	if tr.State() != StateInactive {
		t.Errorf("state = %v, want inactive", tr.State())
	}
	if len(n.bodies) != 0 || len(*events) != 0 {
		t.Errorf("unexpected output: %v %v", n.bodies, *events)
	}
}

func TestDuplicateStatesAbsorbed(t *testing.T) {
	n := &fakeNotifier{}
	tr, c, _ := newTestTracker(n)
	ctx := context.Background()

	tr.Handle(ctx, true)
	c.advance(30 * time.Second)
	// a duplicate must not restart the break
	tr.Handle(ctx, true)
	c.advance(30 * time.Second)
	iv := tr.Handle(ctx, false)
	if iv == nil || iv.Duration != time.Minute {
		t.Fatalf("interval = %+v, want 1m", iv)
	}

	// a duplicate Inactive produces nothing
	if iv := tr.Handle(ctx, false); iv != nil {
		t.Errorf("duplicate Inactive returned %+v", iv)
	}
	if len(n.bodies) != 1 {
		t.Errorf("got %d notifications, want 1", len(n.bodies))
	}
}

func TestNotifierFailureIsNotFatal(t *testing.T) {
	n := &fakeNotifier{err: errors.New("no notification daemon")}
	tr, c, _ := newTestTracker(n)
	ctx := context.Background()

	tr.Handle(ctx, true)
	c.advance(10 * time.Second)
	if iv := tr.Handle(ctx, false); iv == nil {
		t.Fatal("expected interval despite notifier failure")
	}

	tr.Handle(ctx, true)
	c.advance(5 * time.Second)
	if iv := tr.Handle(ctx, false); iv == nil || iv.Duration != 5*time.Second {
		t.Errorf("second interval = %+v", iv)
	}
}

func TestRun(t *testing.T) {
	n := &fakeNotifier{}
	tr, _, _ := newTestTracker(n)

	states := make(chan bool, 3)
	states <- true
	states <- false
	states <- true
	close(states)

	err := tr.Run(context.Background(), states)
	if !errors.Is(err, screensaver.ErrUnavailable) {
		t.Fatalf("Run() error = %v, want screensaver.ErrUnavailable once states closes", err)
	}
	if len(n.bodies) != 1 {
		t.Errorf("got %d notifications, want 1", len(n.bodies))
	}
	if tr.State() != StateActive {
		t.Errorf("state = %v, want active", tr.State())
	}
}

func TestRunClosedAfterCancel(t *testing.T) {
	tr, _, _ := newTestTracker(&fakeNotifier{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	states := make(chan bool)
	close(states)

	if err := tr.Run(ctx, states); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestRunCancel(t *testing.T) {
	tr, _, _ := newTestTracker(&fakeNotifier{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := tr.Run(ctx, make(chan bool)); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}
