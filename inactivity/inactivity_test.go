package inactivity

import (
	"context"
	"errors"
	"testing"

	"github.com/logtime/logtime/hooks"
	"github.com/logtime/logtime/internal/logging"
	"github.com/logtime/logtime/screensaver"
)

type fakeLocker struct {
	active bool
	err    error
	locks  int
}

func (f *fakeLocker) LockIfInactive() (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.active {
		return false, nil
	}
	f.locks++
	f.active = true
	return true, nil
}

func TestHandle(t *testing.T) {
	tests := []struct {
		name      string
		active    bool
		wantLocks int
	}{
		{"screensaver already active", true, 0},
		{"screensaver inactive", false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := hooks.NewBus(logging.Discard())
			var payloads []interface{}
			bus.Add(hooks.IdleRun, "test", func(ctx context.Context, ev hooks.Event) error {
				payloads = append(payloads, ev.Payload)
				return nil
			})

			locker := &fakeLocker{active: tt.active}
			a := NewAction(bus, locker, logging.Discard())

			if err := a.Handle(context.Background(), 301); err != nil {
				t.Fatalf("Handle() error: %v", err)
			}
			if locker.locks != tt.wantLocks {
				t.Errorf("locks = %d, want %d", locker.locks, tt.wantLocks)
			}
			if len(payloads) != 1 || payloads[0] != int64(301) {
				t.Errorf("hook payloads = %v, want [301]", payloads)
			}
		})
	}
}

func TestHandleRepeatedTicksLockOnce(t *testing.T) {
	locker := &fakeLocker{}
	a := NewAction(hooks.NewBus(logging.Discard()), locker, logging.Discard())

	for i := int64(301); i < 305; i++ {
		if err := a.Handle(context.Background(), i); err != nil {
			t.Fatalf("Handle(%d) error: %v", i, err)
		}
	}
	if locker.locks != 1 {
		t.Errorf("locks = %d, want 1", locker.locks)
	}
}

func TestHandleScreensaverUnavailable(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"wrapped", screensaver.ErrUnavailable},
		{"plain", errors.New("bus closed")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hookRan := false
			bus := hooks.NewBus(logging.Discard())
			bus.Add(hooks.IdleRun, "test", func(ctx context.Context, ev hooks.Event) error {
				hookRan = true
				return nil
			})

			a := NewAction(bus, &fakeLocker{err: tt.err}, logging.Discard())
			err := a.Handle(context.Background(), 400)
			if !errors.Is(err, screensaver.ErrUnavailable) {
				t.Errorf("Handle() error = %v, want ErrUnavailable", err)
			}
			if !hookRan {
				t.Error("hook must run before the screensaver is contacted")
			}
		})
	}
}
