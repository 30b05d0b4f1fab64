// Package screensaver talks to the freedesktop ScreenSaver service on the
// session bus: it reads and changes the lock state and streams ActiveChanged
// signals.
package screensaver

import (
	"context"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"

	"github.com/logtime/logtime/internal/common"
	"github.com/logtime/logtime/internal/logging"
)

// UnavailableMessage is shown to the user when the screensaver cannot be
// reached.
const UnavailableMessage = "Cannot connect to screensaver, please make sure you are running XScreenSaver, KScreensaver or GNOME Screensaver, or any other compatible with freedesktop interface"

// ErrUnavailable wraps every failure to reach or call the screensaver.
var ErrUnavailable = errors.New("screensaver unavailable")

// caller is the part of dbus.BusObject the client needs.
type caller interface {
	Call(method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// signaler is the part of *dbus.Conn used for signal subscriptions.
type signaler interface {
	AddMatchSignal(options ...dbus.MatchOption) error
	Signal(ch chan<- *dbus.Signal)
	RemoveSignal(ch chan<- *dbus.Signal)
}

// Client is a screensaver client bound to one session-bus connection.
type Client struct {
	obj     caller
	signals signaler
	log     *logging.Logger
}

// New creates a client on conn. No call is made until it is used.
func New(conn *dbus.Conn, log *logging.Logger) *Client {
	return newClient(
		conn.Object(common.ScreenSaverDestination, dbus.ObjectPath(common.ScreenSaverObjectPath)),
		conn,
		log,
	)
}

func newClient(obj caller, sig signaler, log *logging.Logger) *Client {
	return &Client{obj: obj, signals: sig, log: log}
}

// GetActive reports whether the screensaver is currently active.
func (c *Client) GetActive() (bool, error) {
	var active bool
	if err := c.obj.Call(common.ScreenSaverGetActive, 0).Store(&active); err != nil {
		return false, errors.Wrapf(ErrUnavailable, "GetActive: %v", err)
	}
	return active, nil
}

// Lock asks the screensaver to lock the session.
func (c *Client) Lock() error {
	if call := c.obj.Call(common.ScreenSaverLock, 0); call.Err != nil {
		return errors.Wrapf(ErrUnavailable, "Lock: %v", call.Err)
	}
	return nil
}

// LockIfInactive locks the session unless the screensaver is already
// active, so repeated calls while idle do not stack lock requests.
func (c *Client) LockIfInactive() (bool, error) {
	active, err := c.GetActive()
	if err != nil {
		return false, err
	}
	if active {
		c.log.Debugf("screensaver already active, not locking")
		return false, nil
	}
	if err := c.Lock(); err != nil {
		return false, err
	}
	return true, nil
}

// Subscribe streams ActiveChanged values in bus order until ctx is done. The
// returned channel is closed when the subscription ends.
func (c *Client) Subscribe(ctx context.Context) (<-chan bool, error) {
	for _, iface := range common.ScreenSaverSignalInterfaces {
		if err := c.signals.AddMatchSignal(
			dbus.WithMatchInterface(iface),
			dbus.WithMatchMember(common.ActiveChangedMember),
		); err != nil {
			return nil, errors.Wrapf(ErrUnavailable, "subscribe to %s.%s: %v", iface, common.ActiveChangedMember, err)
		}
	}

	in := make(chan *dbus.Signal, 16)
	c.signals.Signal(in)

	out := make(chan bool)
	go func() {
		defer close(out)
		defer c.signals.RemoveSignal(in)

		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-in:
				if !ok {
					return
				}
				active, ok := ActiveChanged(sig)
				if !ok {
					continue
				}
				c.log.Debugf("screensaver %s active=%v", sig.Name, active)
				select {
				case out <- active:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// ActiveChanged extracts the state from an ActiveChanged signal. ok is false
// for any other signal or a malformed body.
func ActiveChanged(sig *dbus.Signal) (active bool, ok bool) {
	if sig == nil || len(sig.Body) == 0 {
		return false, false
	}

	idx := strings.LastIndex(sig.Name, ".")
	if idx < 0 || sig.Name[idx+1:] != common.ActiveChangedMember {
		return false, false
	}

	known := false
	for _, iface := range common.ScreenSaverSignalInterfaces {
		if sig.Name[:idx] == iface {
			known = true
			break
		}
	}
	if !known {
		return false, false
	}

	active, ok = sig.Body[0].(bool)
	return active, ok
}
