package idle

import (
	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"

	"github.com/logtime/logtime/internal/common"
)

// caller is the part of dbus.BusObject the Mutter source needs.
type caller interface {
	Call(method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// MutterSource asks GNOME Mutter's IdleMonitor for the idle time. It works on
// Wayland sessions where the X screensaver extension does not see input.
type MutterSource struct {
	obj caller
}

// NewMutterSource uses conn to reach org.gnome.Mutter.IdleMonitor and checks
// once that the service answers.
func NewMutterSource(conn *dbus.Conn) (*MutterSource, error) {
	if conn == nil {
		return nil, errors.Wrap(ErrPlatformUnavailable, "no session bus connection")
	}
	return newMutterSource(conn.Object(common.IdleMonitorDestination, dbus.ObjectPath(common.IdleMonitorObjectPath)))
}

func newMutterSource(obj caller) (*MutterSource, error) {
	s := &MutterSource{obj: obj}
	if _, err := s.IdleMilliseconds(); err != nil {
		return nil, errors.Wrapf(ErrPlatformUnavailable, "Mutter IdleMonitor: %v", err)
	}
	return s, nil
}

// IdleMilliseconds calls IdleMonitor.GetIdletime.
func (s *MutterSource) IdleMilliseconds() (uint64, error) {
	var idleMs uint64
	if err := s.obj.Call(common.IdleMonitorMethod, 0).Store(&idleMs); err != nil {
		return 0, errors.Wrap(err, "call IdleMonitor.GetIdletime")
	}
	return idleMs, nil
}

// Name identifies the source in diagnostics.
func (s *MutterSource) Name() string {
	return "mutter"
}

// Close is a no-op, the bus connection is owned by the caller.
func (s *MutterSource) Close() error {
	return nil
}
