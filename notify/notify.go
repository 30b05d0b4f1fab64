// Package notify posts desktop notifications through
// org.freedesktop.Notifications.
package notify

import (
	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"

	"github.com/logtime/logtime/internal/common"
	"github.com/logtime/logtime/internal/logging"
)

// AppName is used as both the sending application and the default summary.
const AppName = "logtime"

// DefaultTimeout lets the notification server pick the expiry.
const DefaultTimeout int32 = -1

type caller interface {
	Call(method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// Notifier sends notifications on the session bus.
type Notifier struct {
	obj     caller
	AppName string
	Timeout int32
	log     *logging.Logger
}

// New creates a notifier on conn.
func New(conn *dbus.Conn, log *logging.Logger) *Notifier {
	return newNotifier(conn.Object(common.NotificationsDestination, dbus.ObjectPath(common.NotificationsObjectPath)), log)
}

func newNotifier(obj caller, log *logging.Logger) *Notifier {
	return &Notifier{
		obj:     obj,
		AppName: AppName,
		Timeout: DefaultTimeout,
		log:     log,
	}
}

// Notify shows summary and body and returns the server-assigned id.
func (n *Notifier) Notify(summary, body string) (uint32, error) {
	var id uint32
	err := n.obj.Call(common.NotificationsNotify, 0,
		n.AppName,
		uint32(0),
		"",
		summary,
		body,
		[]string{},
		map[string]dbus.Variant{},
		n.Timeout,
	).Store(&id)
	if err != nil {
		return 0, errors.Wrap(err, "send desktop notification")
	}

	n.log.Debugf("notification %d: %s: %s", id, summary, body)
	return id, nil
}
