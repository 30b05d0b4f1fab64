package common

// D-Bus names shared by the screensaver client, notifier and idle sources
const (
	ScreenSaverDestination = "org.freedesktop.ScreenSaver"
	ScreenSaverObjectPath  = "/org/freedesktop/ScreenSaver"
	ScreenSaverInterface   = "org.freedesktop.ScreenSaver"
	ScreenSaverGetActive   = ScreenSaverInterface + ".GetActive"
	ScreenSaverLock        = ScreenSaverInterface + ".Lock"
	ActiveChangedMember    = "ActiveChanged"

	// GNOME emits ActiveChanged on its own interface as well
	GnomeScreenSaverInterface = "org.gnome.ScreenSaver"

	NotificationsDestination = "org.freedesktop.Notifications"
	NotificationsObjectPath  = "/org/freedesktop/Notifications"
	NotificationsInterface   = "org.freedesktop.Notifications"
	NotificationsNotify      = NotificationsInterface + ".Notify"

	// Mutter idle monitor D-Bus configuration
	IdleMonitorDestination = "org.gnome.Mutter.IdleMonitor"
	IdleMonitorObjectPath  = "/org/gnome/Mutter/IdleMonitor/Core"
	IdleMonitorInterface   = "org.gnome.Mutter.IdleMonitor"
	IdleMonitorMethod      = IdleMonitorInterface + ".GetIdletime"
)

// ScreenSaverSignalInterfaces lists the interfaces whose ActiveChanged signal
// is treated as a screensaver state change.
var ScreenSaverSignalInterfaces = []string{
	ScreenSaverInterface,
	GnomeScreenSaverInterface,
}
