package idle

import (
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"
)

// Source kinds accepted by Open
const (
	SourceX11    = "x11"
	SourceMutter = "mutter"
)

// Open acquires the idle source named by kind. conn is only used by the
// Mutter source and may be nil otherwise.
func Open(kind, display string, conn *dbus.Conn) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", SourceX11:
		return NewX11Source(display)
	case SourceMutter:
		return NewMutterSource(conn)
	default:
		return nil, errors.Errorf("unknown idle source %q (want %s or %s)", kind, SourceX11, SourceMutter)
	}
}
