package idle

import (
	"os"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/screensaver"
	"github.com/jezek/xgb/xproto"
	"github.com/pkg/errors"
)

// X11Source queries the MIT-SCREEN-SAVER extension of an X server. The
// connection and root window are acquired once and held until Close.
type X11Source struct {
	conn    *xgb.Conn
	root    xproto.Drawable
	display string
}

// NewX11Source connects to display, or to $DISPLAY when display is empty.
// Every failure is reported as ErrPlatformUnavailable.
func NewX11Source(display string) (*X11Source, error) {
	if display == "" {
		display = os.Getenv("DISPLAY")
	}
	if display == "" {
		return nil, errors.Wrap(ErrPlatformUnavailable, "cannot find $DISPLAY, is X11 server running?")
	}

	conn, err := xgb.NewConnDisplay(display)
	if err != nil {
		return nil, errors.Wrapf(ErrPlatformUnavailable, "connect to X display %s: %v", display, err)
	}

	if err := screensaver.Init(conn); err != nil {
		conn.Close()
		return nil, errors.Wrapf(ErrPlatformUnavailable, "MIT-SCREEN-SAVER extension not available on %s: %v", display, err)
	}

	screen := xproto.Setup(conn).DefaultScreen(conn)
	if screen == nil {
		conn.Close()
		return nil, errors.Wrapf(ErrPlatformUnavailable, "no default screen on %s", display)
	}

	return &X11Source{
		conn:    conn,
		root:    xproto.Drawable(screen.Root),
		display: display,
	}, nil
}

// IdleMilliseconds returns the time since the last input event.
func (s *X11Source) IdleMilliseconds() (uint64, error) {
	reply, err := screensaver.QueryInfo(s.conn, s.root).Reply()
	if err != nil {
		return 0, errors.Wrap(err, "screensaver QueryInfo")
	}
	return uint64(reply.MsSinceUserInput), nil
}

// Name identifies the source in diagnostics.
func (s *X11Source) Name() string {
	return "x11 " + s.display
}

// Close releases the X connection.
func (s *X11Source) Close() error {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	return nil
}
