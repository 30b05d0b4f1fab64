package main

import (
	"bufio"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/logtime/logtime/internal/logging"
)

// loadEnvFile loads KEY=VALUE lines from a .env file into the environment.
// Variables that are already set win over the file.
func loadEnvFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open .env file")
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		if _, set := os.LookupEnv(key); set {
			continue
		}
		os.Setenv(key, value)
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "read .env file")
	}
	return nil
}

// capabilities describes what the desktop session offers. They are resolved
// once at startup.
type capabilities struct {
	X11         bool
	Wayland     bool
	SessionBus  bool
	SessionType string
	Desktop     string
}

func detectCapabilities(getenv func(string) string) capabilities {
	return capabilities{
		X11:         getenv("DISPLAY") != "",
		Wayland:     getenv("WAYLAND_DISPLAY") != "" || getenv("XDG_SESSION_TYPE") == "wayland",
		SessionBus:  getenv("DBUS_SESSION_BUS_ADDRESS") != "",
		SessionType: getenv("XDG_SESSION_TYPE"),
		Desktop:     getenv("XDG_CURRENT_DESKTOP"),
	}
}

func (c capabilities) debug(log *logging.Logger) {
	log.Debugf("Session type: %s, Desktop: %s", c.SessionType, c.Desktop)
	log.Debugf("Capabilities: x11=%v wayland=%v session-bus=%v", c.X11, c.Wayland, c.SessionBus)
}
