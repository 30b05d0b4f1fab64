// Package version holds the build version, overridden at link time with
// -ldflags "-X github.com/logtime/logtime/internal/version.Version=...".
package version

var Version = "dev"
