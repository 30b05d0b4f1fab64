package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/logtime/logtime/config"
	"github.com/logtime/logtime/idle"
	"github.com/logtime/logtime/internal/version"
	"github.com/logtime/logtime/screensaver"
	"github.com/logtime/logtime/tickets"
)

// options holds the command line flags
type options struct {
	monitorInactivity bool
	displayBreakTime  bool
	getJiraTickets    bool
	date              string
	debug             bool
	verbose           bool
	configPath        string
}

func newRootCmd(opts *options, stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logtime",
		Short: "Lock the screen when idle, report break times and list JIRA work",
		Long: `logtime watches the desktop session for inactivity and locks the screen once
the idle time exceeds inactivity.idletime seconds, shows a notification with
the length of every break, and prints the JIRA issues you worked on.`,
		Version:       version.Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*opts, stdout, stderr)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.run(cmd.Context())
		},
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	f := cmd.Flags()
	f.BoolVar(&opts.getJiraTickets, "get-jira-tickets", false, "Print JIRA tickets that you worked on (today or on selected date)")
	f.StringVar(&opts.date, "date", "today", "Set date for JIRA tickets (today, DD.MM.YYYY or YYYY-MM-DD)")
	f.BoolVar(&opts.monitorInactivity, "monitor-inactivity", false, `Monitor inactivity and lock screen when idle time reaches maximum time specified in configuration key "inactivity.idletime" (unit: seconds)`)
	f.BoolVar(&opts.displayBreakTime, "display-break-time", false, "Show notifications on desktop after break time")
	f.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	f.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")
	f.StringVar(&opts.configPath, "config", "", "Path to the configuration file (default ~/.logtime/config.yaml)")

	return cmd
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts := &options{}
	cmd := newRootCmd(opts, stdout, stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(stderr, userMessage(err, opts.configPath))
	}
	return exitCode(err)
}

// exitCode maps a run error to the process status. Every failure, an
// unconfigured JIRA server included, exits with 1.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}

// userMessage turns well-known failures into the text shown to the user.
func userMessage(err error, configPath string) string {
	switch {
	case errors.Is(err, tickets.ErrConfigurationIncomplete):
		if configPath == "" {
			configPath, _ = config.DefaultPath()
		}
		return fmt.Sprintf("Please update %s with server, user name and password (if required)", configPath)
	case errors.Is(err, screensaver.ErrUnavailable):
		return screensaver.UnavailableMessage
	case errors.Is(err, idle.ErrPlatformUnavailable):
		return fmt.Sprintf("Cannot measure idle time: %v", err)
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
