package main

import (
	"fmt"
	"io"

	"github.com/cuemby/cspublish/pkg/events"
	"github.com/cuemby/cspublish/pkg/types"
	"github.com/fatih/color"
)

var (
	phaseColor   = color.New(color.FgCyan)
	warnColor    = color.New(color.FgYellow)
	failColor    = color.New(color.FgRed, color.Bold)
	successColor = color.New(color.FgGreen)
)

// printEvents writes one line per notable event until sub is closed
func printEvents(out io.Writer, sub events.Subscriber) {
	for ev := range sub {
		if line := formatEvent(ev); line != "" {
			fmt.Fprintln(out, line)
		}
	}
}

// formatEvent renders an event, or returns "" for events that are only
// interesting in the logs
func formatEvent(ev *events.Event) string {
	switch ev.Type {
	case events.EventPhaseEntered:
		return phaseColor.Sprintf("→ %s", ev.Phase)
	case events.EventConflictRetry:
		if name := ev.Metadata["deleted"]; name != "" {
			return warnColor.Sprintf("  slot occupied, deleted %s and retrying", name)
		}
		return warnColor.Sprint("  slot reported occupied, retrying")
	case events.EventCertificateUploaded:
		return fmt.Sprintf("  uploaded sample certificate %s", ev.Metadata["thumbprint"])
	case events.EventPackageUploaded:
		return fmt.Sprintf("  package staged at %s", ev.Message)
	case events.EventWarning:
		return warnColor.Sprintf("  warning: %s", ev.Message)
	case events.EventRunFailed:
		return failColor.Sprintf("✗ failed during %s: %s", ev.Metadata["failed_phase"], ev.Message)
	case events.EventRunSucceeded:
		return successColor.Sprintf("✓ %s", ev.Message)
	}
	return ""
}

func statusColor(s types.RunStatus) string {
	switch s {
	case types.RunStatusSucceeded:
		return successColor.Sprint(s)
	case types.RunStatusFailed:
		return failColor.Sprint(s)
	}
	return warnColor.Sprint(s)
}
