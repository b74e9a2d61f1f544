package notify

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Notifier sends system notifications.
type Notifier struct {
	Enabled bool

	run func(name string, args ...string) error
}

// Send sends a system notification.
// On macOS, uses osascript to display notifications.
// On other platforms, this is a no-op.
func (n *Notifier) Send(title, message string) error {
	if n == nil || !n.Enabled {
		return nil
	}
	if runtime.GOOS != "darwin" && n.run == nil {
		return nil
	}

	script := fmt.Sprintf(`display notification "%s" with title "%s"`, quote(message), quote(title))

	run := n.run
	if run == nil {
		run = func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		}
	}
	if err := run("osascript", "-e", script); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}

// quote escapes s for an AppleScript string literal.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

// FormatEnvironmentMissing formats the notification for an absent marker.
func FormatEnvironmentMissing(marker string) (title, message string) {
	return "⚠️ Agent launch skipped", fmt.Sprintf("environment marker not found: %s", marker)
}

// FormatLaunchFailed formats the notification for a failed launch.
func FormatLaunchFailed(program string, exitCode int, cause string) (title, message string) {
	title = "❌ Agent launch failed"
	if cause != "" {
		message = fmt.Sprintf("%s (exit %d): %s", program, exitCode, cause)
	} else {
		message = fmt.Sprintf("%s exited with status %d", program, exitCode)
	}
	return title, message
}
