package schedule

import (
	"bytes"
	"crypto/sha256"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Entry describes one daily invocation of the launcher.
type Entry struct {
	Binary     string
	ConfigPath string
	WorkDir    string
	LogDir     string
	Hour       int
	Minute     int
}

func (e Entry) validate() error {
	if strings.TrimSpace(e.Binary) == "" {
		return errors.New("binary path is required")
	}
	if strings.TrimSpace(e.WorkDir) == "" {
		return errors.New("workdir is required")
	}
	if e.Hour < 0 || e.Hour > 23 || e.Minute < 0 || e.Minute > 59 {
		return fmt.Errorf("invalid time %02d:%02d", e.Hour, e.Minute)
	}
	return nil
}

// args returns the launcher command line for the entry.
func (e Entry) args() ([]string, error) {
	bin, err := filepath.Abs(e.Binary)
	if err != nil {
		return nil, fmt.Errorf("resolve binary path: %w", err)
	}
	args := []string{bin, "run"}
	if e.ConfigPath != "" {
		cfgPath, err := filepath.Abs(e.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("resolve config path: %w", err)
		}
		args = append(args, "--config", cfgPath)
	}
	return args, nil
}

func (e Entry) logDir() string {
	logDir := e.LogDir
	if logDir == "" {
		logDir = "logs"
	}
	if !filepath.IsAbs(logDir) {
		logDir = filepath.Join(e.WorkDir, logDir)
	}
	return logDir
}

// WorkDirHash generates a stable short hash from the working directory.
func WorkDirHash(workDir string) string {
	h := sha256.Sum256([]byte(workDir))
	return fmt.Sprintf("%x", h[:4])
}

// PlistLabel returns the LaunchAgent label for a working directory.
func PlistLabel(workDir string) string {
	return fmt.Sprintf("ai.agentlauncher.%s", WorkDirHash(workDir))
}

// PlistPath returns the full path to the plist file for a working directory.
func PlistPath(workDir string) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(homeDir, "Library", "LaunchAgents", PlistLabel(workDir)+".plist"), nil
}

// GeneratePlist renders a LaunchAgent that runs the launcher daily. The
// launcher's own diagnostics go to <logdir>/launcher.log; the agent log is
// written by the launcher itself.
func GeneratePlist(e Entry) (string, error) {
	if err := e.validate(); err != nil {
		return "", err
	}
	args, err := e.args()
	if err != nil {
		return "", err
	}
	logPath := filepath.Join(e.logDir(), "launcher.log")

	var argXML strings.Builder
	for _, arg := range args {
		fmt.Fprintf(&argXML, "\t\t<string>%s</string>\n", escape(arg))
	}

	plist := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>%s</string>
	<key>ProgramArguments</key>
	<array>
%s	</array>
	<key>StartCalendarInterval</key>
	<dict>
		<key>Hour</key>
		<integer>%d</integer>
		<key>Minute</key>
		<integer>%d</integer>
	</dict>
	<key>StandardOutPath</key>
	<string>%s</string>
	<key>StandardErrorPath</key>
	<string>%s</string>
	<key>RunAtLoad</key>
	<false/>
</dict>
</plist>
`, escape(PlistLabel(e.WorkDir)), argXML.String(), e.Hour, e.Minute, escape(logPath), escape(logPath))

	return plist, nil
}

// Install writes the plist to path. When a different plist is already there
// a unified diff of the change is written to out. It reports whether the file
// changed.
func Install(e Entry, path string, out io.Writer) (bool, error) {
	content, err := GeneratePlist(e)
	if err != nil {
		return false, fmt.Errorf("generate plist: %w", err)
	}

	existing, err := os.ReadFile(path)
	switch {
	case err == nil:
		if string(existing) == content {
			return false, nil
		}
		diff, err := Diff(string(existing), content, path)
		if err != nil {
			return false, err
		}
		if out != nil && diff != "" {
			fmt.Fprint(out, diff)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return false, fmt.Errorf("read existing plist: %w", err)
	}

	if err := os.MkdirAll(e.logDir(), 0o755); err != nil {
		return false, fmt.Errorf("ensure log dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("ensure LaunchAgents dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("write plist: %w", err)
	}
	return true, nil
}

// Uninstall removes the plist at path.
func Uninstall(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("plist not found: %s", path)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove plist: %w", err)
	}
	return nil
}

// Start loads the LaunchAgent using launchctl.
func Start(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("plist not found: %s (run 'agentlauncher schedule install' first)", path)
	}
	output, err := exec.Command("launchctl", "load", path).CombinedOutput()
	if err != nil {
		return fmt.Errorf("launchctl load failed: %w\nOutput: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Stop unloads the LaunchAgent using launchctl.
func Stop(path string) error {
	output, err := exec.Command("launchctl", "unload", path).CombinedOutput()
	if err != nil {
		// not loaded is fine
		outputStr := strings.TrimSpace(string(output))
		if !strings.Contains(outputStr, "Could not find specified service") {
			return fmt.Errorf("launchctl unload failed: %w\nOutput: %s", err, outputStr)
		}
	}
	return nil
}

// Diff returns a unified diff between two versions of a file, empty when equal.
func Diff(oldText, newText, name string) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(oldText),
		B:        difflib.SplitLines(newText),
		FromFile: name + " (installed)",
		ToFile:   name + " (new)",
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("diff %s: %w", name, err)
	}
	return text, nil
}

func escape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
