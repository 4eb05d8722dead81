package ui

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"peoplescraper/pkg/config"
)

// NotificationSender interface for platform-specific notification implementations
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	cmd := exec.Command("notify-send", title, message)
	return cmd.Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification "%s" with title "%s"`, appleQuote(message), appleQuote(title))
	cmd := exec.Command("osascript", "-e", script)
	return cmd.Run()
}

func appleQuote(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

// WindowsNotificationSender sends notifications on Windows using PowerShell
type WindowsNotificationSender struct{}

func (w *WindowsNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`
		[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
		[Windows.Data.Xml.Dom.XmlDocument, Windows.Data.Xml.Dom.XmlDocument, ContentType = WindowsRuntime] | Out-Null
		$xml = @"
<toast>
	<visual>
		<binding template="ToastText02">
			<text id="1">%s</text>
			<text id="2">%s</text>
		</binding>
	</visual>
</toast>
"@
		$doc = [Windows.Data.Xml.Dom.XmlDocument]::new()
		$doc.LoadXml($xml)
		$toast = [Windows.UI.Notifications.ToastNotification]::new($doc)
		[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("peoplescraper").Show($toast)
	`, title, message)

	cmd := exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script)
	return cmd.Run()
}

// platformSender returns the desktop sender for the current OS, or nil.
func platformSender() NotificationSender {
	switch runtime.GOOS {
	case "linux":
		return &LinuxNotificationSender{}
	case "darwin":
		return &MacOSNotificationSender{}
	case "windows":
		return &WindowsNotificationSender{}
	default:
		return nil
	}
}

// Notifier announces the end of a run. NotificationType terminal prints
// only, desktop also raises a desktop notification, none stays silent.
type Notifier struct {
	cfg    config.NotificationConfig
	sender NotificationSender
}

// NewNotifier creates a Notifier for cfg using the current platform's sender.
func NewNotifier(cfg config.NotificationConfig) *Notifier {
	return NewNotifierWithSender(cfg, platformSender())
}

// NewNotifierWithSender creates a Notifier with an explicit desktop sender.
func NewNotifierWithSender(cfg config.NotificationConfig, sender NotificationSender) *Notifier {
	return &Notifier{cfg: cfg, sender: sender}
}

func (n *Notifier) kind() string {
	if !n.cfg.Enabled {
		return "none"
	}
	return strings.ToLower(n.cfg.NotificationType)
}

func (n *Notifier) send(title, message string, color func(string) string) {
	kind := n.kind()
	if kind == "none" {
		return
	}
	fmt.Fprintf(out, "\n%s: %s\n", color(title), color(message))
	if kind == "desktop" && n.sender != nil {
		// desktop notifications are best effort
		_ = n.sender.Send(title, message)
	}
}

// Completed announces a finished run.
func (n *Notifier) Completed(targets, records int) {
	if !n.cfg.OnComplete {
		return
	}
	n.send("Crawl complete", fmt.Sprintf("%d targets, %d records collected", targets, records), Green)
}

// Blocked announces that the site refused further results.
func (n *Notifier) Blocked(target string, page int) {
	if !n.cfg.OnBlocked {
		return
	}
	n.send("Crawl blocked", fmt.Sprintf("search limit reached at %s page %d, resume later with --resume", target, page), Yellow)
}

// Failed announces a run that gave up.
func (n *Notifier) Failed(err error) {
	if !n.cfg.OnError {
		return
	}
	n.send("Crawl failed", err.Error(), Red)
}
