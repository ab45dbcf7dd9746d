package ui

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"tilefetch/internal/downloader"
)

// NotificationSender delivers a desktop notification
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender uses notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	return exec.Command("notify-send", title, message).Run()
}

// MacOSNotificationSender uses osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	return exec.Command("osascript", "-e", script).Run()
}

// Notifier sends an end of run notification when a sender exists for the
// current platform
type Notifier struct {
	sender NotificationSender
}

// NewNotifier picks the sender for runtime.GOOS
func NewNotifier() *Notifier {
	var sender NotificationSender
	switch runtime.GOOS {
	case "linux":
		sender = &LinuxNotificationSender{}
	case "darwin":
		sender = &MacOSNotificationSender{}
	}
	return &Notifier{sender: sender}
}

// NewNotifierWithSender creates a Notifier with an explicit sender
func NewNotifierWithSender(sender NotificationSender) *Notifier {
	return &Notifier{sender: sender}
}

// Enabled reports whether notifications can be delivered
func (n *Notifier) Enabled() bool {
	return n != nil && n.sender != nil
}

// NotifyFinished reports the outcome of a fetch run
func (n *Notifier) NotifyFinished(s downloader.Summary) error {
	if !n.Enabled() {
		return nil
	}
	title := "tilefetch finished"
	if s.Cancelled {
		title = "tilefetch interrupted"
	}
	return n.sender.Send(title, summaryLine(s))
}

func summaryLine(s downloader.Summary) string {
	parts := []string{
		fmt.Sprintf("%d saved", s.Saved),
		fmt.Sprintf("%d skipped", s.Skipped),
		fmt.Sprintf("%d failed", s.Failed),
	}
	return strings.Join(parts, ", ") + fmt.Sprintf(" of %d", s.Total)
}
