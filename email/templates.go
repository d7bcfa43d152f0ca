package email

import (
	"fmt"
	"strings"
	"time"

	"contest-notifier/pkg/contest"
)

func (s *Sender) formatReminderBody(c *contest.Contest, kind contest.ReminderKind, timeLeft string) string {
	var b strings.Builder

	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	b.WriteString("<meta charset=\"utf-8\">\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
	b.WriteString("<style>\n")
	b.WriteString("body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; background: #fff; }\n")
	b.WriteString(".header { border-bottom: 2px solid #2980b9; padding-bottom: 10px; margin-bottom: 20px; }\n")
	b.WriteString(".contest { background: #f8f9fa; padding: 20px; border-radius: 8px; margin: 15px 0; }\n")
	b.WriteString(".platform { color: #2980b9; font-weight: 600; }\n")
	b.WriteString(".when { color: #7f8c8d; font-size: 0.95em; }\n")
	b.WriteString(".footer { margin-top: 20px; padding-top: 10px; border-top: 2px solid #ecf0f1; color: #7f8c8d; font-size: 0.9em; }\n")
	b.WriteString("a { color: #2980b9; text-decoration: none; }\n")
	b.WriteString("a:hover { text-decoration: underline; }\n")
	b.WriteString("@media (prefers-color-scheme: dark) {\n")
	b.WriteString("body { background: #1a1a1a; color: #e0e0e0; }\n")
	b.WriteString(".contest { background: #252525; }\n")
	b.WriteString(".platform { color: #5dade2; }\n")
	b.WriteString(".when { color: #a0a0a0; }\n")
	b.WriteString(".footer { color: #a0a0a0; }\n")
	b.WriteString("a { color: #5dade2; }\n")
	b.WriteString("}\n")
	b.WriteString("</style>\n</head>\n<body>\n")

	b.WriteString("<div class=\"header\">\n")
	if kind == contest.ReminderNear {
		b.WriteString(fmt.Sprintf("<h2>Starting soon: %s</h2>\n", escapeHTML(c.Name)))
	} else {
		b.WriteString(fmt.Sprintf("<h2>Tomorrow: %s</h2>\n", escapeHTML(c.Name)))
	}
	b.WriteString("</div>\n")

	b.WriteString("<div class=\"contest\">\n")
	b.WriteString(fmt.Sprintf("<p><span class=\"platform\">%s</span> &bull; starts in <strong>%s</strong></p>\n",
		escapeHTML(c.Platform.Label()), escapeHTML(timeLeft)))
	b.WriteString(fmt.Sprintf("<p class=\"when\">%s UTC</p>\n", c.StartsAt.UTC().Format("Mon, Jan 2, 2006 at 3:04 PM")))
	if c.Duration > 0 {
		b.WriteString(fmt.Sprintf("<p class=\"when\">Duration: %s</p>\n", formatDuration(c.Duration)))
	}
	b.WriteString(fmt.Sprintf("<p><a href=\"%s\">Go to contest page</a></p>\n", escapeHTML(c.URL)))
	b.WriteString("</div>\n")

	b.WriteString("<div class=\"footer\">\n")
	b.WriteString(fmt.Sprintf("<a href=\"%s\">Contest Notifier</a>\n", escapeHTML(s.baseURL)))
	b.WriteString("</div>\n")

	b.WriteString("</body>\n</html>")

	return b.String()
}

func (s *Sender) formatWelcomeBody(sub *contest.Subscriber) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	b.WriteString("<meta charset=\"utf-8\">\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
	b.WriteString("<style>\n")
	b.WriteString("body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; background: #fff; }\n")
	b.WriteString(".header { border-bottom: 2px solid #2980b9; padding-bottom: 10px; margin-bottom: 20px; }\n")
	b.WriteString(".content { background: #f8f9fa; padding: 20px; border-radius: 8px; margin: 15px 0; }\n")
	b.WriteString(".footer { margin-top: 20px; padding-top: 10px; border-top: 2px solid #ecf0f1; color: #7f8c8d; font-size: 0.9em; }\n")
	b.WriteString("a { color: #2980b9; text-decoration: none; }\n")
	b.WriteString("a:hover { text-decoration: underline; }\n")
	b.WriteString("</style>\n</head>\n<body>\n")

	b.WriteString("<div class=\"header\">\n")
	b.WriteString("<h2>Contest reminders are on</h2>\n")
	b.WriteString("</div>\n")

	b.WriteString("<div class=\"content\">\n")
	b.WriteString("<p>You'll get a reminder the day before each programming contest starts, and another one shortly before the start.</p>\n")
	channels := sub.Channels.Slice()
	if len(channels) > 0 {
		b.WriteString(fmt.Sprintf("<p>Channels: <strong>%s</strong></p>\n", escapeHTML(strings.Join(channels, ", "))))
	}
	b.WriteString("</div>\n")

	b.WriteString("<div class=\"footer\">\n")
	b.WriteString(fmt.Sprintf("<a href=\"%s\">Contest Notifier</a>\n", escapeHTML(s.baseURL)))
	b.WriteString("</div>\n")

	b.WriteString("</body>\n</html>")

	return b.String()
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh %02dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dm", m)
	}
}

// escapeHTML escapes HTML special characters for security.
func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "'", "&#39;")
	return s
}
