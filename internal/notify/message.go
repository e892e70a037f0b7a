package notify

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"beacon/internal/status"
)

// statusEmoji decorates subjects and banners the way the dashboard does.
func statusEmoji(st status.Status) string {
	switch st {
	case status.Up:
		return "✅"
	case status.Down:
		return "❌"
	case status.Degraded:
		return "⚠️"
	default:
		return "❓"
	}
}

// buildContent renders the subject, plain-text body and HTML body for a
// transition notification.
func buildContent(rec status.Record, isRecovery bool, settings Settings) (subject, plain, htmlBody string) {
	statusUpper := strings.ToUpper(string(rec.Status))

	var action, color string
	if isRecovery {
		subject = fmt.Sprintf("\U0001f389 Service Recovered: %s", rec.ServiceName)
		action = "recovered and is now"
		color = "#48bb78"
	} else {
		subject = fmt.Sprintf("\U0001f6a8 Service Alert: %s is %s", rec.ServiceName, statusUpper)
		action = "is now"
		color = "#ed8936"
		if rec.Status == status.Down {
			color = "#f56565"
		}
	}

	checkInTime := rec.LastCheckIn.UTC().Format("2006-01-02 15:04:05 UTC")

	var b strings.Builder
	fmt.Fprintf(&b, "Service Monitor Alert\n\n")
	fmt.Fprintf(&b, "Service: %s\n", rec.ServiceName)
	fmt.Fprintf(&b, "Status: %s %s\n", statusEmoji(rec.Status), statusUpper)
	fmt.Fprintf(&b, "Time: %s\n", checkInTime)
	fmt.Fprintf(&b, "Check-ins: %d\n", rec.CheckInCount)
	if rec.Message != "" {
		fmt.Fprintf(&b, "Message: %s\n", rec.Message)
	}
	if len(rec.Metadata) > 0 {
		b.WriteString("\nMetadata:\n")
		for _, k := range sortedKeys(rec.Metadata) {
			fmt.Fprintf(&b, "  %s: %s\n", k, rec.Metadata[k])
		}
	}
	if settings.IncludeDashboardLink {
		fmt.Fprintf(&b, "\nView Details: %s/service/%s", settings.DashboardBaseURL, rec.ServiceName)
	}
	plain = b.String()

	var h strings.Builder
	h.WriteString("<!DOCTYPE html><html><head><meta charset=\"UTF-8\"><title>")
	h.WriteString(html.EscapeString(subject))
	h.WriteString("</title></head><body style='font-family: sans-serif; background: #f8fafc; margin: 0; padding: 0;'>")
	h.WriteString("<div style='max-width: 600px; margin: 0 auto; background: white; border-radius: 8px; overflow: hidden;'>")
	h.WriteString("<div style='background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: white; padding: 20px; text-align: center;'>")
	h.WriteString("<h1 style='margin: 0; font-size: 24px;'>\U0001f50d Service Monitor</h1></div>")
	fmt.Fprintf(&h, "<div style='background: %s; color: white; padding: 15px; text-align: center; font-weight: 500;'>", color)
	fmt.Fprintf(&h, "<div style='font-size: 18px;'>%s %s %s %s</div></div>",
		statusEmoji(rec.Status), html.EscapeString(rec.ServiceName), action, statusUpper)
	h.WriteString("<div style='padding: 20px;'>")
	h.WriteString("<h2 style='color: #2d3748; margin: 0 0 20px 0; font-size: 20px;'>Service Details</h2>")
	h.WriteString("<table style='width: 100%; border-collapse: collapse; margin-bottom: 20px;'>")
	htmlRow(&h, "Service", html.EscapeString(rec.ServiceName))
	htmlRow(&h, "Status", fmt.Sprintf("%s %s", statusEmoji(rec.Status), statusUpper))
	htmlRow(&h, "Time", checkInTime)
	htmlRow(&h, "Check-ins", fmt.Sprintf("%d", rec.CheckInCount))
	if rec.Message != "" {
		htmlRow(&h, "Message", html.EscapeString(rec.Message))
	}
	h.WriteString("</table>")
	if len(rec.Metadata) > 0 {
		h.WriteString("<h3 style='color: #333; margin: 20px 0 10px 0;'>Metadata</h3>")
		h.WriteString("<table style='width: 100%; border-collapse: collapse; margin-bottom: 20px;'>")
		for _, k := range sortedKeys(rec.Metadata) {
			htmlRow(&h, html.EscapeString(k), html.EscapeString(rec.Metadata[k]))
		}
		h.WriteString("</table>")
	}
	if settings.IncludeDashboardLink {
		fmt.Fprintf(&h, "<div style='text-align: center; margin: 30px 0;'>"+
			"<a href='%s/service/%s' style='background: #4299e1; color: white; padding: 12px 24px; "+
			"text-decoration: none; border-radius: 6px; display: inline-block;'>View Service Details</a></div>",
			settings.DashboardBaseURL, rec.ServiceName)
	}
	h.WriteString("</div>")
	h.WriteString("<div style='background: #f7fafc; padding: 15px; text-align: center; color: #718096; font-size: 14px;'>")
	h.WriteString("This is an automated alert from Service Monitor")
	if settings.DashboardBaseURL != "" {
		fmt.Fprintf(&h, "<br><a href='%s' style='color: #4299e1; text-decoration: none;'>View Dashboard</a>",
			settings.DashboardBaseURL)
	}
	h.WriteString("</div></div></body></html>")
	htmlBody = h.String()

	return subject, plain, htmlBody
}

func htmlRow(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "<tr><td style='padding: 8px 12px; border-bottom: 1px solid #e2e8f0; width: 30%%;'><strong>%s:</strong></td>"+
		"<td style='padding: 8px 12px; border-bottom: 1px solid #e2e8f0;'>%s</td></tr>", label, value)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
