package email

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

// SessionEmailData is rendered into the session update mail.
type SessionEmailData struct {
	RecipientName string
	Event         string // created, accepted, canceled, completed
	Headline      string
	StartTime     string
	SessionURL    string
	AppName       string
}

var sessionHTML = template.Must(template.New("session").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="color: #0f766e;">Hi {{.RecipientName}},</h2>
    <p>{{.Headline}}</p>
    {{if .StartTime}}<p><strong>Scheduled for:</strong> {{.StartTime}}</p>{{end}}
    {{if .SessionURL}}<p style="text-align: center; margin: 30px 0;">
        <a href="{{.SessionURL}}" style="background-color: #0f766e; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; display: inline-block;">Open session</a>
    </p>{{end}}
    <p style="color: #666; font-size: 14px;">The {{.AppName}} Team</p>
</body>
</html>`))

var sessionHeadlines = map[string]string{
	"created":   "A new session has been booked and is waiting for your confirmation.",
	"accepted":  "Your session has been confirmed. You can join it from your dashboard when it starts.",
	"canceled":  "Your session has been canceled.",
	"completed": "Your session is complete. Your doctor will share the report soon.",
}

// BuildSessionEmail creates the mail sent on a session lifecycle event.
func BuildSessionEmail(to string, data SessionEmailData) (Message, error) {
	if data.AppName == "" {
		data.AppName = "MindCare"
	}
	if data.RecipientName == "" {
		data.RecipientName = "there"
	}
	if data.Headline == "" {
		h, ok := sessionHeadlines[data.Event]
		if !ok {
			return Message{}, invalid("unknown session event %q", data.Event)
		}
		data.Headline = h
	}

	var html bytes.Buffer
	if err := sessionHTML.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("render session email: %w", err)
	}

	var text strings.Builder
	fmt.Fprintf(&text, "Hi %s,\n\n%s\n", data.RecipientName, data.Headline)
	if data.StartTime != "" {
		fmt.Fprintf(&text, "\nScheduled for: %s\n", data.StartTime)
	}
	if data.SessionURL != "" {
		fmt.Fprintf(&text, "\nOpen session: %s\n", data.SessionURL)
	}
	fmt.Fprintf(&text, "\nThe %s Team", data.AppName)

	return Message{
		To:       []string{to},
		Subject:  fmt.Sprintf("%s: session %s", data.AppName, data.Event),
		TextBody: text.String(),
		HTMLBody: html.String(),
		Headers:  map[string]string{"X-Mindcare-Event": "session." + data.Event},
	}, nil
}
