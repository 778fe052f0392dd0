// Package email sends workspace invitation mail over SMTP.
package email

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/wneessen/go-mail"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

type Service struct {
	config Config
}

func NewService(config Config) *Service {
	return &Service{config: config}
}

// IsConfigured returns true if email is configured. Invitations are still
// created when it is not; they just stay in the pending delivery state.
func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.From != ""
}

type InvitationData struct {
	AppName       string
	WorkspaceName string
	InviterName   string
	Role          string
	AcceptURL     string
	ExpiresInDays int
}

// SendInvitation mails a workspace invitation to one recipient.
func (s *Service) SendInvitation(to string, data InvitationData) error {
	if !s.IsConfigured() {
		return fmt.Errorf("email not configured")
	}
	if data.AppName == "" {
		data.AppName = "Taskboard"
	}

	html, err := renderTemplate(invitationEmailTemplate, data)
	if err != nil {
		return fmt.Errorf("render invitation template: %w", err)
	}

	msg := mail.NewMsg()
	if err := msg.FromFormat(s.config.FromName, s.config.From); err != nil {
		return fmt.Errorf("set from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set to address: %w", err)
	}
	msg.Subject(fmt.Sprintf("You've been invited to %s on %s", data.WorkspaceName, data.AppName))
	msg.SetBodyString(mail.TypeTextPlain, fmt.Sprintf(
		"%s invited you to join the %s workspace as a %s.\n\nAccept the invitation: %s\n\nThis invitation expires in %d days.\n",
		data.InviterName, data.WorkspaceName, data.Role, data.AcceptURL, data.ExpiresInDays,
	))
	msg.AddAlternativeString(mail.TypeTextHTML, html)

	client, err := mail.NewClient(s.config.Host,
		mail.WithPort(s.config.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.config.Username),
		mail.WithPassword(s.config.Password),
	)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}

	if err := client.DialAndSend(msg); err != nil {
		return fmt.Errorf("send invitation mail: %w", err)
	}
	return nil
}

func renderTemplate(tmpl string, data any) (string, error) {
	t := template.Must(template.New("email").Parse(tmpl))
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const invitationEmailTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Join {{.WorkspaceName}} on {{.AppName}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { border-bottom: 2px solid #0066cc; padding-bottom: 10px; margin-bottom: 20px; }
        .button { display: inline-block; padding: 12px 24px; background: #0066cc; color: white; text-decoration: none; border-radius: 4px; margin: 20px 0; }
        .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; font-size: 12px; color: #666; }
        .link { word-break: break-all; color: #0066cc; }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.AppName}}</h1>
    </div>

    <h2>You've been invited!</h2>

    <p>{{.InviterName}} invited you to join the <strong>{{.WorkspaceName}}</strong> workspace as a {{.Role}}.</p>

    <p>
        <a href="{{.AcceptURL}}" class="button">Accept Invitation</a>
    </p>

    <p>Or copy and paste this link into your browser:</p>
    <p class="link">{{.AcceptURL}}</p>

    <p>This invitation will expire in {{.ExpiresInDays}} days.</p>

    <div class="footer">
        <p>If you weren't expecting this invitation, you can safely ignore this email.</p>
    </div>
</body>
</html>`
