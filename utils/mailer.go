package utils

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"gopkg.in/gomail.v2"

	"issuehub/config"
)

// Mailer sends workspace notification emails. When no SMTP host is
// configured every send is a silent no-op; callers never fail a request
// because a notification could not go out.
type Mailer struct {
	cfg config.SMTPConfig
}

func NewMailer(cfg config.SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

var inviteTemplate = template.Must(template.New("invite").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #2c3e50; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .content { margin: 20px 0; }
        .workspace { font-size: 20px; font-weight: bold; color: #3498db; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <h2>You've been added to a workspace</h2>
    </div>

    <div class="content">
        <p>Hello,</p>
        <p>{{.Inviter}} added you to the workspace
        <span class="workspace">{{.Workspace}}</span> as {{.Role}}.</p>
        <p>Sign in to start tracking issues with your team.</p>
    </div>

    <div class="footer">
        <p>If you weren't expecting this invitation, you can safely ignore this email.</p>
        <p>&copy; {{.Year}} IssueHub. All rights reserved.</p>
    </div>
</body>
</html>`))

// SendWorkspaceInvite notifies a user that they were added to a workspace.
func (m *Mailer) SendWorkspaceInvite(to, workspace, inviter, role string) error {
	if m.cfg.Host == "" {
		return nil
	}

	subject := fmt.Sprintf("You've been added to %s", workspace)

	var body bytes.Buffer
	err := inviteTemplate.Execute(&body, map[string]interface{}{
		"Subject":   subject,
		"Workspace": workspace,
		"Inviter":   inviter,
		"Role":      role,
		"Year":      time.Now().Year(),
	})
	if err != nil {
		return fmt.Errorf("failed to render invite email: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.FromEmail)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body.String())

	dialer := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.Username, m.cfg.Password)
	return dialer.DialAndSend(msg)
}
