// internal/app/system/mailer/templates.go
package mailer

import (
	"fmt"
	"time"

	"github.com/dalemusser/waffle/pantry/email"
)

// VerificationEmailData fills the account verification message.
type VerificationEmailData struct {
	SiteName  string
	Name      string
	Link      string
	ExpiresIn string
}

// ResetPasswordEmailData fills the password reset message.
type ResetPasswordEmailData struct {
	SiteName  string
	Link      string
	ExpiresIn string
}

// MapInviteEmailData fills the map share invitation.
type MapInviteEmailData struct {
	SiteName  string
	OwnerName string
	MapName   string
	Role      string
	Link      string
}

// Template names.
const (
	tplVerify = "verify"
	tplReset  = "reset"
	tplInvite = "invite"
)

// layoutData is what every template renders. Lead, Button and Footnote
// only feed the HTML layout.
type layoutData struct {
	SiteName  string
	Name      string
	Link      string
	ExpiresIn string
	Lead      string
	Button    string
	Footnote  string
}

func BuildVerificationEmail(to string, d VerificationEmailData) Email {
	return build(tplVerify, to, layoutData{
		SiteName:  d.SiteName,
		Name:      d.Name,
		Link:      d.Link,
		ExpiresIn: d.ExpiresIn,
		Lead:      fmt.Sprintf("Hi %s, confirm your email address to start sharing spots.", d.Name),
		Button:    "Confirm email",
		Footnote:  "This link expires in " + d.ExpiresIn + ". If you did not sign up, ignore this email.",
	})
}

func BuildResetPasswordEmail(to string, d ResetPasswordEmailData) Email {
	return build(tplReset, to, layoutData{
		SiteName:  d.SiteName,
		Link:      d.Link,
		ExpiresIn: d.ExpiresIn,
		Lead:      "Someone asked to reset your password.",
		Button:    "Choose a new password",
		Footnote:  "This link expires in " + d.ExpiresIn + ". If it was not you, ignore this email.",
	})
}

func BuildMapInviteEmail(to string, d MapInviteEmailData) Email {
	access := "view"
	if d.Role == "WRITE" {
		access = "view and add spots to"
	}
	return build(tplInvite, to, layoutData{
		SiteName: d.SiteName,
		Name:     d.OwnerName,
		Link:     d.Link,
		Lead:     fmt.Sprintf("%s invited you to %s the map \"%s\".", d.OwnerName, access, d.MapName),
		Button:   "Open map",
		Footnote: "Sign in or register with this email address to see it.",
	})
}

// build renders a registered template. The templates are fixed, so a
// render failure leaves the bodies empty and the sender rejects it.
func build(name, to string, d layoutData) Email {
	msg, err := templates.Render(name, d)
	if err != nil {
		return Email{To: to}
	}
	return Email{To: to, Subject: msg.Subject, TextBody: msg.TextBody, HTMLBody: msg.HTMLBody}
}

var templates = mustTemplates(
	email.EmailTemplate{
		Name:     tplVerify,
		Subject:  "Confirm your {{.SiteName}} account",
		TextBody: "Hi {{.Name}},\n\nConfirm your {{.SiteName}} account by opening this link:\n{{.Link}}\n\nThe link expires in {{.ExpiresIn}}.\n",
		HTMLBody: layout,
	},
	email.EmailTemplate{
		Name:     tplReset,
		Subject:  "Reset your {{.SiteName}} password",
		TextBody: "Someone asked to reset the password on your {{.SiteName}} account.\n\nChoose a new password here:\n{{.Link}}\n\nThe link expires in {{.ExpiresIn}}. If it was not you, ignore this email.\n",
		HTMLBody: layout,
	},
	email.EmailTemplate{
		Name:     tplInvite,
		Subject:  "{{.Name}} shared a map with you on {{.SiteName}}",
		TextBody: "{{.Lead}}\n\nOpen it here:\n{{.Link}}\n\n{{.Footnote}}\n",
		HTMLBody: layout,
	},
)

func mustTemplates(tpls ...email.EmailTemplate) *email.TemplateStore {
	s := email.NewTemplateStore()
	for _, t := range tpls {
		if err := s.Register(t); err != nil {
			panic(err)
		}
	}
	return s
}

const layout = `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>{{.SiteName}}</title></head>
<body style="margin:0;padding:0;font-family:-apple-system,'Segoe UI',Roboto,Arial,sans-serif;background:#eef2f7;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0">
    <tr><td align="center" style="padding:40px 16px;">
      <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width:480px;background:#ffffff;border-radius:8px;">
        <tr><td style="padding:28px;text-align:center;border-bottom:1px solid #e5e7eb;">
          <h1 style="margin:0;font-size:22px;color:#0ea5e9;">{{.SiteName}}</h1>
        </td></tr>
        <tr><td style="padding:28px;">
          <p style="margin:0 0 24px;font-size:16px;color:#374151;line-height:1.5;">{{.Lead}}</p>
          <p style="text-align:center;margin:0 0 24px;">
            <a href="{{.Link}}" style="display:inline-block;padding:12px 28px;background:#0ea5e9;color:#ffffff;text-decoration:none;border-radius:6px;font-weight:600;">{{.Button}}</a>
          </p>
          <p style="margin:0;font-size:13px;color:#6b7280;">{{.Footnote}}</p>
        </td></tr>
      </table>
    </td></tr>
  </table>
</body>
</html>`

// FormatExpiry renders a token lifetime for an email body, e.g.
// "10 minutes", "1 hour", "24 hours".
func FormatExpiry(d time.Duration) string {
	minutes := int(d.Minutes())
	if minutes < 60 {
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	hours := minutes / 60
	if hours == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", hours)
}
