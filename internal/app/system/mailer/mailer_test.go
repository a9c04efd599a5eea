package mailer

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestBuildMapInviteEmail(t *testing.T) {
	e := BuildMapInviteEmail("guest@example.com", MapInviteEmailData{
		SiteName:  "FlySpot",
		OwnerName: "Ana",
		MapName:   "Coast <north>",
		Role:      "WRITE",
		Link:      "https://flyspot.test/maps/abc",
	})

	if e.To != "guest@example.com" {
		t.Errorf("To = %q", e.To)
	}
	if !strings.Contains(e.TextBody, "view and add spots to") {
		t.Errorf("text body should describe WRITE access: %q", e.TextBody)
	}
	if e.Subject != "Ana shared a map with you on FlySpot" {
		t.Errorf("Subject = %q", e.Subject)
	}
	if !strings.Contains(e.TextBody, `"Coast <north>"`) {
		t.Errorf("text body should keep the raw map name: %q", e.TextBody)
	}
	if strings.Contains(e.HTMLBody, "<north>") {
		t.Error("map name must be escaped in HTML body")
	}
	if !strings.Contains(e.HTMLBody, "https://flyspot.test/maps/abc") {
		t.Error("HTML body should carry the link")
	}
}

func TestBuildVerificationEmail(t *testing.T) {
	e := BuildVerificationEmail("pilot@example.com", VerificationEmailData{
		SiteName: "FlySpot", Name: "Pilot", Link: "https://x/auth/verify?token=t", ExpiresIn: "24 hours",
	})
	if !strings.Contains(e.TextBody, "24 hours") || !strings.Contains(e.TextBody, "token=t") {
		t.Errorf("unexpected text body %q", e.TextBody)
	}
}

func TestMailer_LogOnlyMode(t *testing.T) {
	m := New(Config{}, zap.NewNop())
	if m.Enabled() {
		t.Fatal("mailer without host should be log-only")
	}
	if err := m.Send(context.Background(), Email{To: "a@b.c", Subject: "s", TextBody: "t"}); err != nil {
		t.Errorf("log-only Send returned %v", err)
	}
	if err := m.Send(context.Background(), Email{}); err == nil {
		t.Error("expected error for empty recipient")
	}
}

func TestMessage_CarriesBothBodies(t *testing.T) {
	msg := message(Email{To: "a@b.c", Subject: "Hello", TextBody: "plain", HTMLBody: "<p>html</p>"})
	if len(msg.To) != 1 || msg.To[0] != "a@b.c" {
		t.Errorf("To = %v", msg.To)
	}
	if msg.Subject != "Hello" || msg.TextBody != "plain" || msg.HTMLBody != "<p>html</p>" {
		t.Errorf("unexpected message %+v", msg)
	}
}

func TestMailer_ReportsSMTPFailure(t *testing.T) {
	m := New(Config{Host: "127.0.0.1", Port: 1, From: "noreply@flyspot.test"}, zap.NewNop())
	if !m.Enabled() {
		t.Fatal("mailer with host should be enabled")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := m.Send(ctx, Email{To: "a@b.c", Subject: "s", TextBody: "t"})
	if err == nil || !strings.Contains(err.Error(), "a@b.c") {
		t.Errorf("err = %v, want a send failure naming the recipient", err)
	}
}

func TestBuildResetPasswordEmail(t *testing.T) {
	e := BuildResetPasswordEmail("pilot@example.com", ResetPasswordEmailData{
		SiteName: "FlySpot", Link: "https://x/reset?token=r", ExpiresIn: "10 minutes",
	})
	if e.Subject != "Reset your FlySpot password" {
		t.Errorf("Subject = %q", e.Subject)
	}
	if !strings.Contains(e.HTMLBody, "https://x/reset?token=r") || !strings.Contains(e.TextBody, "10 minutes") {
		t.Errorf("unexpected bodies %q / %q", e.TextBody, e.HTMLBody)
	}
}

func TestFormatExpiry(t *testing.T) {
	cases := map[time.Duration]string{
		time.Minute:      "1 minute",
		10 * time.Minute: "10 minutes",
		time.Hour:        "1 hour",
		24 * time.Hour:   "24 hours",
	}
	for d, want := range cases {
		if got := FormatExpiry(d); got != want {
			t.Errorf("FormatExpiry(%v) = %q, want %q", d, got, want)
		}
	}
}
