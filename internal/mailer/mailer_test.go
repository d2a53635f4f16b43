package mailer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestRenderMarkdown(t *testing.T) {
	out, err := RenderMarkdown("Hello **world**\nline two")
	if err != nil {
		t.Fatalf("RenderMarkdown: %v", err)
	}
	if !strings.Contains(out, "<strong>world</strong>") {
		t.Errorf("missing bold: %s", out)
	}
	if !strings.Contains(out, "<br>") {
		t.Errorf("hard wraps not applied: %s", out)
	}
}

func TestRenderMarkdown_OmitsRawHTML(t *testing.T) {
	out, err := RenderMarkdown("<script>alert(1)</script>")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "<script>") {
		t.Errorf("raw HTML leaked: %s", out)
	}
}

func TestCertificateEmail(t *testing.T) {
	msg, err := CertificateEmail("a@campus.edu", "Asha *R*", "Beach Cleanup", []byte("%PDF"), "cert.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if msg.Subject != "Your certificate for Beach Cleanup" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	if len(msg.Attachments) != 1 || msg.Attachments[0].ContentType != "application/pdf" {
		t.Fatalf("attachments = %+v", msg.Attachments)
	}
	if strings.Contains(msg.HTML, "<em>R</em>") {
		t.Errorf("student name was interpreted as markdown: %s", msg.HTML)
	}
}

func TestReminderEmail(t *testing.T) {
	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	msg, err := ReminderEmail("a@campus.edu", "Asha", "Tree Planting", "North Gate", start)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(msg.HTML, "Saturday, March 14, 2026") {
		t.Errorf("date missing from body: %s", msg.HTML)
	}
}

func TestConsoleSend(t *testing.T) {
	id, err := NewConsole(zerolog.Nop()).Send(context.Background(), Message{To: "x@y.z", Subject: "s"})
	if err != nil || !strings.HasPrefix(id, "console-") {
		t.Errorf("Send = %q, %v", id, err)
	}
}
