package mailer

import (
	"fmt"
	"html"
	"strings"
	"time"
)

func escape(s string) string { return html.EscapeString(s) }

// mdEscape neutralises markdown syntax in user-supplied text.
func mdEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "[", `\[`, "]", `\]`, "#", `\#`, "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}

// CertificateEmail builds the message that carries a participant's certificate.
func CertificateEmail(to, studentName, eventTitle string, pdf []byte, filename string) (Message, error) {
	body, err := RenderMarkdown(fmt.Sprintf(
		"Dear %s,\n\nThank you for volunteering at **%s**. Your certificate of participation is attached to this email.\n\nKeep serving!",
		mdEscape(studentName), mdEscape(eventTitle)))
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: "Your certificate for " + eventTitle,
		HTML:    Layout("Certificate", body),
		Attachments: []Attachment{{
			Filename:    filename,
			ContentType: "application/pdf",
			Content:     pdf,
		}},
	}, nil
}

// ReminderEmail reminds an approved participant of an upcoming event.
func ReminderEmail(to, studentName, eventTitle, location string, start time.Time) (Message, error) {
	body, err := RenderMarkdown(fmt.Sprintf(
		"Hi %s,\n\nThis is a reminder that **%s** starts on %s at %s.\n\nSee you there!",
		mdEscape(studentName), mdEscape(eventTitle), start.Format("Monday, January 2, 2006 at 3:04 PM"), mdEscape(location)))
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: "Reminder: " + eventTitle,
		HTML:    Layout("Event reminder", body),
	}, nil
}

// CampaignEmail renders a bulk email body written in markdown.
func CampaignEmail(to, subject, bodyMarkdown string) (Message, error) {
	body, err := RenderMarkdown(bodyMarkdown)
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: subject, HTML: Layout(subject, body)}, nil
}
