package mhtest

import (
	"fmt"
	"strings"

	"github.com/ptgott/mhcheck/mailhog"

	mhdata "github.com/mailhog/data"
)

// NewMessage builds a plain text message the way MailHog would store it
// after receiving it over SMTP. Handy for seeding a Store without going
// through SMTP.
func NewMessage(from string, to []string, subject string, body string) mailhog.Message {
	data := fmt.Sprintf(
		"From: %v\r\nTo: %v\r\nSubject: %v\r\n\r\n%v",
		from,
		strings.Join(to, ", "),
		subject,
		body,
	)
	raw := &mhdata.SMTPMessage{
		From: from,
		To:   to,
		Data: data,
		Helo: "localhost",
	}
	return *raw.Parse(hostname)
}
