package email

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"

	gomail "gopkg.in/gomail.v2"
)

// Attachment is a file attached to a Probe.
type Attachment struct {
	Name    string
	Content []byte
}

// Probe describes a message to send. At least one of Text and HTML must be
// set. When both are, HTML becomes an alternative to Text.
type Probe struct {
	From        string
	To          []string
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}

// Sender delivers Probes to a single SMTP server. You must initialize this
// via NewSender.
type Sender struct {
	dialer *gomail.Dialer
}

// NewSender returns a Sender for the SMTP server at addr (host:port).
func NewSender(addr string) (*Sender, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("can't parse the SMTP address: %v", err)
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		return nil, fmt.Errorf("can't parse the SMTP port: %v", err)
	}

	return &Sender{
		dialer: &gomail.Dialer{
			Host: host,
			Port: p,
		},
	}, nil
}

// Send sends p. A lack of an error means the capture server accepted the
// message, not that it's visible through the API yet.
func (s *Sender) Send(p Probe) error {
	m, err := p.message()
	if err != nil {
		return err
	}
	return s.dialer.DialAndSend(m)
}

func (p Probe) message() (*gomail.Message, error) {
	if p.From == "" || len(p.To) == 0 {
		return nil, errors.New("must supply a \"to\" address and a \"from\" address")
	}
	if p.Text == "" && p.HTML == "" {
		return nil, errors.New("must supply a text or HTML body")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", p.From)
	m.SetHeader("To", p.To...)
	m.SetHeader("Subject", p.Subject)

	switch {
	case p.Text != "" && p.HTML != "":
		m.SetBody("text/plain", p.Text)
		m.AddAlternative("text/html", p.HTML)
	case p.HTML != "":
		m.SetBody("text/html", p.HTML)
	default:
		m.SetBody("text/plain", p.Text)
	}

	for _, a := range p.Attachments {
		content := a.Content
		m.Attach(a.Name, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(content)
			return err
		}))
	}

	return m, nil
}
