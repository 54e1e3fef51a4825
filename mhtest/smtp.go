package mhtest

import (
	"errors"
	"io"

	"github.com/docker/go-units"
	"github.com/emersion/go-smtp"
	mhdata "github.com/mailhog/data"
)

// hostname stamped into message IDs, the way MailHog uses its own hostname
const hostname = "mhtest.local"

// backend implements smtp.Backend. Any username/password is fine, and so is
// no AUTH at all, since MailHog accepts everything.
type backend struct {
	store *Store
}

// Login implements smtp.Backend.
func (be *backend) Login(state *smtp.ConnectionState, username string, password string) (smtp.Session, error) {
	if username == "" || password == "" {
		return nil, errors.New("no username or password provided")
	}
	return be.newSession(state), nil
}

// AnonymousLogin implements smtp.Backend.
func (be *backend) AnonymousLogin(state *smtp.ConnectionState) (smtp.Session, error) {
	return be.newSession(state), nil
}

func (be *backend) newSession(state *smtp.ConnectionState) *session {
	s := &session{store: be.store}
	if state != nil {
		s.helo = state.Hostname
	}
	return s
}

// session implements smtp.Session. It collects the envelope and hands the
// finished message to the Store in the same shape MailHog would.
type session struct {
	store *Store
	helo  string
	from  string
	to    []string
}

// Reset implements smtp.Session.
func (s *session) Reset() {
	s.from = ""
	s.to = nil
}

// Logout implements smtp.Session. No-op here.
func (s *session) Logout() error { return nil }

// Mail implements smtp.Session.
func (s *session) Mail(from string, _ smtp.MailOptions) error {
	s.from = from
	return nil
}

// Rcpt implements smtp.Session.
func (s *session) Rcpt(to string) error {
	s.to = append(s.to, to)
	return nil
}

// Data implements smtp.Session. Parses the message with MailHog's own parser
// so headers and MIME parts come out exactly as the real API returns them.
func (s *session) Data(r io.Reader) error {
	// doubtful we'll get an email this big, but we need a limit
	var maxEmailSize int64 = 25 * units.MiB
	buf, err := io.ReadAll(io.LimitReader(r, maxEmailSize))
	if err != nil {
		return err
	}

	to := make([]string, len(s.to))
	copy(to, s.to)
	raw := &mhdata.SMTPMessage{
		From: s.from,
		To:   to,
		Data: string(buf),
		Helo: s.helo,
	}
	s.store.Add(*raw.Parse(hostname))
	return nil
}
