package mhtest

import (
	"fmt"
	"net"
	"net/http/httptest"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/rs/zerolog/log"
)

// Server is an in-process MailHog stand-in. You must initialize this via
// NewServer and call Close when done.
type Server struct {
	*Store
	api  *httptest.Server
	smtp *smtp.Server
	ln   net.Listener
}

// Option configures a Server.
type Option func(*apiHandler)

// WithBasicAuth makes the API require the given credentials.
func WithBasicAuth(username, password string) Option {
	return func(h *apiHandler) {
		h.username = username
		h.password = password
	}
}

// NewServer starts the SMTP and HTTP sides of a fake MailHog on random
// local ports.
func NewServer(opts ...Option) (*Server, error) {
	st := &Store{}
	h := &apiHandler{store: st}
	for _, o := range opts {
		o(h)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("can't listen for SMTP: %v", err)
	}

	srv := smtp.NewServer(&backend{store: st})
	srv.Domain = "localhost"
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	// MailHog accepts AUTH over plain connections, and so do we
	srv.AllowInsecureAuth = true

	go func() {
		if err := srv.Serve(ln); err != nil {
			log.Debug().Err(err).Msg("the test SMTP server stopped")
		}
	}()

	return &Server{
		Store: st,
		api:   httptest.NewServer(h.routes()),
		smtp:  srv,
		ln:    ln,
	}, nil
}

// URL returns the base URL of the fake MailHog API, without the "/api"
// prefix, e.g., for userconfig.MailHog.URL.
func (s *Server) URL() string {
	return s.api.URL
}

// SMTPAddress returns the host:port the fake accepts mail on.
func (s *Server) SMTPAddress() string {
	return s.ln.Addr().String()
}

// Close shuts down both servers. You must start a new Server instead of
// restarting this one.
func (s *Server) Close() {
	s.api.Close()
	s.smtp.Close()
}
