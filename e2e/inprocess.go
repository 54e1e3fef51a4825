package e2e

import (
	"github.com/ptgott/mhcheck/mhtest"
)

// inProcess runs the fake capture server from the mhtest package.
//
// Implements captureServer.
type inProcess struct {
	srv *mhtest.Server
}

func (ip *inProcess) start() error {
	s, err := mhtest.NewServer()
	if err != nil {
		return err
	}
	ip.srv = s
	return nil
}

func (ip *inProcess) close() {
	if ip.srv != nil {
		ip.srv.Close()
	}
}

func (ip *inProcess) apiURL() string {
	return ip.srv.URL()
}

func (ip *inProcess) smtpAddress() string {
	return ip.srv.SMTPAddress()
}
