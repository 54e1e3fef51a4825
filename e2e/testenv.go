package e2e

import (
	"os"
	"testing"
	"time"

	"github.com/ptgott/mhcheck/email"
	"github.com/ptgott/mhcheck/inbox"
	"github.com/ptgott/mhcheck/userconfig"
)

// testEnvironment manages a capture server plus the clients a test needs to
// send mail to it and read mail back. Callers should create this via
// startTestEnvironment.
type testEnvironment struct {
	server captureServer
	inbox  *inbox.Inbox
	sender *email.Sender
}

// captureServers returns the servers every test runs against, keyed by a
// name to use in subtests.
func captureServers() map[string]func() captureServer {
	s := map[string]func() captureServer{
		"in-process": func() captureServer { return &inProcess{} },
	}
	if p := os.Getenv(mailHogPathEnv); p != "" {
		s["mailhog"] = func() captureServer { return &MailHog{mailHogPath: p} }
	}
	return s
}

// forEachServer runs f as a subtest once per capture server.
func forEachServer(t *testing.T, f func(t *testing.T, te *testEnvironment)) {
	for name, newServer := range captureServers() {
		newServer := newServer
		t.Run(name, func(t *testing.T) {
			te := startTestEnvironment(t, newServer(), 5*time.Second)
			f(t, te)
		})
	}
}

// startTestEnvironment starts cs and wires an inbox and a sender to it. The
// server is stopped when the test finishes.
func startTestEnvironment(t *testing.T, cs captureServer, timeout time.Duration) *testEnvironment {
	t.Helper()

	if err := cs.start(); err != nil {
		cs.close()
		t.Fatalf("can't start the capture server: %v", err)
	}
	t.Cleanup(cs.close)

	in, err := inbox.FromConfig(userconfig.MailHog{
		URL:          cs.apiURL(),
		Timeout:      timeout,
		PollInterval: 100 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("can't create the inbox: %v", err)
	}

	s, err := email.NewSender(cs.smtpAddress())
	if err != nil {
		t.Fatalf("can't create the sender: %v", err)
	}

	return &testEnvironment{server: cs, inbox: in, sender: s}
}

// sendLater sends p after d so the inbox has to poll for it. The result
// arrives on the returned channel, which never blocks the sender.
func (te *testEnvironment) sendLater(d time.Duration, p email.Probe) <-chan error {
	ch := make(chan error, 1)
	go func() {
		time.Sleep(d)
		ch <- te.sender.Send(p)
	}()
	return ch
}
