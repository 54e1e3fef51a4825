package e2e

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"time"

	"github.com/ptgott/mhcheck/mhclient"
	"github.com/ptgott/mhcheck/userconfig"

	"github.com/rs/zerolog/log"
)

const (
	// mailHogPathEnv names the environment variable holding the path to a
	// MailHog executable.
	mailHogPathEnv = "MAILHOG_PATH"
	// how long to wait for a freshly started MailHog to answer API requests
	mailHogStartupTimeout = 10 * time.Second
)

// MailHog contains information used for managing a MailHog server.
//
// Implements captureServer.
type MailHog struct {
	// path to the mailHog executable
	mailHogPath string
	// port of the running MailHog SMTP endpoint (which is always local)
	smtpPort int
	// port for the MailHog API endpoint (which is always local)
	apiPort int
	// proc is used for managing the MailHog process
	proc *os.Process
}

// freePort asks the kernel for an unused local port. There's a small window
// between closing the listener and MailHog binding the port, which is fine
// for tests.
func freePort() (int, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("can't find a free port: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port, nil
}

// start runs the MailHog executable and waits for its API to come up.
func (mh *MailHog) start() error {
	if mh.mailHogPath == "" {
		return errors.New("must specify the path to a MailHog executable")
	}

	_, err := os.Lstat(mh.mailHogPath)
	if err != nil {
		return fmt.Errorf("can't find the MailHog executable: %v", err)
	}

	if mh.apiPort == 0 {
		if mh.apiPort, err = freePort(); err != nil {
			return err
		}
	}
	if mh.smtpPort == 0 {
		if mh.smtpPort, err = freePort(); err != nil {
			return err
		}
	}

	c := exec.Command(mh.mailHogPath)

	// Set up ports/other config
	// https://github.com/mailhog/MailHog/blob/0441dd494b03c9255a9b8e90e3458ebb115eacff/docs/CONFIG.md
	c.Env = append(c.Env, fmt.Sprintf("MH_API_BIND_ADDR=127.0.0.1:%v", mh.apiPort))
	c.Env = append(c.Env, fmt.Sprintf("MH_UI_BIND_ADDR=127.0.0.1:%v", mh.apiPort))
	c.Env = append(c.Env, fmt.Sprintf("MH_SMTP_BIND_ADDR=127.0.0.1:%v", mh.smtpPort))
	err = c.Start()
	if err != nil {
		return fmt.Errorf("could not start MailHog: %v", err)
	}

	mh.proc = c.Process

	return mh.waitReady()
}

// waitReady polls the API until it responds or the startup timeout expires.
func (mh *MailHog) waitReady() error {
	cl, err := mhclient.New(userconfig.MailHog{URL: mh.apiURL()})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), mailHogStartupTimeout)
	defer cancel()

	for {
		_, err = cl.Messages(ctx, 1)
		if err == nil {
			return nil
		}
		log.Debug().Err(err).Msg("MailHog isn't ready yet")

		select {
		case <-ctx.Done():
			return fmt.Errorf("MailHog didn't come up within %v: %v", mailHogStartupTimeout, err)
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// close attempts to gracefully terminate the MailHog process and, failing
// that, kill it abruptly.
func (mh *MailHog) close() {
	// If the process isn't running, don't worry about attempting to exit it
	if mh.proc == nil {
		return
	}

	err := mh.proc.Signal(os.Interrupt)
	if err != nil {
		err = mh.proc.Kill()
		if err != nil {
			// we don't want to return an error here--panic so the user can
			// chase down the process manually.
			panic(fmt.Sprintf("could not terminate process %v: %v", mh.proc.Pid, err))
		}
	}
	// Reap the child. The exit status after an interrupt isn't interesting.
	mh.proc.Wait()
}

func (mh *MailHog) apiURL() string {
	return fmt.Sprintf("http://127.0.0.1:%v", mh.apiPort)
}

// smtpAddress retrieves the address of the SMTP server
func (mh *MailHog) smtpAddress() string {
	return fmt.Sprintf("127.0.0.1:%v", mh.smtpPort)
}
