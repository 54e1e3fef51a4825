package e2e

// captureServer is a disposable SMTP capture server exposing the MailHog
// API. The server is meant to start during a test and stop right after.
type captureServer interface {
	// start launches the server and returns an error if this fails. start
	// should return only once the API is ready to answer requests.
	start() error
	// close terminates the server. It doesn't return an error so it's easier
	// to use with defer. Implementations should panic if they can't stop a
	// child process so the test operator can chase it down.
	close()
	// apiURL returns the base URL of the MailHog API, without the /api path.
	apiURL() string
	// smtpAddress returns the host:port of the SMTP endpoint.
	smtpAddress() string
}
