package e2e

// e2e contains integration tests that run the inbox helpers against a capture
// server, along with the code that starts and stops those servers. Every test
// runs against the in-process fake. Tests also run against a real MailHog
// binary when MAILHOG_PATH points to one.
