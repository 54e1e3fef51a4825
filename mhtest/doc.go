package mhtest

// mhtest runs an in-process stand-in for MailHog: an SMTP server that
// captures mail plus an HTTP server exposing the parts of the MailHog API
// this module uses. Tests use it instead of a real MailHog binary. It also
// lets tests inject API failures to simulate a flaky capture server.
