package mailhog

// mailhog describes the mail items held by a MailHog capture server and
// offers read-only accessors and list filters over them. It doesn't talk to
// the server itself--see mhclient for that.
