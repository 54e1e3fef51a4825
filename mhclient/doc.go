package mhclient

// mhclient talks to the MailHog HTTP API. It builds URLs from the configured
// base URL, adds basic auth, and decodes MailHog's JSON into mailhog types.
// It never retries; see the retry and inbox packages for that.
