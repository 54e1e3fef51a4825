package email

// email is responsible for sending probe messages to a capture server's SMTP
// port so tests have something to wait for. It builds MIME bodies with
// gomail and does no TLS or AUTH, since capture servers don't need either.
