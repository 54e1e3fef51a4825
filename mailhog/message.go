package mailhog

import (
	"strings"

	// Registers decoders for non-UTF-8 charsets used in encoded words and
	// part bodies.
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	mhdata "github.com/mailhog/data"
)

// Message is one mail item captured by MailHog. It's the exact type MailHog
// serializes in its API responses, so we alias it rather than mirror it.
type Message = mhdata.Message

// Content holds the headers and body of a message or one of its MIME parts.
type Content = mhdata.Content

// Path is an envelope address as MailHog splits it, e.g., Mailbox "jane"
// and Domain "example.com".
type Path = mhdata.Path

// Messages contains the response body from the MailHog v2 messages and
// search endpoints. MailHog defines this type but doesn't export it.
//
// https://github.com/mailhog/MailHog-Server/blob/50f74a1aa2991b96313144d1ac718ce4d6739dfd/api/v2.go#L72-L77
type Messages struct {
	Total int       `json:"total"`
	Count int       `json:"count"`
	Start int       `json:"start"`
	Items []Message `json:"items"`
}

// Address joins a Path into "mailbox@domain". A nil Path yields an empty
// string.
func Address(p *Path) string {
	if p == nil {
		return ""
	}
	if p.Domain == "" {
		return p.Mailbox
	}
	return p.Mailbox + "@" + p.Domain
}

// Header returns the first value of the header called name. Header names are
// matched exactly, the way MailHog stores them.
func Header(c *Content, name string) (string, bool) {
	if c == nil {
		return "", false
	}
	v, ok := c.Headers[name]
	if !ok || len(v) == 0 {
		return "", false
	}
	return v[0], true
}

// Subject returns the decoded Subject header of m. If the header uses an
// encoding we can't decode, the raw value is returned instead.
func Subject(m Message) string {
	raw, ok := Header(m.Content, "Subject")
	if !ok {
		return ""
	}

	var h mail.Header
	h.Set("Subject", raw)
	s, err := h.Subject()
	if err != nil {
		return raw
	}
	return s
}

// Body returns the undecoded body of m. For multipart messages this is the
// whole multipart payload; use HTMLPart/TextPart with DecodedBody to get at
// readable content.
func Body(m Message) string {
	if m.Content == nil {
		return ""
	}
	return m.Content.Body
}

// Sender returns the raw envelope sender (MAIL FROM) of m.
func Sender(m Message) string {
	if m.Raw == nil {
		return ""
	}
	return m.Raw.From
}

// Recipients returns a copy of the raw envelope recipients (RCPT TO) of m.
func Recipients(m Message) []string {
	if m.Raw == nil {
		return []string{}
	}
	r := make([]string, len(m.Raw.To))
	copy(r, m.Raw.To)
	return r
}

// RecipientAddresses returns the parsed envelope recipients of m as
// "mailbox@domain" strings.
func RecipientAddresses(m Message) []string {
	r := make([]string, 0, len(m.To))
	for _, p := range m.To {
		r = append(r, Address(p))
	}
	return r
}

// Attachments returns the filenames of all MIME parts of m, at any depth,
// with an "attachment" Content-Disposition. Parts without a filename are
// skipped.
func Attachments(m Message) []string {
	names := []string{}
	for _, p := range leafParts(m) {
		h := attachmentHeader(p)
		disp, _, err := h.ContentDisposition()
		if err != nil || !strings.EqualFold(disp, "attachment") {
			continue
		}
		n, err := h.Filename()
		if err != nil || n == "" {
			continue
		}
		names = append(names, n)
	}
	return names
}

func attachmentHeader(c *Content) *mail.AttachmentHeader {
	h := &mail.AttachmentHeader{}
	for k, vs := range c.Headers {
		for _, v := range vs {
			h.Add(k, v)
		}
	}
	return h
}

// leafParts flattens the MIME tree of m into its non-multipart parts. A
// message that isn't multipart is its own single leaf.
func leafParts(m Message) []*Content {
	root := m.MIME
	if root == nil && m.Content != nil {
		root = m.Content.MIME
	}
	if root == nil {
		if m.Content == nil {
			return nil
		}
		return []*Content{m.Content}
	}

	var leaves []*Content
	var walk func(b *mhdata.MIMEBody)
	walk = func(b *mhdata.MIMEBody) {
		for _, p := range b.Parts {
			// MailHog keeps the closing "--" of a boundary as a
			// headerless part
			if p == nil || (len(p.Headers) == 0 && strings.TrimSpace(p.Body) == "--") {
				continue
			}
			if p.MIME != nil && len(p.MIME.Parts) > 0 {
				walk(p.MIME)
				continue
			}
			leaves = append(leaves, p)
		}
	}
	walk(root)
	return leaves
}
