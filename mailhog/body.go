package mailhog

import (
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message"
)

// HTMLPart returns the first text/html part of m, or nil if there isn't one.
func HTMLPart(m Message) *Content {
	return firstPartOfType(m, "text/html")
}

// TextPart returns the first text/plain part of m, or nil if there isn't one.
// Parts without a Content-Type header count as text/plain.
func TextPart(m Message) *Content {
	return firstPartOfType(m, "text/plain")
}

func firstPartOfType(m Message, mediaType string) *Content {
	for _, p := range leafParts(m) {
		if partType(p) == mediaType {
			return p
		}
	}
	return nil
}

func partType(c *Content) string {
	h := messageHeader(c)
	if h.Get("Content-Type") == "" {
		return "text/plain"
	}
	t, _, err := h.ContentType()
	if err != nil {
		return ""
	}
	return strings.ToLower(t)
}

func messageHeader(c *Content) message.Header {
	h := message.Header{}
	for k, vs := range c.Headers {
		for _, v := range vs {
			h.Add(k, v)
		}
	}
	return h
}

// DecodedBody undoes the Content-Transfer-Encoding and charset of a single
// part, e.g., one returned by HTMLPart. Unknown charsets and encodings are
// tolerated, yielding the body as-is.
func DecodedBody(c *Content) (string, error) {
	if c == nil {
		return "", nil
	}

	e, err := message.New(messageHeader(c), strings.NewReader(c.Body))
	if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
		return "", fmt.Errorf("can't read the message part: %v", err)
	}

	b, err := io.ReadAll(e.Body)
	if err != nil {
		return "", fmt.Errorf("can't decode the message part body: %v", err)
	}
	return string(b), nil
}
