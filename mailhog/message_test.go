package mailhog

import (
	"reflect"
	"testing"

	mhdata "github.com/mailhog/data"
)

func newTestMessage(id, from, subject string, to ...string) Message {
	paths := make([]*Path, len(to))
	for i := range to {
		paths[i] = mhdata.PathFromString(to[i])
	}
	return Message{
		ID:   mhdata.MessageID(id),
		From: mhdata.PathFromString(from),
		To:   paths,
		Content: &Content{
			Headers: map[string][]string{
				"Subject": {subject},
				"From":    {from},
			},
			Body: "hello from " + id,
		},
		Raw: &mhdata.SMTPMessage{
			From: from,
			To:   to,
			Helo: "localhost",
		},
	}
}

func multipartMessage() Message {
	m := newTestMessage("mp", "sender@example.com", "Invoice", "jane@example.com")
	m.Content.Headers["Content-Type"] = []string{`multipart/mixed; boundary="b1"`}
	m.MIME = &mhdata.MIMEBody{
		Parts: []*Content{
			{
				Headers: map[string][]string{
					"Content-Type": {`multipart/alternative; boundary="b2"`},
				},
				MIME: &mhdata.MIMEBody{
					Parts: []*Content{
						{
							Headers: map[string][]string{
								"Content-Type": {"text/plain; charset=UTF-8"},
							},
							Body: "See the invoice",
						},
						{
							Headers: map[string][]string{
								"Content-Type":              {"text/html; charset=UTF-8"},
								"Content-Transfer-Encoding": {"quoted-printable"},
							},
							Body: `<a href=3D"https://example.com/pay">Pay</a>`,
						},
					},
				},
			},
			{
				Headers: map[string][]string{
					"Content-Type":        {`application/pdf; name="invoice.pdf"`},
					"Content-Disposition": {`attachment; filename="invoice.pdf"`},
				},
				Body: "JVBERi0xLjQK",
			},
			{
				Headers: map[string][]string{
					"Content-Type":        {"image/png"},
					"Content-Disposition": {`inline; filename="logo.png"`},
				},
				Body: "iVBORw0KGgo=",
			},
		},
	}
	return m
}

func TestAddress(t *testing.T) {
	testCases := []struct {
		description string
		path        *Path
		expected    string
	}{
		{
			description: "nil path",
			path:        nil,
			expected:    "",
		},
		{
			description: "mailbox and domain",
			path:        &Path{Mailbox: "jane", Domain: "example.com"},
			expected:    "jane@example.com",
		},
		{
			description: "mailbox only",
			path:        &Path{Mailbox: "postmaster"},
			expected:    "postmaster",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			if a := Address(tc.path); a != tc.expected {
				t.Errorf("expected %q but got %q", tc.expected, a)
			}
		})
	}
}

func TestSubject(t *testing.T) {
	testCases := []struct {
		description string
		raw         []string
		expected    string
	}{
		{
			description: "plain subject",
			raw:         []string{"Welcome aboard"},
			expected:    "Welcome aboard",
		},
		{
			description: "encoded word",
			raw:         []string{"=?UTF-8?B?R3LDvMOfZQ==?="},
			expected:    "Grüße",
		},
		{
			description: "first value wins",
			raw:         []string{"first", "second"},
			expected:    "first",
		},
		{
			description: "no subject header",
			raw:         nil,
			expected:    "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			m := newTestMessage("1", "a@example.com", "", "b@example.com")
			if tc.raw == nil {
				delete(m.Content.Headers, "Subject")
			} else {
				m.Content.Headers["Subject"] = tc.raw
			}
			if s := Subject(m); s != tc.expected {
				t.Errorf("expected subject %q but got %q", tc.expected, s)
			}
		})
	}
}

func TestHeaderNamesAreCaseSensitive(t *testing.T) {
	m := newTestMessage("1", "a@example.com", "Hi", "b@example.com")
	if _, ok := Header(m.Content, "subject"); ok {
		t.Error("expected a lowercase header name not to match \"Subject\"")
	}
	if v, ok := Header(m.Content, "Subject"); !ok || v != "Hi" {
		t.Errorf("expected to find the Subject header but got %q, %v", v, ok)
	}
}

func TestAccessorsOnEmptyMessage(t *testing.T) {
	var m Message
	if Subject(m) != "" || Body(m) != "" || Sender(m) != "" {
		t.Error("expected empty strings for a message without content")
	}
	if r := Recipients(m); r == nil || len(r) != 0 {
		t.Errorf("expected an empty, non-nil recipient list but got %#v", r)
	}
	if a := Attachments(m); len(a) != 0 {
		t.Errorf("expected no attachments but got %v", a)
	}
}

func TestSenderAndRecipients(t *testing.T) {
	m := newTestMessage("1", "a@example.com", "Hi", "b@example.com", "c@example.com")

	if s := Sender(m); s != "a@example.com" {
		t.Errorf("unexpected sender %q", s)
	}

	r := Recipients(m)
	if !reflect.DeepEqual(r, []string{"b@example.com", "c@example.com"}) {
		t.Errorf("unexpected recipients %v", r)
	}

	// Mutating the copy must not touch the message
	r[0] = "changed"
	if m.Raw.To[0] != "b@example.com" {
		t.Error("Recipients returned a slice that aliases the message")
	}

	ra := RecipientAddresses(m)
	if !reflect.DeepEqual(ra, []string{"b@example.com", "c@example.com"}) {
		t.Errorf("unexpected recipient addresses %v", ra)
	}
}

func TestAttachments(t *testing.T) {
	a := Attachments(multipartMessage())
	if !reflect.DeepEqual(a, []string{"invoice.pdf"}) {
		t.Errorf("expected only invoice.pdf but got %v", a)
	}
}

func TestParts(t *testing.T) {
	m := multipartMessage()

	tp := TextPart(m)
	if tp == nil || tp.Body != "See the invoice" {
		t.Fatalf("unexpected text part: %+v", tp)
	}

	hp := HTMLPart(m)
	if hp == nil {
		t.Fatal("expected an HTML part")
	}
	b, err := DecodedBody(hp)
	if err != nil {
		t.Fatalf("unexpected error decoding the HTML part: %v", err)
	}
	if b != `<a href="https://example.com/pay">Pay</a>` {
		t.Errorf("unexpected decoded body %q", b)
	}

	plain := newTestMessage("2", "a@example.com", "Hi", "b@example.com")
	if TextPart(plain) != plain.Content {
		t.Error("expected a non-MIME message without a Content-Type to be its own text part")
	}
	if HTMLPart(plain) != nil {
		t.Error("expected no HTML part in a plain message")
	}
}

func TestDecodedBodyUnknownCharset(t *testing.T) {
	c := &Content{
		Headers: map[string][]string{
			"Content-Type": {"text/plain; charset=x-made-up"},
		},
		Body: "as is",
	}
	b, err := DecodedBody(c)
	if err != nil {
		t.Fatalf("expected unknown charsets to be tolerated but got %v", err)
	}
	if b != "as is" {
		t.Errorf("unexpected body %q", b)
	}
}
