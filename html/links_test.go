package html

import (
	"reflect"
	"testing"
)

// Using one HTML string in all unit tests, shaped like a typical
// transactional email.
const testHTML = `<!doctype html>
<html>
<body>
	<table>
		<tr><td>
			<h1>Welcome!</h1>
			<p>Click to verify: <a class="cta" href="https://app.example.com/verify?token=abc123">Verify Account</a></p>
			<p>Or visit <a href=" https://app.example.com/help ">our help center</a>.</p>
			<a name="anchor-without-href">nothing</a>
			<a class="cta" href="https://app.example.com/verify?token=abc123">Verify again</a>
		</td></tr>
	</table>
</body>
</html>`

func TestExtractLinks(t *testing.T) {
	testCases := []struct {
		description   string
		body          string
		selector      string
		expected      []string
		shouldBeError bool
	}{
		{
			description: "default selector",
			body:        testHTML,
			expected: []string{
				"https://app.example.com/verify?token=abc123",
				"https://app.example.com/help",
				"https://app.example.com/verify?token=abc123",
			},
		},
		{
			description: "class selector",
			body:        testHTML,
			selector:    "a.cta",
			expected: []string{
				"https://app.example.com/verify?token=abc123",
				"https://app.example.com/verify?token=abc123",
			},
		},
		{
			description: "no links",
			body:        "<p>plain</p>",
			expected:    []string{},
		},
		{
			description:   "invalid selector",
			body:          testHTML,
			selector:      "a[",
			shouldBeError: true,
		},
		{
			description:   "grouped selector",
			body:          testHTML,
			selector:      "a, link",
			shouldBeError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			l, err := ExtractLinks(tc.body, tc.selector)
			if (err != nil) != tc.shouldBeError {
				t.Fatalf("expected error status of %v but got %v", tc.shouldBeError, err)
			}
			if !tc.shouldBeError && !reflect.DeepEqual(l, tc.expected) {
				t.Errorf("expected %v but got %v", tc.expected, l)
			}
		})
	}
}

func TestFirstLinkContaining(t *testing.T) {
	l, ok, err := FirstLinkContaining(testHTML, "verify?token=")
	if err != nil || !ok {
		t.Fatalf("expected to find a verification link: %v, %v", ok, err)
	}
	if l != "https://app.example.com/verify?token=abc123" {
		t.Errorf("unexpected link %q", l)
	}

	_, ok, err = FirstLinkContaining(testHTML, "unsubscribe")
	if err != nil || ok {
		t.Errorf("expected no unsubscribe link, got %v, %v", ok, err)
	}
}
