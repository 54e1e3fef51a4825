package userconfig

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ptgott/mhcheck/retry"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		description   string
		conf          string
		shouldBeError bool
		expected      MailHog
	}{
		{
			description:   "valid case",
			shouldBeError: false,
			conf: `---
mailhog:
    url: http://localhost:8025
    username: tester
    password: s3cret
    timeout: 10s
    pollInterval: 250ms
    limit: 20`,
			expected: MailHog{
				URL:          "http://localhost:8025",
				Username:     "tester",
				Password:     "s3cret",
				Timeout:      10 * time.Second,
				PollInterval: 250 * time.Millisecond,
				Limit:        20,
			},
		},
		{
			description:   "empty document",
			shouldBeError: false,
			conf:          ``,
			expected:      MailHog{},
		},
		{
			description:   "not yaml",
			shouldBeError: true,
			conf:          `this is not yaml`,
		},
		{
			description:   "unparseable timeout",
			shouldBeError: true,
			conf: `mailhog:
    url: http://localhost:8025
    timeout: 10y`,
		},
		{
			description:   "unparseable limit",
			shouldBeError: true,
			conf: `mailhog:
    url: http://localhost:8025
    limit: lots`,
		},
		{
			description:   "mailhog section is not an object",
			shouldBeError: true,
			conf:          `mailhog: []`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			b := bytes.NewBuffer([]byte(tc.conf))
			m, err := Parse(b)

			if (err != nil) != tc.shouldBeError {
				t.Fatalf(
					"%v: unexpected error status: wanted %v but got %v with error %v",
					tc.description,
					tc.shouldBeError,
					err != nil,
					err,
				)
			}

			if !tc.shouldBeError && !reflect.DeepEqual(m.MailHog, tc.expected) {
				t.Errorf("expected %+v but got %+v", tc.expected, m.MailHog)
			}
		})
	}
}

func TestParseErrorNamesTheBadLimit(t *testing.T) {
	_, err := Parse(bytes.NewBufferString(`mailhog:
    url: http://localhost:8025
    limit: lots`))
	if err == nil {
		t.Fatal("expected an error for a non-numeric limit")
	}
	if !strings.Contains(err.Error(), `"lots"`) {
		t.Errorf("expected the error to name the bad value but got %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvURL:      "http://mailhog:8025",
		EnvPassword: "from-env",
		EnvTimeout:  "30s",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	m := MailHog{
		URL:      "http://localhost:8025",
		Username: "file-user",
		Password: "file-pass",
	}
	if err := m.ApplyEnv(lookup); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := MailHog{
		URL:      "http://mailhog:8025",
		Username: "file-user",
		Password: "from-env",
		Timeout:  30 * time.Second,
	}
	if !reflect.DeepEqual(m, expected) {
		t.Errorf("expected %+v but got %+v", expected, m)
	}

	env[EnvTimeout] = "soon"
	if err := m.ApplyEnv(lookup); err == nil {
		t.Error("expected an error for an unparseable timeout")
	}
}

func TestCheckAndSetDefaults(t *testing.T) {
	testCases := []struct {
		description   string
		input         MailHog
		shouldBeError bool
		expected      MailHog
	}{
		{
			description: "defaults",
			input:       MailHog{URL: "http://localhost:8025/"},
			expected: MailHog{
				URL:          "http://localhost:8025",
				Timeout:      retry.DefaultTimeout(),
				PollInterval: retry.DefaultInterval,
				Limit:        retry.DefaultLimit,
			},
		},
		{
			description: "explicit values are kept",
			input: MailHog{
				URL:          "https://mail.example.com/mailhog",
				Username:     "u",
				Password:     "p",
				Timeout:      time.Minute,
				PollInterval: time.Second,
				Limit:        5,
			},
			expected: MailHog{
				URL:          "https://mail.example.com/mailhog",
				Username:     "u",
				Password:     "p",
				Timeout:      time.Minute,
				PollInterval: time.Second,
				Limit:        5,
			},
		},
		{
			description:   "no url",
			input:         MailHog{},
			shouldBeError: true,
		},
		{
			description:   "wrong scheme",
			input:         MailHog{URL: "smtp://localhost:1025"},
			shouldBeError: true,
		},
		{
			description:   "no host",
			input:         MailHog{URL: "http://"},
			shouldBeError: true,
		},
		{
			description:   "username without password",
			input:         MailHog{URL: "http://localhost:8025", Username: "u"},
			shouldBeError: true,
		},
		{
			description:   "negative timeout",
			input:         MailHog{URL: "http://localhost:8025", Timeout: -time.Second},
			shouldBeError: true,
		},
		{
			description:   "poll interval too short",
			input:         MailHog{URL: "http://localhost:8025", PollInterval: time.Millisecond},
			shouldBeError: true,
		},
		{
			description:   "negative limit",
			input:         MailHog{URL: "http://localhost:8025", Limit: -1},
			shouldBeError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			c, err := tc.input.CheckAndSetDefaults()
			if (err != nil) != tc.shouldBeError {
				t.Fatalf("expected error status of %v but got %v", tc.shouldBeError, err)
			}
			if !tc.shouldBeError && !reflect.DeepEqual(c, tc.expected) {
				t.Errorf("expected %+v but got %+v", tc.expected, c)
			}
		})
	}
}

func TestOptions(t *testing.T) {
	m := MailHog{Timeout: time.Second, PollInterval: 100 * time.Millisecond}
	o := m.Options()
	if o.Timeout != time.Second || o.Interval != 100*time.Millisecond {
		t.Errorf("unexpected options %+v", o)
	}
}
