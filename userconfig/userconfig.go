package userconfig

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ptgott/mhcheck/retry"
	"github.com/rs/zerolog/log"

	yaml "gopkg.in/yaml.v2"
)

// Environment variables that override values from the config file. There is
// deliberately only one way to supply each setting besides the file.
const (
	EnvURL      = "MAILHOG_URL"
	EnvUsername = "MAILHOG_USERNAME"
	EnvPassword = "MAILHOG_PASSWORD"
	EnvTimeout  = "MAILHOG_TIMEOUT"
)

// Polling faster than this only adds load on the capture server.
const minPollIntervalMS int64 = 50

// Meta represents all current config options that the application can use,
// i.e., after validation and parsing
type Meta struct {
	MailHog MailHog `yaml:"mailhog"`
}

// MailHog contains options for reaching a MailHog server and for waiting on
// it.
type MailHog struct {
	// Base URL of the MailHog UI/API, e.g., http://localhost:8025. The
	// "/api" prefix is added by the client.
	URL string
	// Basic auth credentials. Both or neither must be set.
	Username string
	Password string
	// Total time to wait for matching mail
	Timeout time.Duration
	// Time between polls
	PollInterval time.Duration
	// Number of messages to request per poll
	Limit int
}

// UnmarshalYAML parses a user-provided YAML configuration, returning any
// parsing errors. Validation happens in CheckAndSetDefaults so environment
// overrides can fill gaps first.
func (m *MailHog) UnmarshalYAML(unmarshal func(interface{}) error) error {
	v := make(map[string]string)
	err := unmarshal(&v)

	if err != nil {
		return fmt.Errorf("can't parse the mailhog config: %v", err)
	}

	m.URL = v["url"]
	m.Username = v["username"]
	m.Password = v["password"]

	if t, ok := v["timeout"]; ok {
		d, err := time.ParseDuration(t)
		if err != nil {
			return fmt.Errorf("can't parse the timeout as a duration: %v", err)
		}
		m.Timeout = d
	}

	if p, ok := v["pollInterval"]; ok {
		d, err := time.ParseDuration(p)
		if err != nil {
			return fmt.Errorf("can't parse the poll interval as a duration: %v", err)
		}
		m.PollInterval = d
	}

	if l, ok := v["limit"]; ok {
		n, err := strconv.Atoi(l)
		if err != nil {
			return fmt.Errorf("can't parse the limit as an integer: %v", err)
		}
		m.Limit = n
	}

	return nil
}

// ApplyEnv overrides settings with any environment variables that lookup
// finds. Pass os.LookupEnv outside of tests.
func (m *MailHog) ApplyEnv(lookup func(string) (string, bool)) error {
	if u, ok := lookup(EnvURL); ok {
		m.URL = u
	}
	if u, ok := lookup(EnvUsername); ok {
		m.Username = u
	}
	if p, ok := lookup(EnvPassword); ok {
		m.Password = p
	}
	if t, ok := lookup(EnvTimeout); ok {
		d, err := time.ParseDuration(t)
		if err != nil {
			return fmt.Errorf("can't parse %v as a duration: %v", EnvTimeout, err)
		}
		m.Timeout = d
	}
	return nil
}

// CheckAndSetDefaults validates m and either returns a copy of m with default
// settings applied or returns an error due to an invalid configuration
func (m *MailHog) CheckAndSetDefaults() (MailHog, error) {
	c := *m

	if c.URL == "" {
		return MailHog{}, fmt.Errorf(
			"no MailHog URL configured: set \"url\" or %v", EnvURL,
		)
	}

	u, err := url.Parse(c.URL)
	if err != nil {
		return MailHog{}, fmt.Errorf("can't parse the MailHog URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return MailHog{}, fmt.Errorf(
			"the MailHog URL must use http or https, not %q", u.Scheme,
		)
	}
	if u.Host == "" {
		return MailHog{}, errors.New("the MailHog URL must include a host")
	}
	c.URL = strings.TrimSuffix(u.String(), "/")

	if (c.Username == "") != (c.Password == "") {
		return MailHog{}, errors.New(
			"must supply both a MailHog username and password, or neither",
		)
	}

	if c.Timeout < 0 {
		return MailHog{}, errors.New("the timeout can't be negative")
	}
	if c.Timeout == 0 {
		c.Timeout = retry.DefaultTimeout()
	}

	if c.PollInterval < 0 {
		return MailHog{}, errors.New("the poll interval can't be negative")
	}
	if c.PollInterval == 0 {
		c.PollInterval = retry.DefaultInterval
	}
	if c.PollInterval.Milliseconds() < minPollIntervalMS {
		return MailHog{}, fmt.Errorf(
			"the poll interval must be at least %vms", minPollIntervalMS,
		)
	}
	if c.PollInterval > c.Timeout {
		log.Warn().
			Dur("pollInterval", c.PollInterval).
			Dur("timeout", c.Timeout).
			Msg("the poll interval is longer than the timeout, so only one poll will happen")
	}

	if c.Limit < 0 {
		return MailHog{}, errors.New("the limit can't be negative")
	}
	if c.Limit == 0 {
		c.Limit = retry.DefaultLimit
	}

	return c, nil
}

// Options returns the retry options that m describes.
func (m MailHog) Options() retry.Options {
	return retry.Options{
		Timeout:  m.Timeout,
		Interval: m.PollInterval,
	}
}

// CheckAndSetDefaults validates m and either returns a copy of m with default
// settings applied or returns an error due to an invalid configuration
func (m *Meta) CheckAndSetDefaults() (Meta, error) {
	mh, err := m.MailHog.CheckAndSetDefaults()
	if err != nil {
		return Meta{}, err
	}
	return Meta{MailHog: mh}, nil
}

// Parse generates usable configurations from possibly arbitrary user input.
// An error indicates a problem with parsing. The Reader r can be either JSON
// or YAML. An empty document is fine, since environment variables can
// supply everything.
func Parse(r io.Reader) (*Meta, error) {
	var m Meta
	err := yaml.NewDecoder(r).Decode(&m)
	if err != nil && !errors.Is(err, io.EOF) {
		return &Meta{}, fmt.Errorf("can't read the config file as YAML: %v", err)
	}

	return &m, nil
}
