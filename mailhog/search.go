package mailhog

import (
	"errors"
	"fmt"
)

// SearchKind selects which part of a message the MailHog search endpoint
// matches a query against.
type SearchKind string

const (
	SearchFrom       SearchKind = "from"
	SearchTo         SearchKind = "to"
	SearchContaining SearchKind = "containing"
)

// ErrInvalidSearchKind is returned for any kind MailHog doesn't support.
var ErrInvalidSearchKind = errors.New("invalid search kind")

// Validate returns an error wrapping ErrInvalidSearchKind if k isn't
// "from", "to" or "containing".
func (k SearchKind) Validate() error {
	switch k {
	case SearchFrom, SearchTo, SearchContaining:
		return nil
	}
	return fmt.Errorf(
		"%w %q: must be \"from\", \"to\", or \"containing\"",
		ErrInvalidSearchKind,
		string(k),
	)
}

// ParseSearchKind converts user input, e.g., a CLI flag, into a SearchKind.
func ParseSearchKind(s string) (SearchKind, error) {
	k := SearchKind(s)
	if err := k.Validate(); err != nil {
		return "", err
	}
	return k, nil
}
