package mhtest

import (
	"strings"
	"sync"

	"github.com/ptgott/mhcheck/mailhog"
)

// Store retains captured messages in memory. Designed to be goroutine safe
// since the SMTP and HTTP sides hit it concurrently.
type Store struct {
	mu       sync.Mutex
	messages []mailhog.Message // oldest first
	jim      bool
	failNext int
}

// Add captures m as if it had just arrived over SMTP.
func (s *Store) Add(m mailhog.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
}

// Len returns the number of captured messages.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// Messages returns all captured messages, newest first, like MailHog does.
func (s *Store) Messages() []mailhog.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := make([]mailhog.Message, 0, len(s.messages))
	for i := len(s.messages) - 1; i >= 0; i-- {
		r = append(r, s.messages[i])
	}
	return r
}

// DeleteAll drops every captured message.
func (s *Store) DeleteAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
}

// Jim reports whether Jim mode is on. The fake doesn't actually misbehave
// when it is; it only tracks the flag.
func (s *Store) Jim() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jim
}

// SetJim turns Jim mode on or off.
func (s *Store) SetJim(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jim = on
}

// FailNext makes the next n API requests fail with a 503.
func (s *Store) FailNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = n
}

// shouldFail consumes one injected failure, if any are left.
func (s *Store) shouldFail() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext > 0 {
		s.failNext--
		return true
	}
	return false
}

// Search mimics MailHog's in-memory search: a case-insensitive substring
// match against addresses and headers ("from", "to") or against the body and
// all headers ("containing"). Results are newest first.
func (s *Store) Search(kind mailhog.SearchKind, query string) []mailhog.Message {
	q := strings.ToLower(query)
	r := []mailhog.Message{}
	for _, m := range s.Messages() {
		if matches(m, kind, q) {
			r = append(r, m)
		}
	}
	return r
}

func matches(m mailhog.Message, kind mailhog.SearchKind, q string) bool {
	contains := func(s string) bool {
		return strings.Contains(strings.ToLower(s), q)
	}
	headerContains := func(name string) bool {
		if m.Content == nil {
			return false
		}
		for _, v := range m.Content.Headers[name] {
			if contains(v) {
				return true
			}
		}
		return false
	}

	switch kind {
	case mailhog.SearchFrom:
		return contains(mailhog.Address(m.From)) || headerContains("From")
	case mailhog.SearchTo:
		for _, p := range m.To {
			if contains(mailhog.Address(p)) {
				return true
			}
		}
		return headerContains("To")
	case mailhog.SearchContaining:
		if contains(mailhog.Body(m)) {
			return true
		}
		if m.Content == nil {
			return false
		}
		for name := range m.Content.Headers {
			if headerContains(name) {
				return true
			}
		}
	}
	return false
}
