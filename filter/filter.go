package filter

import (
	"github.com/ptgott/mhcheck/mailhog"
	"github.com/ptgott/mhcheck/retry"
)

// All matches every message in a batch.
func All() retry.Filter {
	return func(b []mailhog.Message) ([]mailhog.Message, error) {
		return b, nil
	}
}

// BySubject matches messages whose decoded subject equals subject.
func BySubject(subject string) retry.Filter {
	return func(b []mailhog.Message) ([]mailhog.Message, error) {
		return mailhog.FilterBySubject(b, subject), nil
	}
}

// ByRecipient matches messages addressed to recipient.
func ByRecipient(recipient string) retry.Filter {
	return func(b []mailhog.Message) ([]mailhog.Message, error) {
		return mailhog.FilterByRecipient(b, recipient), nil
	}
}

// BySender matches messages sent from the envelope address from.
func BySender(from string) retry.Filter {
	return func(b []mailhog.Message) ([]mailhog.Message, error) {
		return mailhog.FilterBySender(b, from), nil
	}
}

// MoreThan compares the batch size against a baseline captured by the caller
// instead of looking at content. The whole batch matches once it holds more
// than n messages.
func MoreThan(n int) retry.Filter {
	return func(b []mailhog.Message) ([]mailhog.Message, error) {
		if len(b) > n {
			return b, nil
		}
		return []mailhog.Message{}, nil
	}
}

// And applies filters in order, feeding each the output of the previous
// one. It stops at the first error or empty result.
func And(filters ...retry.Filter) retry.Filter {
	return func(b []mailhog.Message) ([]mailhog.Message, error) {
		cur := b
		for _, f := range filters {
			var err error
			cur, err = f(cur)
			if err != nil {
				return nil, err
			}
			if len(cur) == 0 {
				return []mailhog.Message{}, nil
			}
		}
		return cur, nil
	}
}
