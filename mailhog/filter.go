package mailhog

// FilterBySubject returns the messages in ms whose decoded subject equals
// subject. Like the other list filters, it keeps the input order and returns
// a non-nil slice, so an empty result serializes as [] rather than null.
func FilterBySubject(ms []Message, subject string) []Message {
	return keep(ms, func(m Message) bool {
		return Subject(m) == subject
	})
}

// FilterByRecipient returns the messages in ms with recipient among their
// envelope recipients.
func FilterByRecipient(ms []Message, recipient string) []Message {
	return keep(ms, func(m Message) bool {
		for _, p := range m.To {
			if Address(p) == recipient {
				return true
			}
		}
		return false
	})
}

// FilterBySender returns the messages in ms sent from the envelope address
// from.
func FilterBySender(ms []Message, from string) []Message {
	return keep(ms, func(m Message) bool {
		return Address(m.From) == from
	})
}

func keep(ms []Message, pred func(Message) bool) []Message {
	r := make([]Message, 0, len(ms))
	for _, m := range ms {
		if pred(m) {
			r = append(r, m)
		}
	}
	return r
}
