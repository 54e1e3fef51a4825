package inbox

import (
	"context"
	"fmt"
	"time"

	"github.com/ptgott/mhcheck/filter"
	"github.com/ptgott/mhcheck/mailhog"
	"github.com/ptgott/mhcheck/mhclient"
	"github.com/ptgott/mhcheck/retry"
	"github.com/ptgott/mhcheck/userconfig"
)

// API is the part of the MailHog API an Inbox needs. *mhclient.Client
// implements it.
type API interface {
	Messages(ctx context.Context, limit int) ([]mailhog.Message, error)
	Search(ctx context.Context, kind mailhog.SearchKind, query string, limit int) ([]mailhog.Message, error)
	DeleteAll(ctx context.Context) error
	JimMode(ctx context.Context) (bool, error)
	SetJimMode(ctx context.Context, enabled bool) error
}

// NoMatchError means the check ran fine but no matching mail showed up in
// time. Any other error from an Inbox means the check itself failed.
type NoMatchError struct {
	// What the caller was waiting for, e.g., `mail with subject "Hi"`
	Want    string
	Timeout time.Duration
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no %v arrived within %v", e.Want, e.Timeout)
}

// Options sets defaults for every call on an Inbox. Zero values fall back to
// the retry package defaults.
type Options struct {
	Limit int
	Retry retry.Options
}

// Inbox waits on a single MailHog server. Calls are independent, so an
// Inbox can be shared, but don't call DeleteAll while another call is
// polling.
type Inbox struct {
	api  API
	opts Options
}

// New returns an Inbox that polls api.
func New(api API, opts Options) *Inbox {
	return &Inbox{api: api, opts: opts}
}

// FromConfig validates cfg and returns an Inbox backed by an
// *mhclient.Client, using cfg's timeout, poll interval and limit as
// defaults.
func FromConfig(cfg userconfig.MailHog, opts ...mhclient.Option) (*Inbox, error) {
	checked, err := cfg.CheckAndSetDefaults()
	if err != nil {
		return nil, err
	}
	c, err := mhclient.New(checked, opts...)
	if err != nil {
		return nil, err
	}
	return New(c, Options{
		Limit: checked.Limit,
		Retry: checked.Options(),
	}), nil
}

// resolve applies the Inbox defaults to per-call settings.
func (in *Inbox) resolve(limit int, opts retry.Options) (int, retry.Options) {
	if limit <= 0 {
		limit = in.opts.Limit
	}
	if limit <= 0 {
		limit = retry.DefaultLimit
	}
	if opts.Timeout <= 0 {
		opts.Timeout = in.opts.Retry.Timeout
	}
	if opts.Timeout <= 0 {
		opts.Timeout = retry.DefaultTimeout()
	}
	if opts.Interval <= 0 {
		opts.Interval = in.opts.Retry.Interval
	}
	return limit, opts
}

func (in *Inbox) run(
	ctx context.Context,
	fetch retry.Fetcher,
	f retry.Filter,
	limit int,
	opts retry.Options,
) ([]mailhog.Message, error) {
	limit, opts = in.resolve(limit, opts)
	return retry.Run(ctx, fetch, f, limit, opts)
}

// GetAllMails waits until MailHog holds any mail and returns up to limit of
// the newest messages. A zero limit or zero options mean the Inbox
// defaults. Running out of time yields an empty slice, not an error.
func (in *Inbox) GetAllMails(ctx context.Context, limit int, opts retry.Options) ([]mailhog.Message, error) {
	return in.run(ctx, in.api.Messages, filter.All(), limit, opts)
}

// GetMails waits for messages matching an arbitrary filter, e.g., one
// combined with filter.And.
func (in *Inbox) GetMails(ctx context.Context, f retry.Filter, limit int, opts retry.Options) ([]mailhog.Message, error) {
	return in.run(ctx, in.api.Messages, f, limit, opts)
}

// GetMailsBySubject waits for messages whose subject equals subject.
func (in *Inbox) GetMailsBySubject(ctx context.Context, subject string, limit int, opts retry.Options) ([]mailhog.Message, error) {
	return in.run(ctx, in.api.Messages, filter.BySubject(subject), limit, opts)
}

// GetMailsByRecipient waits for messages addressed to recipient.
func (in *Inbox) GetMailsByRecipient(ctx context.Context, recipient string, limit int, opts retry.Options) ([]mailhog.Message, error) {
	return in.run(ctx, in.api.Messages, filter.ByRecipient(recipient), limit, opts)
}

// GetMailsBySender waits for messages sent from from.
func (in *Inbox) GetMailsBySender(ctx context.Context, from string, limit int, opts retry.Options) ([]mailhog.Message, error) {
	return in.run(ctx, in.api.Messages, filter.BySender(from), limit, opts)
}

// SearchMails waits for MailHog's own search to return something. An
// invalid kind fails right away instead of polling.
func (in *Inbox) SearchMails(
	ctx context.Context,
	kind mailhog.SearchKind,
	query string,
	limit int,
	opts retry.Options,
) ([]mailhog.Message, error) {
	if err := kind.Validate(); err != nil {
		return nil, err
	}
	search := func(ctx context.Context, limit int) ([]mailhog.Message, error) {
		return in.api.Search(ctx, kind, query, limit)
	}
	return in.run(ctx, search, filter.All(), limit, opts)
}

// First waits for any mail and returns the newest message.
func (in *Inbox) First(ctx context.Context) (mailhog.Message, error) {
	ms, err := in.GetAllMails(ctx, 0, retry.Options{})
	if err != nil {
		return mailhog.Message{}, err
	}
	if len(ms) == 0 {
		_, o := in.resolve(0, retry.Options{})
		return mailhog.Message{}, &NoMatchError{Want: "mail", Timeout: o.Timeout}
	}
	return ms[0], nil
}

// WaitForMails waits until MailHog holds more than moreThan messages and
// returns them. Capture the baseline with a plain Messages call before
// triggering the mail you expect.
func (in *Inbox) WaitForMails(ctx context.Context, moreThan int) ([]mailhog.Message, error) {
	if moreThan < 0 {
		moreThan = 0
	}
	// The batch has to be able to hold more than the baseline
	limit, o := in.resolve(0, retry.Options{})
	if limit <= moreThan {
		limit = moreThan + 1
	}
	ms, err := retry.Run(ctx, in.api.Messages, filter.MoreThan(moreThan), limit, o)
	if err != nil {
		return nil, err
	}
	if len(ms) == 0 {
		return nil, &NoMatchError{
			Want:    fmt.Sprintf("more than %v messages", moreThan),
			Timeout: o.Timeout,
		}
	}
	return ms, nil
}

func (in *Inbox) has(ctx context.Context, want string, f retry.Filter) error {
	limit, o := in.resolve(0, retry.Options{})
	ms, err := retry.Run(ctx, in.api.Messages, f, limit, o)
	if err != nil {
		return err
	}
	if len(ms) == 0 {
		return &NoMatchError{Want: want, Timeout: o.Timeout}
	}
	return nil
}

// HasMailWithSubject returns nil once a message with subject shows up, or a
// *NoMatchError if none does in time.
func (in *Inbox) HasMailWithSubject(ctx context.Context, subject string) error {
	return in.has(ctx, fmt.Sprintf("mail with subject %q", subject), filter.BySubject(subject))
}

// HasMailFrom returns nil once a message from from shows up.
func (in *Inbox) HasMailFrom(ctx context.Context, from string) error {
	return in.has(ctx, fmt.Sprintf("mail from %q", from), filter.BySender(from))
}

// HasMailTo returns nil once a message to recipient shows up.
func (in *Inbox) HasMailTo(ctx context.Context, recipient string) error {
	return in.has(ctx, fmt.Sprintf("mail to %q", recipient), filter.ByRecipient(recipient))
}

// DeleteAll empties the mailbox. It must not run concurrently with another
// call polling the same server.
func (in *Inbox) DeleteAll(ctx context.Context) error {
	return in.api.DeleteAll(ctx)
}

// JimMode reports whether MailHog's chaos monkey is on.
func (in *Inbox) JimMode(ctx context.Context) (bool, error) {
	return in.api.JimMode(ctx)
}

// SetJimMode turns MailHog's chaos monkey on or off.
func (in *Inbox) SetJimMode(ctx context.Context, enabled bool) error {
	return in.api.SetJimMode(ctx, enabled)
}
