package retry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ptgott/mhcheck/mailhog"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultLimit is the batch size requested from a Fetcher when the
	// caller doesn't pass a positive limit. Enough to catch the latest
	// messages without pulling the whole mailbox.
	DefaultLimit = 50
	// DefaultInterval is the pause between polls.
	DefaultInterval = 500 * time.Millisecond
)

var (
	defaultTimeoutMu sync.RWMutex
	defaultTimeout   = 4 * time.Second
)

// DefaultTimeout returns the process-wide budget used when Options.Timeout is
// zero.
func DefaultTimeout() time.Duration {
	defaultTimeoutMu.RLock()
	defer defaultTimeoutMu.RUnlock()
	return defaultTimeout
}

// SetDefaultTimeout changes the process-wide fallback budget. Non-positive
// durations are ignored.
func SetDefaultTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	defaultTimeoutMu.Lock()
	defer defaultTimeoutMu.Unlock()
	defaultTimeout = d
}

var (
	// ErrNilFetcher is returned by Run when called without a Fetcher.
	ErrNilFetcher = errors.New("retry: fetcher must not be nil")
	// ErrNilFilter is returned by Run when called without a Filter.
	ErrNilFilter = errors.New("retry: filter must not be nil")
)

// Fetcher returns the newest up-to-limit messages currently held by the
// capture server. Errors are treated as transient.
type Fetcher func(ctx context.Context, limit int) ([]mailhog.Message, error)

// Filter selects messages from a batch. It must be deterministic: Run calls
// it once per poll on a batch that may only have grown since the last one.
// A non-nil error means the filter itself is broken and ends the session.
type Filter func(batch []mailhog.Message) ([]mailhog.Message, error)

// FilterError reports that a Filter failed. Retrying can't fix a broken
// filter, so Run returns it right away.
type FilterError struct {
	Err error
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("the mail filter failed: %v", e.Err)
}

func (e *FilterError) Unwrap() error {
	return e.Err
}

// FetchError reports that every fetch in a session failed, so Run never saw
// the mailbox. This means the check itself is broken, e.g., bad credentials
// or a wrong URL, rather than that the mail hasn't arrived. Err is the last
// fetch error.
type FetchError struct {
	Err   error
	Polls int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("can't fetch mail (%v failed polls): %v", e.Polls, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Options tunes a single Run.
type Options struct {
	// Total wall-clock budget. Zero means DefaultTimeout().
	Timeout time.Duration
	// Pause between polls. Zero means DefaultInterval.
	Interval time.Duration
}

type fetchResult struct {
	batch []mailhog.Message
	err   error
}

// Run polls fetch until filter yields at least one message or the timeout
// elapses. A match is returned as soon as it's seen. Running out of time is
// not an error: Run returns an empty, non-nil slice and leaves it to the
// caller to decide whether that should fail a test.
//
// Run returns an error if fetch or filter is nil, filter fails, or ctx is
// cancelled. Fetch errors are logged and the poll counts as empty, but if
// no fetch succeeded by the deadline Run returns a *FetchError. Each
// fetch gets a context that expires with the session, and Run stops waiting
// for a fetch at the deadline even if the fetcher ignores its context.
func Run(
	ctx context.Context,
	fetch Fetcher,
	filter Filter,
	limit int,
	opts Options,
) ([]mailhog.Message, error) {
	if fetch == nil {
		return nil, ErrNilFetcher
	}
	if filter == nil {
		return nil, ErrNilFilter
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout()
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	start := time.Now()
	deadline := start.Add(timeout)
	sctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	// Whether any fetch succeeded, and the most recent fetch error.
	var (
		lastErr error
		failed  int
		fetched bool
	)

	// timedOut distinguishes our own deadline from the caller giving up.
	timedOut := func() ([]mailhog.Message, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !fetched && lastErr != nil {
			log.Error().
				Err(lastErr).
				Int("polls", failed).
				Msg("every fetch failed")
			return nil, &FetchError{Err: lastErr, Polls: failed}
		}
		log.Info().
			Dur("timeout", timeout).
			Dur("elapsed", time.Since(start)).
			Msg("no matching mail arrived in time")
		return []mailhog.Message{}, nil
	}

	// The context's own timer may lag a timer we started, so check the
	// clock too.
	expired := func() bool {
		return sctx.Err() != nil || !time.Now().Before(deadline)
	}

	for poll := 1; ; poll++ {
		if expired() {
			return timedOut()
		}

		var batch []mailhog.Message
		ch := make(chan fetchResult, 1)
		go func() {
			b, err := fetch(sctx, limit)
			ch <- fetchResult{batch: b, err: err}
		}()

		select {
		case <-sctx.Done():
			// Whatever the straggling fetch returns lands in the
			// buffered channel and is dropped.
			return timedOut()
		case r := <-ch:
			if expired() {
				return timedOut()
			}
			if r.err != nil {
				lastErr = r.err
				failed++
				log.Warn().
					Err(r.err).
					Int("poll", poll).
					Msg("can't fetch mail, retrying")
			} else {
				fetched = true
				batch = r.batch
			}
		}

		matched, err := filter(batch)
		if err != nil {
			return nil, &FilterError{Err: err}
		}

		log.Debug().
			Int("poll", poll).
			Int("fetched", len(batch)).
			Int("matched", len(matched)).
			Msg("polled the capture server")

		if len(matched) > 0 {
			return matched, nil
		}

		wait := time.Until(deadline)
		if wait > interval {
			wait = interval
		}
		if wait <= 0 {
			return timedOut()
		}

		t := time.NewTimer(wait)
		select {
		case <-sctx.Done():
			t.Stop()
			return timedOut()
		case <-t.C:
		}
	}
}
