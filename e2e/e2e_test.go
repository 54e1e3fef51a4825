package e2e

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ptgott/mhcheck/email"
	"github.com/ptgott/mhcheck/html"
	"github.com/ptgott/mhcheck/inbox"
	"github.com/ptgott/mhcheck/mailhog"
	"github.com/ptgott/mhcheck/retry"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A signup flow: the app sends a verification mail some time after the
// request, and the test follows the link inside it.
func TestVerificationLinkFlow(t *testing.T) {
	forEachServer(t, func(t *testing.T, te *testEnvironment) {
		ctx := context.Background()
		require.NoError(t, te.inbox.DeleteAll(ctx))

		token := uuid.NewString()
		subject := "Verify your account " + token
		sent := te.sendLater(300*time.Millisecond, email.Probe{
			From:    "noreply@app.example",
			To:      []string{"new.user@example.com"},
			Subject: subject,
			Text:    "Open https://app.example.com/verify?token=" + token,
			HTML:    `<p><a href="https://app.example.com/verify?token=` + token + `">Verify</a></p>`,
		})

		ms, err := te.inbox.GetMailsBySubject(ctx, subject, 0, retry.Options{})
		require.NoError(t, <-sent)
		require.NoError(t, err)
		require.Len(t, ms, 1)

		m := ms[0]
		assert.Equal(t, "noreply@app.example", mailhog.Address(m.From))
		assert.Equal(t, []string{"new.user@example.com"}, mailhog.RecipientAddresses(m))

		part := mailhog.HTMLPart(m)
		require.NotNil(t, part)
		body, err := mailhog.DecodedBody(part)
		require.NoError(t, err)

		link, ok, err := html.FirstLinkContaining(body, "/verify")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "https://app.example.com/verify?token="+token, link)
	})
}

func TestAssertionsDistinguishNoMatch(t *testing.T) {
	for name, newServer := range captureServers() {
		newServer := newServer
		t.Run(name, func(t *testing.T) {
			te := startTestEnvironment(t, newServer(), 600*time.Millisecond)
			ctx := context.Background()
			require.NoError(t, te.inbox.DeleteAll(ctx))

			from := uuid.NewString() + "@sender.example"
			require.NoError(t, te.sender.Send(email.Probe{
				From:    from,
				To:      []string{"ops@example.com"},
				Subject: "Nightly report",
				Text:    "all green",
				Attachments: []email.Attachment{
					{Name: "report.csv", Content: []byte("job,status\nbackup,ok\n")},
				},
			}))

			assert.NoError(t, te.inbox.HasMailFrom(ctx, from))
			assert.NoError(t, te.inbox.HasMailTo(ctx, "ops@example.com"))

			err := te.inbox.HasMailWithSubject(ctx, "Nightly report "+uuid.NewString())
			var nm *inbox.NoMatchError
			require.True(t, errors.As(err, &nm), "expected a NoMatchError, got %v", err)

			m, err := te.inbox.First(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"report.csv"}, mailhog.Attachments(m))
		})
	}
}

func TestSearchAndBaseline(t *testing.T) {
	forEachServer(t, func(t *testing.T, te *testEnvironment) {
		ctx := context.Background()
		require.NoError(t, te.inbox.DeleteAll(ctx))

		require.NoError(t, te.sender.Send(email.Probe{
			From:    "a@example.com",
			To:      []string{"b@example.com"},
			Subject: "first",
			Text:    "one",
		}))
		baseline, err := te.inbox.WaitForMails(ctx, 0)
		require.NoError(t, err)
		require.Len(t, baseline, 1)

		token := uuid.NewString()
		sent := te.sendLater(200*time.Millisecond, email.Probe{
			From:    "a@example.com",
			To:      []string{"b@example.com"},
			Subject: "second",
			Text:    "order " + token,
		})

		ms, err := te.inbox.WaitForMails(ctx, len(baseline))
		require.NoError(t, <-sent)
		require.NoError(t, err)
		assert.Len(t, ms, 2)

		found, err := te.inbox.SearchMails(ctx, mailhog.SearchContaining, token, 0, retry.Options{})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "second", mailhog.Subject(found[0]))
	})
}
