package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"os"
	"os/signal"

	"github.com/ptgott/mhcheck/filter"
	"github.com/ptgott/mhcheck/html"
	"github.com/ptgott/mhcheck/inbox"
	"github.com/ptgott/mhcheck/mailhog"
	"github.com/ptgott/mhcheck/retry"
	"github.com/ptgott/mhcheck/userconfig"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Exit codes
const (
	exitMatched   = 0
	exitNoMatch   = 1
	exitCheckFail = 2
)

func main() {
	// Log with filename and line number. This writes to stderr, so stdout
	// stays clean for the JSON output.
	log.Logger = log.With().Caller().Logger()

	// Cancel any in-flight wait on an interrupt
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.LookupEnv)
	stop()
	os.Exit(code)
}

// run carries out one check and returns the process exit code: 0 when mail
// matched, 1 when nothing matched in time and 2 when the check itself
// failed.
func run(ctx context.Context, args []string, stdout io.Writer, lookupEnv func(string) (string, bool)) int {
	fs := flag.NewFlagSet("mhcheck", flag.ContinueOnError)

	configPath := fs.String(
		"config",
		"",
		"path to a JSON or YAML file containing your configuration (optional; MAILHOG_* environment variables override it)",
	)
	level := fs.String(
		"level",
		"info",
		`log level: "info", "debug", or "warn"`,
	)
	subject := fs.String("subject", "", "wait for mail with this exact subject")
	to := fs.String("to", "", "wait for mail to this address")
	from := fs.String("from", "", "wait for mail from this address")
	kind := fs.String("kind", "", `search kind for -query: "from", "to", or "containing"`)
	query := fs.String("query", "", "wait until MailHog's search for this returns something")
	moreThan := fs.Int("more-than", -1, "wait until MailHog holds more than this many messages")
	limit := fs.Int("limit", 0, "number of messages to request per poll")
	timeout := fs.Duration("timeout", 0, "how long to wait for matching mail")
	deleteAll := fs.Bool("delete-all", false, "delete all messages before doing anything else")
	jim := fs.String("jim", "", `turn Jim mode "on" or "off"`)
	links := fs.Bool("links", false, "print the links in the HTML part of the newest match instead of the messages")
	if err := fs.Parse(args); err != nil {
		return exitCheckFail
	}

	switch *level {
	case "debug":
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	case "warn":
		log.Logger = log.Logger.Level(zerolog.WarnLevel)
	default:
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	cfg, err := loadConfig(*configPath, lookupEnv)
	if err != nil {
		log.Error().
			Str("configPath", *configPath).
			Err(err).
			Msg("Problem loading your config")
		return exitCheckFail
	}
	if *timeout > 0 {
		cfg.Timeout = *timeout
	}
	if *limit > 0 {
		cfg.Limit = *limit
	}

	checked, err := cfg.CheckAndSetDefaults()
	if err != nil {
		log.Error().
			Err(err).
			Msg("Problem validating your config")
		return exitCheckFail
	}
	retry.SetDefaultTimeout(checked.Timeout)

	in, err := inbox.FromConfig(checked)
	if err != nil {
		log.Error().Err(err).Msg("can't set up the MailHog client")
		return exitCheckFail
	}

	if *deleteAll {
		if err := in.DeleteAll(ctx); err != nil {
			log.Error().Err(err).Msg("can't delete messages")
			return exitCheckFail
		}
		log.Info().Msg("deleted all messages")
	}

	switch *jim {
	case "":
	case "on", "off":
		if err := in.SetJimMode(ctx, *jim == "on"); err != nil {
			log.Error().Err(err).Msg("can't change Jim mode")
			return exitCheckFail
		}
		log.Info().Str("jim", *jim).Msg("changed Jim mode")
	default:
		log.Error().Str("jim", *jim).Msg(`-jim must be "on" or "off"`)
		return exitCheckFail
	}

	var ms []mailhog.Message
	switch {
	case *query != "":
		k, err := mailhog.ParseSearchKind(*kind)
		if err != nil {
			log.Error().Err(err).Msg("invalid -kind")
			return exitCheckFail
		}
		ms, err = in.SearchMails(ctx, k, *query, 0, retry.Options{})
		if err != nil {
			return checkErrorCode(err)
		}
	case *moreThan >= 0:
		ms, err = in.WaitForMails(ctx, *moreThan)
		if err != nil {
			return checkErrorCode(err)
		}
	case *subject != "" || *to != "" || *from != "":
		var fl []retry.Filter
		if *subject != "" {
			fl = append(fl, filter.BySubject(*subject))
		}
		if *to != "" {
			fl = append(fl, filter.ByRecipient(*to))
		}
		if *from != "" {
			fl = append(fl, filter.BySender(*from))
		}
		ms, err = in.GetMails(ctx, filter.And(fl...), 0, retry.Options{})
		if err != nil {
			return checkErrorCode(err)
		}
	default:
		// Nothing to wait for, e.g., only -delete-all was given
		return exitMatched
	}

	if len(ms) == 0 {
		log.Error().
			Dur("timeout", checked.Timeout).
			Msg("no matching mail arrived in time")
		return exitNoMatch
	}

	log.Info().Int("count", len(ms)).Msg("found matching mail")

	var out interface{} = ms
	if *links {
		out = htmlLinks(ms[0])
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Error().Err(err).Msg("can't write the output")
		return exitCheckFail
	}
	return exitMatched
}

// loadConfig reads the config file at path, if any, and applies environment
// overrides.
func loadConfig(path string, lookupEnv func(string) (string, bool)) (userconfig.MailHog, error) {
	m := &userconfig.Meta{}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return userconfig.MailHog{}, err
		}
		defer f.Close()

		m, err = userconfig.Parse(f)
		if err != nil {
			return userconfig.MailHog{}, err
		}
	}

	if err := m.MailHog.ApplyEnv(lookupEnv); err != nil {
		return userconfig.MailHog{}, err
	}
	return m.MailHog, nil
}

// checkErrorCode tells mail that didn't turn up apart from a check that
// failed.
func checkErrorCode(err error) int {
	var nm *inbox.NoMatchError
	if errors.As(err, &nm) {
		log.Error().Err(err).Msg("no matching mail arrived in time")
		return exitNoMatch
	}
	log.Error().Err(err).Msg("the mail check itself failed")
	return exitCheckFail
}

func htmlLinks(m mailhog.Message) []string {
	part := mailhog.HTMLPart(m)
	if part == nil {
		log.Warn().Str("id", string(m.ID)).Msg("the message has no HTML part")
		return []string{}
	}
	body, err := mailhog.DecodedBody(part)
	if err != nil {
		log.Warn().Err(err).Msg("can't decode the HTML part")
		return []string{}
	}
	l, err := html.ExtractLinks(body, "")
	if err != nil {
		log.Warn().Err(err).Msg("can't extract links")
		return []string{}
	}
	return l
}
