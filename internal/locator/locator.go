package locator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/blocklist-crawler/crawler/internal/source"
	"github.com/blocklist-crawler/crawler/internal/state"
	"github.com/blocklist-crawler/crawler/pkg/logger"
)

// ProbeWindow is how many successive offsets are tried for the numeric probe.
const ProbeWindow = 50

const mondayLayout = "02.01.2006"

// docsListSelector is the reference page list of documents, newest first.
const docsListSelector = "ul.docs"

var ErrNotFound = errors.New("blocklist document not found")

// HTTPClient is the subset of fetcher.Fetcher the locator needs.
type HTTPClient interface {
	CheckURL(ctx context.Context, url string) (bool, error)
	Get(ctx context.Context, url string) ([]byte, error)
}

type Templates struct {
	CZ          string
	SK          string
	BG          string
	BGReference string
}

type Locator struct {
	client    HTTPClient
	templates Templates
	state     *state.Store
	limiter   *rate.Limiter
	now       func() time.Time
	location  *time.Location
	log       zerolog.Logger
}

type Option func(*Locator)

func WithClock(now func() time.Time) Option {
	return func(l *Locator) {
		l.now = now
	}
}

func WithLocation(loc *time.Location) Option {
	return func(l *Locator) {
		if loc != nil {
			l.location = loc
		}
	}
}

// WithProbeRate paces existence probes to rps requests per second. Zero
// disables pacing.
func WithProbeRate(rps float64) Option {
	return func(l *Locator) {
		if rps <= 0 {
			l.limiter = nil
			return
		}
		l.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

func New(client HTTPClient, templates Templates, store *state.Store, opts ...Option) *Locator {
	l := &Locator{
		client:    client,
		templates: templates,
		state:     store,
		now:       time.Now,
		location:  time.UTC,
		log:       logger.Component("url_builder"),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Locate returns the URL of the current document for src, or ErrNotFound.
func (l *Locator) Locate(ctx context.Context, src source.Source) (string, error) {
	switch src {
	case source.CZ:
		return l.locateCZ(ctx)
	case source.SK:
		return l.locateSK(ctx)
	case source.BG:
		return l.locateBG(ctx)
	default:
		return "", fmt.Errorf("unknown source %q", src)
	}
}

func (l *Locator) locateCZ(ctx context.Context) (string, error) {
	start := l.state.Offset(source.CZ)

	for i := start; i < start+ProbeWindow; i++ {
		if err := l.wait(ctx); err != nil {
			return "", err
		}

		url := source.Expand(l.templates.CZ, strconv.Itoa(i))
		if l.exists(ctx, url) {
			l.log.Info().Str("url", url).Int("offset", i).Msg("MFCZ blacklist found on new url")
			l.state.SetOffset(source.CZ, i)
			return url, nil
		}
	}

	l.log.Warn().Int("from", start).Int("to", start+ProbeWindow-1).Msg("MFCZ blacklist was not found")
	return "", ErrNotFound
}

func (l *Locator) locateSK(ctx context.Context) (string, error) {
	monday := LastMonday(l.now().In(l.location)).Format(mondayLayout)
	url := source.Expand(l.templates.SK, monday)

	if err := l.wait(ctx); err != nil {
		return "", err
	}
	if !l.exists(ctx, url) {
		l.log.Warn().Str("url", url).Msg("failed to detect MFSK blacklist")
		return "", ErrNotFound
	}

	l.log.Info().Str("url", url).Msg("MFSK blacklist found")
	return url, nil
}

func (l *Locator) locateBG(ctx context.Context) (string, error) {
	body, err := l.client.Get(ctx, l.templates.BGReference)
	if err != nil {
		l.log.Warn().Err(err).Str("url", l.templates.BGReference).Msg("failed to get MFBG reference page")
		return "", ErrNotFound
	}

	href, err := firstDocumentLink(body)
	if err != nil {
		l.log.Warn().Err(err).Str("url", l.templates.BGReference).Msg("no document link on MFBG reference page")
		return "", ErrNotFound
	}

	url := source.Expand(l.templates.BG, href)
	if err := l.wait(ctx); err != nil {
		return "", err
	}
	if !l.exists(ctx, url) {
		l.log.Warn().Str("url", url).Msg("failed to detect MFBG blacklist")
		return "", ErrNotFound
	}

	l.log.Info().Str("url", url).Msg("MFBG blacklist found")
	return url, nil
}

func firstDocumentLink(page []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("parse reference page: %w", err)
	}

	list := doc.Find(docsListSelector).First()
	if list.Length() == 0 {
		return "", errors.New("docs list not found")
	}

	href, ok := list.Find("li").First().Find("a").First().Attr("href")
	href = strings.TrimSpace(href)
	if !ok || href == "" {
		return "", errors.New("docs list has no link")
	}
	return href, nil
}

// exists never fails: transport errors are logged and count as a missing url.
func (l *Locator) exists(ctx context.Context, url string) bool {
	l.log.Debug().Str("url", url).Msg("trying url")

	ok, err := l.client.CheckURL(ctx, url)
	if err != nil {
		l.log.Info().Err(err).Str("url", url).Msg("failed to test url")
		return false
	}
	return ok
}

func (l *Locator) wait(ctx context.Context) error {
	if l.limiter == nil {
		return nil
	}
	return l.limiter.Wait(ctx)
}

// LastMonday returns the Monday of t's week, or t's date itself on a Monday.
func LastMonday(t time.Time) time.Time {
	back := (int(t.Weekday()) + 6) % 7
	y, m, d := t.AddDate(0, 0, -back).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
