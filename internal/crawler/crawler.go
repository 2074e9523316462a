// Package crawler drives one acquisition cycle per source: locate the current
// document, skip it when unchanged, pull domains out of its tables, write the
// artifact and publish it.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/blocklist-crawler/crawler/internal/artifact"
	"github.com/blocklist-crawler/crawler/internal/domain"
	"github.com/blocklist-crawler/crawler/internal/fetcher"
	"github.com/blocklist-crawler/crawler/internal/locator"
	"github.com/blocklist-crawler/crawler/internal/notify"
	"github.com/blocklist-crawler/crawler/internal/publish"
	"github.com/blocklist-crawler/crawler/internal/source"
	"github.com/blocklist-crawler/crawler/internal/state"
	"github.com/blocklist-crawler/crawler/internal/table"
	"github.com/blocklist-crawler/crawler/pkg/logger"
)

type Locator interface {
	Locate(ctx context.Context, src source.Source) (string, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetcher.Document, error)
}

// Outcome is how a source cycle ended.
type Outcome string

const (
	OutcomeNotFound    Outcome = "not_found"
	OutcomeFetchFailed Outcome = "fetch_failed"
	OutcomeUnchanged   Outcome = "unchanged"
	OutcomeEmpty       Outcome = "empty"
	OutcomePublished   Outcome = "published"
	OutcomeFailed      Outcome = "failed"
)

// reportedError has already been sent to the error API.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

type Crawler struct {
	locator    Locator
	fetcher    Fetcher
	state      *state.Store
	extractor  table.Extractor
	normalizer *domain.Normalizer
	writer     *artifact.Writer
	publishers []publish.Publisher
	reporter   notify.Reporter
	dedupe     bool
	sources    []source.Source
	log        zerolog.Logger
}

type Deps struct {
	Locator    Locator
	Fetcher    Fetcher
	State      *state.Store
	Extractor  table.Extractor
	Normalizer *domain.Normalizer
	Writer     *artifact.Writer
	Publishers []publish.Publisher
	Reporter   notify.Reporter
	Dedupe     bool
}

func NewCrawler(d Deps) *Crawler {
	return &Crawler{
		locator:    d.Locator,
		fetcher:    d.Fetcher,
		state:      d.State,
		extractor:  d.Extractor,
		normalizer: d.Normalizer,
		writer:     d.Writer,
		publishers: d.Publishers,
		reporter:   d.Reporter,
		dedupe:     d.Dedupe,
		sources:    source.All(),
		log:        logger.Component("crawler"),
	}
}

// RunAll processes every source in order. A failing source never stops the
// ones after it.
func (c *Crawler) RunAll(ctx context.Context) map[source.Source]Outcome {
	runID := uuid.NewString()
	log := c.log.With().Str("run_id", runID).Logger()
	start := time.Now()

	log.Info().Msg("crawl started")

	results := make(map[source.Source]Outcome, len(c.sources))
	for _, src := range c.sources {
		if ctx.Err() != nil {
			log.Info().Msg("crawl cancelled")
			break
		}
		outcome, _ := c.runSource(ctx, log, src)
		results[src] = outcome
	}

	log.Info().Dur("took", time.Since(start)).Msg("crawl completed")
	return results
}

// RunSource runs a single source cycle. Failures are logged and reported
// before they are returned.
func (c *Crawler) RunSource(ctx context.Context, src source.Source) (Outcome, error) {
	log := c.log.With().Str("run_id", uuid.NewString()).Logger()
	return c.runSource(ctx, log, src)
}

func (c *Crawler) runSource(ctx context.Context, log zerolog.Logger, src source.Source) (outcome Outcome, err error) {
	log = log.With().Str("source", src.String()).Logger()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			log.Error().Str("stack", string(debug.Stack())).Err(err).Msg("source cycle panicked")
		}
		if err == nil {
			return
		}

		outcome = OutcomeFailed
		c.state.SetError(src, err)

		var reported *reportedError
		if errors.As(err, &reported) {
			return
		}
		log.Error().Err(err).Msg("failed to get data from source")
		c.reporter.Report(ctx, fmt.Sprintf("Failed to get data from source %s, %v", src.Label(), err))
	}()

	url, err := c.locator.Locate(ctx, src)
	if err != nil {
		if errors.Is(err, locator.ErrNotFound) {
			log.Warn().Msg("no document found")
			return OutcomeNotFound, nil
		}
		return "", fmt.Errorf("locate: %w", err)
	}
	c.state.SetURL(src, url)

	doc, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		log.Warn().Err(err).Str("url", url).Msg("failed to fetch document")
		return OutcomeFetchFailed, nil
	}

	if !c.state.HasChanged(src, doc.Fingerprint) {
		log.Info().Str("url", url).Msg("document unchanged")
		c.state.SetError(src, nil)
		return OutcomeUnchanged, nil
	}
	log.Info().Str("url", url).Str("fingerprint", doc.Fingerprint).Msg("document changed")

	domains, err := c.extract(ctx, log, src, doc.Body)
	if err != nil {
		return "", err
	}
	if len(domains) == 0 {
		log.Warn().Msg("no domains extracted, artifact left untouched")
		c.state.SetError(src, nil)
		return OutcomeEmpty, nil
	}

	path, err := c.writer.Write(src, domains)
	if err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	c.state.SetDomainCount(src, len(domains))
	log.Info().Str("path", path).Int("domains", len(domains)).Msg("artifact written")

	file := publish.File{
		Source:      src,
		LocalPath:   path,
		RemoteName:  src.RemoteName(),
		Domains:     len(domains),
		Fingerprint: doc.Fingerprint,
		DocumentURL: url,
	}
	if err := c.publish(ctx, log, file); err != nil {
		return "", err
	}

	c.state.SetError(src, nil)
	return OutcomePublished, nil
}

func (c *Crawler) extract(ctx context.Context, log zerolog.Logger, src source.Source, data []byte) ([]string, error) {
	tables, err := c.extractor.ExtractTables(data)
	if err != nil {
		log.Error().Err(err).Msg("failed to parse pdf")
		c.reporter.Report(ctx, fmt.Sprintf("Failed to parse pdf %s, %v", src, err))
		return nil, &reportedError{err: fmt.Errorf("parse pdf: %w", err)}
	}

	list := domain.NewList(c.dedupe)
	primary := src.Layout().Column
	for _, t := range tables {
		if err := c.processTable(list, t, primary); err != nil {
			log.Error().Err(err).Int("page", t.Page).Msg("failed to process table")
			c.reporter.Report(ctx, fmt.Sprintf("Failed to process table for %s, %v", src, err))
			continue
		}
	}

	log.Debug().Int("tables", len(tables)).Int("domains", list.Len()).Msg("tables processed")
	return list.Items(), nil
}

func (c *Crawler) processTable(list *domain.List, t table.Table, primary int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if t.Err != nil {
		return t.Err
	}

	cells, err := t.Column(t.DomainColumn(primary))
	if err != nil {
		return err
	}
	for _, cell := range cells {
		list.Add(c.normalizer.Normalize(cell)...)
	}
	return nil
}

func (c *Crawler) publish(ctx context.Context, log zerolog.Logger, f publish.File) error {
	var errs []error
	for _, p := range c.publishers {
		if err := p.Publish(ctx, f); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		log.Debug().Str("publisher", p.Name()).Str("remote", f.RemoteName).Msg("artifact published")
	}
	if len(errs) > 0 {
		return fmt.Errorf("publish: %w", errors.Join(errs...))
	}
	return nil
}
