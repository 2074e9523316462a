package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/blocklist-crawler/crawler/pkg/logger"
)

const SubjectUpdated = "blocklist.updated"

// UpdatedEvent announces a freshly published artifact.
type UpdatedEvent struct {
	Source      string    `json:"source"`
	RemoteName  string    `json:"remote_name"`
	Domains     int       `json:"domains"`
	Fingerprint string    `json:"fingerprint"`
	DocumentURL string    `json:"document_url"`
	PublishedAt time.Time `json:"published_at"`
}

type msgConn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
}

// NATS emits an UpdatedEvent for every published artifact.
type NATS struct {
	conn    msgConn
	nc      *nats.Conn
	subject string
	now     func() time.Time
	log     zerolog.Logger
}

func NewNATS(url string) (*NATS, error) {
	log := logger.Component("publisher")

	opts := []nats.Option{
		nats.Name("blocklist-crawler"),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(-1),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Warn().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Error().Err(err).Msg("nats disconnected")
			}
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	log.Info().Str("url", url).Msg("nats connected")
	return &NATS{conn: nc, nc: nc, subject: SubjectUpdated, now: time.Now, log: log}, nil
}

func (p *NATS) Name() string {
	return "nats"
}

func (p *NATS) Publish(ctx context.Context, f File) error {
	data, err := json.Marshal(UpdatedEvent{
		Source:      f.Source.String(),
		RemoteName:  f.RemoteName,
		Domains:     f.Domains,
		Fingerprint: f.Fingerprint,
		DocumentURL: f.DocumentURL,
		PublishedAt: p.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	p.log.Debug().Str("source", f.Source.String()).Str("subject", p.subject).Msg("update event published")
	return nil
}

func (p *NATS) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
