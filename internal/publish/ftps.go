package publish

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"

	"github.com/jlaffaye/ftp"
	"github.com/rs/zerolog"

	"github.com/blocklist-crawler/crawler/pkg/logger"
)

// FTPS uploads over FTP with explicit TLS (AUTH TLS).
type FTPS struct {
	creds Credentials
	tls   *tls.Config
	log   zerolog.Logger
}

func NewFTPS(creds Credentials) *FTPS {
	return &FTPS{
		creds: creds,
		tls:   &tls.Config{ServerName: hostOnly(creds.Host), MinVersion: tls.VersionTLS12},
		log:   logger.Component("publisher"),
	}
}

func (p *FTPS) Name() string {
	return "ftps"
}

func (p *FTPS) Publish(ctx context.Context, f File) error {
	src, err := os.Open(f.LocalPath)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer src.Close()

	conn, err := ftp.Dial(hostPort(p.creds.Host, "21"),
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(timeoutOr(p.creds.Timeout)),
		ftp.DialWithExplicitTLS(p.tls),
	)
	if err != nil {
		return fmt.Errorf("ftps dial: %w", err)
	}
	defer conn.Quit()

	if err := conn.Login(p.creds.Username, p.creds.Password); err != nil {
		return fmt.Errorf("ftps login: %w", err)
	}
	if p.creds.Path != "" {
		if err := conn.ChangeDir(p.creds.Path); err != nil {
			return fmt.Errorf("ftps cwd %s: %w", p.creds.Path, err)
		}
	}
	if err := conn.Stor(f.RemoteName, src); err != nil {
		return fmt.Errorf("ftps store %s: %w", f.RemoteName, err)
	}

	p.log.Info().Str("source", f.Source.String()).Str("remote", f.RemoteName).Msg("file uploaded")
	return nil
}
