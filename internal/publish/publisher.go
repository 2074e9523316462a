// Package publish hands finished artifacts to remote consumers.
package publish

import (
	"context"
	"net"
	"time"

	"github.com/blocklist-crawler/crawler/internal/source"
)

// File describes one artifact ready for upload.
type File struct {
	Source      source.Source
	LocalPath   string
	RemoteName  string
	Domains     int
	Fingerprint string
	DocumentURL string
}

type Publisher interface {
	Name() string
	Publish(ctx context.Context, f File) error
}

// Credentials configure the upload server.
type Credentials struct {
	Host     string
	Username string
	Password string
	Path     string
	Timeout  time.Duration
}

func hostPort(host, defaultPort string) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, defaultPort)
}

func hostOnly(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

func timeoutOr(d time.Duration) time.Duration {
	if d <= 0 {
		return 30 * time.Second
	}
	return d
}
