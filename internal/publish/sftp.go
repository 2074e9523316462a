package publish

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/pkg/sftp"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/blocklist-crawler/crawler/pkg/logger"
)

// SFTP uploads over SSH with password authentication.
type SFTP struct {
	creds      Credentials
	knownHosts string
	log        zerolog.Logger
}

// NewSFTP returns an SFTP publisher. Host keys are verified against
// knownHostsFile when it is set.
func NewSFTP(creds Credentials, knownHostsFile string) *SFTP {
	return &SFTP{
		creds:      creds,
		knownHosts: knownHostsFile,
		log:        logger.Component("publisher"),
	}
}

func (p *SFTP) Name() string {
	return "sftp"
}

func (p *SFTP) Publish(ctx context.Context, f File) error {
	src, err := os.Open(f.LocalPath)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer src.Close()

	client, err := p.connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	sc, err := sftp.NewClient(client)
	if err != nil {
		return fmt.Errorf("sftp session: %w", err)
	}
	defer sc.Close()

	if err := upload(sc, p.creds.Path, f.RemoteName, src); err != nil {
		return err
	}

	p.log.Info().Str("source", f.Source.String()).Str("remote", f.RemoteName).Msg("file uploaded")
	return nil
}

func (p *SFTP) connect(ctx context.Context) (*ssh.Client, error) {
	hostKey := ssh.InsecureIgnoreHostKey()
	if p.knownHosts != "" {
		cb, err := knownhosts.New(p.knownHosts)
		if err != nil {
			return nil, fmt.Errorf("load known hosts: %w", err)
		}
		hostKey = cb
	}

	timeout := timeoutOr(p.creds.Timeout)
	config := &ssh.ClientConfig{
		User:            p.creds.Username,
		Auth:            []ssh.AuthMethod{ssh.Password(p.creds.Password)},
		HostKeyCallback: hostKey,
		Timeout:         timeout,
	}

	addr := hostPort(p.creds.Host, "22")
	dialer := &net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("sftp dial: %w", err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake: %w", err)
	}
	return ssh.NewClient(sshConn, chans, reqs), nil
}

// upload writes r to dir/name, replacing an existing file.
func upload(sc *sftp.Client, dir, name string, r io.Reader) error {
	target := name
	if dir != "" {
		target = sc.Join(dir, name)
	}

	dst, err := sc.Create(target)
	if err != nil {
		return fmt.Errorf("sftp create %s: %w", target, err)
	}
	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		return fmt.Errorf("sftp write %s: %w", target, err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("sftp close %s: %w", target, err)
	}
	return nil
}
