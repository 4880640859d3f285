package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/url"
	"path"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/JonMunkholm/coursetrack/internal/logging"
)

// SFTPConfig configures an SFTPStore.
type SFTPConfig struct {
	Host      string
	Port      int
	User      string
	Pass      string
	RemoteDir string

	// KnownHosts is a known_hosts file. When empty the host key is not checked.
	KnownHosts string
	Timeout    time.Duration

	PublicBaseURL string
}

// SFTPStore uploads objects to a remote directory over SFTP, opening one
// connection per upload.
type SFTPStore struct {
	cfg     SFTPConfig
	connect func(ctx context.Context) (*sftp.Client, io.Closer, error)
}

// NewSFTPStore validates cfg and applies defaults.
func NewSFTPStore(cfg SFTPConfig) (*SFTPStore, error) {
	if cfg.Host == "" || cfg.User == "" || cfg.Pass == "" {
		return nil, fmt.Errorf("sftp: SFTP_HOST, SFTP_USER and SFTP_PASS are required")
	}
	if cfg.Port <= 0 {
		cfg.Port = 22
	}
	if cfg.RemoteDir == "" {
		cfg.RemoteDir = "/"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}

	hostKey := ssh.InsecureIgnoreHostKey()
	if cfg.KnownHosts != "" {
		cb, err := knownhosts.New(cfg.KnownHosts)
		if err != nil {
			return nil, fmt.Errorf("sftp: load known hosts: %w", err)
		}
		hostKey = cb
	}

	s := &SFTPStore{cfg: cfg}
	s.connect = func(ctx context.Context) (*sftp.Client, io.Closer, error) {
		return dialSFTP(ctx, cfg, hostKey)
	}
	return s, nil
}

// dialSFTP opens an SSH connection honouring ctx and starts an SFTP session.
func dialSFTP(ctx context.Context, cfg SFTPConfig, hostKey ssh.HostKeyCallback) (*sftp.Client, io.Closer, error) {
	sshCfg := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.Password(cfg.Pass)},
		HostKeyCallback: hostKey,
		Timeout:         cfg.Timeout,
	}
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	type dialResult struct {
		client *ssh.Client
		err    error
	}
	ch := make(chan dialResult, 1)
	go func() {
		c, err := ssh.Dial("tcp", addr, sshCfg)
		ch <- dialResult{client: c, err: err}
	}()

	var conn *ssh.Client
	select {
	case <-ctx.Done():
		// Close the connection if the dial finishes after we gave up.
		go func() {
			if r := <-ch; r.client != nil {
				r.client.Close()
			}
		}()
		return nil, nil, fmt.Errorf("sftp: dial canceled: %w", ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return nil, nil, fmt.Errorf("sftp: dial %s: %w", addr, r.err)
		}
		conn = r.client
	}

	client, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("sftp: new client: %w", err)
	}
	return client, conn, nil
}

// Put uploads data to RemoteDir/name and returns its reference.
func (s *SFTPStore) Put(ctx context.Context, data []byte, contentType, name string) (string, error) {
	name, err := objectName(name)
	if err != nil {
		return "", err
	}

	client, conn, err := s.connect(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	defer client.Close()

	if err := client.MkdirAll(s.cfg.RemoteDir); err != nil {
		return "", fmt.Errorf("sftp: mkdir %s: %w", s.cfg.RemoteDir, err)
	}

	remotePath := path.Join(s.cfg.RemoteDir, name)
	dst, err := client.Create(remotePath)
	if err != nil {
		return "", fmt.Errorf("sftp: create %s: %w", remotePath, err)
	}
	if _, err := io.Copy(dst, bytes.NewReader(data)); err != nil {
		dst.Close()
		return "", fmt.Errorf("sftp: upload %s: %w", remotePath, err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("sftp: close %s: %w", remotePath, err)
	}

	logging.FromContext(ctx).Debug("sftp: uploaded object",
		"path", remotePath,
		"bytes", len(data),
		"content_type", contentType,
	)

	if u := publicURL(s.cfg.PublicBaseURL, name); u != "" {
		return u, nil
	}
	return (&url.URL{
		Scheme: "sftp",
		Host:   net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port)),
		Path:   remotePath,
	}).String(), nil
}
