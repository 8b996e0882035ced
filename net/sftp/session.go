// Package sftp reads and writes remote files over SFTP.
//
// A Session is either managed, dialed for each run and closed afterwards,
// or borrowed from the caller and never closed:
//
//	s := sftp.Managed("host:22", sftp.Credentials{User: "me", KeyFile: "~/.ssh/id_ed25519"})
//	r := sftp.NewReader(ctx, s, "data.bin", pipeline.WithSize(1<<20))
package sftp

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	pkgsftp "github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/kbukum/iopipe/errors"
	"github.com/kbukum/iopipe/logger"
	"github.com/kbukum/iopipe/net/dialer"
	"github.com/kbukum/iopipe/version"
)

// DefaultPort is appended to addresses without one.
const DefaultPort = "22"

// Credentials authenticates a managed session.
type Credentials struct {
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	// KeyFile is a private key in OpenSSH or PEM form. A leading ~ is
	// expanded.
	KeyFile    string `mapstructure:"key_file" yaml:"key_file"`
	Passphrase string `mapstructure:"passphrase" yaml:"passphrase"`
	// KnownHosts defaults to ~/.ssh/known_hosts.
	KnownHosts string `mapstructure:"known_hosts" yaml:"known_hosts"`
	// InsecureIgnoreHostKey skips host key verification.
	InsecureIgnoreHostKey bool `mapstructure:"insecure_ignore_host_key" yaml:"insecure_ignore_host_key"`

	Dial dialer.Options `mapstructure:"dial" yaml:"dial"`
}

type sessionKind int

const (
	kindManaged sessionKind = iota + 1
	kindBorrowed
)

// Session names the SFTP connection a node runs on.
type Session struct {
	kind   sessionKind
	addr   string
	creds  Credentials
	client *pkgsftp.Client
}

// Managed returns a session dialed at the start of each run and closed
// when the run ends.
func Managed(addr string, creds Credentials) Session {
	return Session{kind: kindManaged, addr: dialer.DefaultPort(addr, DefaultPort), creds: creds}
}

// Borrowed returns a session over an existing client. The client is never
// closed by the nodes using it.
func Borrowed(c *pkgsftp.Client) Session {
	return Session{kind: kindBorrowed, client: c}
}

// IsManaged reports whether the session is owned by the nodes using it.
func (s Session) IsManaged() bool { return s.kind == kindManaged }

// Addr returns the dial address of a managed session.
func (s Session) Addr() string { return s.addr }

// open returns a ready client and the function releasing it.
func (s Session) open(ctx context.Context, log *logger.Logger) (*pkgsftp.Client, func() error, error) {
	switch s.kind {
	case kindBorrowed:
		if s.client == nil {
			return nil, nil, errors.InvalidInput("session", "borrowed session has no client")
		}
		return s.client, func() error { return nil }, nil
	case kindManaged:
		return s.dial(ctx, log)
	default:
		return nil, nil, errors.InvalidInput("session", "zero Session; use Managed or Borrowed")
	}
}

func (s Session) dial(ctx context.Context, log *logger.Logger) (*pkgsftp.Client, func() error, error) {
	cfg, err := s.creds.clientConfig()
	if err != nil {
		return nil, nil, err
	}
	conn, err := dialer.Dial(ctx, "tcp", s.addr, s.creds.Dial)
	if err != nil {
		return nil, nil, err
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, s.addr, cfg)
	if err != nil {
		_ = conn.Close()
		return nil, nil, errors.ConnectionFailed(s.addr, fmt.Errorf("ssh handshake: %w", err))
	}
	sshClient := ssh.NewClient(sshConn, chans, reqs)
	client, err := pkgsftp.NewClient(sshClient)
	if err != nil {
		_ = sshClient.Close()
		return nil, nil, errors.ConnectionFailed(s.addr, fmt.Errorf("sftp subsystem: %w", err))
	}
	log.Debug("sftp session opened", logger.Fields(logger.FieldEndpoint, s.addr, "user", s.creds.User))
	release := func() error {
		err := client.Close()
		if serr := sshClient.Close(); serr != nil && !stderrors.Is(serr, net.ErrClosed) {
			err = stderrors.Join(err, serr)
		}
		log.Debug("sftp session closed", logger.Fields(logger.FieldEndpoint, s.addr))
		return err
	}
	return client, release, nil
}

func (c Credentials) clientConfig() (*ssh.ClientConfig, error) {
	if c.User == "" {
		return nil, errors.InvalidInput("user", "is required")
	}
	var auth []ssh.AuthMethod
	if c.KeyFile != "" {
		signer, err := c.signer()
		if err != nil {
			return nil, err
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if c.Password != "" {
		auth = append(auth, ssh.Password(c.Password))
	}
	if len(auth) == 0 {
		return nil, errors.InvalidInput("credentials", "password or key_file is required")
	}
	hostKey, err := c.hostKeyCallback()
	if err != nil {
		return nil, err
	}
	return &ssh.ClientConfig{
		User:            c.User,
		Auth:            auth,
		HostKeyCallback: hostKey,
		Timeout:         c.Dial.Timeout,
		ClientVersion:   "SSH-2.0-" + strings.ReplaceAll(version.UserAgent(), "/", "_"),
	}, nil
}

func (c Credentials) signer() (ssh.Signer, error) {
	pem, err := os.ReadFile(expandHome(c.KeyFile))
	if err != nil {
		return nil, errors.InvalidInput("key_file", err.Error())
	}
	var signer ssh.Signer
	if c.Passphrase != "" {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(pem, []byte(c.Passphrase))
	} else {
		signer, err = ssh.ParsePrivateKey(pem)
	}
	if err != nil {
		return nil, errors.InvalidInput("key_file", err.Error())
	}
	return signer, nil
}

func (c Credentials) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if c.InsecureIgnoreHostKey {
		return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec // explicitly requested
	}
	path := c.KnownHosts
	if path == "" {
		path = "~/.ssh/known_hosts"
	}
	cb, err := knownhosts.New(expandHome(path))
	if err != nil {
		return nil, errors.InvalidInput("known_hosts", err.Error())
	}
	return cb, nil
}

func expandHome(p string) string {
	rest, ok := strings.CutPrefix(p, "~/")
	if !ok {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, rest)
}
