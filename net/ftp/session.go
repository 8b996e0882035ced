// Package ftp reads and writes remote files over FTP.
package ftp

import (
	"context"
	"fmt"
	"net"

	jftp "github.com/jlaffaye/ftp"

	"github.com/kbukum/iopipe/errors"
	"github.com/kbukum/iopipe/logger"
	"github.com/kbukum/iopipe/net/dialer"
	"github.com/kbukum/iopipe/resilience"
	"github.com/kbukum/iopipe/security"
)

// DefaultPort is appended to addresses without one.
const DefaultPort = "21"

// Credentials authenticates a managed session. An empty user logs in
// anonymously.
type Credentials struct {
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	// ExplicitTLS upgrades the control connection with AUTH TLS, using TLS
	// for verification.
	ExplicitTLS bool               `mapstructure:"explicit_tls" yaml:"explicit_tls"`
	TLS         security.TLSConfig `mapstructure:"tls" yaml:"tls"`
	// DisableEPSV forces PASV for data connections.
	DisableEPSV bool `mapstructure:"disable_epsv" yaml:"disable_epsv"`

	Dial dialer.Options `mapstructure:"dial" yaml:"dial"`
}

type sessionKind int

const (
	kindManaged sessionKind = iota + 1
	kindBorrowed
)

// Session names the FTP connection a node runs on.
type Session struct {
	kind  sessionKind
	addr  string
	creds Credentials
	conn  *jftp.ServerConn
}

// Managed returns a session dialed and logged in at the start of each run
// and closed with QUIT when the run ends.
func Managed(addr string, creds Credentials) Session {
	return Session{kind: kindManaged, addr: dialer.DefaultPort(addr, DefaultPort), creds: creds}
}

// Borrowed returns a session over an existing, logged in connection. The
// connection is never closed by the nodes using it.
func Borrowed(c *jftp.ServerConn) Session {
	return Session{kind: kindBorrowed, conn: c}
}

// IsManaged reports whether the session is owned by the nodes using it.
func (s Session) IsManaged() bool { return s.kind == kindManaged }

// Addr returns the dial address of a managed session.
func (s Session) Addr() string { return s.addr }

func (s Session) open(ctx context.Context, log *logger.Logger) (*jftp.ServerConn, func() error, error) {
	switch s.kind {
	case kindBorrowed:
		if s.conn == nil {
			return nil, nil, errors.InvalidInput("session", "borrowed session has no connection")
		}
		return s.conn, func() error { return nil }, nil
	case kindManaged:
		return s.dial(ctx, log)
	default:
		return nil, nil, errors.InvalidInput("session", "zero Session; use Managed or Borrowed")
	}
}

func (s Session) dial(ctx context.Context, log *logger.Logger) (*jftp.ServerConn, func() error, error) {
	d, err := s.creds.Dial.Dialer()
	if err != nil {
		return nil, nil, err
	}
	opts := []jftp.DialOption{
		jftp.DialWithContext(ctx),
		jftp.DialWithDisabledEPSV(s.creds.DisableEPSV),
		jftp.DialWithDialFunc(func(network, address string) (net.Conn, error) {
			return d.Dial(network, address)
		}),
	}
	if s.creds.ExplicitTLS {
		host, _, _ := net.SplitHostPort(s.addr)
		tlsCfg, err := s.creds.TLS.Client(host)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, jftp.DialWithExplicitTLS(tlsCfg))
	}
	if s.creds.Dial.Timeout > 0 {
		opts = append(opts, jftp.DialWithTimeout(s.creds.Dial.Timeout))
	}

	conn, err := resilience.Retry(ctx, s.creds.Dial.Retry, func() (*jftp.ServerConn, error) {
		c, err := jftp.Dial(s.addr, opts...)
		if err != nil {
			return nil, errors.ConnectionFailed(s.addr, err)
		}
		return c, nil
	})
	if err != nil {
		return nil, nil, err
	}
	user, pass := s.creds.User, s.creds.Password
	if user == "" {
		user, pass = "anonymous", "anonymous"
	}
	if err := conn.Login(user, pass); err != nil {
		_ = conn.Quit()
		return nil, nil, errors.ConnectionFailed(s.addr, fmt.Errorf("login as %s: %w", user, err))
	}
	log.Debug("ftp session opened", logger.Fields(logger.FieldEndpoint, s.addr, "user", user))
	release := func() error {
		err := conn.Quit()
		log.Debug("ftp session closed", logger.Fields(logger.FieldEndpoint, s.addr))
		return err
	}
	return conn, release, nil
}
