package testutil

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// SSHServer is an SSH server on a loopback port whose only service is the
// sftp subsystem over an in-memory filesystem shared by every connection.
type SSHServer struct {
	User     string
	Password string

	ln       net.Listener
	signer   ssh.Signer
	handlers sftp.Handlers
	conns    atomic.Int64
	mu       sync.Mutex
	open     map[net.Conn]struct{}
	wg       sync.WaitGroup
}

// NewSSHServer returns a stopped server accepting user/password.
func NewSSHServer(user, password string) *SSHServer {
	return &SSHServer{User: user, Password: password}
}

func (s *SSHServer) Name() string { return "ssh" }

// Start generates a host key and begins accepting connections.
func (s *SSHServer) Start(_ context.Context) error {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return err
	}
	if s.signer, err = ssh.NewSignerFromKey(priv); err != nil {
		return err
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return err
	}
	s.ln = ln
	s.handlers = sftp.InMemHandler()
	s.open = make(map[net.Conn]struct{})
	s.conns.Store(0)

	cfg := &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if c.User() == s.User && string(pass) == s.Password {
				return nil, nil
			}
			return nil, fmt.Errorf("password rejected for %q", c.User())
		},
	}
	cfg.AddHostKey(s.signer)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			s.track(conn, true)
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				defer s.track(conn, false)
				s.serve(conn, cfg)
			}()
		}
	}()
	return nil
}

func (s *SSHServer) track(c net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.open[c] = struct{}{}
		return
	}
	delete(s.open, c)
}

func (s *SSHServer) serve(conn net.Conn, cfg *ssh.ServerConfig) {
	defer conn.Close()
	sconn, chans, reqs, err := ssh.NewServerConn(conn, cfg)
	if err != nil {
		return
	}
	defer sconn.Close()
	s.conns.Add(1)
	go ssh.DiscardRequests(reqs)

	for nc := range chans {
		if nc.ChannelType() != "session" {
			_ = nc.Reject(ssh.UnknownChannelType, "only sessions are served")
			continue
		}
		ch, creqs, err := nc.Accept()
		if err != nil {
			continue
		}
		go func() {
			for req := range creqs {
				ok := req.Type == "subsystem" && len(req.Payload) > 4 && string(req.Payload[4:]) == "sftp"
				_ = req.Reply(ok, nil)
				if !ok {
					continue
				}
				go func() {
					srv := sftp.NewRequestServer(ch, s.handlers)
					_ = srv.Serve()
					_ = srv.Close()
				}()
			}
		}()
	}
}

// Stop closes the listener and every open connection.
func (s *SSHServer) Stop(_ context.Context) error {
	if s.ln == nil {
		return nil
	}
	err := s.ln.Close()
	s.mu.Lock()
	for c := range s.open {
		_ = c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	s.ln = nil
	return err
}

// Reset is a no-op; restart the server for a clean filesystem.
func (s *SSHServer) Reset(_ context.Context) error { return nil }

// Addr returns the listen address.
func (s *SSHServer) Addr() string { return s.ln.Addr().String() }

// HostKey returns the server's public host key.
func (s *SSHServer) HostKey() ssh.PublicKey { return s.signer.PublicKey() }

// Connections returns how many SSH handshakes completed since Start.
func (s *SSHServer) Connections() int { return int(s.conns.Load()) }
