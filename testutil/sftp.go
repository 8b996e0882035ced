package testutil

import (
	"context"
	"net"

	"github.com/pkg/sftp"
)

// SFTPServer is an in-memory SFTP server connected to a client over
// net.Pipe. No SSH transport is involved.
type SFTPServer struct {
	server *sftp.RequestServer
	client *sftp.Client
	done   chan error
}

// NewSFTPServer returns a stopped server.
func NewSFTPServer() *SFTPServer { return &SFTPServer{} }

func (s *SFTPServer) Name() string { return "sftp" }

// Start serves an in-memory filesystem and connects a client to it.
func (s *SFTPServer) Start(_ context.Context) error {
	clientConn, serverConn := net.Pipe()
	s.server = sftp.NewRequestServer(serverConn, sftp.InMemHandler())
	s.done = make(chan error, 1)
	go func() { s.done <- s.server.Serve() }()

	client, err := sftp.NewClientPipe(clientConn, clientConn)
	if err != nil {
		_ = s.server.Close()
		return err
	}
	s.client = client
	return nil
}

// Stop closes the client and waits for the server loop to end.
func (s *SFTPServer) Stop(_ context.Context) error {
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	_ = s.server.Close()
	// Serve ends with io.EOF or a closed pipe once the client is gone.
	<-s.done
	s.client, s.server = nil, nil
	return err
}

// Reset is a no-op; restart the server for a clean filesystem.
func (s *SFTPServer) Reset(_ context.Context) error { return nil }

// Client returns the connected client.
func (s *SFTPServer) Client() *sftp.Client { return s.client }
