package testutil

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
)

// FTPServer is a minimal passive-mode FTP server on a loopback port backed
// by an in-memory file map. It understands just enough of RFC 959 and RFC
// 2428 for RETR with REST and STOR.
type FTPServer struct {
	User     string
	Password string

	ln     net.Listener
	mu     sync.Mutex
	files  map[string][]byte
	logins int
	wg     sync.WaitGroup
	conns  map[net.Conn]struct{}
}

// NewFTPServer returns a stopped server accepting user/password. An empty
// user accepts any login.
func NewFTPServer(user, password string) *FTPServer {
	return &FTPServer{User: user, Password: password}
}

func (s *FTPServer) Name() string { return "ftp" }

// Start begins accepting control connections.
func (s *FTPServer) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return err
	}
	s.ln = ln
	s.files = make(map[string][]byte)
	s.conns = make(map[net.Conn]struct{})
	s.logins = 0
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			s.mu.Lock()
			s.conns[c] = struct{}{}
			s.mu.Unlock()
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.session(c)
				s.mu.Lock()
				delete(s.conns, c)
				s.mu.Unlock()
			}()
		}
	}()
	return nil
}

// Stop closes the listener and every control connection.
func (s *FTPServer) Stop(_ context.Context) error {
	if s.ln == nil {
		return nil
	}
	err := s.ln.Close()
	s.mu.Lock()
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	s.ln = nil
	return err
}

// Reset removes every file.
func (s *FTPServer) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = make(map[string][]byte)
	return nil
}

// Addr returns the control address.
func (s *FTPServer) Addr() string { return s.ln.Addr().String() }

// Put stores a file.
func (s *FTPServer) Put(path string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = bytes.Clone(data)
}

// File returns a stored file.
func (s *FTPServer) File(path string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.files[path]
	return bytes.Clone(b), ok
}

// Logins returns the number of successful logins since Start.
func (s *FTPServer) Logins() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logins
}

type ftpConn struct {
	w       *bufio.Writer
	user    string
	authed  bool
	rest    int64
	passive net.Listener
}

func (c *ftpConn) reply(code int, msg string) {
	fmt.Fprintf(c.w, "%d %s\r\n", code, msg)
	_ = c.w.Flush()
}

func (s *FTPServer) session(conn net.Conn) {
	defer conn.Close()
	c := &ftpConn{w: bufio.NewWriter(conn)}
	defer func() {
		if c.passive != nil {
			_ = c.passive.Close()
		}
	}()
	c.reply(220, "ready")

	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd, arg, _ := strings.Cut(strings.TrimRight(line, "\r\n"), " ")
		switch strings.ToUpper(cmd) {
		case "USER":
			c.user = arg
			c.reply(331, "password required")
		case "PASS":
			if s.User == "" || (c.user == s.User && arg == s.Password) {
				c.authed = true
				s.mu.Lock()
				s.logins++
				s.mu.Unlock()
				c.reply(230, "logged in")
			} else {
				c.reply(530, "login incorrect")
			}
		case "QUIT":
			c.reply(221, "bye")
			return
		case "TYPE":
			c.reply(200, "type set")
		case "NOOP":
			c.reply(200, "ok")
		case "EPSV":
			if !c.authed {
				c.reply(530, "not logged in")
				continue
			}
			if err := c.listen(); err != nil {
				c.reply(425, err.Error())
				continue
			}
			port := c.passive.Addr().(*net.TCPAddr).Port
			c.reply(229, fmt.Sprintf("Entering Extended Passive Mode (|||%d|)", port))
		case "PASV":
			if !c.authed {
				c.reply(530, "not logged in")
				continue
			}
			if err := c.listen(); err != nil {
				c.reply(425, err.Error())
				continue
			}
			port := c.passive.Addr().(*net.TCPAddr).Port
			c.reply(227, fmt.Sprintf("Entering Passive Mode (127,0,0,1,%d,%d)", port>>8, port&0xff))
		case "REST":
			n, err := strconv.ParseInt(arg, 10, 64)
			if err != nil || n < 0 {
				c.reply(501, "bad offset")
				continue
			}
			c.rest = n
			c.reply(350, "restarting")
		case "RETR":
			s.retr(c, arg)
		case "STOR":
			s.stor(c, arg)
		default:
			c.reply(502, "not implemented")
		}
	}
}

func (c *ftpConn) listen() error {
	if c.passive != nil {
		_ = c.passive.Close()
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return err
	}
	c.passive = ln
	return nil
}

func (c *ftpConn) accept() (net.Conn, bool) {
	if c.passive == nil {
		c.reply(425, "use EPSV or PASV first")
		return nil, false
	}
	ln := c.passive
	c.passive = nil
	defer ln.Close()
	dc, err := ln.Accept()
	if err != nil {
		c.reply(425, err.Error())
		return nil, false
	}
	return dc, true
}

func (s *FTPServer) retr(c *ftpConn, path string) {
	off := c.rest
	c.rest = 0
	data, ok := s.File(path)
	if !ok {
		if c.passive != nil {
			_ = c.passive.Close()
			c.passive = nil
		}
		c.reply(550, "no such file")
		return
	}
	if off > int64(len(data)) {
		off = int64(len(data))
	}
	c.reply(150, "opening data connection")
	dc, ok := c.accept()
	if !ok {
		return
	}
	_, err := dc.Write(data[off:])
	_ = dc.Close()
	if err != nil {
		c.reply(426, "transfer aborted")
		return
	}
	c.reply(226, "transfer complete")
}

func (s *FTPServer) stor(c *ftpConn, path string) {
	c.rest = 0
	c.reply(150, "ready to receive")
	dc, ok := c.accept()
	if !ok {
		return
	}
	data, err := io.ReadAll(dc)
	_ = dc.Close()
	if err != nil {
		c.reply(426, "transfer aborted")
		return
	}
	s.Put(path, data)
	c.reply(226, "transfer complete")
}
