package testutil

import (
	"context"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

// RedisServer is an in-process Redis backed by miniredis.
type RedisServer struct {
	srv    *miniredis.Miniredis
	client *goredis.Client
}

// NewRedisServer returns a stopped server.
func NewRedisServer() *RedisServer { return &RedisServer{} }

func (s *RedisServer) Name() string { return "redis" }

// Start launches miniredis and connects a client to it.
func (s *RedisServer) Start(_ context.Context) error {
	srv, err := miniredis.Run()
	if err != nil {
		return err
	}
	s.srv = srv
	s.client = goredis.NewClient(&goredis.Options{Addr: srv.Addr()})
	return nil
}

// Stop closes the client and the server.
func (s *RedisServer) Stop(_ context.Context) error {
	if s.srv == nil {
		return nil
	}
	err := s.client.Close()
	s.srv.Close()
	s.srv, s.client = nil, nil
	return err
}

// Reset deletes every key.
func (s *RedisServer) Reset(_ context.Context) error {
	s.srv.FlushAll()
	return nil
}

// Addr returns the listen address.
func (s *RedisServer) Addr() string { return s.srv.Addr() }

// Client returns a client connected to the server.
func (s *RedisServer) Client() *goredis.Client { return s.client }
