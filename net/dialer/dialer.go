// Package dialer opens TCP connections for the network adapters, honouring
// proxy settings.
package dialer

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	"golang.org/x/net/proxy"

	"github.com/kbukum/iopipe/errors"
	"github.com/kbukum/iopipe/logger"
	"github.com/kbukum/iopipe/resilience"
)

// DefaultTimeout bounds connection setup when Options.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// Options configures Dial.
type Options struct {
	// Timeout bounds the TCP connect.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// ProxyURL is a socks5:// or socks5h:// proxy. Empty means the
	// ALL_PROXY and NO_PROXY environment variables decide.
	ProxyURL string `mapstructure:"proxy_url" yaml:"proxy_url"`
	// Retry re-dials refused or timed out connections. The zero value dials
	// once.
	Retry resilience.RetryConfig `mapstructure:"retry" yaml:"retry"`
}

// Dialer returns the proxy-aware dialer described by o.
func (o Options) Dialer() (proxy.Dialer, error) {
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	direct := &net.Dialer{Timeout: timeout}
	if o.ProxyURL == "" {
		return proxy.FromEnvironmentUsing(direct), nil
	}
	u, err := url.Parse(o.ProxyURL)
	if err != nil {
		return nil, errors.InvalidInput("proxy_url", err.Error())
	}
	d, err := proxy.FromURL(u, direct)
	if err != nil {
		return nil, errors.InvalidInput("proxy_url", err.Error())
	}
	return d, nil
}

// Dial connects to addr, retrying per o.Retry. Failures are
// ConnectionFailed errors.
func Dial(ctx context.Context, network, addr string, o Options) (net.Conn, error) {
	d, err := o.Dialer()
	if err != nil {
		return nil, err
	}
	retry := o.Retry
	if retry.OnRetry == nil {
		log := logger.WithComponent("dialer")
		retry.OnRetry = func(attempt int, err error, backoff time.Duration) {
			log.Warn("dial failed, retrying", logger.Fields(
				logger.FieldEndpoint, addr, "attempt", attempt, "backoff", backoff.String(), logger.FieldError, err.Error()))
		}
	}
	return resilience.Retry(ctx, retry, func() (net.Conn, error) {
		return dialOnce(ctx, d, network, addr)
	})
}

func dialOnce(ctx context.Context, d proxy.Dialer, network, addr string) (net.Conn, error) {
	var conn net.Conn
	var err error
	if cd, ok := d.(proxy.ContextDialer); ok {
		conn, err = cd.DialContext(ctx, network, addr)
	} else {
		conn, err = d.Dial(network, addr)
	}
	if err != nil {
		return nil, errors.ConnectionFailed(addr, fmt.Errorf("dial %s: %w", network, err))
	}
	return conn, nil
}

// DefaultPort appends port to host when it has none.
func DefaultPort(host string, port string) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, port)
}
