package main

import (
	"net/url"
	"strings"

	apperrors "github.com/kbukum/iopipe/errors"
)

// Endpoint schemes accepted on the command line.
const (
	schemeFile  = "file"
	schemeStdio = "-"
	schemeSFTP  = "sftp"
	schemeFTP   = "ftp"
	schemeStore = "store"
)

// endpoint is a parsed SRC or DST argument.
type endpoint struct {
	raw    string
	scheme string
	host   string
	// path is the file path, remote path or storage key.
	path     string
	user     string
	password string
	hasPass  bool
	redacted string
}

// parseEndpoint accepts a plain path, "-", file://PATH,
// sftp://[user[:pass]@]host[:port]/path, ftp://... and store://KEY.
func parseEndpoint(s string) (endpoint, error) {
	ep := endpoint{raw: s}
	switch {
	case s == "":
		return ep, apperrors.InvalidInput("endpoint", "must not be empty")
	case s == schemeStdio:
		ep.scheme = schemeStdio
		return ep, nil
	case !strings.Contains(s, "://"):
		ep.scheme, ep.path = schemeFile, s
		return ep, nil
	}

	scheme, rest, _ := strings.Cut(s, "://")
	ep.scheme = strings.ToLower(scheme)
	switch ep.scheme {
	case schemeFile:
		ep.path = rest
	case schemeStore:
		ep.path = strings.TrimPrefix(rest, "/")
	case schemeSFTP, schemeFTP:
		u, err := url.Parse(s)
		if err != nil {
			return ep, apperrors.InvalidInput("endpoint", err.Error())
		}
		ep.host = u.Host
		ep.path = u.Path
		ep.redacted = u.Redacted()
		if u.User != nil {
			ep.user = u.User.Username()
			ep.password, ep.hasPass = u.User.Password()
		}
		if ep.scheme == schemeFTP {
			// FTP URL paths are relative to the login directory.
			ep.path = strings.TrimPrefix(ep.path, "/")
		}
		if ep.host == "" {
			return ep, apperrors.InvalidInput("endpoint", s+": missing host")
		}
	default:
		return ep, apperrors.InvalidInput("endpoint", "unsupported scheme "+scheme)
	}
	if ep.path == "" || ep.path == "/" {
		return ep, apperrors.InvalidInput("endpoint", s+": missing path")
	}
	return ep, nil
}

// String hides any password given in the URL.
func (e endpoint) String() string {
	if e.redacted != "" {
		return e.redacted
	}
	return e.raw
}
