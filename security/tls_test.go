package security

import (
	"crypto/tls"
	"testing"

	"github.com/kbukum/iopipe/errors"
	"github.com/kbukum/iopipe/security/tlstest"
)

func TestTLSConfig_Client_Defaults(t *testing.T) {
	cfg, err := TLSConfig{}.Client("ftp.example.com")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ServerName != "ftp.example.com" {
		t.Errorf("ServerName = %q, want the dialed host", cfg.ServerName)
	}
	if cfg.MinVersion != tls.VersionTLS12 {
		t.Errorf("MinVersion = %x, want TLS 1.2", cfg.MinVersion)
	}
	if cfg.InsecureSkipVerify || cfg.RootCAs != nil || len(cfg.Certificates) != 0 {
		t.Error("zero config should verify against the system pool without a client cert")
	}
}

func TestTLSConfig_Client_Overrides(t *testing.T) {
	cfg, err := TLSConfig{SkipVerify: true, ServerName: "files.internal", MinVersion: "1.3"}.Client("10.0.0.7")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ServerName != "files.internal" || !cfg.InsecureSkipVerify || cfg.MinVersion != tls.VersionTLS13 {
		t.Errorf("got ServerName=%q skip=%v min=%x", cfg.ServerName, cfg.InsecureSkipVerify, cfg.MinVersion)
	}
}

func TestTLSConfig_Client_CAAndClientCert(t *testing.T) {
	certs := tlstest.GenerateTLSCerts(t)
	cfg, err := TLSConfig{CAFile: certs.CAFile, CertFile: certs.CertFile, KeyFile: certs.KeyFile}.Client("localhost")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RootCAs == nil {
		t.Error("RootCAs not loaded")
	}
	if len(cfg.Certificates) != 1 {
		t.Errorf("certificates = %d, want 1", len(cfg.Certificates))
	}
}

func TestTLSConfig_Errors(t *testing.T) {
	certs := tlstest.GenerateTLSCerts(t)
	tests := []struct {
		name string
		cfg  TLSConfig
	}{
		{"cert without key", TLSConfig{CertFile: certs.CertFile}},
		{"key without cert", TLSConfig{KeyFile: certs.KeyFile}},
		{"bad version", TLSConfig{MinVersion: "1.0"}},
		{"missing CA", TLSConfig{CAFile: "/nonexistent/ca.pem"}},
		{"invalid CA", TLSConfig{CAFile: tlstest.WriteInvalidPEM(t, "ca.pem")}},
		{"swapped pair", TLSConfig{CertFile: certs.KeyFile, KeyFile: certs.CertFile}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.cfg.Client("localhost")
			if errors.CodeOf(err) != errors.ErrCodeInvalidInput {
				t.Errorf("err = %v, want invalid input", err)
			}
		})
	}
}
