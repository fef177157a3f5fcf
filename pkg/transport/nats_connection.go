package transport

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/seclave/hsign/pkg/config"
	"github.com/seclave/hsign/pkg/logger"
)

const (
	defaultCertsDir   = "certs"
	defaultClientCert = "client-cert.pem"
	defaultClientKey  = "client-key.pem"
	defaultCACert     = "rootCA.pem"
)

// Connect dials the configured NATS server. Production environments
// require mutual TLS; elsewhere a plain connection is accepted so local
// development does not need a certificate setup.
func Connect() (*nats.Conn, error) {
	cfg := config.GetConfig()

	opts := []nats.Option{
		nats.MaxReconnects(-1), // retry forever
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectHandler(func(nc *nats.Conn) {
			logger.Warn("Disconnected from NATS")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	if cfg.Environment == config.Production {
		tlsOpts, err := buildTLSOptions(cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, tlsOpts...)
	}

	return nats.Connect(cfg.NATs.URL, opts...)
}

func buildTLSOptions(cfg *config.Config) ([]nats.Option, error) {
	paths := certificatePaths(cfg)
	if err := validateCertificateFiles(paths); err != nil {
		return nil, err
	}

	return []nats.Option{
		nats.ClientCert(paths.clientCert, paths.clientKey),
		nats.RootCAs(paths.caCert),
		nats.UserInfo(cfg.NATs.Username, cfg.NATs.Password),
	}, nil
}

type certPaths struct {
	clientCert string
	clientKey  string
	caCert     string
}

func certificatePaths(cfg *config.Config) certPaths {
	paths := certPaths{}
	if cfg.NATs.TLS != nil {
		paths.clientCert = cfg.NATs.TLS.ClientCert
		paths.clientKey = cfg.NATs.TLS.ClientKey
		paths.caCert = cfg.NATs.TLS.CACert
	}

	if paths.clientCert == "" {
		paths.clientCert = filepath.Join(".", defaultCertsDir, defaultClientCert)
	}
	if paths.clientKey == "" {
		paths.clientKey = filepath.Join(".", defaultCertsDir, defaultClientKey)
	}
	if paths.caCert == "" {
		paths.caCert = filepath.Join(".", defaultCertsDir, defaultCACert)
	}
	return paths
}

func validateCertificateFiles(paths certPaths) error {
	required := map[string]string{
		"client certificate": paths.clientCert,
		"client key":         paths.clientKey,
		"CA certificate":     paths.caCert,
	}
	for name, path := range required {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return fmt.Errorf("%s not found at %s", name, path)
		}
	}
	return nil
}
