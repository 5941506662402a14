package bootstrap

import (
	"fmt"
	"net"
	"net/http"
	"time"

	coreconfig "github.com/veisher/licensebot/core/config"
	"github.com/veisher/licensebot/core/logger"
)

const defaultRequestTimeout = 10 * time.Second

// Options control the generic bootstrap pipeline shared between bots.
type Options struct {
	Config *coreconfig.Config

	LoggerInit func(*coreconfig.Config) error
	HTTPClient func(coreconfig.ServicesConfig) *http.Client
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	// HTTPClient is the shared connection pool for remote service calls.
	HTTPClient *http.Client
}

// Run initializes the logger and builds the shared HTTP client used by
// remote service clients.
func Run(opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	buildClient := opts.HTTPClient
	if buildClient == nil {
		buildClient = BuildServiceHTTPClient
	}
	client := buildClient(opts.Config.Services)
	if client == nil {
		return nil, fmt.Errorf("bootstrap: nil HTTP client built")
	}

	return &Result{HTTPClient: client}, nil
}

// BuildServiceHTTPClient returns an HTTP client tuned for the licensing
// service endpoints. Remote calls are never retried; failed requests
// surface to the caller so the user can re-trigger the action.
func BuildServiceHTTPClient(cfg coreconfig.ServicesConfig) *http.Client {
	timeout := defaultRequestTimeout
	if cfg.RequestTimeoutSeconds > 0 {
		timeout = time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
