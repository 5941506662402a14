package licensing

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	coreconfig "github.com/veisher/licensebot/core/config"
	"github.com/veisher/licensebot/core/logger"
	"log/slog"
)

const component = "service.licensing"

// strategyIDPrefix is the required format of a tradable strategy code,
// e.g. "NO-75".
const strategyIDPrefix = "NO-"

// ValidateStrategyID checks the strategy code format. Invalid input is a
// *ValidationError and must not be sent to any remote endpoint.
func ValidateStrategyID(id string) error {
	if !strings.HasPrefix(id, strategyIDPrefix) {
		return &ValidationError{Input: id}
	}
	return nil
}

// Client talks to the three remote licensing endpoints. All sessions share
// one client and its underlying connection pool.
type Client struct {
	priceURL   string
	licenseURL string
	payURL     string
	httpClient *http.Client
}

// NewClient builds a Client from the services configuration and a shared
// HTTP client. A nil httpClient falls back to a 10s-timeout default.
func NewClient(cfg coreconfig.ServicesConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		priceURL:   strings.TrimRight(cfg.PriceURL, "/"),
		licenseURL: strings.TrimRight(cfg.LicenseURL, "/"),
		payURL:     strings.TrimRight(cfg.PayURL, "/"),
		httpClient: httpClient,
	}
}

type priceResponse struct {
	Price json.RawMessage `json:"price"`
}

type paymentRequest struct {
	StrategyID string `json:"strategy_id"`
	Status     string `json:"status"`
}

// FetchPrice asks the pricing service for the quote of one strategy.
func (c *Client) FetchPrice(ctx context.Context, strategyID string) (PriceQuote, error) {
	start := time.Now()
	endpoint := c.priceURL + "?strategy=" + url.QueryEscape(strategyID)

	resp, err := c.get(ctx, endpoint)
	if err != nil {
		terr := &TransportError{Op: "fetch price", Err: err}
		c.logFail(ctx, "price.fetch", terr, slog.String("strategy_id", strategyID))
		return PriceQuote{}, terr
	}
	defer drainClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		serr := &ServiceError{Op: "fetch price", StatusCode: resp.StatusCode}
		c.logFail(ctx, "price.fetch", serr,
			slog.String("strategy_id", strategyID),
			slog.Int("http_code", resp.StatusCode),
		)
		return PriceQuote{}, serr
	}

	var body priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		terr := &TransportError{Op: "decode price response", Err: err}
		c.logFail(ctx, "price.fetch", terr, slog.String("strategy_id", strategyID))
		return PriceQuote{}, terr
	}

	quote := PriceQuote{StrategyID: strategyID, Price: renderPrice(body.Price)}
	logger.Info(ctx, component, "price.fetch",
		slog.String("status", "ok"),
		slog.String("strategy_id", strategyID),
		slog.String("price", quote.Price),
		slog.Duration("duration", logger.Took(start)),
	)
	return quote, nil
}

// FetchLicenses lists the purchased licenses. An empty list is a valid,
// non-error outcome; order is exactly the service response order.
func (c *Client) FetchLicenses(ctx context.Context) ([]License, error) {
	start := time.Now()

	resp, err := c.get(ctx, c.licenseURL)
	if err != nil {
		terr := &TransportError{Op: "fetch licenses", Err: err}
		c.logFail(ctx, "license.list", terr)
		return nil, terr
	}
	defer drainClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		serr := &ServiceError{Op: "fetch licenses", StatusCode: resp.StatusCode}
		c.logFail(ctx, "license.list", serr, slog.Int("http_code", resp.StatusCode))
		return nil, serr
	}

	var licenses []License
	if err := json.NewDecoder(resp.Body).Decode(&licenses); err != nil {
		terr := &TransportError{Op: "decode license response", Err: err}
		c.logFail(ctx, "license.list", terr)
		return nil, terr
	}

	logger.Info(ctx, component, "license.list",
		slog.String("status", "ok"),
		slog.Int("licenses", len(licenses)),
		slog.Duration("duration", logger.Took(start)),
	)
	return licenses, nil
}

// SubmitPayment posts the settlement result for a strategy. Success is
// asserted, not verified against any payment provider; the response body
// is ignored.
func (c *Client) SubmitPayment(ctx context.Context, strategyID string) error {
	start := time.Now()

	payload, err := json.Marshal(paymentRequest{StrategyID: strategyID, Status: "success"})
	if err != nil {
		return &TransportError{Op: "encode payment request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.payURL, bytes.NewReader(payload))
	if err != nil {
		return &TransportError{Op: "build payment request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		terr := &TransportError{Op: "submit payment", Err: err}
		c.logFail(ctx, "payment.submit", terr, slog.String("strategy_id", strategyID))
		return terr
	}
	defer drainClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		serr := &ServiceError{Op: "submit payment", StatusCode: resp.StatusCode}
		c.logFail(ctx, "payment.submit", serr,
			slog.String("strategy_id", strategyID),
			slog.Int("http_code", resp.StatusCode),
		)
		return serr
	}

	logger.Info(ctx, component, "payment.submit",
		slog.String("status", "ok"),
		slog.String("strategy_id", strategyID),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

func (c *Client) get(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return c.httpClient.Do(req)
}

func (c *Client) logFail(ctx context.Context, event string, err error, attrs ...slog.Attr) {
	type coder interface{ Code() string }
	code := ""
	if cerr, ok := err.(coder); ok {
		code = cerr.Code()
	}
	attrs = append(attrs,
		slog.String("status", "fail"),
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		slog.String("err_code", code),
	)
	logger.Error(ctx, component, event, attrs...)
}

// renderPrice turns the raw price field into its display form. A missing
// or null field becomes PriceUnknown; JSON strings lose their quotes;
// numbers keep the exact textual form the service sent.
func renderPrice(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return PriceUnknown
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func drainClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
