package licensing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/veisher/licensebot/core/config"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := coreconfig.ServicesConfig{
		PriceURL:   srv.URL + "/v1/price",
		LicenseURL: srv.URL + "/v1/license/veisher",
		PayURL:     srv.URL + "/vip/pay/result",
	}
	return NewClient(cfg, srv.Client()), srv
}

func TestValidateStrategyID(t *testing.T) {
	require.NoError(t, ValidateStrategyID("NO-75"))
	require.NoError(t, ValidateStrategyID("NO-1"))

	for _, input := range []string{"hello", "no-75", "75", "", "ON-75"} {
		err := ValidateStrategyID(input)
		require.Error(t, err, "input %q", input)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, input, verr.Input)
	}
}

func TestFetchPrice(t *testing.T) {
	var gotStrategy string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotStrategy = r.URL.Query().Get("strategy")
		_, _ = w.Write([]byte(`{"price": 49.99}`))
	}))

	quote, err := client.FetchPrice(context.Background(), "NO-75")
	require.NoError(t, err)
	assert.Equal(t, "NO-75", gotStrategy)
	assert.Equal(t, "NO-75", quote.StrategyID)
	assert.Equal(t, "49.99", quote.Price)
}

func TestFetchPriceMissingField(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))

	quote, err := client.FetchPrice(context.Background(), "NO-9")
	require.NoError(t, err)
	assert.Equal(t, PriceUnknown, quote.Price)
}

func TestFetchPriceStringValue(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"price": "12.50"}`))
	}))

	quote, err := client.FetchPrice(context.Background(), "NO-9")
	require.NoError(t, err)
	assert.Equal(t, "12.50", quote.Price)
}

func TestFetchPriceServiceError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := client.FetchPrice(context.Background(), "NO-75")
	var serr *ServiceError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusBadGateway, serr.StatusCode)
}

func TestFetchPriceMalformedBody(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))

	_, err := client.FetchPrice(context.Background(), "NO-75")
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
}

func TestFetchPriceTransportError(t *testing.T) {
	cfg := coreconfig.ServicesConfig{
		PriceURL:   "http://127.0.0.1:1/v1/price",
		LicenseURL: "http://127.0.0.1:1/v1/license/veisher",
		PayURL:     "http://127.0.0.1:1/vip/pay/result",
	}
	client := NewClient(cfg, nil)

	_, err := client.FetchPrice(context.Background(), "NO-75")
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
}

func TestFetchLicensesOrderPreserved(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"strategy_id": "NO-75", "activation_code": "AAA-111"},
			{"strategy_id": "NO-3", "activation_code": "BBB-222"},
			{"strategy_id": "NO-9", "activation_code": "CCC-333"}
		]`))
	}))

	licenses, err := client.FetchLicenses(context.Background())
	require.NoError(t, err)
	require.Len(t, licenses, 3)
	assert.Equal(t, "NO-75", licenses[0].StrategyID)
	assert.Equal(t, "NO-3", licenses[1].StrategyID)
	assert.Equal(t, "NO-9", licenses[2].StrategyID)
	assert.Equal(t, "BBB-222", licenses[1].ActivationCode)
}

func TestFetchLicensesEmpty(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))

	licenses, err := client.FetchLicenses(context.Background())
	require.NoError(t, err)
	assert.Empty(t, licenses)
}

func TestFetchLicensesServiceError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := client.FetchLicenses(context.Background())
	var serr *ServiceError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusInternalServerError, serr.StatusCode)
}

func TestSubmitPayment(t *testing.T) {
	var (
		gotMethod      string
		gotContentType string
		gotBody        paymentRequest
	)
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
	}))

	require.NoError(t, client.SubmitPayment(context.Background(), "NO-75"))
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "NO-75", gotBody.StrategyID)
	assert.Equal(t, "success", gotBody.Status)
}

func TestSubmitPaymentServiceError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	err := client.SubmitPayment(context.Background(), "NO-75")
	var serr *ServiceError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusInternalServerError, serr.StatusCode)
}
