package data

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"esim-service/internal/biz"
	"esim-service/internal/conf"
	"esim-service/internal/constants"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTravelRoamTestClient(t *testing.T, handler http.Handler) biz.RenewalProviderClient {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	client, err := NewTravelRoamClient(&conf.Bootstrap{
		Providers: &conf.Providers{
			Travelroam: &conf.TravelroamProvider{
				BaseUrl:      ts.URL,
				ApiKey:       "key",
				ClientSecret: "secret",
				Timeout:      "5s",
			},
		},
	}, log.NewStdLogger(io.Discard))
	require.NoError(t, err)
	return client
}

func decodeBody(t *testing.T, r *http.Request) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func TestTravelRoamFetchStatus(t *testing.T) {
	installed := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	mux := http.NewServeMux()
	mux.HandleFunc("/esims/details", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		assert.Equal(t, "secret", r.Header.Get("clientSecret"))
		body := decodeBody(t, r)
		assert.Equal(t, "8944500001", body["iccid"])
		writeJSON(w, map[string]interface{}{
			"iccid":                  "8944500001",
			"matchingId":             "MID-1",
			"profileStatus":          "Enabled",
			"smdpAddress":            "LPA:1$smdp.example.com$XYZ",
			"firstInstalledDateTime": installed.UnixMilli(),
		})
	})
	mux.HandleFunc("/esims/applied/bundles", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"bundles": []map[string]interface{}{
				{
					"name":        "esim_1GB_7D_TR_U",
					"description": "Turkey 1GB 7 Days",
					"assignments": []map[string]interface{}{
						{
							"callTypeGroup":     "data",
							"initialQuantity":   float64(1 << 30),
							"remainingQuantity": float64(1 << 29),
							"startTime":         "2026-08-01T12:00:00Z",
							"endTime":           "2026-08-08T12:00:00Z",
						},
					},
				},
			},
		})
	})
	mux.HandleFunc("/esims/location", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{
			"networkName": "Turkcell",
			"country":     "Turkey",
		})
	})

	client := newTravelRoamTestClient(t, mux)
	status, err := client.FetchStatus(context.Background(), "8944500001")
	require.NoError(t, err)

	assert.Equal(t, constants.ProviderTravelRoam, status.Provider)
	assert.Equal(t, "8944500001", status.ICCID)
	assert.Equal(t, "MID-1", status.OrderSimID)
	assert.Equal(t, "Turkey 1GB 7 Days", status.PlanName)
	assert.Equal(t, "LPA:1$smdp.example.com$XYZ", status.ActivationCode)
	assert.Equal(t, "2026-08-01 12:00:00", status.PurchaseDate)
	assert.Equal(t, "1.00 GB", status.DataCapacity)
	assert.Equal(t, "0.50 GB", status.DataRemaining)
	assert.Equal(t, "0.50 GB", status.DataConsumed)
	assert.Equal(t, "7 days", status.Validity)
	assert.Equal(t, "Turkcell (Turkey)", status.APN)
	// Bundle window is already over, so the profile state is overridden.
	assert.Equal(t, constants.EsimStatusExpired, status.Status)
	assert.False(t, status.LastUpdated.IsZero())
}

func TestTravelRoamFetchStatusNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/esims/details", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	client := newTravelRoamTestClient(t, mux)
	_, err := client.FetchStatus(context.Background(), "8944500002")
	require.Error(t, err)
	assert.True(t, biz.IsUpstreamNotFound(err))
}

func TestTravelRoamFetchStatusAuthFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/esims/details", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	client := newTravelRoamTestClient(t, mux)
	_, err := client.FetchStatus(context.Background(), "8944500003")
	require.Error(t, err)
	assert.Equal(t, biz.UpstreamAuth, biz.UpstreamKind(err))
}

func TestTravelRoamFetchCatalog(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/catalogue", func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		assert.Equal(t, "TR", body["countries"])
		writeJSON(w, map[string]interface{}{
			"bundles": []map[string]interface{}{
				{"name": "esim_1GB_7D_TR_U", "description": "Turkey 1GB 7 Days", "data": 1, "validity": 7, "price": 4.5, "currency": "USD"},
				{"name": "esim_2GB_7D_TR_U", "description": "Turkey 2GB 7 Days", "data": 2, "validity": 7, "price": 6.5, "currency": "USD"},
			},
		})
	})

	client := newTravelRoamTestClient(t, mux)
	bundles, err := client.FetchCatalog(context.Background(), "TR")
	require.NoError(t, err)
	require.Len(t, bundles, 2)
	assert.Equal(t, "esim_1GB_7D_TR_U", bundles[0].Name)
	assert.Equal(t, 1.0, bundles[0].DataGB)
	assert.Equal(t, 7, bundles[0].Days)
	assert.Equal(t, "TR", bundles[0].Country)
}

func TestTravelRoamPlaceOrder(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/processorders", func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		assert.Equal(t, "esim_1GB_7D_TR_U", body["bundleName"])
		assert.Equal(t, "COUNTRY", body["orderType"])
		assert.Equal(t, "8944500001", body["iccid"])
		writeJSON(w, map[string]string{
			"orderReference": "ORD-42",
			"status":         "completed",
		})
	})

	client := newTravelRoamTestClient(t, mux)
	order, err := client.PlaceOrder(context.Background(), "esim_1GB_7D_TR_U", "8944500001")
	require.NoError(t, err)
	assert.Equal(t, "ORD-42", order.OrderReference)
	assert.Contains(t, order.Payload, "ORD-42")
}

func TestTravelRoamFetchOrderDetails(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/getesimassignments", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "ORD-42", r.URL.Query().Get("orderReference"))
		writeJSON(w, map[string]string{
			"iccid":         "8944500001",
			"matchingId":    "MID-1",
			"profileStatus": "Enabled",
			"smdpAddress":   "LPA:1$smdp.example.com$XYZ",
		})
	})

	client := newTravelRoamTestClient(t, mux)
	status, err := client.FetchOrderDetails(context.Background(), "ORD-42")
	require.NoError(t, err)
	assert.Equal(t, constants.ProviderTravelRoam, status.Provider)
	assert.Equal(t, "8944500001", status.ICCID)
	assert.Equal(t, "MID-1", status.OrderSimID)
	assert.Equal(t, "LPA:1$smdp.example.com$XYZ", status.ActivationCode)
	assert.Equal(t, constants.EsimStatusActive, status.Status)
	assert.False(t, status.LastUpdated.IsZero())
}

func TestTravelRoamFetchOrderDetailsNoAssignment(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/getesimassignments", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{})
	})

	client := newTravelRoamTestClient(t, mux)
	_, err := client.FetchOrderDetails(context.Background(), "ORD-43")
	require.Error(t, err)
	assert.True(t, biz.IsUpstreamNotFound(err))
}

func TestTravelRoamPlaceOrderMissingReference(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/processorders", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "accepted"})
	})

	client := newTravelRoamTestClient(t, mux)
	_, err := client.PlaceOrder(context.Background(), "esim_1GB_7D_TR_U", "8944500001")
	require.Error(t, err)
	assert.Equal(t, biz.UpstreamMalformed, biz.UpstreamKind(err))
}
