package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	svcmetrics "VolSignals/internal/service/metrics"
	xhttp "VolSignals/pkg/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVenue(t *testing.T, url string, maxFailures uint32) (*HTTPVenue, *svcmetrics.VenueMetrics) {
	t.Helper()
	m := svcmetrics.NewVenueMetrics(prometheus.NewRegistry())
	v := NewHTTPVenue(xhttp.NewClient(xhttp.WithTimeout(2*time.Second)), HTTPVenueConfig{
		BaseURL:     url + "/",
		APIKey:      "k",
		RatePerSec:  1000,
		Burst:       100,
		MaxFailures: maxFailures,
		OpenTimeout: time.Minute,
		Attempts:    3,
	}, m, nil)
	v.backoff = time.Millisecond
	return v, m
}

func TestHTTPVenueSendsOrders(t *testing.T) {
	var got []map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		body["path"] = r.URL.Path
		got = append(got, body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	v, _ := newTestVenue(t, srv.URL, 5)
	ctx := context.Background()
	require.NoError(t, v.SetTargetWeight(ctx, "VXX", -0.9))
	require.NoError(t, v.Liquidate(ctx, "VXX"))

	require.Len(t, got, 2)
	assert.Equal(t, "/orders/target", got[0]["path"])
	assert.Equal(t, -0.9, got[0]["weight"])
	assert.Equal(t, "/orders/liquidate", got[1]["path"])
	assert.Equal(t, "VXX", got[1]["instrument"])
}

func TestHTTPVenueRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	v, _ := newTestVenue(t, srv.URL, 10)
	require.NoError(t, v.Liquidate(context.Background(), "VXX"))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestHTTPVenueDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	v, m := newTestVenue(t, srv.URL, 10)
	err := v.SetTargetWeight(context.Background(), "VXX", -0.9)
	var se *xhttp.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Errors.WithLabelValues("set_target_weight", "http_400")))
}

func TestHTTPVenueBreakerOpens(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	v, m := newTestVenue(t, srv.URL, 2)
	ctx := context.Background()
	require.Error(t, v.Liquidate(ctx, "VXX"))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "breaker opens after the second failure")

	err := v.Liquidate(ctx, "VXX")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, float64(gobreaker.StateOpen), testutil.ToFloat64(m.Breaker.WithLabelValues("venue")))
}

func TestHTTPVenueRejectsWeightOutOfRange(t *testing.T) {
	v, _ := newTestVenue(t, "http://127.0.0.1:1", 2)
	assert.Error(t, v.SetTargetWeight(context.Background(), "VXX", 2))
}
