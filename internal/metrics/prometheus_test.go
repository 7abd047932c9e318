package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.EventApplied("increment")
	pr.EventApplied("increment")
	pr.CookiesCredited(CreditProducer, 5)
	pr.CookiesCredited(CreditProducer, 0)
	pr.SetCookies(42)
	pr.IntentRejected("purchase", RejectBalance)
	pr.ObserveCatalogFetch(ResultSuccess, 3*time.Second)
	pr.SetProducers(2)
	pr.ProductionFailed()
	pr.SetPendingSales(1)
	pr.SaleResolved(SaleCommitted)

	require.Equal(t, 2.0, testutil.ToFloat64(pr.events.WithLabelValues("increment")))
	require.Equal(t, 5.0, testutil.ToFloat64(pr.credited.WithLabelValues(CreditProducer)))
	require.Equal(t, 42.0, testutil.ToFloat64(pr.cookies))
	require.Equal(t, 1.0, testutil.ToFloat64(pr.rejected.WithLabelValues("purchase", RejectBalance)))
	require.Equal(t, 2.0, testutil.ToFloat64(pr.producers))
	require.Equal(t, 1.0, testutil.ToFloat64(pr.prodFailures))
	require.Equal(t, 1.0, testutil.ToFloat64(pr.pendingSales))
	require.Equal(t, 1.0, testutil.ToFloat64(pr.sales.WithLabelValues(SaleCommitted)))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, mfs)
}

func TestHTTPHandlerServesMetrics(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.SetCookies(7)

	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "bakehouse_cookies 7"), rec.Body.String())
}
