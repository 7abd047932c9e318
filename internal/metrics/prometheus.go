package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	events        *prom.CounterVec
	credited      *prom.CounterVec
	cookies       prom.Gauge
	rejected      *prom.CounterVec
	fetchDuration *prom.HistogramVec
	producers     prom.Gauge
	prodFailures  prom.Counter
	pendingSales  prom.Gauge
	sales         *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers the game metrics on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		events: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "bakehouse",
			Name:      "events_applied_total",
			Help:      "State store events applied, by event name",
		}, []string{"event"}),
		credited: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "bakehouse",
			Name:      "cookies_credited_total",
			Help:      "Cookies credited, by source",
		}, []string{"source"}),
		cookies: prom.NewGauge(prom.GaugeOpts{
			Namespace: "bakehouse",
			Name:      "cookies",
			Help:      "Current cookie count",
		}),
		rejected: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "bakehouse",
			Name:      "intents_rejected_total",
			Help:      "Intents refused before any event was emitted",
		}, []string{"intent", "reason"}),
		fetchDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "bakehouse",
			Name:      "catalog_fetch_duration_seconds",
			Help:      "Catalog fetch latency by result",
			Buckets:   prom.DefBuckets,
		}, []string{"result"}),
		producers: prom.NewGauge(prom.GaugeOpts{
			Namespace: "bakehouse",
			Name:      "producers",
			Help:      "Live production timers",
		}),
		prodFailures: prom.NewCounter(prom.CounterOpts{
			Namespace: "bakehouse",
			Name:      "production_failures_total",
			Help:      "Units whose production could not be scheduled",
		}),
		pendingSales: prom.NewGauge(prom.GaugeOpts{
			Namespace: "bakehouse",
			Name:      "pending_sales",
			Help:      "Sales waiting for their commit delay",
		}),
		sales: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "bakehouse",
			Name:      "sales_total",
			Help:      "Resolved sales by outcome",
		}, []string{"outcome"}),
	}
	reg.MustRegister(pr.events, pr.credited, pr.cookies, pr.rejected, pr.fetchDuration,
		pr.producers, pr.prodFailures, pr.pendingSales, pr.sales)
	return pr
}

func (p *PrometheusRecorder) EventApplied(name string) { p.events.WithLabelValues(name).Inc() }

func (p *PrometheusRecorder) CookiesCredited(source string, amount int64) {
	if amount <= 0 {
		return
	}
	p.credited.WithLabelValues(source).Add(float64(amount))
}

func (p *PrometheusRecorder) SetCookies(n int64) { p.cookies.Set(float64(n)) }

func (p *PrometheusRecorder) IntentRejected(intent, reason string) {
	p.rejected.WithLabelValues(intent, reason).Inc()
}

func (p *PrometheusRecorder) ObserveCatalogFetch(result string, d time.Duration) {
	p.fetchDuration.WithLabelValues(result).Observe(d.Seconds())
}

func (p *PrometheusRecorder) SetProducers(n int)      { p.producers.Set(float64(n)) }
func (p *PrometheusRecorder) ProductionFailed()       { p.prodFailures.Inc() }
func (p *PrometheusRecorder) SetPendingSales(n int)   { p.pendingSales.Set(float64(n)) }
func (p *PrometheusRecorder) SaleResolved(out string) { p.sales.WithLabelValues(out).Inc() }

// HTTPHandler returns an http.Handler that serves Prometheus metrics for the provided registry.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

var _ Recorder = (*PrometheusRecorder)(nil)
