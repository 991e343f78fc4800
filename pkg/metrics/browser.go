package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BrowserMetrics is the Prometheus implementation of browser.Metrics and
// gc.Metrics. A nil *BrowserMetrics records nothing.
type BrowserMetrics struct {
	listingsTotal   *prometheus.CounterVec
	listingDuration *prometheus.HistogramVec
	listingItems    *prometheus.HistogramVec
	sessionsCreated *prometheus.CounterVec
	sessionsSwept   *prometheus.CounterVec
	uploadsTotal    *prometheus.CounterVec
}

// NewBrowserMetrics creates Prometheus-backed service metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewBrowserMetrics() *BrowserMetrics {
	if !IsEnabled() {
		return nil
	}
	return newBrowserMetrics(GetRegistry())
}

func newBrowserMetrics(reg prometheus.Registerer) *BrowserMetrics {
	return &BrowserMetrics{
		listingsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "listings_total",
				Help:      "Total number of listing requests by site, mode and status",
			},
			[]string{"site", "mode", "status"},
		),
		listingDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "listing_duration_seconds",
				Help:      "Duration of listing requests in seconds",
				Buckets: []float64{
					0.001, // 1ms
					0.01,  // 10ms
					0.05,  // 50ms
					0.1,   // 100ms
					0.5,   // 500ms
					1.0,   // 1s
					5.0,   // 5s
				},
			},
			[]string{"site", "mode"},
		),
		listingItems: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "listing_page_items",
				Help:      "Number of files returned per page",
				Buckets:   []float64{0, 1, 10, 50, 100, 500, 1000},
			},
			[]string{"site"},
		),
		sessionsCreated: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_created_total",
				Help:      "Total number of paging sessions frozen",
			},
			[]string{"site"},
		),
		sessionsSwept: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_swept_total",
				Help:      "Total number of expired sessions removed by the reaper",
			},
			[]string{"site"},
		),
		uploadsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "uploads_total",
				Help:      "Total number of uploaded files by site, kind and status",
			},
			[]string{"site", "kind", "status"},
		),
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (m *BrowserMetrics) RecordListing(site, mode string, duration time.Duration, items int, err error) {
	if m == nil {
		return
	}
	m.listingsTotal.WithLabelValues(site, mode, status(err)).Inc()
	m.listingDuration.WithLabelValues(site, mode).Observe(duration.Seconds())
	if err == nil {
		m.listingItems.WithLabelValues(site).Observe(float64(items))
	}
}

func (m *BrowserMetrics) RecordSessionCreated(site string) {
	if m == nil {
		return
	}
	m.sessionsCreated.WithLabelValues(site).Inc()
}

func (m *BrowserMetrics) RecordSweep(site string, removed int) {
	if m == nil {
		return
	}
	m.sessionsSwept.WithLabelValues(site).Add(float64(removed))
}

func (m *BrowserMetrics) RecordUpload(site, kind string, err error) {
	if m == nil {
		return
	}
	m.uploadsTotal.WithLabelValues(site, kind, status(err)).Inc()
}
