package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	jobmetrics "github.com/udms-pro/udms/internal/jobs"
)

// Metrics mengumpulkan metrik Prometheus untuk aplikasi.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	gateDecisions   *prometheus.CounterVec
	auditEntries    *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	lockdownActive  prometheus.Gauge
	assistantCalls  *prometheus.CounterVec
	jobs            *jobmetrics.Metrics
}

// NewMetrics menginisialisasi registry dan metrik dasar.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "udms_http_requests_total",
		Help: "Jumlah permintaan HTTP berdasarkan route dan status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "udms_http_request_duration_seconds",
		Help:    "Durasi permintaan HTTP per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	gate := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "udms_gate_decisions_total",
		Help: "Keputusan gerbang akses per tab dan hasil.",
	}, []string{"tab", "outcome"})
	audits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "udms_audit_entries_total",
		Help: "Jumlah entri audit per severity.",
	}, []string{"severity"})
	notes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "udms_notifications_total",
		Help: "Jumlah notifikasi per jenis.",
	}, []string{"kind"})
	lockdown := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "udms_lockdown_active",
		Help: "Bernilai 1 ketika lockdown aktif.",
	})
	assistant := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "udms_assistant_calls_total",
		Help: "Panggilan asisten AI per operasi.",
	}, []string{"op"})
	registry.MustRegister(requests, duration, gate, audits, notes, lockdown, assistant)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		gateDecisions:   gate,
		auditEntries:    audits,
		notifications:   notes,
		lockdownActive:  lockdown,
		assistantCalls:  assistant,
		jobs:            jobmetrics.NewMetrics(registry),
	}
}

// Handler mengembalikan http.Handler untuk endpoint /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware mencatat metrik untuk setiap permintaan HTTP.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer mengekspos registry untuk pendaftaran metrik khusus.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// Jobs mengembalikan metrik job yang terdaftar di registry yang sama.
func (m *Metrics) Jobs() *jobmetrics.Metrics {
	if m == nil {
		return nil
	}
	return m.jobs
}

// ObserveGate mencatat hasil pemeriksaan gerbang: allowed, denied, locked_out, unauthenticated.
func (m *Metrics) ObserveGate(tab, outcome string) {
	if m == nil {
		return
	}
	m.gateDecisions.WithLabelValues(tab, outcome).Inc()
}

// ObserveAudit menghitung entri audit baru.
func (m *Metrics) ObserveAudit(severity string) {
	if m == nil {
		return
	}
	m.auditEntries.WithLabelValues(severity).Inc()
}

// ObserveNotification menghitung notifikasi baru.
func (m *Metrics) ObserveNotification(kind string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind).Inc()
}

// SetLockdown memperbarui gauge lockdown.
func (m *Metrics) SetLockdown(active bool) {
	if m == nil {
		return
	}
	if active {
		m.lockdownActive.Set(1)
		return
	}
	m.lockdownActive.Set(0)
}

// ObserveAssistant menghitung panggilan asisten.
func (m *Metrics) ObserveAssistant(op string) {
	if m == nil {
		return
	}
	m.assistantCalls.WithLabelValues(op).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
