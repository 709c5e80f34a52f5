package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "symptom_checker"

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry      *prometheus.Registry
	consultations *prometheus.CounterVec
	unmatched     *prometheus.CounterVec
	catalog       *prometheus.GaugeVec
	skipped       *prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		consultations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consultations_total",
			Help:      "Assessed consultations by input source and urgency tier of the top match.",
		}, []string{"source", "tier"}),
		unmatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unmatched_consultations_total",
			Help:      "Consultations where no condition matched.",
		}, []string{"source"}),
		catalog: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_records",
			Help:      "Records served from each catalog, labelled with its load status.",
		}, []string{"catalog", "status"}),
		skipped: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_skipped_records",
			Help:      "Records dropped while loading each catalog.",
		}, []string{"catalog"}),
	}
	m.registry.MustRegister(
		m.consultations,
		m.unmatched,
		m.catalog,
		m.skipped,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveConsultation counts one assessment. tier is empty when nothing
// matched.
func (m *Metrics) ObserveConsultation(source, tier string, matched bool) {
	if !matched {
		m.unmatched.WithLabelValues(source).Inc()
		tier = "none"
	}
	m.consultations.WithLabelValues(source, tier).Inc()
}

// SetCatalog records the outcome of loading a catalog.
func (m *Metrics) SetCatalog(name, status string, records, skipped int) {
	m.catalog.DeletePartialMatch(prometheus.Labels{"catalog": name})
	m.catalog.WithLabelValues(name, status).Set(float64(records))
	m.skipped.WithLabelValues(name).Set(float64(skipped))
}

// Registry exposes the private registry for collectors owned elsewhere.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
