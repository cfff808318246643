package observability

import (
	"errors"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PaymentBuckets covers invoice-sized amounts in major units.
var PaymentBuckets = []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 25000, 50000}

// PrometheusFactory is a MetricFactory backed by a prometheus registerer.
// Dotted metric names become underscored ("salesdoc.invoice.paid" is
// exported as "salesdoc_invoice_paid_total").
type PrometheusFactory struct {
	registerer  prometheus.Registerer
	constLabels prometheus.Labels

	mu         sync.Mutex
	counters   map[string]prometheus.Counter
	histograms map[string]prometheus.Histogram
}

// NewPrometheusFactory creates a factory registering on r. A nil r uses
// prometheus.DefaultRegisterer.
func NewPrometheusFactory(r prometheus.Registerer, constLabels prometheus.Labels) *PrometheusFactory {
	if r == nil {
		r = prometheus.DefaultRegisterer
	}
	return &PrometheusFactory{
		registerer:  r,
		constLabels: constLabels,
		counters:    make(map[string]prometheus.Counter),
		histograms:  make(map[string]prometheus.Histogram),
	}
}

// Counter implements MetricFactory.
func (f *PrometheusFactory) Counter(name string) Counter {
	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.counters[name]; ok {
		return c
	}
	c := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        metricName(name) + "_total",
		Help:        "Count of " + name + " events.",
		ConstLabels: f.constLabels,
	})
	f.counters[name] = register(f.registerer, c)
	return f.counters[name]
}

// Histogram implements MetricFactory.
func (f *PrometheusFactory) Histogram(name string) Histogram {
	f.mu.Lock()
	defer f.mu.Unlock()

	if h, ok := f.histograms[name]; ok {
		return h
	}
	h := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        metricName(name),
		Help:        "Distribution of " + name + ".",
		Buckets:     PaymentBuckets,
		ConstLabels: f.constLabels,
	})
	f.histograms[name] = register(f.registerer, h)
	return f.histograms[name]
}

// register returns the already registered collector when c is a duplicate,
// so two factories on one registerer share metrics.
func register[T prometheus.Collector](r prometheus.Registerer, c T) T {
	if err := r.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return c
}

func metricName(name string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(name)
}
