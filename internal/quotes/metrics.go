package quotes

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/odyssey-erp/odyssey-quote/internal/pricing"
)

// Metrics exposes Prometheus collectors for quote calculations.
type Metrics struct {
	quotes      *prometheus.CounterVec
	rejections  prometheus.Counter
	totalAmount prometheus.Histogram
}

// NewMetrics registers the quote metrics against the provided registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	quotes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_quotes_total",
		Help: "Quotes issued partitioned by hotel sourcing channel.",
	}, []string{"hotel_source"})
	rejections := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "odyssey_quote_rejections_total",
		Help: "Trip requests rejected by validation.",
	})
	totalAmount := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "odyssey_quote_total_jpy",
		Help:    "Estimated quote totals in JPY.",
		Buckets: prometheus.ExponentialBuckets(100000, 2, 12),
	})
	if registerer != nil {
		registerer.MustRegister(quotes, rejections, totalAmount)
	}
	return &Metrics{quotes: quotes, rejections: rejections, totalAmount: totalAmount}
}

func (m *Metrics) observeQuote(q pricing.QuoteResult) {
	if m == nil {
		return
	}
	m.quotes.WithLabelValues(string(q.Breakdown.HotelSource)).Inc()
	m.totalAmount.Observe(float64(q.EstimatedTotalJPY))
}

func (m *Metrics) observeRejection() {
	if m == nil {
		return
	}
	m.rejections.Inc()
}
