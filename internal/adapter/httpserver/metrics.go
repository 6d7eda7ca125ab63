package httpserver

import "github.com/prometheus/client_golang/prometheus"

const metricsNamespace = "magickey_stub"

// Metrics counts activation requests by result and login attempts.
type Metrics struct {
	activations *prometheus.CounterVec
	logins      *prometheus.CounterVec
	pending     prometheus.GaugeFunc
}

func NewMetrics(reg prometheus.Registerer, tokens *TokenStore) *Metrics {
	m := &Metrics{
		activations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "activations_total",
			Help:      "Activation requests by result.",
		}, []string{"result"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "logins_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
		pending: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "pending_tokens",
			Help:      "Issued tokens not yet consumed.",
		}, func() float64 { return float64(tokens.Pending()) }),
	}
	reg.MustRegister(m.activations, m.logins, m.pending)
	return m
}
