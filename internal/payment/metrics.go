package payment

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts protocol events. A nil *Metrics is valid and records nothing.
type Metrics struct {
	challenges    prometheus.Counter
	verifications *prometheus.CounterVec
	recorded      *prometheus.CounterVec
}

// NewMetrics creates and registers the protocol collectors.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		challenges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ppd_payment_challenges_total",
			Help: "Number of 402 payment challenges issued.",
		}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ppd_payment_verifications_total",
			Help: "Payment verifications by result and matching decoder.",
		}, []string{"result", "decoder"}),
		recorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ppd_purchases_recorded_total",
			Help: "Purchase ledger inserts by outcome.",
		}, []string{"outcome"}),
	}
	for _, c := range []prometheus.Collector{m.challenges, m.verifications, m.recorded} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) ChallengeIssued() {
	if m == nil {
		return
	}
	m.challenges.Inc()
}

func (m *Metrics) Verified(v Verification) {
	if m == nil {
		return
	}
	result := "accepted"
	if !v.Accepted {
		result = "rejected"
	}
	decoder := v.Decoder
	if decoder == "" {
		decoder = "none"
	}
	m.verifications.WithLabelValues(result, decoder).Inc()
}

// Recorded takes "recorded", "duplicate" or "error".
func (m *Metrics) Recorded(outcome string) {
	if m == nil {
		return
	}
	m.recorded.WithLabelValues(outcome).Inc()
}
