package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(codesGeneratedTotal, codeRedemptionsTotal, codesDeletedTotal)
}

var codesGeneratedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "activation_codes_generated_total",
		Help: "Activation codes created, by source ('generated' or 'custom').",
	},
	[]string{"source"},
)

var codeRedemptionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "activation_code_redemptions_total",
		Help: "Redemption attempts, by outcome ('ok', 'invalid_or_used', 'error').",
	},
	[]string{"status"},
)

var codesDeletedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "activation_codes_deleted_total",
		Help: "Codes removed by admin operations ('single', 'bulk', 'all_used').",
	},
	[]string{"mode"},
)

func IncCodesGenerated(source string, n int) {
	codesGeneratedTotal.WithLabelValues(norm(source)).Add(float64(n))
}

func IncCodeRedemption(status string) {
	codeRedemptionsTotal.WithLabelValues(norm(status)).Inc()
}

func IncCodesDeleted(mode string, n int64) {
	codesDeletedTotal.WithLabelValues(norm(mode)).Add(float64(n))
}
