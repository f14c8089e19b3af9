package observability

import (
	"fmt"
	"math"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type rpcMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	rpcMetricsOnce sync.Once
	rpcRegistry    *rpcMetrics

	exchangeMetricsOnce sync.Once
	exchangeRegistry    *ExchangeMetrics
)

// RPCMetrics returns the lazily-initialised registry used to record JSON-RPC
// handler activity.
func RPCMetrics() *rpcMetrics {
	rpcMetricsOnce.Do(func() {
		rpcRegistry = &rpcMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "alsmadex",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Total JSON-RPC requests segmented by method and outcome.",
			}, []string{"method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "alsmadex",
				Subsystem: "rpc",
				Name:      "errors_total",
				Help:      "Total JSON-RPC errors segmented by method and status code.",
			}, []string{"method", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "alsmadex",
				Subsystem: "rpc",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for JSON-RPC handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "alsmadex",
				Subsystem: "rpc",
				Name:      "throttles_total",
				Help:      "Count of requests rejected due to throttling policies.",
			}, []string{"reason"}),
		}
		prometheus.MustRegister(
			rpcRegistry.requests,
			rpcRegistry.errors,
			rpcRegistry.latency,
			rpcRegistry.throttles,
		)
	})
	return rpcRegistry
}

// Observe records the outcome of an RPC request. The status code should be the
// HTTP status that was ultimately written to the response writer.
func (m *rpcMetrics) Observe(method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if status >= 400 {
		outcome = "error"
	}
	m.requests.WithLabelValues(method, outcome).Inc()
	if status >= 400 {
		m.errors.WithLabelValues(method, fmt.Sprintf("%d", status)).Inc()
	}
	m.latency.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter for the supplied reason.
// Reasons should be stable strings such as "rate_limit" so dashboards and
// alerts remain consistent.
func (m *rpcMetrics) RecordThrottle(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(reason).Inc()
}

// ExchangeMetrics captures collectors tracking exchange engine activity.
type ExchangeMetrics struct {
	operations *prometheus.CounterVec
	swapVolume *prometheus.CounterVec
	commission *prometheus.CounterVec
	staked     *prometheus.GaugeVec
	treasury   *prometheus.GaugeVec
}

// Exchange returns the singleton metrics registry for the exchange engine.
func Exchange() *ExchangeMetrics {
	exchangeMetricsOnce.Do(func() {
		exchangeRegistry = &ExchangeMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "alsmadex",
				Subsystem: "engine",
				Name:      "operations_total",
				Help:      "Count of engine operations segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			swapVolume: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "alsmadex",
				Subsystem: "engine",
				Name:      "swap_volume",
				Help:      "Cumulative swap output volume per token in base units.",
			}, []string{"token"}),
			commission: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "alsmadex",
				Subsystem: "engine",
				Name:      "commission_collected",
				Help:      "Cumulative commission collected per token in base units.",
			}, []string{"token"}),
			staked: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "alsmadex",
				Subsystem: "engine",
				Name:      "total_staked",
				Help:      "Current total staked per token in base units.",
			}, []string{"token"}),
			treasury: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "alsmadex",
				Subsystem: "engine",
				Name:      "treasury_balance",
				Help:      "Current treasury balance per token in base units.",
			}, []string{"token"}),
		}
		prometheus.MustRegister(
			exchangeRegistry.operations,
			exchangeRegistry.swapVolume,
			exchangeRegistry.commission,
			exchangeRegistry.staked,
			exchangeRegistry.treasury,
		)
	})
	return exchangeRegistry
}

// RecordOperation increments the operation counter with a success or error
// outcome derived from err.
func (m *ExchangeMetrics) RecordOperation(operation string, err error) {
	if m == nil {
		return
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unknown"
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(op, outcome).Inc()
}

// RecordSwap accumulates swap output volume and commission for a token.
func (m *ExchangeMetrics) RecordSwap(token string, toAmount, commission *big.Int) {
	if m == nil {
		return
	}
	label := labelToken(token)
	m.swapVolume.WithLabelValues(label).Add(bigToFloat(toAmount))
	m.commission.WithLabelValues(label).Add(bigToFloat(commission))
}

// SetStaked updates the total-staked gauge for a token.
func (m *ExchangeMetrics) SetStaked(token string, total *big.Int) {
	if m == nil {
		return
	}
	m.staked.WithLabelValues(labelToken(token)).Set(bigToFloat(total))
}

// SetTreasury updates the treasury-balance gauge for a token.
func (m *ExchangeMetrics) SetTreasury(token string, balance *big.Int) {
	if m == nil {
		return
	}
	m.treasury.WithLabelValues(labelToken(token)).Set(bigToFloat(balance))
}

func labelToken(token string) string {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return "UNKNOWN"
	}
	return strings.ToUpper(trimmed)
}

func bigToFloat(value *big.Int) float64 {
	if value == nil {
		return 0
	}
	floatVal, acc := new(big.Float).SetInt(value).Float64()
	if acc != big.Exact {
		// Guard against NaN/Inf when conversion fails.
		if math.IsNaN(floatVal) || math.IsInf(floatVal, 0) {
			return 0
		}
	}
	return floatVal
}
