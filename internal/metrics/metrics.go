package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// OrderMetrics DC 购买订单流水线指标
type OrderMetrics struct {
	OrdersCreatedTotal      prometheus.Counter
	OrderTransitionsTotal   *prometheus.CounterVec
	StepFailuresTotal       *prometheus.CounterVec
	StepDuration            *prometheus.HistogramVec
	WebhookRequestsTotal    *prometheus.CounterVec
	ChainSubmissionsTotal   *prometheus.CounterVec
	ReconcileOrdersTotal    prometheus.Counter
	IterationCeilingTotal   prometheus.Counter
	DirectorySyncOuisGauge  prometheus.Gauge
	OnrampSessionFailsTotal prometheus.Counter
}

// Default 进程级唯一实例，promauto 注册到默认 registry
var Default = newOrderMetrics()

func newOrderMetrics() *OrderMetrics {
	return &OrderMetrics{
		OrdersCreatedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dcp_orders_created_total",
			Help: "Number of DC purchase orders created",
		}),
		OrderTransitionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dcp_order_transitions_total",
			Help: "Order status transitions performed",
		}, []string{"from", "to"}),
		StepFailuresTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dcp_order_step_failures_total",
			Help: "Processor steps that left an order held with an error",
		}, []string{"status", "code"}),
		StepDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dcp_order_step_duration_seconds",
			Help:    "Duration of a single processor step",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"status"}),
		WebhookRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dcp_webhook_requests_total",
			Help: "Onramp webhook deliveries by outcome",
		}, []string{"result"}),
		ChainSubmissionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dcp_chain_submissions_total",
			Help: "Solana transaction submissions by outcome",
		}, []string{"result"}),
		ReconcileOrdersTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dcp_reconcile_orders_total",
			Help: "Orders re-driven by the reconciliation sweep",
		}),
		IterationCeilingTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dcp_processor_iteration_ceiling_total",
			Help: "Times the processor stopped at its iteration ceiling",
		}),
		DirectorySyncOuisGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "dcp_directory_ouis",
			Help: "OUIs upserted by the last directory sync",
		}),
		OnrampSessionFailsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dcp_onramp_session_failures_total",
			Help: "Checkout session requests that fell back to the status page",
		}),
	}
}
