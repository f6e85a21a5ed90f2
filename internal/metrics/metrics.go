package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

var (
	// OperationDuration: длительность операций жизненного цикла сделок.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "deals_operation_duration_seconds",
			Help: "Duration of deal lifecycle operations in seconds",
			Buckets: []float64{
				0.001, // 1ms
				0.005, // 5ms
				0.01,  // 10ms
				0.025, // 25ms
				0.05,  // 50ms
				0.1,   // 100ms
				0.25,  // 250ms
				0.5,   // 500ms
				1.0,   // 1s
				2.5,   // 2.5s
				5.0,   // 5s
			},
		},
		[]string{"operation", "status"},
	)

	// OperationErrors считает ошибки операций по коду AppError.
	OperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deals_operation_errors_total",
			Help: "Failed deal lifecycle operations by error code",
		},
		[]string{"operation", "code"},
	)

	DealsSettled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deals_settled_total",
		Help: "Settled deals created from mutually accepted negotiations",
	})

	NegotiationsCascaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deals_negotiations_cascaded_total",
		Help: "Negotiations whose publisher side was deleted by a proposal deletion",
	})
)

// RecordOperation фиксирует длительность операции и, при ошибке, её код.
func RecordOperation(operation string, started time.Time, errCode string) {
	status := StatusSuccess
	if errCode != "" {
		status = StatusFailure
		OperationErrors.WithLabelValues(operation, errCode).Inc()
	}
	OperationDuration.WithLabelValues(operation, status).Observe(time.Since(started).Seconds())
}
