package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics — счётчики и gauge'и оркестрации для Prometheus.
type Metrics struct {
	// StepsDispatched — количество отправленных на фабрику instances.
	StepsDispatched prometheus.Counter

	// StepsFinished — количество терминальных шагов по статусам
	// (completed/failed/skipped).
	StepsFinished *prometheus.CounterVec

	// StepsInFlight — текущее количество instances на фабрике.
	StepsInFlight prometheus.Gauge

	// PipelineRuns — количество завершённых запусков pipeline по статусам.
	PipelineRuns *prometheus.CounterVec
}

// NewMetrics регистрирует метрики в указанном Registerer.
// nil использует глобальный реестр prometheus.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		StepsDispatched: factory.NewCounter(prometheus.CounterOpts{
			Name: "conveyor_steps_dispatched_total",
			Help: "Total number of step instances submitted to the execution fabric.",
		}),
		StepsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "conveyor_steps_finished_total",
			Help: "Total number of steps reaching a terminal status.",
		}, []string{"status"}),
		StepsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "conveyor_steps_in_flight",
			Help: "Number of step instances currently dispatched or running.",
		}),
		PipelineRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "conveyor_pipeline_runs_total",
			Help: "Total number of finished pipeline runs by status.",
		}, []string{"status"}),
	}
}
