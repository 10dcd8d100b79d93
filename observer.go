package castore

import (
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// LogObserver writes every event to logger at info level.
func LogObserver(logger *slog.Logger) Observer {
	return ObserverFunc(func(e Event) {
		logger.Info("content "+string(e.Kind), "hash", e.Hash.String(), "name", e.Name)
	})
}

// MetricsObserver counts events by kind.
type MetricsObserver struct {
	events *prometheus.CounterVec
}

// NewMetricsObserver registers castore_events_total on reg. Registering twice
// on the same registry reuses the existing collector.
func NewMetricsObserver(reg prometheus.Registerer) (*MetricsObserver, error) {
	events := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "castore_events_total",
			Help: "Total number of successful store operations by kind.",
		},
		[]string{"kind"},
	)
	if err := reg.Register(events); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, err
		}
		events = existing
	}
	return &MetricsObserver{events: events}, nil
}

func (m *MetricsObserver) Observe(e Event) {
	m.events.WithLabelValues(string(e.Kind)).Inc()
}
