package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Zachkp/marathon-portfolio/internal/progress"
)

// PrometheusSink exports race activity: events per stage, section entries,
// sessions in progress and time to finish.
type PrometheusSink struct {
	events         *prometheus.CounterVec
	sectionEntries *prometheus.CounterVec
	sessionsActive prometheus.Gauge
	finishSeconds  prometheus.Histogram
}

// NewPrometheusSink registers the collectors against reg, or the default
// registerer when reg is nil.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portfolio_race_events_total",
			Help: "Race events observed, partitioned by stage.",
		}, []string{"stage"}),
		sectionEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portfolio_section_entries_total",
			Help: "Times a section became the active section.",
		}, []string{"section"}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "portfolio_race_sessions_active",
			Help: "Scroll sessions started and not yet ended.",
		}),
		finishSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "portfolio_race_finish_seconds",
			Help:    "Time from page open to reaching the bottom of the page.",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1800},
		}),
	}
	for _, c := range []prometheus.Collector{s.events, s.sectionEntries, s.sessionsActive, s.finishSeconds} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register race collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors for each event.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.events.WithLabelValues(string(evt.Stage)).Inc()
		switch evt.Stage {
		case progress.StageSessionStart:
			s.sessionsActive.Inc()
		case progress.StageSessionEnd:
			s.sessionsActive.Dec()
		case progress.StageSectionEnter:
			s.sectionEntries.WithLabelValues(evt.Section).Inc()
		case progress.StageFinish:
			s.finishSeconds.Observe(evt.Elapsed.Seconds())
		}
	}
	return nil
}

// Close is a no-op; collectors stay registered.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
