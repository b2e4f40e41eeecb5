package boardrelay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/focus-spec/boardrelay/internal/logfields"
)

const metricNamespace = "boardrelay"

const webhookEventsMetricName = "webhook_events_total"

const (
	relayLabel   = "relay"
	outcomeLabel = "outcome"
)

type metricCollector struct {
	logger          *zap.Logger
	processedEvents *prometheus.CounterVec
}

var metrics = newMetricCollector()

func newMetricCollector() *metricCollector {
	return &metricCollector{
		logger: zap.L().Named(loggerName).Named("metrics"),
		processedEvents: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      webhookEventsMetricName,
				Help:      "count of processed github webhook events per relay and outcome",
			},
			[]string{relayLabel, outcomeLabel},
		),
	}
}

func (m *metricCollector) EventProcessedInc(relay string, outcome Outcome) {
	cnt, err := m.processedEvents.GetMetricWith(prometheus.Labels{
		relayLabel:   relay,
		outcomeLabel: outcome.String(),
	})
	if err != nil {
		m.logger.Warn(
			"could not record metric",
			zap.String("metric", webhookEventsMetricName),
			logfields.Event("recording_metric_failed"),
			zap.Error(err),
		)

		return
	}

	cnt.Inc()
}
