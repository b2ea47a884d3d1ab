package github

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/simplesurance/commitmailer/internal/logfields"
)

const metricNamespace = "commitmailer"

const (
	eventsMetricName             = "processed_github_events_total"
	rejectedSignaturesMetricName = "rejected_github_signatures_total"
)

const eventTypeLabel = "event_type"

const eventTypeLabelUnsupportedVal = "unsupported"

type metricCollector struct {
	logger             *zap.Logger
	events             *prometheus.CounterVec
	rejectedSignatures prometheus.Counter
}

var metrics = newMetricCollector()

func newMetricCollector() *metricCollector {
	return &metricCollector{
		logger: zap.L().Named(loggerName).Named("metrics"),
		events: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      eventsMetricName,
				Help:      "count of github webhook events with a valid signature",
			},
			[]string{eventTypeLabel},
		),
		rejectedSignatures: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      rejectedSignaturesMetricName,
				Help:      "count of github webhook requests with a missing or invalid signature",
			},
		),
	}
}

// EventReceivedInc increments the counter for eventType.
// Event types other than ping and push are counted as "unsupported" to keep
// the label cardinality low.
func (m *metricCollector) EventReceivedInc(eventType string) {
	if eventType != pingEventType && eventType != pushEventType {
		eventType = eventTypeLabelUnsupportedVal
	}

	cnt, err := m.events.GetMetricWith(prometheus.Labels{eventTypeLabel: eventType})
	if err != nil {
		m.logger.Warn(
			"could not record metric",
			zap.String("metric", eventsMetricName),
			logfields.Event("recording_metric_failed"),
			zap.Error(err),
		)
		return
	}

	cnt.Inc()
}

func (m *metricCollector) SignatureRejectedInc() {
	m.rejectedSignatures.Inc()
}
