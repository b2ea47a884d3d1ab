package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/simplesurance/commitmailer/internal/logfields"
	"github.com/simplesurance/commitmailer/internal/mailerr"
)

const metricNamespace = "commitmailer"

const (
	notificationsMetricName = "notifications_total"
	commitsMetricName       = "notified_commits_total"
)

const (
	resultLabel = "result"
	stageLabel  = "stage"
)

type resultLabelVal string

const (
	resultLabelSuccessVal resultLabelVal = "success"
	resultLabelFailureVal resultLabelVal = "failure"
)

type metricCollector struct {
	logger        *zap.Logger
	notifications *prometheus.CounterVec
	commits       prometheus.Counter
}

var metrics = newMetricCollector()

func newMetricCollector() *metricCollector {
	return &metricCollector{
		logger: zap.L().Named(loggerName).Named("metrics"),
		notifications: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      notificationsMetricName,
				Help:      "count of notification mail delivery attempts",
			},
			[]string{resultLabel, stageLabel},
		),
		commits: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      commitsMetricName,
				Help:      "count of commits contained in successfully sent notifications",
			},
		),
	}
}

func (m *metricCollector) logGetMetricFailed(metricName string, err error) {
	m.logger.Warn(
		"could not record metric",
		zap.String("metric", metricName),
		logfields.Event("recording_metric_failed"),
		zap.Error(err),
	)
}

func (m *metricCollector) NotificationSent(commitCnt int) {
	cnt, err := m.notifications.GetMetricWith(prometheus.Labels{
		resultLabel: string(resultLabelSuccessVal),
		stageLabel:  "",
	})
	if err != nil {
		m.logGetMetricFailed(notificationsMetricName, err)
		return
	}

	cnt.Inc()
	m.commits.Add(float64(commitCnt))
}

func (m *metricCollector) NotificationFailed(stage mailerr.Stage) {
	cnt, err := m.notifications.GetMetricWith(prometheus.Labels{
		resultLabel: string(resultLabelFailureVal),
		stageLabel:  string(stage),
	})
	if err != nil {
		m.logGetMetricFailed(notificationsMetricName, err)
		return
	}

	cnt.Inc()
}
