package prometheus

import (
	"planlux/hale-sync/log"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeOk      = "ok"
	OutcomeOffline = "offline"
	OutcomeBusy    = "busy"
	OutcomeError   = "error"
)

var (
	outboxQueueSize = promauto.NewGauge(prom.GaugeOpts{
		Name: "planlux_outbox_queue_size",
		Help: "The number of pending outbox records",
	})
	outboxTotalSize = promauto.NewGauge(prom.GaugeOpts{
		Name: "planlux_outbox_total_size",
		Help: "The total number of outbox records, processed ones included",
	})
	outboxFailedSize = promauto.NewGauge(prom.GaugeOpts{
		Name: "planlux_outbox_failed_size",
		Help: "The number of outbox records that failed terminally",
	})
	pricingVersion = promauto.NewGauge(prom.GaugeOpts{
		Name: "planlux_pricing_version",
		Help: "The version of the locally cached pricing snapshot",
	})
	processedTotal = promauto.NewCounter(prom.CounterOpts{
		Name: "planlux_outbox_processed_total",
		Help: "Outbox records delivered to the backend",
	})
	failedTotal = promauto.NewCounter(prom.CounterOpts{
		Name: "planlux_outbox_failed_total",
		Help: "Failed outbox delivery attempts",
	})
	flushPasses = promauto.NewCounterVec(prom.CounterOpts{
		Name: "planlux_flush_passes_total",
		Help: "Flush passes by outcome",
	}, []string{"outcome"})
)

// RecordSizes updates the outbox size gauges. Gauges whose query fails keep
// their previous value.
func RecordSizes(sizer Sizer) {
	if size, err := sizer.GetQueueSize(); err != nil {
		log.Logger.WithError(err).Error("an error occurred determining the size of the queue")
	} else {
		outboxQueueSize.Set(float64(size))
	}

	if size, err := sizer.GetTotalSize(); err != nil {
		log.Logger.WithError(err).Error("an error occurred determining the total size of the outbox")
	} else {
		outboxTotalSize.Set(float64(size))
	}

	if size, err := sizer.GetFailedSize(); err != nil {
		log.Logger.WithError(err).Error("an error occurred determining the number of failed records")
	} else {
		outboxFailedSize.Set(float64(size))
	}
}

func ObserveFlush(outcome string, processed, failed int) {
	flushPasses.WithLabelValues(outcome).Inc()
	processedTotal.Add(float64(processed))
	failedTotal.Add(float64(failed))
}

func SetPricingVersion(v int64) {
	pricingVersion.Set(float64(v))
}
