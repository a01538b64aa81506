package trainer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/FlavioCFOliveira/housenet/internal/net"
)

const namespace = "housenet"

// recorder is a training callback that mirrors the epoch logs into a
// private Prometheus registry.
type recorder struct {
	net.BaseCallback

	registry      *prometheus.Registry
	epochs        prometheus.Counter
	epochDuration prometheus.Histogram
	current       *prometheus.GaugeVec
	bestEpoch     prometheus.Gauge
	bestValLoss   prometheus.Gauge
	earlyStopped  prometheus.Gauge

	epochStart time.Time
}

func newRecorder(runID string) *recorder {
	var labels prometheus.Labels
	if runID != "" {
		labels = prometheus.Labels{"run_id": runID}
	}

	r := &recorder{
		registry: prometheus.NewRegistry(),
		epochs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "training",
			Name:        "epochs_total",
			Help:        "Number of completed training epochs.",
			ConstLabels: labels,
		}),
		epochDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "training",
			Name:        "epoch_duration_seconds",
			Help:        "Wall time of one training epoch including validation.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		current: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "training",
			Name:        "last_epoch_value",
			Help:        "Loss and MAE of the last completed epoch.",
			ConstLabels: labels,
		}, []string{"metric"}),
		bestEpoch: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "training",
			Name:        "best_epoch",
			Help:        "Zero-based epoch with the lowest validation loss.",
			ConstLabels: labels,
		}),
		bestValLoss: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "training",
			Name:        "best_val_loss",
			Help:        "Lowest validation loss seen, i.e. the loss of the restored weights.",
			ConstLabels: labels,
		}),
		earlyStopped: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "training",
			Name:        "early_stopped",
			Help:        "1 if training ended because validation loss stopped improving.",
			ConstLabels: labels,
		}),
	}
	r.registry.MustRegister(r.epochs, r.epochDuration, r.current, r.bestEpoch, r.bestValLoss, r.earlyStopped)
	return r
}

func (r *recorder) OnEpochBegin(epoch int, n *net.Network) {
	r.epochStart = time.Now()
}

func (r *recorder) OnEpochEnd(epoch int, logs net.EpochLogs, n *net.Network) {
	r.epochs.Inc()
	if !r.epochStart.IsZero() {
		r.epochDuration.Observe(time.Since(r.epochStart).Seconds())
	}
	r.current.WithLabelValues("loss").Set(logs.Loss)
	r.current.WithLabelValues("mae").Set(logs.MAE)
	if logs.HasValidation {
		r.current.WithLabelValues("val_loss").Set(logs.ValLoss)
		r.current.WithLabelValues("val_mae").Set(logs.ValMAE)
	}
}

func (r *recorder) finish(es *net.EarlyStopping) {
	best, bestEpoch := es.Best()
	r.bestEpoch.Set(float64(bestEpoch))
	r.bestValLoss.Set(best)
	if es.StopTraining() {
		r.earlyStopped.Set(1)
	}
}

func (r *recorder) writeTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
