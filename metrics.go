package main

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	trainStepsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "skipthoughts_train_steps_total",
		Help: "Optimizer updates applied",
	})

	trainLoss = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "skipthoughts_train_loss",
			Help: "Loss of the last training step",
		},
		[]string{"decoder"},
	)

	trainGradNorm = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "skipthoughts_train_grad_norm",
		Help: "Global gradient norm of the last step, before clipping",
	})

	documentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skipthoughts_documents_total",
			Help: "Documents read by the trainer",
		},
		[]string{"status"}, // trained | skipped
	)

	sentencesEncodedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "skipthoughts_sentences_encoded_total",
		Help: "Thought vectors emitted by the encoding path",
	})
)

func init() {
	prometheus.MustRegister(trainStepsTotal, trainLoss, trainGradNorm, documentsTotal, sentencesEncodedTotal)
}

// observeStep records the outcome of one optimizer update.
func observeStep(l Losses, gradNorm float64) {
	trainStepsTotal.Inc()
	trainLoss.WithLabelValues("total").Set(l.Total())
	trainLoss.WithLabelValues("forward").Set(l.Forward)
	trainLoss.WithLabelValues("backward").Set(l.Backward)
	trainGradNorm.Set(gradNorm)
}

// serveMetrics exposes the default registry on addr in the background.
// The server lives for the rest of the process.
func serveMetrics(addr string, log *logrus.Entry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		log.WithField("addr", addr).Info("serving metrics")
		if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server stopped")
		}
	}()
}
