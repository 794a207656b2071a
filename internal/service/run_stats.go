package service

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/gridcast/internal/metrics"
)

// Run kinds used for metrics labels.
const (
	KindPredict  = "predict"
	KindValidate = "validate"
	KindBacktest = "backtest"
)

// finishRun records the outcome of a run and refreshes the metrics textfile when configured.
func finishRun(log *logrus.Entry, kind string, started, finished time.Time, textfile string, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.RecordRun(kind, status, finished.Sub(started).Seconds(), float64(finished.Unix()))

	if textfile == "" {
		return
	}
	if werr := metrics.WriteTextfile(textfile); werr != nil {
		log.WithError(werr).WithField("path", textfile).Warn("Failed to write metrics textfile")
	}
}
