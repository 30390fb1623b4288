package common

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func StartPromServer(logger *zap.Logger, port string) {
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info("hosting prom stats on " + port + "/metrics")
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("error serving prom metrics", zap.Error(err))
		}
	}()
}
