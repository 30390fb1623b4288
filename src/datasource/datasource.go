package datasource

import (
	"context"
	"sync"

	"github.com/onemorebsmith/league-calc/src/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Sink receives every validated event a source produces.
type Sink func(events.Event)

// DataSource is anything that yields league events until ctx is cancelled.
type DataSource interface {
	Name() string
	Run(ctx context.Context, sink Sink) error
}

var sourceFrames = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "leaguecalc_source_frames",
	Help: "Frames read by data sources, by result",
}, []string{"source", "result"})

func recordFrame(source, result string) {
	sourceFrames.WithLabelValues(source, result).Inc()
}

// RunAll runs every source concurrently and blocks until all of them exit.
func RunAll(ctx context.Context, logger *zap.Logger, sink Sink, sources ...DataSource) {
	var wg sync.WaitGroup
	for _, src := range sources {
		wg.Add(1)
		go func(src DataSource) {
			defer wg.Done()
			logger.Info("starting data source", zap.String("source", src.Name()))
			if err := src.Run(ctx, sink); err != nil {
				logger.Error("data source exited", zap.String("source", src.Name()), zap.Error(err))
			}
		}(src)
	}
	wg.Wait()
}
