package daemon

import (
	"context"
	"net/http"

	"github.com/onemorebsmith/league-calc/src/history"
	"github.com/onemorebsmith/league-calc/src/store"
	"github.com/pkg/errors"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func readyzMux(st store.Store, hist *history.History) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if p, ok := st.(pinger); ok {
			if err := p.Ping(r.Context()); err != nil {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(errors.Wrap(err, "failed pinging store").Error()))
				return
			}
		}
		if hist != nil {
			if err := hist.Ping(r.Context()); err != nil {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(err.Error()))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	return mux
}
