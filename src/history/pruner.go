package history

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func (h *History) StartPruner(ctx context.Context, delay time.Duration, keep int64) error {
	ticker := time.NewTicker(delay)
	defer ticker.Stop()
	logger := h.logger.Named("pruner")
	for {
		select {
		case <-ticker.C:
			if err := h.Prune(ctx, keep); err != nil {
				logger.Error("prune failed", zap.Error(err))
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Prune keeps the newest `keep` snapshots.
func (h *History) Prune(ctx context.Context, keep int64) error {
	if keep <= 0 {
		return nil
	}
	return errors.Wrap(h.DoExec(ctx, `DELETE FROM league_snapshots WHERE id <
			(SELECT MIN(id) FROM
				(SELECT s.id FROM league_snapshots s ORDER BY id DESC LIMIT $1) as raw)`, keep),
		"failed pruning snapshots")
}
