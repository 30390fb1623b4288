package history

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/onemorebsmith/league-calc/src/model"
	"github.com/onemorebsmith/league-calc/src/store"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var ErrNoHistory = errors.New("no snapshot history")

func (h *History) Put(ctx context.Context, snap *model.LeagueSnapshot) error {
	encoded, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "failed to marshal snapshot")
	}
	return h.DoQuery(ctx, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx,
			`INSERT into league_snapshots(taken_at, league_id, currently_mining, rows, snapshot)
				VALUES ($1, $2, $3, $4, $5)`,
			snap.Timestamp.UTC(), snap.LeagueID, snap.CurrentlyMiningCurrency, len(snap.Currencies), string(encoded))
		if err != nil {
			return errors.Wrap(err, "failed to record snapshot to database")
		}
		return nil
	})
}

func (h *History) Latest(ctx context.Context) (*model.LeagueSnapshot, error) {
	var snap *model.LeagueSnapshot
	err := h.DoQuery(ctx, func(conn *pgx.Conn) error {
		var data string
		err := conn.QueryRow(ctx,
			`SELECT snapshot::text FROM league_snapshots ORDER BY id DESC LIMIT 1`).Scan(&data)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNoHistory
		}
		if err != nil {
			return errors.Wrap(err, "failed to fetch latest snapshot")
		}
		snap = &model.LeagueSnapshot{}
		return errors.Wrap(json.Unmarshal([]byte(data), snap), "failed unmarshalling snapshot")
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Count reports how many snapshots are retained.
func (h *History) Count(ctx context.Context) (int64, error) {
	var count int64
	err := h.DoQuery(ctx, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx, `SELECT COUNT(*) FROM league_snapshots`).Scan(&count)
	})
	return count, err
}

// SeedStore copies the latest snapshot into an empty store. It reports
// whether anything was written.
func (h *History) SeedStore(ctx context.Context, st store.Store) (bool, error) {
	existing := &model.LeagueSnapshot{}
	err := st.Get(ctx, store.KeyLeagueData, existing)
	if err == nil && !existing.Empty() {
		return false, nil
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return false, err
	}
	latest, err := h.Latest(ctx)
	if errors.Is(err, ErrNoHistory) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := st.Set(ctx, store.KeyLeagueData, latest); err != nil {
		return false, errors.Wrap(err, "failed seeding store")
	}
	h.logger.Info("seeded store from history",
		zap.Time("taken_at", latest.Timestamp), zap.Int("rows", len(latest.Currencies)))
	return true, nil
}
