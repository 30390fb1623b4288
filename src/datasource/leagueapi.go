package datasource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/onemorebsmith/league-calc/src/events"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const DefaultLeagueAPIBase = "https://rollercoin.com/api"

const (
	pathUserProfile  = "/profile/user-profile-data"
	pathUserPower    = "/profile/user-power-data"
	pathLeaguePower  = "/league/league-power-distribution-info"
	pathUserSettings = "/league/user-settings"
)

var ErrAPIFailed = errors.New("league api request failed")

// LeagueAPISource polls the authenticated league REST endpoints:
// profile (league id), user power, league power distribution, user settings.
type LeagueAPISource struct {
	base      string
	authToken string
	csrfToken string
	interval  time.Duration
	http      *http.Client
	logger    *zap.Logger
	refresh   chan struct{}
}

func NewLeagueAPISource(base, authToken, csrfToken string, interval time.Duration, logger *zap.Logger) *LeagueAPISource {
	if base == "" {
		base = DefaultLeagueAPIBase
	}
	return &LeagueAPISource{
		base:      strings.TrimRight(base, "/"),
		authToken: authToken,
		csrfToken: csrfToken,
		interval:  interval,
		http:      &http.Client{Timeout: 15 * time.Second},
		logger:    logger.Named("league_api"),
		refresh:   make(chan struct{}, 1),
	}
}

func (l *LeagueAPISource) Name() string { return "league_api" }

// Refresh asks the running source for an immediate pull. Requests made while
// one is already pending collapse into it.
func (l *LeagueAPISource) Refresh(ctx context.Context) error {
	select {
	case l.refresh <- struct{}{}:
	default:
	}
	return ctx.Err()
}

func (l *LeagueAPISource) Run(ctx context.Context, sink Sink) error {
	var tick <-chan time.Time
	if l.interval > 0 {
		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()
		tick = ticker.C
	}
	l.pullAndLog(ctx, sink)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			l.pullAndLog(ctx, sink)
		case <-l.refresh:
			l.pullAndLog(ctx, sink)
		}
	}
}

func (l *LeagueAPISource) pullAndLog(ctx context.Context, sink Sink) {
	if err := l.Pull(ctx, sink); err != nil && ctx.Err() == nil {
		l.logger.Warn("league api pull failed", zap.Error(err))
	}
}

// Pull runs the request chain once. The profile and league distribution
// calls are required; user power and user settings are best effort.
func (l *LeagueAPISource) Pull(ctx context.Context, sink Sink) error {
	profile, err := l.get(ctx, pathUserProfile, nil)
	if err != nil {
		return err
	}
	leagueID := profile.Get("data.leagues_ids.0")
	if !leagueID.Exists() || leagueID.String() == "" {
		return errors.Wrap(ErrAPIFailed, "profile has no league id")
	}
	query := url.Values{"league_id": []string{leagueID.String()}}

	var emitted []events.Event
	if power, err := l.get(ctx, pathUserPower, nil); err != nil {
		l.logger.Debug("user power unavailable", zap.Error(err))
	} else if cur := power.Get("data.current_power"); cur.Exists() {
		ev, err := events.DecodePayload(events.KindPower, gjson.Parse(fmt.Sprintf(`{"total":%s}`, cur.Raw)))
		if err == nil {
			emitted = append(emitted, ev)
		}
	}

	league, err := l.get(ctx, pathLeaguePower, query)
	if err != nil {
		return err
	}
	ev, err := events.DecodePayload(events.KindGlobalSettings, league.Get("data"))
	if err != nil {
		return errors.Wrap(err, "league power distribution")
	}
	settings := ev.(events.GlobalSettingsEvent)
	for i := range settings.Settings {
		if settings.Settings[i].LeagueID == "" {
			settings.Settings[i].LeagueID = leagueID.String()
		}
	}
	emitted = append(emitted, settings)

	if us, err := l.get(ctx, pathUserSettings, query); err != nil {
		l.logger.Debug("user settings unavailable", zap.Error(err))
	} else if ev, err := events.DecodePayload(events.KindUserSettings, us); err == nil {
		alloc := ev.(events.UserSettingsEvent)
		for _, entry := range alloc.Allocation {
			if entry.Percent > 0 {
				alloc.Marker = entry.CurrencyKey
				break
			}
		}
		emitted = append(emitted, alloc)
	}

	for _, ev := range emitted {
		recordFrame(l.Name(), "ok")
		sink(ev)
	}
	return nil
}

func (l *LeagueAPISource) get(ctx context.Context, path string, query url.Values) (gjson.Result, error) {
	endpoint := l.base + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return gjson.Result{}, errors.Wrapf(err, "failed building request for %s", path)
	}
	req.Header.Set("Accept", "application/json")
	if l.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+l.authToken)
	}
	if l.csrfToken != "" {
		req.Header.Set("csrf-token", l.csrfToken)
	}
	resp, err := l.http.Do(req)
	if err != nil {
		return gjson.Result{}, errors.Wrapf(err, "failed calling %s", path)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		recordFrame(l.Name(), "dropped")
		return gjson.Result{}, errors.Wrapf(ErrAPIFailed, "%s returned %d", path, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return gjson.Result{}, errors.Wrapf(err, "failed reading %s", path)
	}
	if !gjson.ValidBytes(body) {
		recordFrame(l.Name(), "dropped")
		return gjson.Result{}, errors.Wrapf(events.ErrMalformedEvent, "%s returned invalid json", path)
	}
	parsed := gjson.ParseBytes(body)
	if !parsed.Get("success").Bool() || !parsed.Get("data").Exists() {
		recordFrame(l.Name(), "dropped")
		return gjson.Result{}, errors.Wrapf(ErrAPIFailed, "%s: %s", path, parsed.Get("error").String())
	}
	return parsed, nil
}
