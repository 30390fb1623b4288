package pricefeed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/onemorebsmith/league-calc/src/model"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sasha-s/go-deadlock"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const DefaultBaseURL = "https://api.binance.com/api/v3"

var priceFetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "leaguecalc_price_fetch_failures",
	Help: "Ticker lookups that returned no price",
}, []string{"pair"})

var ErrNoPrice = errors.New("no price for pair")

type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger

	mtx  deadlock.RWMutex
	last model.PriceData
}

func NewClient(baseURL string, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  logger.Named("pricefeed"),
	}
}

// Last returns the most recent non-empty result.
func (c *Client) Last() model.PriceData {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return c.last
}

func (c *Client) fetchPair(ctx context.Context, pair string) (float64, error) {
	endpoint := fmt.Sprintf("%s/ticker/price?symbol=%s", c.baseURL, url.QueryEscape(pair))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, errors.Wrapf(err, "failed fetching %s", pair)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, errors.Wrapf(ErrNoPrice, "%s: status %d", pair, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, errors.Wrapf(err, "failed reading %s", pair)
	}
	price := gjson.GetBytes(body, "price")
	if !price.Exists() {
		return 0, errors.Wrapf(ErrNoPrice, "%s: missing price", pair)
	}
	d, err := decimal.NewFromString(price.String())
	if err != nil || !d.IsPositive() {
		return 0, errors.Wrapf(ErrNoPrice, "%s: bad price %q", pair, price.String())
	}
	f, _ := d.Float64()
	return f, nil
}

func (c *Client) tryPair(ctx context.Context, pair string) (float64, bool) {
	p, err := c.fetchPair(ctx, pair)
	if err != nil {
		priceFetchFailures.WithLabelValues(pair).Inc()
		c.logger.Debug("price lookup failed", zap.Error(err))
		return 0, false
	}
	return p, true
}

// priceFor tries the direct pair, then the USDT cross, then the alternate
// POL/MATIC ticker.
func (c *Client) priceFor(ctx context.Context, symbol string, fiat model.FiatCurrency, usdtRate float64) (float64, bool) {
	candidates := []string{symbol}
	if symbol == "POL" || symbol == "MATIC" {
		candidates = []string{"POL", "MATIC"}
	}
	for _, base := range candidates {
		if p, ok := c.tryPair(ctx, base+string(fiat)); ok {
			return p, true
		}
		if fiat != "USDT" {
			if p, ok := c.tryPair(ctx, base+"USDT"); ok {
				return p * usdtRate, true
			}
		}
	}
	return 0, false
}

// FetchPrices looks up every symbol in the given fiat. Pairs that cannot be
// priced are left out. When nothing could be priced the previous result for
// the same fiat is returned.
func (c *Client) FetchPrices(ctx context.Context, symbols []string, fiat model.FiatCurrency) model.PriceData {
	if !model.IsSupportedFiat(fiat) {
		fiat = "USDT"
	}
	usdtRate := 1.0
	if fiat != "USDT" {
		if r, ok := c.tryPair(ctx, "USDT"+string(fiat)); ok {
			usdtRate = r
		} else {
			c.logger.Warn("no USDT rate, using USDT prices", zap.String("fiat", string(fiat)))
		}
	}

	var mtx sync.Mutex
	var wg sync.WaitGroup
	prices := map[string]float64{}
	for _, s := range symbols {
		symbol := strings.ToUpper(s)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if p, ok := c.priceFor(ctx, symbol, fiat, usdtRate); ok {
				mtx.Lock()
				prices[symbol] = p
				mtx.Unlock()
			}
		}()
	}
	wg.Wait()

	result := model.PriceData{Prices: prices, Fiat: fiat, Timestamp: time.Now()}
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if len(prices) == 0 && len(symbols) > 0 {
		if c.last.Fiat == fiat && len(c.last.Prices) > 0 {
			c.logger.Warn("price fetch returned nothing, keeping cached prices")
			return c.last
		}
		return result
	}
	c.last = result
	return result
}
