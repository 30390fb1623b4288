package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/onemorebsmith/league-calc/src/model"
	"github.com/pkg/errors"
)

// Client talks to a bridge Server over HTTP.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient takes the server base url, e.g. http://localhost:2115. The http
// timeout leaves headroom over the server side wait.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		endpoint: strings.TrimRight(baseURL, "/") + "/rpc",
		http:     &http.Client{Timeout: timeout + 2*time.Second},
	}
}

func (c *Client) Call(ctx context.Context, typ RequestType) (*Response, error) {
	req := Request{ID: uuid.NewString(), Type: typ}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed encoding request")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed building request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, errors.Wrapf(err, "failed calling %s", c.endpoint)
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("bridge returned %d", httpResp.StatusCode)
	}
	resp := &Response{}
	if err := json.NewDecoder(httpResp.Body).Decode(resp); err != nil {
		return nil, errors.Wrap(err, "failed decoding response")
	}
	if resp.ID != req.ID {
		return nil, errors.Errorf("response id %s does not match request %s", resp.ID, req.ID)
	}
	return resp, nil
}

// LeagueData returns the snapshot for GET_LEAGUE_DATA, or FETCH_LEAGUE_DATA
// when force is set.
func (c *Client) LeagueData(ctx context.Context, force bool) (*model.LeagueSnapshot, error) {
	typ := GetLeagueData
	if force {
		typ = FetchLeagueData
	}
	resp, err := c.Call(ctx, typ)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		if resp.Message == msgTimeout {
			return nil, ErrTimeout
		}
		return nil, errors.New(resp.Message)
	}
	return resp.Data, nil
}
