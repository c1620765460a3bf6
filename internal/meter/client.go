package meter

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Client polls the meter endpoint. Every request carries the configured
// timeout; a request that times out is reported as a transport failure and
// is never retried within the same call.
type Client struct {
	url  string
	http *http.Client

	consecutiveFailures int
	lastFetch           time.Time
	lastOK              bool
}

// NewClient returns a client for the given endpoint URL.
func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		url:  url,
		http: &http.Client{Timeout: timeout},
	}
}

// payload mirrors the meter's JSON document. Pointer fields distinguish a
// missing key from a legitimate zero reading.
type payload struct {
	Voltage     *float64 `json:"voltage"`
	Current     *float64 `json:"current"`
	ActivePower *float64 `json:"power_active"`
}

// Fetch requests one sample. On any failure the consecutive-failure counter
// is incremented and a classified *FetchError is returned.
func (c *Client) Fetch(ctx context.Context) (Sample, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Sample{}, c.fail(failf(FailTransport, "building request: %v", err))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Sample{}, c.fail(failf(FailTransport, "%v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return Sample{}, c.fail(failf(FailHTTPStatus, "unexpected status %d", resp.StatusCode))
	}

	var p payload
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return Sample{}, c.fail(failf(FailMalformed, "decoding payload: %v", err))
	}
	if p.Voltage == nil || p.Current == nil || p.ActivePower == nil {
		return Sample{}, c.fail(failf(FailMissingField, "payload missing voltage/current/power_active"))
	}

	s := Sample{Voltage: *p.Voltage, Current: *p.Current, ActivePower: *p.ActivePower}
	if err := validate(s); err != nil {
		return Sample{}, c.fail(err.(*FetchError))
	}

	c.consecutiveFailures = 0
	c.lastFetch = time.Now()
	c.lastOK = true
	log.Debug().
		Float64("voltage", s.Voltage).
		Float64("current", s.Current).
		Float64("power", s.ActivePower).
		Msg("sample received")
	return s, nil
}

func (c *Client) fail(err *FetchError) error {
	c.consecutiveFailures++
	c.lastOK = false
	return err
}

// ConsecutiveFailures returns the number of failed fetches since the last
// good sample.
func (c *Client) ConsecutiveFailures() int { return c.consecutiveFailures }

// ResetFailures clears the failure counter, e.g. after a reconnect.
func (c *Client) ResetFailures() { c.consecutiveFailures = 0 }

// LastFetch reports when the last good sample arrived and whether the most
// recent attempt succeeded.
func (c *Client) LastFetch() (time.Time, bool) { return c.lastFetch, c.lastOK }
