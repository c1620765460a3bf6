package meter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchSuccess(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"voltage": 230.4, "current": 4.35, "power_active": 1001.2}`)
	c := NewClient(srv.URL, 2*time.Second)

	s, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 230.4, s.Voltage)
	assert.Equal(t, 4.35, s.Current)
	assert.Equal(t, 1001.2, s.ActivePower)
	assert.Equal(t, 0, c.ConsecutiveFailures())

	_, ok := c.LastFetch()
	assert.True(t, ok)
}

func TestFetchZeroReadingsAreValid(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"voltage": 0, "current": 0, "power_active": 0}`)
	c := NewClient(srv.URL, 2*time.Second)

	s, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.0, s.ActivePower)
}

func TestFetchFailureClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   FailureKind
	}{
		{"server error", http.StatusInternalServerError, "boom", FailHTTPStatus},
		{"not found", http.StatusNotFound, "", FailHTTPStatus},
		{"broken json", http.StatusOK, `{"voltage": 230.4, "curr`, FailMalformed},
		{"not an object", http.StatusOK, `[1, 2, 3]`, FailMalformed},
		{"missing power key", http.StatusOK, `{"voltage": 230.4, "current": 4.35}`, FailMissingField},
		{"missing all keys", http.StatusOK, `{}`, FailMissingField},
		{"voltage too high", http.StatusOK, `{"voltage": 600, "current": 4.35, "power_active": 1001}`, FailOutOfRange},
		{"negative current", http.StatusOK, `{"voltage": 230, "current": -1, "power_active": 1001}`, FailOutOfRange},
		{"power too high", http.StatusOK, `{"voltage": 230, "current": 4, "power_active": 50001}`, FailOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serve(t, tt.status, tt.body)
			c := NewClient(srv.URL, 2*time.Second)

			_, err := c.Fetch(context.Background())
			require.Error(t, err)

			var fe *FetchError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.want, fe.Kind)
			assert.Equal(t, 1, c.ConsecutiveFailures(), "each failed fetch counts exactly once")
		})
	}
}

func TestFetchTransportError(t *testing.T) {
	// Port from a closed listener: connection refused.
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, time.Second)
	_, err := c.Fetch(context.Background())
	require.Error(t, err)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, FailTransport, fe.Kind)
}

func TestConsecutiveFailureCounting(t *testing.T) {
	srv := serve(t, http.StatusBadGateway, "")
	c := NewClient(srv.URL, time.Second)

	for i := 1; i <= 3; i++ {
		_, err := c.Fetch(context.Background())
		require.Error(t, err)
		assert.Equal(t, i, c.ConsecutiveFailures())
	}

	c.ResetFailures()
	assert.Equal(t, 0, c.ConsecutiveFailures())
}

func TestSuccessResetsFailureCounter(t *testing.T) {
	fail := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"voltage": 230, "current": 1, "power_active": 230}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, time.Second)
	_, err := c.Fetch(context.Background())
	require.Error(t, err)
	require.Equal(t, 1, c.ConsecutiveFailures())

	fail = false
	_, err = c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, c.ConsecutiveFailures())
}

func TestValidateBounds(t *testing.T) {
	assert.NoError(t, validate(Sample{Voltage: 500, Current: 100, ActivePower: 50000}))
	assert.Error(t, validate(Sample{Voltage: 500.1}))
	assert.Error(t, validate(Sample{Current: 100.1}))
	assert.Error(t, validate(Sample{ActivePower: 50000.1}))
	assert.NoError(t, validate(Sample{}))
}
