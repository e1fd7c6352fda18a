package stream

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zerok-ai/zk-console-feed/client"
	"github.com/zerok-ai/zk-console-feed/config"
	"github.com/zerok-ai/zk-console-feed/model"
)

func newGatewayClient(t *testing.T, baseUrl string) *client.GovernanceApiClient {
	t.Helper()
	c, err := client.NewGovernanceApiClient(config.GatewayConfig{
		BaseUrl:               baseUrl,
		AuthToken:             "secret",
		RequestTimeoutSeconds: 2,
		RetryAttempts:         1,
		RetryDelayMs:          1,
	})
	require.NoError(t, err)
	return c
}

func testStreamConfig() config.StreamConfig {
	return config.StreamConfig{
		Enabled:                  true,
		ReconnectDelayMs:         40,
		MaxBufferedEvents:        100,
		SubscriberRefreshSeconds: 30,
		DownstreamBufferSize:     8,
	}
}

func writeSSE(w http.ResponseWriter, frames string) {
	w.Header().Set("Content-Type", "text/event-stream")
	_, _ = io.WriteString(w, frames)
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

func actionFrame(tool string, timestamp float64) string {
	return fmt.Sprintf("event: action_evaluated\ndata: {\"tool\":%q,\"decision\":\"allow\",\"riskScore\":10,\"timestamp\":%v}\n\n", tool, timestamp)
}

func TestStreamBufferBoundedMostRecentFirst(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var frames strings.Builder
		frames.WriteString("event: connected\ndata: {}\n\n")
		for i := 1; i <= 5; i++ {
			frames.WriteString(actionFrame(fmt.Sprintf("tool-%d", i), float64(1000+i)))
		}
		writeSSE(w, frames.String())
		<-r.Context().Done()
	}))
	defer srv.Close()

	cfg := testStreamConfig()
	cfg.MaxBufferedEvents = 3
	sc := NewStreamClient(cfg, newGatewayClient(t, srv.URL))
	sc.Connect()
	defer sc.Disconnect()

	require.Eventually(t, func() bool {
		return len(sc.Events()) == 3
	}, 2*time.Second, 5*time.Millisecond)

	events := sc.Events()
	require.Len(t, events, 3)
	assert.Equal(t, "tool-5", events[0].Tool)
	assert.Equal(t, "tool-4", events[1].Tool)
	assert.Equal(t, "tool-3", events[2].Tool)
}

func TestStreamDropsMalformedEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		frames := "event: connected\ndata: {}\n\n" +
			actionFrame("ok-1", 1001) +
			"event: action_evaluated\ndata: {broken\n\n" +
			actionFrame("ok-2", 1002)
		writeSSE(w, frames)
		<-r.Context().Done()
	}))
	defer srv.Close()

	sc := NewStreamClient(testStreamConfig(), newGatewayClient(t, srv.URL))
	sc.Connect()
	defer sc.Disconnect()

	require.Eventually(t, func() bool {
		return len(sc.Events()) == 2
	}, 2*time.Second, 5*time.Millisecond)

	events := sc.Events()
	assert.Equal(t, "ok-2", events[0].Tool)
	assert.Equal(t, "ok-1", events[1].Tool)
}

func TestStreamSendsTokenAsQueryParam(t *testing.T) {
	var gotToken atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken.Store(r.URL.Query().Get("token"))
		writeSSE(w, "event: connected\ndata: {}\n\n")
		<-r.Context().Done()
	}))
	defer srv.Close()

	sc := NewStreamClient(testStreamConfig(), newGatewayClient(t, srv.URL))
	sc.Connect()
	defer sc.Disconnect()

	require.Eventually(t, func() bool {
		return sc.Status() == model.StreamConnected
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "secret", gotToken.Load())
}

func TestStreamReconnectsAfterFixedDelay(t *testing.T) {
	var mu sync.Mutex
	var attempts []time.Time
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts = append(attempts, time.Now())
		mu.Unlock()
		//handshake, then drop the stream right away
		writeSSE(w, "event: connected\ndata: {}\n\n")
	}))
	defer srv.Close()

	cfg := testStreamConfig()
	cfg.ReconnectDelayMs = 60
	sc := NewStreamClient(cfg, newGatewayClient(t, srv.URL))
	sc.Connect()
	defer sc.Disconnect()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(attempts) >= 4
	}, 3*time.Second, 5*time.Millisecond)

	mu.Lock()
	spaced := append([]time.Time(nil), attempts[:4]...)
	mu.Unlock()
	for i := 1; i < len(spaced); i++ {
		assert.GreaterOrEqual(t, spaced[i].Sub(spaced[i-1]), 60*time.Millisecond,
			"reconnect %d arrived before the fixed delay", i)
	}
}

func TestStreamStatusErrorBeforeHandshake(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testStreamConfig()
	cfg.ReconnectDelayMs = 500
	sc := NewStreamClient(cfg, newGatewayClient(t, srv.URL))
	sc.Connect()
	defer sc.Disconnect()

	require.Eventually(t, func() bool {
		return sc.Status() == model.StreamError
	}, 2*time.Second, 2*time.Millisecond)
}

func TestStreamStatusDisconnectedAfterHandshakeDrop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeSSE(w, "event: connected\ndata: {}\n\n")
	}))
	defer srv.Close()

	cfg := testStreamConfig()
	cfg.ReconnectDelayMs = 500
	sc := NewStreamClient(cfg, newGatewayClient(t, srv.URL))
	sc.Connect()
	defer sc.Disconnect()

	require.Eventually(t, func() bool {
		return sc.Status() == model.StreamDisconnected
	}, 2*time.Second, 2*time.Millisecond)
}

func TestDisconnectStopsReconnectsAndFreezesStatus(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testStreamConfig()
	cfg.ReconnectDelayMs = 30
	sc := NewStreamClient(cfg, newGatewayClient(t, srv.URL))
	sc.Connect()

	require.Eventually(t, func() bool {
		return attempts.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)

	sc.Disconnect()
	assert.Equal(t, model.StreamDisconnected, sc.Status())

	settled := attempts.Load()
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, settled, attempts.Load())
	assert.Equal(t, model.StreamDisconnected, sc.Status())

	//idempotent
	sc.Disconnect()

	//a fresh Connect starts a new subscription
	sc.Connect()
	require.Eventually(t, func() bool {
		return attempts.Load() > settled
	}, 2*time.Second, 5*time.Millisecond)
	sc.Disconnect()
}

func TestConnectIsIdempotent(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		writeSSE(w, "event: connected\ndata: {}\n\n")
		<-r.Context().Done()
	}))
	defer srv.Close()

	sc := NewStreamClient(testStreamConfig(), newGatewayClient(t, srv.URL))
	sc.Connect()
	defer sc.Disconnect()

	require.Eventually(t, func() bool {
		return sc.Status() == model.StreamConnected
	}, 2*time.Second, 5*time.Millisecond)

	sc.Connect()
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestStreamDisabledNeverConnects(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
	}))
	defer srv.Close()

	cfg := testStreamConfig()
	cfg.Enabled = false
	sc := NewStreamClient(cfg, newGatewayClient(t, srv.URL))
	sc.Connect()
	time.Sleep(80 * time.Millisecond)

	assert.Equal(t, int32(0), attempts.Load())
	assert.Equal(t, model.StreamDisconnected, sc.Status())
	sc.Disconnect()
}

func TestStreamFansOutToSubscribersAndClosesOnDisconnect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeSSE(w, "event: connected\ndata: {}\n\n"+actionFrame("shell", 1000.2))
		<-r.Context().Done()
	}))
	defer srv.Close()

	sc := NewStreamClient(testStreamConfig(), newGatewayClient(t, srv.URL))
	_, ch := sc.Subscribe()
	sc.Connect()

	select {
	case event := <-ch:
		assert.Equal(t, "shell", event.Tool)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fanned-out event")
	}

	sc.Disconnect()
	select {
	case _, open := <-ch:
		assert.False(t, open)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber channel not closed on disconnect")
	}
}

func TestSubscriberCountRefreshWhileConnected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/api/v1/stream/status"):
			_, _ = w.Write([]byte(`{"active_subscribers":5}`))
		default:
			writeSSE(w, "event: connected\ndata: {}\n\n")
			<-r.Context().Done()
		}
	}))
	defer srv.Close()

	cfg := testStreamConfig()
	cfg.SubscriberRefreshSeconds = 1
	sc := NewStreamClient(cfg, newGatewayClient(t, srv.URL))
	sc.Connect()
	defer sc.Disconnect()

	require.Eventually(t, func() bool {
		return sc.SubscriberCount() == 5
	}, 3*time.Second, 20*time.Millisecond)
}
