package stream

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/zerok-ai/zk-console-feed/client"
	"github.com/zerok-ai/zk-console-feed/common"
	"github.com/zerok-ai/zk-console-feed/config"
	"github.com/zerok-ai/zk-console-feed/metrics"
	"github.com/zerok-ai/zk-console-feed/model"
	logger "github.com/zerok-ai/zk-utils-go/logs"
)

var streamClientLogTag = "StreamClient"

var jsonApi = jsoniter.ConfigCompatibleWithStandardLibrary

// StreamClient owns the single push subscription to the gateway's decision
// stream. It keeps a bounded most-recent-first buffer of decoded events,
// tracks connection status, republishes events to console subscribers, and
// refreshes the upstream subscriber count while connected. A dropped stream
// reconnects after a fixed delay, indefinitely, until Disconnect.
type StreamClient struct {
	apiClient       *client.GovernanceApiClient
	enabled         bool
	reconnectDelay  time.Duration
	maxBuffered     int
	refreshInterval time.Duration

	//no client timeout: the stream stays open until it drops or is cancelled
	httpClient  *http.Client
	broadcaster *broadcaster

	mutex           sync.RWMutex
	status          model.StreamStatus
	events          []model.ActionEvent
	subscriberCount int
	running         bool
	cancel          context.CancelFunc
	//one WaitGroup per subscription, so a Connect racing a slow Disconnect
	//never reuses a WaitGroup mid-Wait
	wg *sync.WaitGroup
}

func NewStreamClient(cfg config.StreamConfig, apiClient *client.GovernanceApiClient) *StreamClient {
	maxBuffered := cfg.MaxBufferedEvents
	if maxBuffered < 1 {
		maxBuffered = 1
	}
	refreshSeconds := cfg.SubscriberRefreshSeconds
	if refreshSeconds < 1 {
		//NewTicker panics on a non-positive interval
		refreshSeconds = 30
	}
	return &StreamClient{
		apiClient:       apiClient,
		enabled:         cfg.Enabled,
		reconnectDelay:  time.Duration(cfg.ReconnectDelayMs) * time.Millisecond,
		maxBuffered:     maxBuffered,
		refreshInterval: time.Duration(refreshSeconds) * time.Second,
		httpClient:      &http.Client{},
		broadcaster:     newBroadcaster(cfg.DownstreamBufferSize),
		status:          model.StreamDisconnected,
	}
}

// Connect starts the subscription. It is a no-op while a subscription is
// already active or when the stream is disabled in config.
func (sc *StreamClient) Connect() {
	sc.mutex.Lock()
	if sc.running || !sc.enabled {
		sc.mutex.Unlock()
		return
	}
	sc.running = true
	ctx, cancel := context.WithCancel(context.Background())
	sc.cancel = cancel
	wg := &sync.WaitGroup{}
	wg.Add(2)
	sc.wg = wg
	sc.mutex.Unlock()

	go sc.runLoop(ctx, wg)
	go sc.refreshLoop(ctx, wg)
}

// Disconnect cancels the pending reconnect timer and the in-flight transport,
// waits for both loops to exit, then ends every console subscription. No
// goroutine or timer survives it. Idempotent.
func (sc *StreamClient) Disconnect() {
	sc.mutex.Lock()
	if !sc.running {
		sc.mutex.Unlock()
		return
	}
	sc.running = false
	cancel := sc.cancel
	wg := sc.wg
	sc.cancel = nil
	sc.wg = nil
	sc.mutex.Unlock()

	cancel()
	wg.Wait()
	sc.broadcaster.CloseAll()
	sc.setStatus(model.StreamDisconnected)
	logger.Info(streamClientLogTag, "Stream disconnected.")
}

func (sc *StreamClient) Status() model.StreamStatus {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()
	return sc.status
}

// Events returns a snapshot of the live buffer, most-recent-first.
func (sc *StreamClient) Events() []model.ActionEvent {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()
	snapshot := make([]model.ActionEvent, len(sc.events))
	copy(snapshot, sc.events)
	return snapshot
}

func (sc *StreamClient) SubscriberCount() int {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()
	return sc.subscriberCount
}

// Subscribe attaches a console subscriber to the live event fan-out.
func (sc *StreamClient) Subscribe() (string, <-chan model.ActionEvent) {
	return sc.broadcaster.Subscribe()
}

func (sc *StreamClient) Unsubscribe(id string) {
	sc.broadcaster.Unsubscribe(id)
}

func (sc *StreamClient) runLoop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		sc.setStatus(model.StreamConnecting)
		handshaken, err := sc.consumeStream(ctx)
		if ctx.Err() != nil {
			return
		}
		if handshaken {
			sc.setStatus(model.StreamDisconnected)
			logger.Warn(streamClientLogTag, "Stream dropped: ", err)
		} else {
			sc.setStatus(model.StreamError)
			logger.Warn(streamClientLogTag, "Stream connect failed: ", err)
		}
		metrics.TotalStreamReconnects.WithLabelValues(podIp).Inc()

		timer := time.NewTimer(sc.reconnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// consumeStream opens the transport and reads frames until the stream ends.
// handshaken reports whether the server's connected event arrived before the
// stream ended.
func (sc *StreamClient) consumeStream(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sc.apiClient.StreamURL(), nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := sc.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("stream endpoint returned status %d", resp.StatusCode)
	}

	scanner := newSSEScanner(resp.Body)
	handshaken := false
	for {
		event, err := scanner.Next()
		if err != nil {
			return handshaken, err
		}
		switch event.name {
		case common.StreamEventConnected:
			handshaken = true
			sc.setStatus(model.StreamConnected)
			logger.Info(streamClientLogTag, "Stream connected to governance gateway.")
		case common.StreamEventActionEvaluated:
			sc.handleActionEvent(event.data)
		default:
			logger.Debug(streamClientLogTag, "Ignoring stream event: ", event.name)
		}
	}
}

func (sc *StreamClient) handleActionEvent(data []byte) {
	var event model.ActionEvent
	if err := jsonApi.Unmarshal(data, &event); err != nil {
		metrics.TotalStreamEventsDropped.WithLabelValues(podIp).Inc()
		logger.Warn(streamClientLogTag, "Dropping malformed action event: ", err)
		return
	}
	sc.mutex.Lock()
	sc.events = append([]model.ActionEvent{event}, sc.events...)
	if len(sc.events) > sc.maxBuffered {
		sc.events = sc.events[:sc.maxBuffered]
	}
	sc.mutex.Unlock()
	metrics.TotalStreamEventsReceived.WithLabelValues(podIp).Inc()
	sc.broadcaster.Publish(event)
}

// refreshLoop polls the gateway's subscriber count while connected. Failures
// only leave the count stale.
func (sc *StreamClient) refreshLoop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	ticker := time.NewTicker(sc.refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if sc.Status() != model.StreamConnected {
				continue
			}
			stats, err := sc.apiClient.FetchStreamStats(ctx)
			if err != nil {
				logger.Debug(streamClientLogTag, "Subscriber count refresh failed: ", err)
				continue
			}
			sc.mutex.Lock()
			sc.subscriberCount = stats.ActiveSubscribers
			sc.mutex.Unlock()
			metrics.UpstreamSubscribers.WithLabelValues(podIp).Set(float64(stats.ActiveSubscribers))
		}
	}
}

func (sc *StreamClient) setStatus(status model.StreamStatus) {
	sc.mutex.Lock()
	sc.status = status
	sc.mutex.Unlock()
	if status == model.StreamConnected {
		metrics.StreamConnected.WithLabelValues(podIp).Set(1)
	} else {
		metrics.StreamConnected.WithLabelValues(podIp).Set(0)
	}
}
