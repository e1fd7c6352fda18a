package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TotalStreamEventsReceived is the total number of decoded action events received on the upstream stream.
	TotalStreamEventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zerok_console_feed_stream_events_received_total",
		Help: "total action events decoded from the upstream stream.",
	},
		[]string{"podIp"})

	// TotalStreamEventsDropped is the total number of malformed stream payloads dropped.
	TotalStreamEventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zerok_console_feed_stream_events_dropped_total",
		Help: "total malformed stream payloads dropped.",
	},
		[]string{"podIp"})

	// TotalStreamReconnects is the total number of reconnect attempts scheduled for the upstream stream.
	TotalStreamReconnects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zerok_console_feed_stream_reconnects_total",
		Help: "total reconnect attempts scheduled for the upstream stream.",
	},
		[]string{"podIp"})

	// StreamConnected is 1 while the upstream stream is past the server handshake.
	StreamConnected = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "zerok_console_feed_stream_connected",
		Help: "whether the upstream stream is connected.",
	},
		[]string{"podIp"})

	// UpstreamSubscribers is the subscriber count last reported by the gateway.
	UpstreamSubscribers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "zerok_console_feed_upstream_subscribers",
		Help: "active subscribers last reported by the gateway stream status endpoint.",
	},
		[]string{"podIp"})

	// TotalFeedPolls is the total number of historical snapshot polls.
	TotalFeedPolls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zerok_console_feed_snapshot_polls_total",
		Help: "total historical snapshot polls against the gateway.",
	},
		[]string{"podIp"})

	// TotalFeedPollErrors is the total number of failed historical snapshot polls.
	TotalFeedPollErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zerok_console_feed_snapshot_poll_errors_total",
		Help: "total failed historical snapshot polls.",
	},
		[]string{"podIp"})

	// TotalTraceFetches is the total number of trace detail fetches served.
	TotalTraceFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zerok_console_feed_trace_fetches_total",
		Help: "total trace detail fetches served to the console.",
	},
		[]string{"podIp"})

	// TotalTraceFetchErrors is the total number of trace detail fetches that failed upstream.
	TotalTraceFetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zerok_console_feed_trace_fetch_errors_total",
		Help: "total trace detail fetches that failed upstream.",
	},
		[]string{"podIp"})

	// TotalDownstreamEventsDropped is the total number of events dropped on slow console subscribers.
	TotalDownstreamEventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zerok_console_feed_downstream_events_dropped_total",
		Help: "total events dropped on slow console stream subscribers.",
	},
		[]string{"podIp"})
)
