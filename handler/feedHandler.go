package handler

import (
	"fmt"
	"net/http"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/kataras/iris/v12"
	"github.com/zerok-ai/zk-console-feed/common"
	"github.com/zerok-ai/zk-console-feed/feed"
	"github.com/zerok-ai/zk-console-feed/model"
	"github.com/zerok-ai/zk-console-feed/stream"
	logger "github.com/zerok-ai/zk-utils-go/logs"
)

var feedLogTag = "FeedHandler"
var podIp = os.Getenv("POD_IP")
var jsonApi = jsoniter.ConfigCompatibleWithStandardLibrary

// streamHeartbeatInterval is the gap between keepalive comments written to
// downstream stream subscribers.
var streamHeartbeatInterval = 15 * time.Second

// FeedView is the merged action feed envelope served to the console.
type FeedView struct {
	Actions           []model.ActionEvent `json:"actions"`
	Status            model.StreamStatus  `json:"status"`
	ActiveSubscribers int                 `json:"active_subscribers"`
	FetchError        string              `json:"fetch_error,omitempty"`
}

type FeedHandler struct {
	reconciler *feed.FeedReconciler
	stream     *stream.StreamClient
}

func NewFeedHandler(reconciler *feed.FeedReconciler, streamClient *stream.StreamClient) *FeedHandler {
	return &FeedHandler{
		reconciler: reconciler,
		stream:     streamClient,
	}
}

// GetActions serves the merged live and polled action feed. The endpoint
// never fails: a degraded upstream is reported inside the envelope.
func (fh *FeedHandler) GetActions(ctx iris.Context) {
	ctx.StatusCode(iris.StatusOK)
	ctx.JSON(fh.buildActionsView())
}

func (fh *FeedHandler) buildActionsView() FeedView {
	view := FeedView{
		Actions:           fh.reconciler.Merged(),
		Status:            fh.stream.Status(),
		ActiveSubscribers: fh.stream.SubscriberCount(),
	}
	if err := fh.reconciler.LastError(); err != nil {
		view.FetchError = err.Error()
	}
	return view
}

// ServeStream re-broadcasts upstream action events to a console client over
// server-sent events. Kept on the stdlib handler signature so the response
// streams through iris untouched.
func (fh *FeedHandler) ServeStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	id, events := fh.stream.Subscribe()
	defer fh.stream.Unsubscribe(id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if _, err := fmt.Fprintf(w, "event: %s\ndata: {\"status\":%q}\n\n", common.StreamEventConnected, model.StreamConnected); err != nil {
		return
	}
	flusher.Flush()

	heartbeat := time.NewTicker(streamHeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, open := <-events:
			if !open {
				return
			}
			payload, err := jsonApi.Marshal(event)
			if err != nil {
				logger.Warn(feedLogTag, "Error while encoding action event for downstream ", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", common.StreamEventActionEvaluated, payload); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
