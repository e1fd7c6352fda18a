package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zerok-ai/zk-console-feed/client"
	"github.com/zerok-ai/zk-console-feed/config"
	"github.com/zerok-ai/zk-console-feed/feed"
	"github.com/zerok-ai/zk-console-feed/handler"
	"github.com/zerok-ai/zk-console-feed/server"
	"github.com/zerok-ai/zk-console-feed/stream"
	"github.com/zerok-ai/zk-console-feed/traces"
	"github.com/zerok-ai/zk-console-feed/utils"
	logger "github.com/zerok-ai/zk-utils-go/logs"
)

var LOG_TAG = "main"

func main() {
	configPath := flag.String("c", "config/config.yaml", "the path to the config file")
	flag.Parse()

	cfg, err := config.CreateConfig(*configPath)
	if err != nil {
		logger.Error(LOG_TAG, "Error while creating config:", err)
		os.Exit(1)
	}

	apiClient, err := client.NewGovernanceApiClient(cfg.Gateway)
	if err != nil {
		logger.Error(LOG_TAG, "Error while creating gateway client:", err)
		os.Exit(1)
	}

	streamClient := stream.NewStreamClient(cfg.Stream, apiClient)
	reconciler := feed.NewFeedReconciler(cfg.Feed, apiClient, streamClient)
	assembler := traces.NewAssembler(utils.MillisToDuration(cfg.Traces.DecisionLinkWindowMs))

	feedHandler := handler.NewFeedHandler(reconciler, streamClient)
	traceHandler := handler.NewTraceHandler(apiClient, assembler)

	streamClient.Connect()
	reconciler.Start()

	httpServer := server.NewHTTPServer()
	httpServer.ConfigureRoutes(feedHandler, traceHandler)

	go func() {
		if err := httpServer.Run(*cfg); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(LOG_TAG, "Error starting the server:", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info(LOG_TAG, "Shutting down console feed")
	streamClient.Disconnect()
	reconciler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error(LOG_TAG, "Error while shutting down the server:", err)
	}
}
