package server

import (
	"context"
	"net/http"
	"time"

	"github.com/kataras/iris/v12"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zerok-ai/zk-console-feed/config"
	"github.com/zerok-ai/zk-console-feed/handler"
	logger "github.com/zerok-ai/zk-utils-go/logs"
)

var httpServerLogTag = "httpServer"

type HTTPServer struct {
	app *iris.Application
}

func NewHTTPServer() *HTTPServer {
	return &HTTPServer{
		app: newApp(),
	}
}

func (s *HTTPServer) ConfigureRoutes(feedHandler *handler.FeedHandler, traceHandler *handler.TraceHandler) {
	s.app.Get("/metrics", iris.FromStd(promhttp.Handler()))
	s.app.Get("/debug/vars", iris.FromStd(http.DefaultServeMux))
	s.app.Get("/healthz", func(ctx iris.Context) {
		ctx.StatusCode(iris.StatusOK)
	})
	s.app.Get("/api/v1/feed/actions", feedHandler.GetActions)
	s.app.Get("/api/v1/feed/stream", iris.FromStd(http.HandlerFunc(feedHandler.ServeStream)))
	s.app.Get("/api/v1/traces", traceHandler.ListTraces)
	s.app.Get("/api/v1/traces/{traceId}", traceHandler.GetTrace)
}

func (s *HTTPServer) Run(cfg config.ConsoleFeedConfig) error {
	logger.Info(httpServerLogTag, "Starting console feed server on port ", cfg.Server.Port)
	srv := &http.Server{
		Addr:        ":" + cfg.Server.Port,
		ReadTimeout: 30 * time.Second,
		// WriteTimeout stays zero, stream responses are long-lived.
	}
	irisConfig := iris.WithConfiguration(iris.Configuration{
		DisablePathCorrection: true,
		LogLevel:              cfg.Logs.Level,
	})

	return s.app.Run(iris.Server(srv), irisConfig)
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func newApp() *iris.Application {
	app := iris.Default()

	crs := func(ctx iris.Context) {
		ctx.Header("Access-Control-Allow-Origin", "*")

		if ctx.Method() == iris.MethodOptions {
			ctx.Header("Access-Control-Allow-Methods", "GET, OPTIONS")

			ctx.Header("Access-Control-Allow-Headers",
				"Access-Control-Allow-Origin,Content-Type")

			ctx.Header("Access-Control-Max-Age",
				"86400")

			ctx.StatusCode(iris.StatusNoContent)
			return
		}

		ctx.Next()
	}
	app.UseRouter(crs)
	app.AllowMethods(iris.MethodOptions)

	return app
}
