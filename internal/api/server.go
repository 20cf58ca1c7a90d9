// Package api is the JSON surface over the stores and the on-demand pipeline
// operations.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/jdholdren/quantumwatch/internal/audio"
	"github.com/jdholdren/quantumwatch/internal/pipeline"
	"github.com/jdholdren/quantumwatch/internal/quantumwatch"
	"github.com/jdholdren/quantumwatch/internal/serverutil"
)

type (
	// Pipeline is what the API asks of the pipeline.
	Pipeline interface {
		Run(ctx context.Context, stage string) ([]pipeline.Report, error)
		Refresh(ctx context.Context, feedID string) (int, error)
		SummarizeItem(ctx context.Context, itemID string) (quantumwatch.Summary, bool, error)
		SynthesizeItem(ctx context.Context, itemID string) (quantumwatch.Podcast, bool, error)
		NotifyItem(ctx context.Context, itemID string) (pipeline.Dispatched, error)
	}

	// Server serves the API and the podcast files.
	Server struct {
		*http.Server

		repo     quantumwatch.Repository
		pipeline Pipeline
		reader   pipeline.ArticleReader // nil disables the reader view
	}

	ServerConfig struct {
		Port       int
		CorsOrigin string
		AudioStore audio.Store
		// Generous enough for a manual stage run
		WriteTimeout time.Duration
	}
)

func NewServer(config ServerConfig, repo quantumwatch.Repository, p Pipeline, reader pipeline.ArticleReader) *Server {
	r := serverutil.ErrRouter{Router: mux.NewRouter()}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = 10 * time.Minute
	}

	srvr := Server{
		repo:     repo,
		pipeline: p,
		reader:   reader,
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%d", config.Port),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: config.WriteTimeout,
			Handler: handlers.CORS(
				handlers.AllowedOrigins([]string{config.CorsOrigin}),
				handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
				handlers.AllowedHeaders([]string{"content-type"}),
			)(r),
		},
	}

	r.Use(serverutil.AccessLogMiddleware) // Log everything

	// Feeds
	r.HandleFuncE("/api/feeds", srvr.getFeeds).Methods(http.MethodGet)
	r.HandleFuncE("/api/feeds", srvr.postFeeds).Methods(http.MethodPost)
	r.HandleFuncE("/api/feeds/{feedID}/active", srvr.postFeedActive).Methods(http.MethodPost)
	r.HandleFuncE("/api/feeds/{feedID}/refresh", srvr.postFeedRefresh).Methods(http.MethodPost)
	r.HandleFuncE("/api/feeds/{feedID}/items", srvr.getFeedItems).Methods(http.MethodGet)

	// Items
	r.HandleFuncE("/api/items", srvr.getItems).Methods(http.MethodGet)
	r.HandleFuncE("/api/items/{itemID}", srvr.getItem).Methods(http.MethodGet)
	r.HandleFuncE("/api/items/{itemID}/reader", srvr.getItemReader).Methods(http.MethodGet)
	r.HandleFuncE("/api/items/{itemID}/read", srvr.postItemRead).Methods(http.MethodPost)
	r.HandleFuncE("/api/items/{itemID}/bookmark", srvr.postItemBookmark).Methods(http.MethodPost)

	// On-demand pipeline work
	r.HandleFuncE("/api/items/{itemID}/summary", srvr.getItemSummary).Methods(http.MethodGet)
	r.HandleFuncE("/api/items/{itemID}/summary", srvr.postItemSummary).Methods(http.MethodPost)
	r.HandleFuncE("/api/items/{itemID}/podcast", srvr.getItemPodcast).Methods(http.MethodGet)
	r.HandleFuncE("/api/items/{itemID}/podcast", srvr.postItemPodcast).Methods(http.MethodPost)
	r.HandleFuncE("/api/items/{itemID}/telegram", srvr.postItemTelegram).Methods(http.MethodPost)
	r.HandleFuncE("/api/jobs/{stage}", srvr.postJob).Methods(http.MethodPost)

	// Podcast files
	prefix := "/" + strings.Trim(config.AudioStore.PublicPrefix, "/") + "/"
	r.PathPrefix(prefix).Methods(http.MethodGet, http.MethodHead).Handler(
		http.StripPrefix(prefix, http.FileServer(http.Dir(config.AudioStore.Root))),
	)

	slog.Debug("configured api server", "port", config.Port, "audio_prefix", prefix)

	return &srvr
}
