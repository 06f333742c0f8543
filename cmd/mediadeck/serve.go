package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mediadeck/api"
	"mediadeck/config"
	"mediadeck/handlers"
	"mediadeck/internal/storage"
	"mediadeck/services/banner"
	"mediadeck/services/danmaku"
	"mediadeck/services/metadata"
	"mediadeck/utils"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, settings, err := loadConfig()
			if err != nil {
				return err
			}
			closeLog := setupLogOutput(settings.Log)
			defer closeLog()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := newApp(ctx, manager)
			if err != nil {
				return err
			}
			defer app.Close()
			manager.Watch()

			server := &http.Server{
				Addr:              net.JoinHostPort(settings.Server.Host, strconv.Itoa(settings.Server.Port)),
				Handler:           app.Handler,
				ReadHeaderTimeout: 10 * time.Second,
			}
			errc := make(chan error, 1)
			go func() {
				log.Printf("[server] listening on %s (banner source %s)", server.Addr, manager.BannerSource())
				errc <- server.ListenAndServe()
			}()

			select {
			case err := <-errc:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("server.ListenAndServe() > %w", err)
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			log.Printf("[server] shutting down")
			return server.Shutdown(shutdownCtx)
		},
	}
}

// app is the assembled HTTP surface with the resources that need closing.
type app struct {
	Handler http.Handler
	Banner  *banner.Service
	closers []func() error
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			log.Printf("[server] close: %v", err)
		}
	}
}

// newApp wires services, handlers and middleware from the current settings.
// Background janitors stop with ctx. Config reloads swap the metadata client
// and drop cached banners.
func newApp(ctx context.Context, manager *config.Manager) (*app, error) {
	settings := manager.Get()

	tmdb, err := metadata.NewTMDBClient(settings.TMDB.APIKey, settings.TMDB.Language, settings.TMDB.Proxy)
	if err != nil {
		return nil, fmt.Errorf("metadata.NewTMDBClient() > %w", err)
	}
	portal := banner.NewPortalClient()
	bannerService := banner.NewService(tmdb, portal, banner.NewCache(settings.Banner.CacheTTL, nil), manager)

	danmakuClient := danmaku.NewClient(settings.Danmaku.APIBase, settings.Danmaku.Token, settings.Danmaku.Timeout, settings.Danmaku.RetryAttempts)
	danmakuService := danmaku.NewService(danmakuClient)

	sessions := storage.NewSessionRegistry(settings.Storage.SessionIdle, settings.Storage.SessionQuota, settings.Storage.MaxSessions)
	go sessions.Janitor(ctx, 10*time.Minute)

	limiter := api.PerMinute(settings.Server.RateLimitPerMinute)
	go limiter.Janitor(ctx)

	manager.OnChange(func(next config.Settings) {
		if next.TMDB != settings.TMDB {
			client, err := metadata.NewTMDBClient(next.TMDB.APIKey, next.TMDB.Language, next.TMDB.Proxy)
			if err != nil {
				log.Printf("[config] keeping previous metadata client: %v", err)
			} else {
				bannerService.UpdateTMDB(client)
			}
		}
		if next.Banner.Source() != settings.Banner.Source() {
			bannerService.ClearCache()
			log.Printf("[config] banner source changed to %s; cache cleared", next.Banner.Source())
		}
		settings = next
	})

	bannerHandler := handlers.NewBannerHandler(bannerService)
	danmakuHandler := handlers.NewDanmakuHandler(danmakuService, sessions)

	r := utils.NewRouter()
	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.Use(api.RateLimitMiddleware(limiter))
	apiRouter.Use(api.ClientSessionMiddleware())

	apiRouter.HandleFunc("/banner/trending", bannerHandler.Trending).Methods(http.MethodGet)
	apiRouter.HandleFunc("/banner/cache/clear", bannerHandler.ClearCache).Methods(http.MethodPost)

	apiRouter.HandleFunc("/danmaku/search", danmakuHandler.Search).Methods(http.MethodGet)
	apiRouter.HandleFunc("/danmaku/anime/{animeId}/episodes", danmakuHandler.Episodes).Methods(http.MethodGet)
	apiRouter.HandleFunc("/danmaku/episodes/{episodeId}/comments", danmakuHandler.Comments).Methods(http.MethodGet)
	apiRouter.HandleFunc("/danmaku/selection", danmakuHandler.Select).Methods(http.MethodPost)
	apiRouter.HandleFunc("/danmaku/auto", danmakuHandler.Auto).Methods(http.MethodGet)
	apiRouter.HandleFunc("/danmaku/memory/source", danmakuHandler.RememberSource).Methods(http.MethodPut)
	apiRouter.HandleFunc("/danmaku/memory", danmakuHandler.MemoryRecords).Methods(http.MethodGet)
	apiRouter.HandleFunc("/danmaku/memory", danmakuHandler.ForgetMemory).Methods(http.MethodDelete)

	return &app{
		Handler: utils.WithCORS(r, utils.NewOriginPolicy(settings.Server.ExtraOrigins)),
		Banner:  bannerService,
		closers: []func() error{portal.Close, danmakuClient.Close},
	}, nil
}
