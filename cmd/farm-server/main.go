package main

import (
	"context"
	"net/http"
	"time"

	"hourfarm/internal/app/accounts"
	"hourfarm/internal/catalog"
	"hourfarm/internal/config"
	"hourfarm/internal/farm"
	"hourfarm/internal/logging"
	"hourfarm/internal/steam"
	"hourfarm/internal/store"
	httptransport "hourfarm/internal/transport/http"

	"github.com/rs/zerolog/log"
)

func main() {
	appCfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	logging.Init(appCfg.Log)
	cfg := appCfg.Server

	st, err := store.New(cfg.DataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("store init failed")
	}

	cat := catalog.New(cfg.CatalogBaseURL, time.Duration(cfg.CatalogTimeoutSeconds)*time.Second)
	dialer := steam.NewDialer()
	coord := farm.NewCoordinator(st, cat, dialer, nil, time.Duration(cfg.ReconnectDelaySeconds)*time.Second)
	if err := coord.Bootstrap(); err != nil {
		log.Fatal().Err(err).Msg("bootstrap roster failed")
	}
	coord.Start(context.Background(),
		time.Duration(cfg.TickIntervalSeconds)*time.Second,
		time.Duration(cfg.WatchdogIntervalSeconds)*time.Second)

	svc := accounts.NewService(coord)
	r := httptransport.NewRouter(svc, cfg)
	httptransport.LogRoutes(r)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	log.Info().Str("addr", cfg.HTTPAddr).Msg("http listening")
	log.Fatal().Err(server.ListenAndServe()).Msg("server stopped")
}
