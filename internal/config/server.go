package config

import "github.com/caarlos0/env/v11"

type ServerConfig struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	DataDir  string `env:"DATA_DIR" envDefault:"data"`

	CatalogBaseURL        string `env:"CATALOG_BASE_URL" envDefault:"https://store.steampowered.com/api"`
	CatalogTimeoutSeconds int    `env:"CATALOG_TIMEOUT_SECONDS" envDefault:"5"`

	ReconnectDelaySeconds   int `env:"RECONNECT_DELAY_SECONDS" envDefault:"30"`
	TickIntervalSeconds     int `env:"TICK_INTERVAL_SECONDS" envDefault:"60"`
	WatchdogIntervalSeconds int `env:"WATCHDOG_INTERVAL_SECONDS" envDefault:"60"`

	// Request/response bodies carry passwords and guard codes, so body
	// capture in the request log is opt-in.
	LogHTTPBodies   bool `env:"LOG_HTTP_BODIES" envDefault:"false"`
	LogBodyMaxBytes int  `env:"LOG_BODY_MAX_BYTES" envDefault:"4096"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
