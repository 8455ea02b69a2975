package config

// AppConfig is the full configuration for one farm-server process.
type AppConfig struct {
	Server ServerConfig
	Log    LogConfig
}

// LoadApp parses the whole environment up front so a bad variable fails
// startup before any subsystem initializes.
func LoadApp() (AppConfig, error) {
	var cfg AppConfig
	var err error
	if cfg.Log, err = LoadLog(); err != nil {
		return AppConfig{}, err
	}
	if cfg.Server, err = LoadServer(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}
