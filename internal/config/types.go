package config

// Config is the top-level jsonstore configuration, corresponding to .jsonstore.yml.
type Config struct {
	StoreName string `yaml:"store_name" koanf:"store_name"`
	Port      int    `yaml:"port" koanf:"port"`
	// Catalog is where the item list is read from: an http(s) URL, a local
	// JSON file, or empty for the built-in sample catalog.
	Catalog            string    `yaml:"catalog" koanf:"catalog"`
	DataDir            string    `yaml:"data_dir" koanf:"data_dir"`
	Ephemeral          bool      `yaml:"ephemeral" koanf:"ephemeral"` // keep carts in memory only
	SessionIdleMinutes int       `yaml:"session_idle_minutes" koanf:"session_idle_minutes"`
	AllowAllOrigins    bool      `yaml:"allow_all_origins" koanf:"allow_all_origins"`
	Log                LogConfig `yaml:"log" koanf:"log"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level" koanf:"level"` // debug, info, warn, error
	JSON  bool   `yaml:"json" koanf:"json"`
}

// DefaultPath is the config file read when --config is not given.
const DefaultPath = ".jsonstore.yml"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		StoreName:          "The JSON Store",
		Port:               8080,
		DataDir:            ".jsonstore",
		SessionIdleMinutes: 30,
		Log: LogConfig{
			Level: "info",
		},
	}
}
