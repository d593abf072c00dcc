package models

// MConfig Structure
type MConfig struct {
	Name       string            `yaml:"name" validate:"required"`
	Host       string            `yaml:"host" validate:"required"`
	Port       int               `yaml:"port" validate:"gt=1024,lte=65535"`
	LogLevel   string            `yaml:"log_level"`
	Backend    MBackendConfig    `yaml:"backend"`
	Network    MNetworkConfig    `yaml:"network"`
	MarketData MMarketDataConfig `yaml:"market_data"`
}

// MBackendConfig points at the backend-as-a-service project. URL and AnonKey
// may be overridden through SUPABASE_URL / SUPABASE_ANON_KEY.
type MBackendConfig struct {
	URL     string `yaml:"url" validate:"required,url"`
	AnonKey string `yaml:"anon_key" validate:"required"`
}

type MNetworkConfig struct {
	RequestTimeout int    `yaml:"timeout" validate:"gt=0"`
	MaxRetries     int    `yaml:"retries" validate:"gte=0"`
	UserAgent      string `yaml:"user_agent"`
}

type MMarketDataConfig struct {
	BaseURL               string `yaml:"base_url" validate:"required,url"`
	UpdateIntervalSeconds int    `yaml:"update_interval_seconds" validate:"gt=0"`
	DefaultWindowHours    int    `yaml:"default_window_hours" validate:"gt=0"`
	RateCacheSeconds      int    `yaml:"rate_cache_seconds" validate:"gte=0"`
}
