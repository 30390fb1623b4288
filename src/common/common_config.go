package common

import "time"

type CommonConfig struct {
	PromPort        string `yaml:"prom_port"`
	HealthCheckPort string `yaml:"health_check_port"`
	LogLevel        string `yaml:"log_level"`

	Store          string `yaml:"store"` // memory | redis | sqlite
	RedisAddress   string `yaml:"redis_address"`
	RedisPassword  string `yaml:"redis_password"`
	SQLitePath     string `yaml:"sqlite_path"`
	PostgresConfig string `yaml:"postgres"`
	BridgePort     string `yaml:"bridge_port"`

	RequestTimeout time.Duration `yaml:"request_timeout"`
}

const DefaultRequestTimeout = 5 * time.Second

func (c CommonConfig) Timeout() time.Duration {
	if c.RequestTimeout <= 0 {
		return DefaultRequestTimeout
	}
	return c.RequestTimeout
}
