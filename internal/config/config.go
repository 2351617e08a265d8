package config

import (
	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

type Config struct {
	AppConfig              AppConfig
	MetaDatabaseConfig     MetaDatabaseConfig
	EnvelopeDatabaseConfig EnvelopeDatabaseConfig
	SyncConfig             SyncConfig
	OAuth2Config           OAuth2Config
}

type AppConfig struct {
	BindIP             string `env:"BICHON_BIND_IP" envDefault:"0.0.0.0"`
	HTTPPort           string `env:"BICHON_HTTP_PORT" envDefault:"15630"`
	EnableAccessToken  bool   `env:"BICHON_ENABLE_ACCESS_TOKEN" envDefault:"true"`
	EnableRestHTTPS    bool   `env:"BICHON_ENABLE_REST_HTTPS" envDefault:"false"`
	TLSCertPath        string `env:"BICHON_TLS_CERT_PATH"`
	TLSKeyPath         string `env:"BICHON_TLS_KEY_PATH"`
	CorsOrigins        []string `env:"BICHON_CORS_ORIGINS" envSeparator:","`
	CorsMaxAge         int    `env:"BICHON_CORS_MAX_AGE" envDefault:"43200"`
	CompressionEnabled bool   `env:"BICHON_HTTP_COMPRESSION_ENABLED" envDefault:"false"`
	LogLevel           string `env:"BICHON_LOG_LEVEL" envDefault:"info"`
	AnsiLogs           bool   `env:"BICHON_ANSI_LOGS" envDefault:"true"`
	MaxServerLogFiles  int    `env:"BICHON_MAX_SERVER_LOG_FILES" envDefault:"7"`
	DataDir            string `env:"BICHON_DATA_DIR" envDefault:"./bichon-data"`
	// EncryptionKey is the 32-byte hex key used for AES-256-GCM password
	// encryption at rest.
	EncryptionKey string `env:"BICHON_ENCRYPTION_KEY,required"`
}

type MetaDatabaseConfig struct {
	Host            string `env:"BICHON_META_POSTGRES_HOST,required"`
	Port            string `env:"BICHON_META_POSTGRES_PORT,required"`
	User            string `env:"BICHON_META_POSTGRES_USER,required"`
	DBName          string `env:"BICHON_META_POSTGRES_DB_NAME,required"`
	Password        string `env:"BICHON_META_POSTGRES_PASSWORD,required"`
	MaxConn         int    `env:"BICHON_META_POSTGRES_DB_MAX_CONN" envDefault:"10"`
	MaxIdleConn     int    `env:"BICHON_META_POSTGRES_DB_MAX_IDLE_CONN" envDefault:"5"`
	ConnMaxLifetime int    `env:"BICHON_META_POSTGRES_DB_CONN_MAX_LIFETIME" envDefault:"1"`
	LogLevel        string `env:"BICHON_META_POSTGRES_LOG_LEVEL" envDefault:"WARN"`
	SSLMode         string `env:"BICHON_META_POSTGRES_SSL_MODE" envDefault:"disable"`
}

type EnvelopeDatabaseConfig struct {
	Host            string `env:"BICHON_ENVELOPE_POSTGRES_HOST,required"`
	Port            string `env:"BICHON_ENVELOPE_POSTGRES_PORT,required"`
	User            string `env:"BICHON_ENVELOPE_POSTGRES_USER,required"`
	DBName          string `env:"BICHON_ENVELOPE_POSTGRES_DB_NAME,required"`
	Password        string `env:"BICHON_ENVELOPE_POSTGRES_PASSWORD,required"`
	MaxConn         int    `env:"BICHON_ENVELOPE_POSTGRES_DB_MAX_CONN" envDefault:"20"`
	MaxIdleConn     int    `env:"BICHON_ENVELOPE_POSTGRES_DB_MAX_IDLE_CONN" envDefault:"10"`
	ConnMaxLifetime int    `env:"BICHON_ENVELOPE_POSTGRES_DB_CONN_MAX_LIFETIME" envDefault:"1"`
	LogLevel        string `env:"BICHON_ENVELOPE_POSTGRES_LOG_LEVEL" envDefault:"WARN"`
	SSLMode         string `env:"BICHON_ENVELOPE_POSTGRES_SSL_MODE" envDefault:"disable"`
}

type SyncConfig struct {
	// MaxConcurrentFetches is the global cap on in-flight mailbox fetch
	// tasks across all accounts.
	MaxConcurrentFetches int `env:"BICHON_MAX_CONCURRENT_FETCHES" envDefault:"8"`
	FetchBatchSize       int `env:"BICHON_FETCH_BATCH_SIZE" envDefault:"200"`
	// Socks5Proxy is the pre-configured proxy used by accounts whose
	// IMAP config opts into proxying.
	Socks5Proxy string `env:"BICHON_SOCKS5_PROXY"`
}

type OAuth2Config struct {
	RedirectURL string `env:"BICHON_OAUTH2_REDIRECT_URL"`
}

func InitConfig() (*Config, error) {
	// Missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg := Config{}
	if err := env.Parse(&cfg.AppConfig); err != nil {
		return nil, errors.Wrap(err, "app config parsing failed")
	}
	if err := env.Parse(&cfg.MetaDatabaseConfig); err != nil {
		return nil, errors.Wrap(err, "meta database config parsing failed")
	}
	if err := env.Parse(&cfg.EnvelopeDatabaseConfig); err != nil {
		return nil, errors.Wrap(err, "envelope database config parsing failed")
	}
	if err := env.Parse(&cfg.SyncConfig); err != nil {
		return nil, errors.Wrap(err, "sync config parsing failed")
	}
	if err := env.Parse(&cfg.OAuth2Config); err != nil {
		return nil, errors.Wrap(err, "oauth2 config parsing failed")
	}

	return &cfg, nil
}
