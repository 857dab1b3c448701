package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const devSecret = "lingomate-secret-key-change-in-production"

type Config struct {
	ServerAddr      string
	Env             string
	Store           string
	MysqlDSN        string
	JWTSecret       string
	BcryptCost      int
	AllowedOrigins  []string
	RedisURL        string
	UploadDir       string
	ShutdownTimeout time.Duration

	Minio  MinioConfig
	Stream StreamConfig
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Enabled reports whether avatars go to object storage instead of UploadDir.
func (m MinioConfig) Enabled() bool {
	return m.Endpoint != ""
}

type StreamConfig struct {
	APIKey    string
	APISecret string
	BaseURL   string
	Timeout   time.Duration
}

func (s StreamConfig) Enabled() bool {
	return s.APIKey != "" && s.APISecret != ""
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")

	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("STORE", "mysql")
	v.SetDefault("MYSQL_DSN", "root:root@tcp(localhost:3306)/lingomate?charset=utf8mb4&parseTime=True&loc=UTC&clientFoundRows=true")
	v.SetDefault("JWT_SECRET_KEY", devSecret)
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("UPLOAD_DIR", "./uploads")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("MINIO_BUCKET", "avatars")
	v.SetDefault("STREAM_BASE_URL", "https://chat.stream-io-api.com")
	v.SetDefault("STREAM_TIMEOUT", "6s")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read .env: %w", err)
		}
	}

	cfg := &Config{
		ServerAddr:      ":" + v.GetString("PORT"),
		Env:             v.GetString("APP_ENV"),
		Store:           strings.ToLower(v.GetString("STORE")),
		MysqlDSN:        v.GetString("MYSQL_DSN"),
		JWTSecret:       v.GetString("JWT_SECRET_KEY"),
		BcryptCost:      v.GetInt("BCRYPT_COST"),
		AllowedOrigins:  splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		RedisURL:        v.GetString("REDIS_URL"),
		UploadDir:       v.GetString("UPLOAD_DIR"),
		ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		Minio: MinioConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: v.GetString("MINIO_SECRET_KEY"),
			Bucket:    v.GetString("MINIO_BUCKET"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
		},
		Stream: StreamConfig{
			APIKey:    v.GetString("STREAM_API_KEY"),
			APISecret: v.GetString("STREAM_API_SECRET"),
			BaseURL:   v.GetString("STREAM_BASE_URL"),
			Timeout:   v.GetDuration("STREAM_TIMEOUT"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store {
	case "mysql", "memory":
	default:
		return fmt.Errorf("unknown STORE %q (want mysql or memory)", c.Store)
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET_KEY is required")
	}
	if c.IsProduction() && (len(c.JWTSecret) < 32 || c.JWTSecret == devSecret) {
		return errors.New("JWT_SECRET_KEY must be set to a random value of at least 32 bytes in production")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
