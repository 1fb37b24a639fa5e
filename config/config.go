package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Consultation ConsultationConfig
	Bus          BusConfig
	Push         PushConfig
}

type AppConfig struct {
	Port     string
	Env      string
	LogLevel string
	// AllowedOrigins applies to CORS and websocket upgrades. "*" allows any.
	AllowedOrigins []string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret       string
	Issuer       string
	AccessExpiry time.Duration
}

// ConsultationConfig tunes the dispatch engine.
type ConsultationConfig struct {
	ExpiryMinutes    int
	SweepInterval    time.Duration
	StreamRetry      time.Duration
	StreamHeartbeat  time.Duration
	SubscriberBuffer int
}

// BusConfig selects the fan-out transport: "memory" or "redis".
type BusConfig struct {
	Driver        string
	ChannelPrefix string
}

type PushConfig struct {
	Endpoint  string
	ServerKey string
	Timeout   time.Duration
	Workers   int
}

func setDefaults() {
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CONSULTATION_EXPIRY_MINUTES", 30)
	viper.SetDefault("CONSULTATION_SUBSCRIBER_BUFFER", 32)
	viper.SetDefault("BUS_DRIVER", "memory")
	viper.SetDefault("BUS_CHANNEL_PREFIX", "consultation:")
	viper.SetDefault("PUSH_ENDPOINT", "https://fcm.googleapis.com/fcm")
	viper.SetDefault("PUSH_WORKERS", 4)
}

func LoadConfig() (*Config, error) {
	setDefaults()
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// A missing .env is fine, the environment alone can configure the app.
		var pathErr *fs.PathError
		if !errors.As(err, &pathErr) {
			return nil, err
		}
	}

	config := &Config{
		App: AppConfig{
			Port:           viper.GetString("APP_PORT"),
			Env:            viper.GetString("APP_ENV"),
			LogLevel:       viper.GetString("LOG_LEVEL"),
			AllowedOrigins: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
		},
		DB: DBConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Name:     viper.GetString("DB_NAME"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:       viper.GetString("JWT_SECRET"),
			Issuer:       viper.GetString("JWT_ISSUER"),
			AccessExpiry: parseDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
		},
		Consultation: ConsultationConfig{
			ExpiryMinutes:    viper.GetInt("CONSULTATION_EXPIRY_MINUTES"),
			SweepInterval:    parseDuration("CONSULTATION_SWEEP_INTERVAL", time.Minute),
			StreamRetry:      parseDuration("CONSULTATION_STREAM_RETRY", 3*time.Second),
			StreamHeartbeat:  parseDuration("CONSULTATION_STREAM_HEARTBEAT", 15*time.Second),
			SubscriberBuffer: viper.GetInt("CONSULTATION_SUBSCRIBER_BUFFER"),
		},
		Bus: BusConfig{
			Driver:        viper.GetString("BUS_DRIVER"),
			ChannelPrefix: viper.GetString("BUS_CHANNEL_PREFIX"),
		},
		Push: PushConfig{
			Endpoint:  viper.GetString("PUSH_ENDPOINT"),
			ServerKey: viper.GetString("PUSH_SERVER_KEY"),
			Timeout:   parseDuration("PUSH_TIMEOUT", 10*time.Second),
			Workers:   viper.GetInt("PUSH_WORKERS"),
		},
	}

	if config.JWT.Secret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if config.Consultation.ExpiryMinutes <= 0 {
		config.Consultation.ExpiryMinutes = 30
	}

	return config, nil
}

func parseDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(viper.GetString(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
