package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config location; NUTRITION_CONFIG overrides it.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port        string `yaml:"port"`
	LogLevel    string `yaml:"logLevel"`
	DatabaseURL string `yaml:"databaseURL"`

	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`

	AuthJWKSURL string `yaml:"authJwksURL"`
	JWTSecret   string `yaml:"jwtSecret"`
	JWTIssuer   string `yaml:"jwtIssuer"`
	JWTAudience string `yaml:"jwtAudience"`
	JWTLeeway   string `yaml:"jwtLeeway"`

	GenerationProvider string `yaml:"generationProvider"`
	GenerationBaseURL  string `yaml:"generationBaseURL"`
	GenerationAPIKey   string `yaml:"generationAPIKey"`
	GenerationModel    string `yaml:"generationModel"`
	// Vision* default to the generation settings when empty.
	VisionProvider string `yaml:"visionProvider"`
	VisionBaseURL  string `yaml:"visionBaseURL"`
	VisionAPIKey   string `yaml:"visionAPIKey"`
	VisionModel    string `yaml:"visionModel"`

	TranscriptionBaseURL string `yaml:"transcriptionBaseURL"`
	TranscriptionAPIKey  string `yaml:"transcriptionAPIKey"`
	TranscriptionModel   string `yaml:"transcriptionModel"`

	FoodFactsBaseURL       string `yaml:"foodFactsBaseURL"`
	BarcodeCacheTTLSeconds int    `yaml:"barcodeCacheTTLSeconds"`

	RecognitionTimeoutSeconds int `yaml:"recognitionTimeoutSeconds"`
	BreakerFailureThreshold   int `yaml:"breakerFailureThreshold"`
	BreakerCooldownSeconds    int `yaml:"breakerCooldownSeconds"`

	MinioEndpoint  string `yaml:"minioEndpoint"`
	MinioAccessKey string `yaml:"minioAccessKey"`
	MinioSecretKey string `yaml:"minioSecretKey"`
	MinioBucket    string `yaml:"minioBucket"`
	MinioUseSSL    bool   `yaml:"minioUseSSL"`

	AlertBroker string `yaml:"alertBroker"`
	AlertStream string `yaml:"alertStream"`
	RabbitURL   string `yaml:"rabbitURL"`
	AlertQueue  string `yaml:"alertQueue"`

	TrustedProxyCIDRs         []string `yaml:"trustedProxyCidrs"`
	ExtractRateLimitPerMinute int      `yaml:"extractRateLimitPerMinute"`
	MaxUploadBytes            int64    `yaml:"maxUploadBytes"`
	InternalToken             string   `yaml:"internalToken"`
}

// Alert brokers.
const (
	BrokerNone     = ""
	BrokerRedis    = "redis"
	BrokerRabbitMQ = "rabbitmq"
)

// Load reads config from path (defaults to config.yaml). A .env file in the
// working directory, when present, is loaded into the environment first;
// variables already set win over it.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if err := loadDotEnv(); err != nil {
		return cfg, err
	}
	if path == "" {
		path = ConfigPath
	}
	if v := os.Getenv("NUTRITION_CONFIG"); v != "" {
		path = v
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadDotEnv() error {
	err := godotenv.Load()
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load .env: %w", err)
}

func applyEnv(cfg *FileConfig) {
	setString(&cfg.Port, "PORT")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.RedisAddr, "REDIS_ADDR")
	setString(&cfg.RedisPassword, "REDIS_PASSWORD")
	setString(&cfg.AuthJWKSURL, "NUTRITION_AUTH_JWKS_URL")
	setString(&cfg.JWTSecret, "NUTRITION_JWT_SECRET")
	setString(&cfg.JWTIssuer, "JWT_ISSUER")
	setString(&cfg.JWTAudience, "JWT_AUDIENCE")
	setString(&cfg.JWTLeeway, "JWT_LEEWAY")
	setString(&cfg.GenerationProvider, "NUTRITION_GENERATION_PROVIDER")
	setString(&cfg.GenerationBaseURL, "NUTRITION_GENERATION_BASE_URL")
	setString(&cfg.GenerationAPIKey, "NUTRITION_GENERATION_API_KEY")
	setString(&cfg.GenerationModel, "NUTRITION_GENERATION_MODEL")
	if v := os.Getenv("GEMINI_API_KEY"); v != "" && cfg.GenerationAPIKey == "" {
		cfg.GenerationAPIKey = v
	}
	setString(&cfg.VisionProvider, "NUTRITION_VISION_PROVIDER")
	setString(&cfg.VisionModel, "NUTRITION_VISION_MODEL")
	setString(&cfg.TranscriptionBaseURL, "NUTRITION_TRANSCRIPTION_BASE_URL")
	setString(&cfg.TranscriptionAPIKey, "NUTRITION_TRANSCRIPTION_API_KEY")
	setString(&cfg.TranscriptionModel, "NUTRITION_TRANSCRIPTION_MODEL")
	setString(&cfg.FoodFactsBaseURL, "NUTRITION_FOOD_FACTS_BASE_URL")
	setString(&cfg.MinioEndpoint, "MINIO_ENDPOINT")
	setString(&cfg.MinioAccessKey, "MINIO_ACCESS_KEY")
	setString(&cfg.MinioSecretKey, "MINIO_SECRET_KEY")
	setString(&cfg.MinioBucket, "MINIO_BUCKET")
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.MinioUseSSL = b
		}
	}
	setString(&cfg.AlertBroker, "NUTRITION_ALERT_BROKER")
	setString(&cfg.AlertStream, "NUTRITION_ALERT_STREAM")
	setString(&cfg.RabbitURL, "RABBITMQ_URL")
	setString(&cfg.AlertQueue, "NUTRITION_ALERT_QUEUE")
	setString(&cfg.InternalToken, "NUTRITION_INTERNAL_TOKEN")
	if v := os.Getenv("NUTRITION_TRUSTED_PROXY_CIDRS"); v != "" {
		cfg.TrustedProxyCIDRs = splitCSV(v)
	}
	setInt(&cfg.ExtractRateLimitPerMinute, "NUTRITION_EXTRACT_RATE_LIMIT_PER_MINUTE")
	setInt(&cfg.RecognitionTimeoutSeconds, "NUTRITION_RECOGNITION_TIMEOUT_SECONDS")
	setInt(&cfg.BarcodeCacheTTLSeconds, "NUTRITION_BARCODE_CACHE_TTL_SECONDS")
	if v := os.Getenv("NUTRITION_MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxUploadBytes = n
		}
	}
}

func applyDefaults(cfg *FileConfig) {
	cfg.AlertBroker = strings.ToLower(strings.TrimSpace(cfg.AlertBroker))
	if cfg.VisionProvider == "" {
		cfg.VisionProvider = cfg.GenerationProvider
		if cfg.VisionBaseURL == "" {
			cfg.VisionBaseURL = cfg.GenerationBaseURL
		}
		if cfg.VisionAPIKey == "" {
			cfg.VisionAPIKey = cfg.GenerationAPIKey
		}
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = cfg.GenerationModel
	}
	if cfg.RecognitionTimeoutSeconds == 0 {
		cfg.RecognitionTimeoutSeconds = 20
	}
	if cfg.BarcodeCacheTTLSeconds == 0 {
		cfg.BarcodeCacheTTLSeconds = 24 * 60 * 60
	}
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = 10 * 1024 * 1024
	}
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set in config.yaml or DATABASE_URL)")
	}
	jwks := strings.TrimSpace(cfg.AuthJWKSURL) != ""
	secret := strings.TrimSpace(cfg.JWTSecret) != ""
	if jwks == secret {
		return errors.New("config: exactly one of authJwksURL or jwtSecret is required")
	}
	switch cfg.AlertBroker {
	case BrokerNone:
	case BrokerRedis:
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return errors.New("config: redisAddr is required when alertBroker is redis")
		}
	case BrokerRabbitMQ:
		if strings.TrimSpace(cfg.RabbitURL) == "" {
			return errors.New("config: rabbitURL is required when alertBroker is rabbitmq (or RABBITMQ_URL)")
		}
	default:
		return fmt.Errorf("config: unknown alertBroker %q (want redis or rabbitmq)", cfg.AlertBroker)
	}
	if cfg.MinioEndpoint != "" && (cfg.MinioBucket == "" || cfg.MinioAccessKey == "" || cfg.MinioSecretKey == "") {
		return errors.New("config: minioBucket, minioAccessKey and minioSecretKey are required with minioEndpoint")
	}
	if cfg.ExtractRateLimitPerMinute < 0 {
		return errors.New("config: extractRateLimitPerMinute must be >= 0")
	}
	if cfg.RecognitionTimeoutSeconds < 0 || cfg.BreakerCooldownSeconds < 0 || cfg.BreakerFailureThreshold < 0 || cfg.BarcodeCacheTTLSeconds < 0 {
		return errors.New("config: recognition timeout, breaker and cache settings must be >= 0")
	}
	if cfg.MaxUploadBytes < 0 {
		return errors.New("config: maxUploadBytes must be >= 0")
	}
	return nil
}

// RecognitionTimeout bounds each call to an external recognizer.
func (c FileConfig) RecognitionTimeout() time.Duration {
	return time.Duration(c.RecognitionTimeoutSeconds) * time.Second
}

func (c FileConfig) BreakerCooldown() time.Duration {
	return time.Duration(c.BreakerCooldownSeconds) * time.Second
}

func (c FileConfig) BarcodeCacheTTL() time.Duration {
	return time.Duration(c.BarcodeCacheTTLSeconds) * time.Second
}

// ParseJWTLeeway parses optional JWT leeway duration string.
func ParseJWTLeeway(leewayStr string) (time.Duration, error) {
	if leewayStr == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(leewayStr)
	if err != nil {
		return 0, fmt.Errorf("invalid jwtLeeway duration: %w", err)
	}
	return dur, nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = n
		}
	}
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
