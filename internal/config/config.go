package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server     ServerConfig
	Redis      RedisConfig
	JWT        JWTConfig
	RateLimit  RateLimitConfig
	Anthropic  AnthropicConfig
	ElevenLabs ElevenLabsConfig
	Fal        FalConfig
	R2         R2Config
	FFmpeg     FFmpegConfig
	Pipeline   PipelineConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type RateLimitConfig struct {
	GeneratePerHour   int
	RegeneratePerHour int
}

type AnthropicConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

type ElevenLabsConfig struct {
	APIKey  string
	BaseURL string
	ModelID string
}

type FalConfig struct {
	APIKey  string
	BaseURL string
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

type FFmpegConfig struct {
	BinaryPath  string
	FontPath    string
	WorkDir     string
	TimeoutSecs int
}

type PipelineConfig struct {
	MaxConcurrentClips int
	ClipTimeoutSecs    int
	WorkerID           string
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("JWT_SECRET")
	readSecret("ANTHROPIC_API_KEY")
	readSecret("ELEVENLABS_API_KEY")
	readSecret("FAL_API_KEY")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	_ = viper.BindEnv("ratelimit.generate_per_hour", "RATELIMIT_GENERATE_PER_HOUR")
	_ = viper.BindEnv("ratelimit.regenerate_per_hour", "RATELIMIT_REGENERATE_PER_HOUR")
	_ = viper.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	_ = viper.BindEnv("anthropic.base_url", "ANTHROPIC_BASE_URL")
	_ = viper.BindEnv("anthropic.model", "ANTHROPIC_MODEL")
	_ = viper.BindEnv("anthropic.max_tokens", "ANTHROPIC_MAX_TOKENS")
	_ = viper.BindEnv("elevenlabs.api_key", "ELEVENLABS_API_KEY")
	_ = viper.BindEnv("elevenlabs.base_url", "ELEVENLABS_BASE_URL")
	_ = viper.BindEnv("elevenlabs.model_id", "ELEVENLABS_MODEL_ID")
	_ = viper.BindEnv("fal.api_key", "FAL_API_KEY")
	_ = viper.BindEnv("fal.base_url", "FAL_BASE_URL")
	_ = viper.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = viper.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = viper.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("r2.bucket_name", "R2_BUCKET_NAME")
	_ = viper.BindEnv("r2.public_url", "R2_PUBLIC_URL")
	_ = viper.BindEnv("ffmpeg.binary_path", "FFMPEG_BINARY")
	_ = viper.BindEnv("ffmpeg.font_path", "FFMPEG_FONT_PATH")
	_ = viper.BindEnv("ffmpeg.work_dir", "FFMPEG_WORK_DIR")
	_ = viper.BindEnv("ffmpeg.timeout", "FFMPEG_TIMEOUT")
	_ = viper.BindEnv("pipeline.max_concurrent_clips", "PIPELINE_MAX_CONCURRENT_CLIPS")
	_ = viper.BindEnv("pipeline.clip_timeout", "PIPELINE_CLIP_TIMEOUT")
	_ = viper.BindEnv("pipeline.worker_id", "WORKER_ID")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expiration", 24)
	viper.SetDefault("ratelimit.generate_per_hour", 10)
	viper.SetDefault("ratelimit.regenerate_per_hour", 30)

	// Anthropic defaults
	viper.SetDefault("anthropic.base_url", "https://api.anthropic.com")
	viper.SetDefault("anthropic.model", "claude-sonnet-4-20250514")
	viper.SetDefault("anthropic.max_tokens", 4096)

	// ElevenLabs defaults
	viper.SetDefault("elevenlabs.base_url", "https://api.elevenlabs.io")
	viper.SetDefault("elevenlabs.model_id", "eleven_multilingual_v2")

	// fal.ai defaults
	viper.SetDefault("fal.base_url", "https://fal.run")

	// FFmpeg defaults
	viper.SetDefault("ffmpeg.binary_path", "ffmpeg")
	viper.SetDefault("ffmpeg.font_path", "/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf")
	viper.SetDefault("ffmpeg.work_dir", os.TempDir())
	viper.SetDefault("ffmpeg.timeout", 300)

	// Pipeline defaults
	viper.SetDefault("pipeline.max_concurrent_clips", 5)
	viper.SetDefault("pipeline.clip_timeout", 600)
	viper.SetDefault("pipeline.worker_id", "")

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:     viper.GetString("jwt.secret"),
			Expiration: viper.GetInt("jwt.expiration"),
		},
		RateLimit: RateLimitConfig{
			GeneratePerHour:   viper.GetInt("ratelimit.generate_per_hour"),
			RegeneratePerHour: viper.GetInt("ratelimit.regenerate_per_hour"),
		},
		Anthropic: AnthropicConfig{
			APIKey:    viper.GetString("anthropic.api_key"),
			BaseURL:   viper.GetString("anthropic.base_url"),
			Model:     viper.GetString("anthropic.model"),
			MaxTokens: viper.GetInt("anthropic.max_tokens"),
		},
		ElevenLabs: ElevenLabsConfig{
			APIKey:  viper.GetString("elevenlabs.api_key"),
			BaseURL: viper.GetString("elevenlabs.base_url"),
			ModelID: viper.GetString("elevenlabs.model_id"),
		},
		Fal: FalConfig{
			APIKey:  viper.GetString("fal.api_key"),
			BaseURL: viper.GetString("fal.base_url"),
		},
		R2: R2Config{
			AccountID:       viper.GetString("r2.account_id"),
			AccessKeyID:     viper.GetString("r2.access_key_id"),
			SecretAccessKey: viper.GetString("r2.secret_access_key"),
			BucketName:      viper.GetString("r2.bucket_name"),
			PublicURL:       viper.GetString("r2.public_url"),
		},
		FFmpeg: FFmpegConfig{
			BinaryPath:  viper.GetString("ffmpeg.binary_path"),
			FontPath:    viper.GetString("ffmpeg.font_path"),
			WorkDir:     viper.GetString("ffmpeg.work_dir"),
			TimeoutSecs: viper.GetInt("ffmpeg.timeout"),
		},
		Pipeline: PipelineConfig{
			MaxConcurrentClips: viper.GetInt("pipeline.max_concurrent_clips"),
			ClipTimeoutSecs:    viper.GetInt("pipeline.clip_timeout"),
			WorkerID:           viper.GetString("pipeline.worker_id"),
		},
	}

	return cfg, nil
}
