package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config is resolved in three layers: built-in defaults, an optional YAML
// file (CONFIG_FILE), then environment variables (.env is loaded first).
type Config struct {
	AppEnv    string       `yaml:"app_env"`
	OutputDir string       `yaml:"output_dir"`
	Workers   int          `yaml:"workers"`
	HTTP      HTTPConfig   `yaml:"http"`
	Store     StoreConfig  `yaml:"store"`
	Queue     QueueConfig  `yaml:"queue"`
	OpenAI    OpenAIConfig `yaml:"openai"`
	Script    ScriptConfig `yaml:"script"`
	TTS       TTSConfig    `yaml:"tts"`
	Video     VideoConfig  `yaml:"video"`
}

type HTTPConfig struct {
	Port         string        `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

type StoreConfig struct {
	Backend     string `yaml:"backend"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

type QueueConfig struct {
	Backend       string `yaml:"backend"`
	RedisAddr     string `yaml:"redis_addr"`
	QueueKey      string `yaml:"queue_key"`
	ProcessingKey string `yaml:"processing_key"`
}

type OpenAIConfig struct {
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url"`
	ScriptModel  string `yaml:"script_model"`
	ImageModel   string `yaml:"image_model"`
	ImageSize    string `yaml:"image_size"`
	ImageQuality string `yaml:"image_quality"`
}

type ScriptConfig struct {
	Scenes   int    `yaml:"scenes"`
	Language string `yaml:"language"`
}

type TTSConfig struct {
	CredentialsJSON string  `yaml:"credentials_json"`
	Language        string  `yaml:"language"`
	Voice           string  `yaml:"voice"`
	Gender          string  `yaml:"gender"`
	SpeakingRate    float64 `yaml:"speaking_rate"`
}

type VideoConfig struct {
	FFmpegBin  string `yaml:"ffmpeg_bin"`
	FFprobeBin string `yaml:"ffprobe_bin"`
	Font       string `yaml:"font"`
	FontSize   int    `yaml:"font_size"`
	FPS        int    `yaml:"fps"`
	Height     int    `yaml:"height"`
	WrapWidth  int    `yaml:"wrap_width"`
}

func Default() Config {
	return Config{
		AppEnv:    "development",
		OutputDir: "./output",
		Workers:   4,
		HTTP: HTTPConfig{
			Port:         "8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 10 * time.Minute, // downloads stream large files
			IdleTimeout:  60 * time.Second,
		},
		Store: StoreConfig{Backend: BackendMemory},
		Queue: QueueConfig{
			Backend:       BackendMemory,
			RedisAddr:     "localhost:6379",
			QueueKey:      "videogen:queue",
			ProcessingKey: "videogen:processing",
		},
		OpenAI: OpenAIConfig{
			BaseURL:      "https://api.openai.com/v1",
			ScriptModel:  "gpt-4o",
			ImageModel:   "dall-e-3",
			ImageSize:    "1792x1024",
			ImageQuality: "standard",
		},
		Script: ScriptConfig{Scenes: 25, Language: "Korean"},
		TTS: TTSConfig{
			Language:     "ko-KR",
			Voice:        "ko-KR-Neural2-A",
			Gender:       "FEMALE",
			SpeakingRate: 0.9,
		},
		Video: VideoConfig{
			FFmpegBin:  "ffmpeg",
			FFprobeBin: "ffprobe",
			Font:       "NanumGothic",
			FontSize:   40,
			FPS:        24,
			Height:     1080,
			WrapWidth:  28,
		},
	}
}

// Load reads .env (if present), the YAML file named by CONFIG_FILE (if set)
// and the environment. Collaborator credentials are not checked here.
func Load() (*Config, error) {
	_ = godotenv.Load(".env", ".env.local")
	return load(os.Getenv)
}

func load(getenv func(string) string) (*Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(getenv("CONFIG_FILE")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	e := envReader{get: getenv}
	e.str(&cfg.AppEnv, "APP_ENV")
	e.str(&cfg.OutputDir, "OUTPUT_DIR")
	e.int(&cfg.Workers, "WORKERS")

	e.str(&cfg.HTTP.Port, "PORT")
	e.seconds(&cfg.HTTP.ReadTimeout, "HTTP_READ_TIMEOUT_SECONDS")
	e.seconds(&cfg.HTTP.WriteTimeout, "HTTP_WRITE_TIMEOUT_SECONDS")
	e.seconds(&cfg.HTTP.IdleTimeout, "HTTP_IDLE_TIMEOUT_SECONDS")

	e.str(&cfg.Store.Backend, "STORE_BACKEND")
	e.str(&cfg.Store.PostgresDSN, "POSTGRES_DSN")

	e.str(&cfg.Queue.Backend, "QUEUE_BACKEND")
	e.str(&cfg.Queue.RedisAddr, "REDIS_ADDR")
	e.str(&cfg.Queue.QueueKey, "REDIS_QUEUE_KEY")
	e.str(&cfg.Queue.ProcessingKey, "REDIS_PROCESSING_KEY")

	e.str(&cfg.OpenAI.APIKey, "OPENAI_API_KEY")
	e.str(&cfg.OpenAI.BaseURL, "OPENAI_BASE_URL")
	e.str(&cfg.OpenAI.ScriptModel, "OPENAI_SCRIPT_MODEL")
	e.str(&cfg.OpenAI.ImageModel, "OPENAI_IMAGE_MODEL")
	e.str(&cfg.OpenAI.ImageSize, "IMAGE_SIZE")
	e.str(&cfg.OpenAI.ImageQuality, "IMAGE_QUALITY")

	e.int(&cfg.Script.Scenes, "SCRIPT_SCENES")
	e.str(&cfg.Script.Language, "SCRIPT_LANGUAGE")

	e.str(&cfg.TTS.CredentialsJSON, "GOOGLE_CREDENTIALS_JSON")
	e.str(&cfg.TTS.Language, "TTS_LANGUAGE")
	e.str(&cfg.TTS.Voice, "TTS_VOICE")
	e.str(&cfg.TTS.Gender, "TTS_GENDER")
	e.float(&cfg.TTS.SpeakingRate, "TTS_SPEAKING_RATE")

	e.str(&cfg.Video.FFmpegBin, "FFMPEG_BIN")
	e.str(&cfg.Video.FFprobeBin, "FFPROBE_BIN")
	e.str(&cfg.Video.Font, "VIDEO_FONT")
	e.int(&cfg.Video.FontSize, "VIDEO_FONT_SIZE")
	e.int(&cfg.Video.FPS, "VIDEO_FPS")
	e.int(&cfg.Video.Height, "VIDEO_HEIGHT")
	e.int(&cfg.Video.WrapWidth, "VIDEO_WRAP_WIDTH")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	switch c.Store.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Store.PostgresDSN == "" {
			errs = append(errs, errors.New("POSTGRES_DSN is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}
	switch c.Queue.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Queue.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis queue"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown queue backend %q", c.Queue.Backend))
	}
	if c.Script.Scenes <= 0 {
		errs = append(errs, fmt.Errorf("script scenes must be positive, got %d", c.Script.Scenes))
	}
	return errors.Join(errs...)
}

type envReader struct {
	get func(string) string
}

func (e envReader) str(dst *string, key string) {
	if v := strings.TrimSpace(e.get(key)); v != "" {
		*dst = v
	}
}

func (e envReader) int(dst *int, key string) {
	if v := strings.TrimSpace(e.get(key)); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*dst = i
		}
	}
}

func (e envReader) float(dst *float64, key string) {
	if v := strings.TrimSpace(e.get(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func (e envReader) seconds(dst *time.Duration, key string) {
	var secs int
	e.int(&secs, key)
	if secs > 0 {
		*dst = time.Duration(secs) * time.Second
	}
}
