package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Redis      RedisConfig
	CORS       CORSConfig
	Log        LogConfig
	Evaluator  EvaluatorConfig
	Pipeline   PipelineConfig
	Uploads    UploadConfig
	Statistics StatisticsConfig
	Metrics    MetricsConfig
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// EvaluatorConfig points at the external print/OCR service.
type EvaluatorConfig struct {
	Host string
	Port int
	// Timeout of zero leaves the transport default in place.
	Timeout time.Duration
}

// BaseURL returns the service root, e.g. http://127.0.0.1:5000.
func (c EvaluatorConfig) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.Host, c.Port)
}

// PipelineConfig carries the parsing knobs handed to each pipeline component.
type PipelineConfig struct {
	CodePage             string
	RosterSeparator      rune
	ResultSeparator      rune
	OutputSeparator      rune
	AllowedQuestionTypes []string
	GradeThresholds      []float64
}

// UploadConfig bounds accepted uploads.
type UploadConfig struct {
	MaxFileSizeBytes int64
	EvaluationMIMEs  []string
}

// StatisticsConfig governs statistics labelling and caching.
type StatisticsConfig struct {
	Lang         string
	CacheEnabled bool
	CacheTTL     time.Duration
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
}

// Load reads configuration from the environment and an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := NewViper()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return FromViper(v)
}

// NewViper returns a viper instance bound to the environment with all defaults set.
// Callers may bind extra sources (such as CLI flags) before calling FromViper.
func NewViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	_ = v.BindEnv("EVALUATOR_HOST", "EVALUATOR_HOST", "AI_API_HOST")
	_ = v.BindEnv("EVALUATOR_PORT", "EVALUATOR_PORT", "AI_API_PORT")
	setDefaults(v)
	return v
}

// FromViper materialises a Config from the given viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Evaluator = EvaluatorConfig{
		Host:    v.GetString("EVALUATOR_HOST"),
		Port:    v.GetInt("EVALUATOR_PORT"),
		Timeout: parseDuration(v.GetString("EVALUATOR_TIMEOUT"), 0),
	}

	rosterSep, err := parseSeparator("ROSTER_SEPARATOR", v.GetString("ROSTER_SEPARATOR"))
	if err != nil {
		return nil, err
	}
	resultSep, err := parseSeparator("RESULT_SEPARATOR", v.GetString("RESULT_SEPARATOR"))
	if err != nil {
		return nil, err
	}
	outputSep, err := parseSeparator("OUTPUT_SEPARATOR", v.GetString("OUTPUT_SEPARATOR"))
	if err != nil {
		return nil, err
	}
	thresholds, err := parseFloats("GRADE_THRESHOLDS", v.GetString("GRADE_THRESHOLDS"))
	if err != nil {
		return nil, err
	}
	cfg.Pipeline = PipelineConfig{
		CodePage:             v.GetString("PIPELINE_CODEPAGE"),
		RosterSeparator:      rosterSep,
		ResultSeparator:      resultSep,
		OutputSeparator:      outputSep,
		AllowedQuestionTypes: splitAndTrim(v.GetString("ALLOWED_QUESTION_TYPES")),
		GradeThresholds:      thresholds,
	}

	maxUpload := v.GetInt64("UPLOAD_MAX_FILE_SIZE")
	if maxUpload <= 0 {
		maxUpload = 10 * 1024 * 1024
	}
	cfg.Uploads = UploadConfig{
		MaxFileSizeBytes: maxUpload,
		EvaluationMIMEs:  splitAndTrim(v.GetString("EVALUATION_ALLOWED_MIME_TYPES")),
	}

	cfg.Statistics = StatisticsConfig{
		Lang:         v.GetString("STATISTICS_LANG"),
		CacheEnabled: v.GetBool("ENABLE_STATISTICS_CACHE"),
		CacheTTL:     parseDuration(v.GetString("STATISTICS_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Metrics = MetricsConfig{Enabled: v.GetBool("ENABLE_METRICS")}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/0")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("EVALUATOR_HOST", "127.0.0.1")
	v.SetDefault("EVALUATOR_PORT", 5000)
	v.SetDefault("EVALUATOR_TIMEOUT", "0s")

	v.SetDefault("PIPELINE_CODEPAGE", "windows-1250")
	v.SetDefault("ROSTER_SEPARATOR", ";")
	v.SetDefault("RESULT_SEPARATOR", ",")
	v.SetDefault("OUTPUT_SEPARATOR", ",")
	v.SetDefault("ALLOWED_QUESTION_TYPES", "multichoice,truefalse")
	v.SetDefault("GRADE_THRESHOLDS", "0.9,0.8,0.7,0.6")

	v.SetDefault("UPLOAD_MAX_FILE_SIZE", 10*1024*1024)
	v.SetDefault("EVALUATION_ALLOWED_MIME_TYPES", "application/pdf,image/png,image/jpeg")

	v.SetDefault("STATISTICS_LANG", "cs")
	v.SetDefault("ENABLE_STATISTICS_CACHE", false)
	v.SetDefault("STATISTICS_CACHE_TTL", "10m")

	v.SetDefault("ENABLE_METRICS", true)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

func parseSeparator(key, raw string) (rune, error) {
	if raw == `\t` || raw == "tab" {
		return '\t', nil
	}
	if utf8.RuneCountInString(raw) != 1 {
		return 0, fmt.Errorf("%s must be a single character, got %q", key, raw)
	}
	r, _ := utf8.DecodeRuneInString(raw)
	if r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
		return 0, fmt.Errorf("%s cannot be %q", key, raw)
	}
	return r, nil
}

func parseFloats(key, raw string) ([]float64, error) {
	parts := splitAndTrim(raw)
	out := make([]float64, 0, len(parts))
	for _, part := range parts {
		f, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid number %q", key, part)
		}
		out = append(out, f)
	}
	return out, nil
}
