package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	Port        string `envconfig:"PORT" default:"5000"`

	MaxUploadBytes int64 `envconfig:"MAX_UPLOAD_BYTES" default:"10485760"`
	MaxTextChars   int   `envconfig:"MAX_TEXT_CHARS" default:"5000"`
	MaxChunkChars  int   `envconfig:"MAX_CHUNK_CHARS" default:"5000"`

	STTLanguages       string `envconfig:"STT_LANGUAGES" default:"en-US,en-GB,fr-FR,es-ES,de-DE,my-MM"`
	STTDefaultLanguage string `envconfig:"STT_DEFAULT_LANGUAGE" default:"en-US"`
	STTLanguageCatalog string `envconfig:"STT_LANGUAGE_CATALOG" default:""`
	STTEndpoint        string `envconfig:"STT_ENDPOINT" default:""`
	STTAPIKey          string `envconfig:"STT_API_KEY" default:""`
	STTModel           string `envconfig:"STT_MODEL" default:"whisper-1"`
	FFmpegBinary       string `envconfig:"FFMPEG_BINARY" default:"ffmpeg"`

	TTSEndpoint    string `envconfig:"TTS_ENDPOINT" default:"https://translate.google.com/translate_tts"`
	TTSDefaultLang string `envconfig:"TTS_DEFAULT_LANG" default:"en"`

	TranslateCloudEnabled  bool   `envconfig:"TRANSLATE_CLOUD_ENABLED" default:"false"`
	TranslateCloudFunction string `envconfig:"TRANSLATE_CLOUD_FUNCTION" default:""`
	LibreTranslateURL      string `envconfig:"LIBRETRANSLATE_URL" default:""`
	LibreTranslateAPIKey   string `envconfig:"LIBRETRANSLATE_API_KEY" default:""`
	TranslateSourceLang    string `envconfig:"TRANSLATE_SOURCE_LANG" default:"auto"`

	ProviderTimeoutSec int `envconfig:"PROVIDER_TIMEOUT_SEC" default:"60"`
	ProviderRetrySec   int `envconfig:"PROVIDER_RETRY_SEC" default:"10"`

	TempDir string `envconfig:"TEMP_DIR" default:""`
}

// LoadEnvFile loads a .env file when present; a missing file is not an error.
func LoadEnvFile(path string) error {
	if strings.TrimSpace(path) == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat env file %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.TempDir) == "" {
		cfg.TempDir = os.TempDir()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.MaxUploadBytes < 1 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be >= 1")
	}
	if c.MaxTextChars < 1 {
		return fmt.Errorf("MAX_TEXT_CHARS must be >= 1")
	}
	if c.MaxChunkChars < 1 {
		return fmt.Errorf("MAX_CHUNK_CHARS must be >= 1")
	}
	if strings.TrimSpace(c.STTDefaultLanguage) == "" {
		return fmt.Errorf("STT_DEFAULT_LANGUAGE is required")
	}
	if c.TranslateCloudEnabled && strings.TrimSpace(c.TranslateCloudFunction) == "" {
		return fmt.Errorf("TRANSLATE_CLOUD_FUNCTION is required when TRANSLATE_CLOUD_ENABLED is set")
	}
	if c.ProviderTimeoutSec < 1 {
		return fmt.Errorf("PROVIDER_TIMEOUT_SEC must be >= 1")
	}
	if c.ProviderRetrySec < 0 {
		return fmt.Errorf("PROVIDER_RETRY_SEC must be >= 0")
	}
	return nil
}

// STTLanguageList splits STT_LANGUAGES, dropping blanks and duplicates.
func (c *Config) STTLanguageList() []string {
	if c == nil {
		return nil
	}
	parts := strings.Split(c.STTLanguages, ",")
	tags := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		tag := strings.TrimSpace(part)
		if tag == "" {
			continue
		}
		if _, exists := seen[tag]; exists {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.ProviderTimeoutSec) * time.Second
}

func (c *Config) ProviderRetryBudget() time.Duration {
	return time.Duration(c.ProviderRetrySec) * time.Second
}

func (c *Config) Addr() string {
	return ":" + strings.TrimPrefix(strings.TrimSpace(c.Port), ":")
}
