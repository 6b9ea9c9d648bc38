// Package config provides the configuration structure for the visionvoice service.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
)

// Speech engine and audio backend names.
const (
	SpeechEngineGoogle = "google"
	SpeechEngineHTTP   = "http"
	SpeechEngineOpenAI = "openai"

	AudioBackendFilesystem = "filesystem"
	AudioBackendNATS       = "nats"
)

// Default values.
const (
	defaultAddr                 = ":5001"
	defaultMaxUploadMB          = 10
	defaultReadTimeoutSeconds   = 30
	defaultWriteTimeoutSeconds  = 180
	defaultCaptionAPIURL        = "https://api-inference.huggingface.co/models/Salesforce/blip-image-captioning-large"
	defaultCaptionTokenEnv      = "HF_API_TOKEN"
	defaultCaptionTimeout       = 60
	defaultCaptionMaxAttempts   = 3
	defaultCaptionRetryWait     = 20
	defaultCaptionMaxDimension  = 512
	defaultCaptionJPEGQuality   = 85
	defaultCaptionMaxPixels     = 89_478_485
	defaultSpeechLanguage       = "en"
	defaultSpeechGoogleURL      = "https://translate.google.com/translate_tts"
	defaultSpeechServiceURL     = "http://127.0.0.1:8000"
	defaultSpeechTemperature    = 0.75
	defaultSpeechTimeout        = 60
	defaultOpenAIURL            = "https://api.openai.com/v1/audio/speech"
	defaultOpenAITokenEnv       = "OPENAI_API_KEY"
	defaultOpenAIModel          = "tts-1"
	defaultOpenAIVoice          = "alloy"
	defaultOpenAISpeed          = 1.0
	minOpenAISpeed              = 0.25
	maxOpenAISpeed              = 4.0
	defaultAudioDir             = "static/audio"
	defaultAudioURLPrefix       = "/static/audio"
	defaultNATSURL              = "nats://127.0.0.1:4222"
	defaultAudioBucket          = "VISIONVOICE_AUDIO"
	defaultImageBucket          = "VISIONVOICE_IMAGES"
	defaultDescriptionSubject   = "visionvoice.description.created"
	defaultBaseLogsDir          = "logs"
	defaultEnvFile              = ".env"
	maxJPEGQuality              = 100
	bytesPerMegabyte            = 1 << 20
)

// Validation errors.
var (
	ErrAddrEmpty             = errors.New("server addr cannot be empty")
	ErrMaxUploadNotPositive  = errors.New("max_upload_mb must be positive")
	ErrCaptionURLEmpty       = errors.New("caption api_url cannot be empty")
	ErrCaptionAttempts       = errors.New("caption max_attempts must be at least 1")
	ErrCaptionJPEGQuality    = errors.New("caption jpeg_quality must be between 1 and 100")
	ErrUnknownSpeechEngine   = errors.New("unknown speech engine")
	ErrUnknownAudioBackend   = errors.New("unknown audio backend")
	ErrNATSRequired          = errors.New("nats must be enabled for the nats audio backend")
	ErrNegativeKeepLatest    = errors.New("audio keep_latest must be non-negative")
	ErrURLPrefixInvalid      = errors.New("audio url_prefix must start with '/'")
	ErrTemperatureRange      = errors.New("speech temperature must be >= 0.0")
	ErrCaptionMaxDimension   = errors.New("caption max_dimension must be positive")
	ErrCaptionMaxPixels      = errors.New("caption max_pixels must be positive")
	ErrNATSBucketNameMissing = errors.New("nats bucket name cannot be empty")
	ErrOpenAISpeedRange      = errors.New("speech openai_speed must be between 0.25 and 4.0")
	ErrOpenAIFormat          = errors.New("speech openai_format must be mp3 or wav")
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr                string   `toml:"addr"`
	MaxUploadMB         int      `toml:"max_upload_mb"`
	ReadTimeoutSeconds  int      `toml:"read_timeout_seconds"`
	WriteTimeoutSeconds int      `toml:"write_timeout_seconds"`
	AllowedOrigins      []string `toml:"allowed_origins"`
}

// CaptionConfig holds the settings for the image captioning API.
type CaptionConfig struct {
	APIURL           string `toml:"api_url"`
	APITokenEnv      string `toml:"api_token_env"`
	TimeoutSeconds   int    `toml:"timeout_seconds"`
	MaxAttempts      int    `toml:"max_attempts"`
	RetryWaitSeconds int    `toml:"retry_wait_seconds"`
	MaxDimension     int    `toml:"max_dimension"`
	JPEGQuality      int    `toml:"jpeg_quality"`
	MaxPixels        int    `toml:"max_pixels"`
}

// SpeechConfig holds the settings for speech synthesis.
type SpeechConfig struct {
	Engine         string   `toml:"engine"`
	Language       string   `toml:"language"`
	Slow           bool     `toml:"slow"`
	GoogleURL      string   `toml:"google_url"`
	ServiceURL     string   `toml:"service_url"`
	Temperature    *float64 `toml:"temperature"`
	SpeakerRefPath string   `toml:"speaker_ref_path"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
	OpenAIURL      string   `toml:"openai_url"`
	OpenAITokenEnv string   `toml:"openai_token_env"`
	OpenAIModel    string   `toml:"openai_model"`
	OpenAIVoice    string   `toml:"openai_voice"`
	OpenAISpeed    float64  `toml:"openai_speed"`
	OpenAIFormat   string   `toml:"openai_format"`
}

// AudioConfig holds the settings for generated audio files.
type AudioConfig struct {
	Backend    string `toml:"backend"`
	Dir        string `toml:"dir"`
	URLPrefix  string `toml:"url_prefix"`
	KeepLatest int    `toml:"keep_latest"`
}

// NATSConfig holds the configuration for NATS.
type NATSConfig struct {
	Enabled                   bool   `toml:"enabled"`
	URL                       string `toml:"url"`
	AudioObjectStoreBucket    string `toml:"audio_object_store_bucket"`
	AudioTTLSeconds           int    `toml:"audio_ttl_seconds"`
	ImageObjectStoreBucket    string `toml:"image_object_store_bucket"`
	DescriptionCreatedSubject string `toml:"description_created_subject"`
	DescribeRequestSubject    string `toml:"describe_request_subject"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
	EnvFile     string `toml:"env_file"`
}

// Config is the root configuration structure.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Caption CaptionConfig `toml:"caption"`
	Speech  SpeechConfig  `toml:"speech"`
	Audio   AudioConfig   `toml:"audio"`
	NATS    NATSConfig    `toml:"nats"`
	Paths   PathsConfig   `toml:"paths"`
}

// Load loads the configuration for the visionvoice service, fills in defaults and
// validates the result.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	cfg.ApplyDefaults()

	err = cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// ApplyDefaults fills every zero-valued setting with its default.
func (c *Config) ApplyDefaults() {
	setString(&c.Server.Addr, defaultAddr)
	setInt(&c.Server.MaxUploadMB, defaultMaxUploadMB)
	setInt(&c.Server.ReadTimeoutSeconds, defaultReadTimeoutSeconds)
	setInt(&c.Server.WriteTimeoutSeconds, defaultWriteTimeoutSeconds)

	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}

	setString(&c.Caption.APIURL, defaultCaptionAPIURL)
	setString(&c.Caption.APITokenEnv, defaultCaptionTokenEnv)
	setInt(&c.Caption.TimeoutSeconds, defaultCaptionTimeout)
	setInt(&c.Caption.MaxAttempts, defaultCaptionMaxAttempts)
	setInt(&c.Caption.RetryWaitSeconds, defaultCaptionRetryWait)
	setInt(&c.Caption.MaxDimension, defaultCaptionMaxDimension)
	setInt(&c.Caption.JPEGQuality, defaultCaptionJPEGQuality)
	setInt(&c.Caption.MaxPixels, defaultCaptionMaxPixels)

	setString(&c.Speech.Engine, SpeechEngineGoogle)
	setString(&c.Speech.Language, defaultSpeechLanguage)
	setString(&c.Speech.GoogleURL, defaultSpeechGoogleURL)
	setString(&c.Speech.ServiceURL, defaultSpeechServiceURL)
	setInt(&c.Speech.TimeoutSeconds, defaultSpeechTimeout)

	if c.Speech.Temperature == nil {
		temperature := defaultSpeechTemperature
		c.Speech.Temperature = &temperature
	}

	setString(&c.Speech.OpenAIURL, defaultOpenAIURL)
	setString(&c.Speech.OpenAITokenEnv, defaultOpenAITokenEnv)
	setString(&c.Speech.OpenAIModel, defaultOpenAIModel)
	setString(&c.Speech.OpenAIVoice, defaultOpenAIVoice)
	setString(&c.Speech.OpenAIFormat, "mp3")

	if c.Speech.OpenAISpeed == 0 {
		c.Speech.OpenAISpeed = defaultOpenAISpeed
	}

	setString(&c.Audio.Backend, AudioBackendFilesystem)
	setString(&c.Audio.Dir, defaultAudioDir)
	setString(&c.Audio.URLPrefix, defaultAudioURLPrefix)

	setString(&c.NATS.URL, defaultNATSURL)
	setString(&c.NATS.AudioObjectStoreBucket, defaultAudioBucket)
	setString(&c.NATS.ImageObjectStoreBucket, defaultImageBucket)
	setString(&c.NATS.DescriptionCreatedSubject, defaultDescriptionSubject)

	setString(&c.Paths.BaseLogsDir, defaultBaseLogsDir)
	setString(&c.Paths.EnvFile, defaultEnvFile)
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return ErrAddrEmpty
	}

	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("%w: got %d", ErrMaxUploadNotPositive, c.Server.MaxUploadMB)
	}

	captionErr := c.validateCaption()
	if captionErr != nil {
		return captionErr
	}

	speechErr := c.validateSpeech()
	if speechErr != nil {
		return speechErr
	}

	return c.validateAudio()
}

func (c *Config) validateSpeech() error {
	switch c.Speech.Engine {
	case SpeechEngineGoogle, SpeechEngineHTTP, SpeechEngineOpenAI:
	default:
		return fmt.Errorf("%w: '%s'", ErrUnknownSpeechEngine, c.Speech.Engine)
	}

	if c.Speech.TTSTemperature() < 0 {
		return fmt.Errorf("%w: got %f", ErrTemperatureRange, c.Speech.TTSTemperature())
	}

	if c.Speech.OpenAISpeed < minOpenAISpeed || c.Speech.OpenAISpeed > maxOpenAISpeed {
		return fmt.Errorf("%w: got %f", ErrOpenAISpeedRange, c.Speech.OpenAISpeed)
	}

	switch c.Speech.OpenAIFormat {
	case "mp3", "wav":
	default:
		return fmt.Errorf("%w: got '%s'", ErrOpenAIFormat, c.Speech.OpenAIFormat)
	}

	return nil
}

func (c *Config) validateCaption() error {
	if c.Caption.APIURL == "" {
		return ErrCaptionURLEmpty
	}

	if c.Caption.MaxAttempts < 1 {
		return fmt.Errorf("%w: got %d", ErrCaptionAttempts, c.Caption.MaxAttempts)
	}

	if c.Caption.MaxDimension <= 0 {
		return fmt.Errorf("%w: got %d", ErrCaptionMaxDimension, c.Caption.MaxDimension)
	}

	if c.Caption.JPEGQuality < 1 || c.Caption.JPEGQuality > maxJPEGQuality {
		return fmt.Errorf("%w: got %d", ErrCaptionJPEGQuality, c.Caption.JPEGQuality)
	}

	if c.Caption.MaxPixels <= 0 {
		return fmt.Errorf("%w: got %d", ErrCaptionMaxPixels, c.Caption.MaxPixels)
	}

	return nil
}

func (c *Config) validateAudio() error {
	if c.Audio.KeepLatest < 0 {
		return fmt.Errorf("%w: got %d", ErrNegativeKeepLatest, c.Audio.KeepLatest)
	}

	if c.Audio.URLPrefix == "" || c.Audio.URLPrefix[0] != '/' {
		return fmt.Errorf("%w: '%s'", ErrURLPrefixInvalid, c.Audio.URLPrefix)
	}

	switch c.Audio.Backend {
	case AudioBackendFilesystem:
	case AudioBackendNATS:
		if !c.NATS.Enabled {
			return ErrNATSRequired
		}

		if c.NATS.AudioObjectStoreBucket == "" {
			return ErrNATSBucketNameMissing
		}
	default:
		return fmt.Errorf("%w: '%s'", ErrUnknownAudioBackend, c.Audio.Backend)
	}

	return nil
}

// CaptionToken returns the captioning API token from the configured environment
// variable. It is empty when the variable is unset.
func (c *CaptionConfig) CaptionToken() string {
	return os.Getenv(c.APITokenEnv)
}

// Timeout returns the captioning request timeout.
func (c *CaptionConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RetryWait returns the base wait between attempts while the model is loading.
func (c *CaptionConfig) RetryWait() time.Duration {
	return time.Duration(c.RetryWaitSeconds) * time.Second
}

// OpenAIToken returns the OpenAI API key from the configured environment variable.
func (s *SpeechConfig) OpenAIToken() string {
	return os.Getenv(s.OpenAITokenEnv)
}

// TTSTemperature returns the configured temperature, or the default when unset.
// An explicit 0.0 is kept.
func (s *SpeechConfig) TTSTemperature() float64 {
	if s.Temperature == nil {
		return defaultSpeechTemperature
	}

	return *s.Temperature
}

// Timeout returns the speech synthesis request timeout.
func (s *SpeechConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// MaxUploadBytes returns the upload size limit in bytes.
func (s *ServerConfig) MaxUploadBytes() int64 {
	return int64(s.MaxUploadMB) * bytesPerMegabyte
}

// ReadTimeout returns the HTTP server read timeout.
func (s *ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutSeconds) * time.Second
}

// WriteTimeout returns the HTTP server write timeout.
func (s *ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutSeconds) * time.Second
}

// AudioTTL returns the object store TTL for generated audio, zero meaning none.
func (n *NATSConfig) AudioTTL() time.Duration {
	return time.Duration(n.AudioTTLSeconds) * time.Second
}

func setString(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

func setInt(field *int, value int) {
	if *field == 0 {
		*field = value
	}
}
