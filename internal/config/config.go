package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	LogLevel string        `mapstructure:"log_level"`
	Server   ServerConfig  `mapstructure:"server"`
	Backend  BackendConfig `mapstructure:"backend"`
	Voices   VoicesConfig  `mapstructure:"voices"`
	Audio    AudioConfig   `mapstructure:"audio"`
	Storage  StorageConfig `mapstructure:"storage"`
}

type ServerConfig struct {
	ListenAddr      string `mapstructure:"listen_addr"`
	Workers         int    `mapstructure:"workers"`
	RequestTimeout  int    `mapstructure:"request_timeout"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
	MaxTextLen      int    `mapstructure:"max_text_len"`
	MaxChunkLen     int    `mapstructure:"max_chunk_len"`
}

type BackendConfig struct {
	URL           string `mapstructure:"url"`
	APIKey        string `mapstructure:"api_key"`
	PollInterval  int    `mapstructure:"poll_interval_ms"`
	StreamTimeout int    `mapstructure:"stream_timeout"`
}

type VoicesConfig struct {
	MappingURL  string `mapstructure:"mapping_url"`
	MappingPath string `mapstructure:"mapping_path"`
	BaseDir     string `mapstructure:"base_dir"`
	CacheTTL    int    `mapstructure:"cache_ttl"`
}

type AudioConfig struct {
	ChunkGapMS   int     `mapstructure:"chunk_gap_ms"`
	TargetLUFS   float64 `mapstructure:"target_lufs"`
	WatermarkKey string  `mapstructure:"watermark_key"`
}

type StorageConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	PresignExpiry   int    `mapstructure:"presign_expiry"`
	OutputDir       string `mapstructure:"output_dir"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Server: ServerConfig{
			ListenAddr:      ":8080",
			Workers:         2,
			RequestTimeout:  120,
			ShutdownTimeout: 30,
			MaxTextLen:      2000,
			MaxChunkLen:     300,
		},
		Backend: BackendConfig{
			URL:           "",
			APIKey:        "",
			PollInterval:  500,
			StreamTimeout: 300,
		},
		Voices: VoicesConfig{
			MappingURL:  "",
			MappingPath: "voices/mapping.json",
			BaseDir:     "",
			CacheTTL:    300,
		},
		Audio: AudioConfig{
			ChunkGapMS:   60,
			TargetLUFS:   -27,
			WatermarkKey: "",
		},
		Storage: StorageConfig{
			Endpoint:        "",
			Region:          "",
			Bucket:          "",
			AccessKeyID:     "",
			SecretAccessKey: "",
			PresignExpiry:   3600,
			OutputDir:       "",
		},
	}
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
	fs.String("server-listen-addr", defaults.Server.ListenAddr, "HTTP listen address")
	fs.Int("workers", defaults.Server.Workers, "Max concurrent chunk generations per request")
	fs.Int("server-request-timeout", defaults.Server.RequestTimeout, "Per-request synthesis deadline in seconds")
	fs.Int("server-shutdown-timeout", defaults.Server.ShutdownTimeout, "Graceful shutdown drain period in seconds")
	fs.Int("server-max-text-len", defaults.Server.MaxTextLen, "Maximum input text length in characters")
	fs.Int("server-max-chunk-len", defaults.Server.MaxChunkLen, "Maximum generation chunk length in characters")
	fs.String("backend-url", defaults.Backend.URL, "Base URL of the generation backend")
	fs.String("backend-api-key", defaults.Backend.APIKey, "Bearer token for the generation backend")
	fs.Int("backend-poll-interval-ms", defaults.Backend.PollInterval, "Streaming job poll interval in milliseconds")
	fs.Int("backend-stream-timeout", defaults.Backend.StreamTimeout, "Overall streaming timeout in seconds")
	fs.String("voices-mapping-url", defaults.Voices.MappingURL, "URL of the voice mapping document")
	fs.String("voices-mapping-path", defaults.Voices.MappingPath, "Path to a local voice mapping file")
	fs.String("voices-base-dir", defaults.Voices.BaseDir, "Local directory for reference audio verification (empty disables)")
	fs.Int("voices-cache-ttl", defaults.Voices.CacheTTL, "Voice mapping cache TTL in seconds")
	fs.Int("audio-chunk-gap-ms", defaults.Audio.ChunkGapMS, "Silence inserted between chunks in milliseconds")
	fs.Float64("audio-target-lufs", defaults.Audio.TargetLUFS, "Loudness normalization target in LUFS")
	fs.String("audio-watermark-key", defaults.Audio.WatermarkKey, "Key for the audio watermark signature")
	fs.String("storage-endpoint", defaults.Storage.Endpoint, "S3-compatible endpoint URL (empty for AWS)")
	fs.String("storage-region", defaults.Storage.Region, "S3 region")
	fs.String("storage-bucket", defaults.Storage.Bucket, "S3 bucket for generated audio (empty disables upload)")
	fs.String("storage-access-key-id", defaults.Storage.AccessKeyID, "S3 access key id")
	fs.String("storage-secret-access-key", defaults.Storage.SecretAccessKey, "S3 secret access key")
	fs.Int("storage-presign-expiry", defaults.Storage.PresignExpiry, "Presigned URL lifetime in seconds")
	fs.String("storage-output-dir", defaults.Storage.OutputDir, "Optional local directory for generated audio copies")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := v.BindPFlags(opts.Cmd.Flags()); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}
	registerAliases(v)

	v.SetEnvPrefix("CHATTERBOX")
	replacer := strings.NewReplacer("-", "_", ".", "_", "__", "_")
	v.SetEnvKeyReplacer(replacer)
	if err := v.BindEnv("storage.secret_access_key", "CHATTERBOX_STORAGE_SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY"); err != nil {
		return Config{}, fmt.Errorf("bind storage env vars: %w", err)
	}
	if err := v.BindEnv("storage.access_key_id", "CHATTERBOX_STORAGE_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID"); err != nil {
		return Config{}, fmt.Errorf("bind storage env vars: %w", err)
	}
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("chatterbox")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("log_level", c.LogLevel)
	v.SetDefault("server.listen_addr", c.Server.ListenAddr)
	v.SetDefault("server.workers", c.Server.Workers)
	v.SetDefault("server.request_timeout", c.Server.RequestTimeout)
	v.SetDefault("server.shutdown_timeout", c.Server.ShutdownTimeout)
	v.SetDefault("server.max_text_len", c.Server.MaxTextLen)
	v.SetDefault("server.max_chunk_len", c.Server.MaxChunkLen)
	v.SetDefault("backend.url", c.Backend.URL)
	v.SetDefault("backend.api_key", c.Backend.APIKey)
	v.SetDefault("backend.poll_interval_ms", c.Backend.PollInterval)
	v.SetDefault("backend.stream_timeout", c.Backend.StreamTimeout)
	v.SetDefault("voices.mapping_url", c.Voices.MappingURL)
	v.SetDefault("voices.mapping_path", c.Voices.MappingPath)
	v.SetDefault("voices.base_dir", c.Voices.BaseDir)
	v.SetDefault("voices.cache_ttl", c.Voices.CacheTTL)
	v.SetDefault("audio.chunk_gap_ms", c.Audio.ChunkGapMS)
	v.SetDefault("audio.target_lufs", c.Audio.TargetLUFS)
	v.SetDefault("audio.watermark_key", c.Audio.WatermarkKey)
	v.SetDefault("storage.endpoint", c.Storage.Endpoint)
	v.SetDefault("storage.region", c.Storage.Region)
	v.SetDefault("storage.bucket", c.Storage.Bucket)
	v.SetDefault("storage.access_key_id", c.Storage.AccessKeyID)
	v.SetDefault("storage.secret_access_key", c.Storage.SecretAccessKey)
	v.SetDefault("storage.presign_expiry", c.Storage.PresignExpiry)
	v.SetDefault("storage.output_dir", c.Storage.OutputDir)
}

func registerAliases(v *viper.Viper) {
	v.RegisterAlias("log_level", "log-level")
	v.RegisterAlias("server.listen_addr", "server-listen-addr")
	v.RegisterAlias("server.workers", "workers")
	v.RegisterAlias("server.request_timeout", "server-request-timeout")
	v.RegisterAlias("server.shutdown_timeout", "server-shutdown-timeout")
	v.RegisterAlias("server.max_text_len", "server-max-text-len")
	v.RegisterAlias("server.max_chunk_len", "server-max-chunk-len")
	v.RegisterAlias("backend.url", "backend-url")
	v.RegisterAlias("backend.api_key", "backend-api-key")
	v.RegisterAlias("backend.poll_interval_ms", "backend-poll-interval-ms")
	v.RegisterAlias("backend.stream_timeout", "backend-stream-timeout")
	v.RegisterAlias("voices.mapping_url", "voices-mapping-url")
	v.RegisterAlias("voices.mapping_path", "voices-mapping-path")
	v.RegisterAlias("voices.base_dir", "voices-base-dir")
	v.RegisterAlias("voices.cache_ttl", "voices-cache-ttl")
	v.RegisterAlias("audio.chunk_gap_ms", "audio-chunk-gap-ms")
	v.RegisterAlias("audio.target_lufs", "audio-target-lufs")
	v.RegisterAlias("audio.watermark_key", "audio-watermark-key")
	v.RegisterAlias("storage.endpoint", "storage-endpoint")
	v.RegisterAlias("storage.region", "storage-region")
	v.RegisterAlias("storage.bucket", "storage-bucket")
	v.RegisterAlias("storage.access_key_id", "storage-access-key-id")
	v.RegisterAlias("storage.secret_access_key", "storage-secret-access-key")
	v.RegisterAlias("storage.presign_expiry", "storage-presign-expiry")
	v.RegisterAlias("storage.output_dir", "storage-output-dir")
}
