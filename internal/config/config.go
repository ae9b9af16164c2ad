package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config aggregates runtime configuration for the post media API.
type Config struct {
	Server    ServerConfig
	Postgres  PostgresConfig
	MinIO     MinIOConfig
	Auth      AuthConfig
	Metrics   MetricsConfig
	Upload    UploadConfig
	Post      PostConfig
	Transcode TranscodeConfig
}

// ServerConfig parameterizes the HTTP server.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Address returns the listen address in host:port form.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// PostgresConfig contains PostgreSQL connection details.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	ConnectTimeout  time.Duration
}

// DSN returns the PostgreSQL DSN string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// MinIOConfig carries MinIO connection and bucket information.
type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	Region          string
}

// AuthConfig groups access token settings. Tokens are issued by the
// account service; this process only verifies them.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenTTL    time.Duration
	Issuer            string
	Audience          string
}

// MetricsConfig groups observability settings.
type MetricsConfig struct {
	PrometheusPath string
}

// UploadConfig holds the ingestion limits applied to one upload batch.
type UploadConfig struct {
	TempDir     string
	FieldName   string
	MaxFileSize int64
	MaxPictures int
	MaxVideos   int
}

// uploadBodySlack covers multipart framing and part headers.
const uploadBodySlack = 1 << 20

// MaxBodyBytes is the largest request body a batch that passes the
// ceilings can produce.
func (u UploadConfig) MaxBodyBytes() int64 {
	return int64(u.MaxPictures+u.MaxVideos)*u.MaxFileSize + uploadBodySlack
}

// PostConfig holds the ceilings enforced when a record is committed.
// These intentionally differ from UploadConfig.
type PostConfig struct {
	MaxPictures int
	MaxVideos   int
	MediaURLTTL time.Duration
}

// TranscodeConfig configures the external ffmpeg process.
type TranscodeConfig struct {
	FFmpegPath string
	PresetFile string
	Preset     string
	WorkDir    string
	Workers    int
	Timeout    time.Duration
}

// Load reads configuration values from environment variables, applying defaults.
func Load() (Config, error) {
	tempDir := getString("POSTMEDIA_TEMP_DIR", filepath.Join(os.TempDir(), "postmedia"))

	cfg := Config{
		Server: ServerConfig{
			Host:         getString("POSTMEDIA_API_HOST", "0.0.0.0"),
			Port:         getInt("POSTMEDIA_API_PORT", 8080),
			ReadTimeout:  getDuration("POSTMEDIA_API_READ_TIMEOUT", 5*time.Minute),
			WriteTimeout: getDuration("POSTMEDIA_API_WRITE_TIMEOUT", 15*time.Minute),
			IdleTimeout:  getDuration("POSTMEDIA_API_IDLE_TIMEOUT", 60*time.Second),
		},
		Postgres: PostgresConfig{
			Host:     getString("POSTGRES_HOST", "localhost"),
			Port:     getInt("POSTGRES_PORT", 5432),
			User:     getString("POSTGRES_USER", "postmedia_app"),
			Password: getString("POSTGRES_PASSWORD", "change-me"),
			Database: getString("POSTGRES_DB", "postmedia"),
			SSLMode:  strings.ToLower(getString("POSTGRES_SSL_MODE", "disable")),

			MaxConns:        int32(getInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:        int32(getInt("POSTGRES_MIN_CONNS", 0)),
			MaxConnLifetime: getDuration("POSTGRES_MAX_CONN_LIFETIME", 30*time.Minute),
			ConnectTimeout:  getDuration("POSTGRES_CONNECT_TIMEOUT", 5*time.Second),
		},
		MinIO: MinIOConfig{
			Endpoint:        getString("MINIO_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getString("MINIO_ROOT_USER", "postmedia"),
			SecretAccessKey: getString("MINIO_ROOT_PASSWORD", "change-me-strong-password"),
			Bucket:          getString("MINIO_BUCKET", "postmedia"),
			UseSSL:          getBool("MINIO_USE_SSL", false),
			Region:          getString("MINIO_REGION", ""),
		},
		Auth: AuthConfig{
			AccessTokenSecret: getString("POSTMEDIA_JWT_SECRET", ""),
			AccessTokenTTL:    getDuration("POSTMEDIA_AUTH_ACCESS_TOKEN_TTL", 15*time.Minute),
			Issuer:            getString("POSTMEDIA_JWT_ISSUER", "postmedia"),
			Audience:          getString("POSTMEDIA_JWT_AUDIENCE", "postmedia-api"),
		},
		Metrics: MetricsConfig{
			PrometheusPath: getString("POSTMEDIA_METRICS_PATH", "/metrics"),
		},
		Upload: UploadConfig{
			TempDir:     tempDir,
			FieldName:   getString("POSTMEDIA_UPLOAD_FIELD", "content"),
			MaxFileSize: getInt64("POSTMEDIA_UPLOAD_MAX_FILE_SIZE", 300*1024*1024),
			MaxPictures: getInt("POSTMEDIA_UPLOAD_MAX_PICTURES", 5),
			MaxVideos:   getInt("POSTMEDIA_UPLOAD_MAX_VIDEOS", 2),
		},
		Post: PostConfig{
			MaxPictures: getInt("POSTMEDIA_POST_MAX_PICTURES", 10),
			MaxVideos:   getInt("POSTMEDIA_POST_MAX_VIDEOS", 2),
			MediaURLTTL: getDuration("POSTMEDIA_POST_MEDIA_URL_TTL", 15*time.Minute),
		},
		Transcode: TranscodeConfig{
			FFmpegPath: getString("POSTMEDIA_FFMPEG_PATH", "ffmpeg"),
			PresetFile: getString("POSTMEDIA_TRANSCODE_PRESET_FILE", ""),
			Preset:     getString("POSTMEDIA_TRANSCODE_PRESET", "default"),
			WorkDir:    getString("POSTMEDIA_TRANSCODE_WORK_DIR", tempDir),
			Workers:    getInt("POSTMEDIA_TRANSCODE_WORKERS", 1),
			Timeout:    getDuration("POSTMEDIA_TRANSCODE_TIMEOUT", 10*time.Minute),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error
	if strings.TrimSpace(c.Auth.AccessTokenSecret) == "" {
		errs = append(errs, errors.New("POSTMEDIA_JWT_SECRET is required"))
	}
	if c.Upload.MaxFileSize <= 0 {
		errs = append(errs, errors.New("upload max file size must be positive"))
	}
	if c.Upload.MaxPictures < 0 || c.Upload.MaxVideos < 0 {
		errs = append(errs, errors.New("upload ceilings must not be negative"))
	}
	if c.Post.MaxPictures < 0 || c.Post.MaxVideos < 0 {
		errs = append(errs, errors.New("post ceilings must not be negative"))
	}
	if c.Postgres.MaxConns < 1 || c.Postgres.MinConns < 0 || c.Postgres.MinConns > c.Postgres.MaxConns {
		errs = append(errs, errors.New("postgres pool sizes must satisfy 0 <= min <= max, max >= 1"))
	}
	if c.Transcode.Workers < 1 {
		errs = append(errs, errors.New("transcode workers must be at least 1"))
	}
	if strings.TrimSpace(c.Upload.FieldName) == "" {
		errs = append(errs, errors.New("upload field name is required"))
	}
	return errors.Join(errs...)
}

func getString(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getInt64(key string, fallback int64) int64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.ToLower(strings.TrimSpace(val))
		switch val {
		case "1", "true", "t", "yes", "y":
			return true
		case "0", "false", "f", "no", "n":
			return false
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}
