package internal

import (
	"fmt"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

type BlobBackend string

const (
	BlobDisk  BlobBackend = "disk"
	BlobMinio BlobBackend = "minio"
)

type Config struct {
	HTTPPort             int           `env:"HTTP_PORT,required=true"`
	GRPCPort             int           `env:"GRPC_PORT,required=true"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true"`
	LogLevel             string        `env:"LOG_LEVEL,required=true"`
	BufferSize           int           `env:"BUFFER_SIZE,required=true"`
	NumberOfWorkers      int           `env:"NUMBER_OF_WORKERS,required=true"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,required=true"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,required=true"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,required=true"`
	HistoryLimit         int           `env:"HISTORY_LIMIT,default=0"`
	JWTSecret            string        `env:"JWT_SECRET,required=true"`
	DirectorySeedFile    string        `env:"DIRECTORY_SEED_FILE"`

	BlobBackend    string `env:"BLOB_BACKEND,default=disk"`
	UploadDir      string `env:"UPLOAD_DIR,default=./uploads"`
	MaxUploadBytes int64  `env:"MAX_UPLOAD_BYTES,default=52428800"`
	MinioEndpoint  string `env:"MINIO_ENDPOINT"`
	MinioAccessKey string `env:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `env:"MINIO_SECRET_KEY"`
	MinioBucket    string `env:"MINIO_BUCKET,default=messenger"`
	MinioUseSSL    bool   `env:"MINIO_USE_SSL,default=false"`
}

// LoadConfig reads the optional .env files then decodes the environment.
// Variables already set in the environment win over the files.
func LoadConfig(files ...string) (Config, error) {
	var config Config
	for _, file := range files {
		// Missing files are fine, a deployment sets the environment directly
		_ = godotenv.Load(file)
	}
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) Backend() BlobBackend {
	return BlobBackend(strings.ToLower(strings.TrimSpace(c.BlobBackend)))
}

func (c Config) Validate() error {
	if c.NumberOfWorkers <= 0 {
		return fmt.Errorf("NUMBER_OF_WORKERS must be positive, got %d", c.NumberOfWorkers)
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("BUFFER_SIZE must be positive, got %d", c.BufferSize)
	}
	if c.ConnectionBufferSize <= 0 {
		return fmt.Errorf("CONNECTION_BUFFER_SIZE must be positive, got %d", c.ConnectionBufferSize)
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("HISTORY_LIMIT cannot be negative, got %d", c.HistoryLimit)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	switch c.Backend() {
	case BlobDisk:
	case BlobMinio:
		if c.MinioEndpoint == "" || c.MinioAccessKey == "" || c.MinioSecretKey == "" {
			return fmt.Errorf("BLOB_BACKEND=minio requires MINIO_ENDPOINT, MINIO_ACCESS_KEY and MINIO_SECRET_KEY")
		}
	default:
		return fmt.Errorf("unknown BLOB_BACKEND %q", c.BlobBackend)
	}
	return nil
}
