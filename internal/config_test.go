package internal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("HTTP_PORT", "8080")
	t.Setenv("GRPC_PORT", "9090")
	t.Setenv("BADGER_FILEPATH", "/tmp/messenger")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("BUFFER_SIZE", "1024")
	t.Setenv("NUMBER_OF_WORKERS", "4")
	t.Setenv("SINK_TIMEOUT", "200ms")
	t.Setenv("CONNECTION_BUFFER_SIZE", "64")
	t.Setenv("RESTART_INTERVAL", "1s")
	t.Setenv("JWT_SECRET", "secret")
}

func TestLoadConfig_Applies_Defaults(t *testing.T) {
	req := require.New(t)
	setRequired(t)

	config, err := LoadConfig()

	req.NoError(err)
	req.Equal(8080, config.HTTPPort)
	req.Equal(200*time.Millisecond, config.SinkTimeout)
	req.Equal(0, config.HistoryLimit)
	req.Equal(BlobDisk, config.Backend())
	req.Equal(int64(50<<20), config.MaxUploadBytes)
	req.Equal("./uploads", config.UploadDir)
}

func TestLoadConfig_Missing_Required_Key(t *testing.T) {
	req := require.New(t)
	setRequired(t)
	t.Setenv("JWT_SECRET", "")
	req.NoError(os.Unsetenv("JWT_SECRET"))

	_, err := LoadConfig()

	req.Error(err)
}

func TestLoadConfig_Reads_Dotenv_Without_Overriding(t *testing.T) {
	req := require.New(t)
	setRequired(t)
	t.Setenv("HISTORY_LIMIT", "")
	req.NoError(os.Unsetenv("HISTORY_LIMIT"))

	// Given a .env file setting HISTORY_LIMIT and a conflicting LOG_LEVEL
	file := filepath.Join(t.TempDir(), ".env")
	req.NoError(os.WriteFile(file, []byte("HISTORY_LIMIT=50\nLOG_LEVEL=ERROR\n"), 0o600))

	config, err := LoadConfig(file)

	// Then the file fills the gap and the environment keeps precedence
	req.NoError(err)
	req.Equal(50, config.HistoryLimit)
	req.Equal("DEBUG", config.LogLevel)
	// godotenv sets the variable for the rest of the process
	t.Cleanup(func() { _ = os.Unsetenv("HISTORY_LIMIT") })
}

func TestConfig_Validate(t *testing.T) {
	req := require.New(t)
	valid := Config{NumberOfWorkers: 1, BufferSize: 1, ConnectionBufferSize: 1, MaxUploadBytes: 1, BlobBackend: "disk"}
	req.NoError(valid.Validate())

	noWorkers := valid
	noWorkers.NumberOfWorkers = 0
	req.Error(noWorkers.Validate())

	minio := valid
	minio.BlobBackend = "MinIO"
	req.Error(minio.Validate())
	minio.MinioEndpoint, minio.MinioAccessKey, minio.MinioSecretKey = "localhost:9000", "key", "secret"
	req.NoError(minio.Validate())

	unknown := valid
	unknown.BlobBackend = "ftp"
	req.Error(unknown.Validate())
}
