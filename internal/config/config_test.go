package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, int64(10), cfg.Server.MaxUploadSizeMB)
	assert.Equal(t, BackendFilesystem, cfg.Media.Backend)
	assert.Equal(t, "uploads", cfg.Media.UploadDir)
	assert.False(t, cfg.OTEL.Enabled)
}

func TestValidate(t *testing.T) {
	t.Run("missing jwt secret", func(t *testing.T) {
		cfg := &Config{Media: MediaConfig{Backend: BackendFilesystem, UploadDir: "uploads"}}
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := &Config{
			JWT:   JWTConfig{Secret: "secret"},
			Media: MediaConfig{Backend: "tape"},
		}
		assert.ErrorContains(t, cfg.Validate(), "MEDIA_BACKEND")
	})

	t.Run("s3 backend requires endpoint", func(t *testing.T) {
		cfg := &Config{
			JWT:   JWTConfig{Secret: "secret"},
			Media: MediaConfig{Backend: BackendS3},
		}
		assert.ErrorContains(t, cfg.Validate(), "S3_ENDPOINT")
	})

	t.Run("s3 backend with endpoint", func(t *testing.T) {
		cfg := &Config{
			JWT:   JWTConfig{Secret: "secret"},
			Media: MediaConfig{Backend: BackendS3},
			S3:    S3Config{Endpoint: "http://localhost:8333"},
		}
		assert.NoError(t, cfg.Validate())
	})
}
