package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DATABASE_URL", "postgres://localhost/officerag")

	cfg := LoadConfig()

	assert.Equal(t, 1000, cfg.Chunking.ChunkSize)
	assert.Equal(t, 100, cfg.Chunking.Overlap)
	assert.Equal(t, 1000, cfg.Chunking.SlideChunkSize)
	assert.Equal(t, 100, cfg.Chunking.SlideOverlap)
	assert.Equal(t, 5, cfg.Chunking.RowsPerChunk)
	assert.Equal(t, 100, cfg.Chunking.BatchSize)
	assert.True(t, cfg.Chunking.StoreChunkText)
	assert.Equal(t, 300*time.Second, cfg.ConvertTimeout)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CHUNK_SIZE", "500")
	t.Setenv("CHUNK_OVERLAP", "50")
	t.Setenv("OCR_ENABLED", "false")
	t.Setenv("ROWS_PER_CHUNK", "not-a-number")

	cfg := LoadConfig()

	assert.Equal(t, 500, cfg.Chunking.ChunkSize)
	assert.Equal(t, 50, cfg.Chunking.Overlap)
	assert.False(t, cfg.OCREnabled)
	assert.Equal(t, 5, cfg.Chunking.RowsPerChunk, "bad ints fall back to the default")
}

func TestLoadConfig_YAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := filepath.Join(dir, "officerag.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunking:\n  rows_per_chunk: 8\n  store_chunk_text: false\n"), 0o644))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("CHUNK_SIZE", "700")

	cfg := LoadConfig()

	assert.Equal(t, 8, cfg.Chunking.RowsPerChunk)
	assert.False(t, cfg.Chunking.StoreChunkText)
	assert.Equal(t, 700, cfg.Chunking.ChunkSize, "keys absent from the file keep the env value")
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		LedgerBackend:  BackendPostgres,
		VectorBackend:  BackendPgvector,
		StorageBackend: BackendLocal,
		GenBackend:     BackendGemini,
		EmbedDim:       768,
	}
	assert.ErrorContains(t, cfg.Validate(), "DATABASE_URL")

	cfg.LedgerBackend = BackendSQLite
	cfg.VectorBackend = BackendMemory
	assert.NoError(t, cfg.Validate())

	cfg.StorageBackend = "ftp"
	assert.ErrorContains(t, cfg.Validate(), "STORAGE_BACKEND")
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("CORS_ORIGINS", " http://a.test, ,http://b.test ")
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, getEnvList("CORS_ORIGINS", nil))

	t.Setenv("CORS_ORIGINS", "")
	assert.Equal(t, []string{"x"}, getEnvList("CORS_ORIGINS", []string{"x"}))
}

// chdir changes the working directory for the duration of the test
// (stand-in for testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
