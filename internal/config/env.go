package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Backend selectors.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendPgvector = "pgvector"
	BackendMemory   = "memory"
	BackendS3       = "s3"
	BackendLocal    = "local"
	BackendGemini   = "gemini"
	BackendOllama   = "ollama"
)

// ChunkingConfig holds the knobs that decide chunk boundaries. Changing any of
// them between ingest and delete changes the derived vector ids.
type ChunkingConfig struct {
	ChunkSize      int  `yaml:"chunk_size" json:"chunk_size"`
	Overlap        int  `yaml:"overlap" json:"overlap"`
	SlideChunkSize int  `yaml:"slide_chunk_size" json:"slide_chunk_size"`
	SlideOverlap   int  `yaml:"slide_overlap" json:"slide_overlap"`
	RowsPerChunk   int  `yaml:"rows_per_chunk" json:"rows_per_chunk"`
	BatchSize      int  `yaml:"batch_size" json:"batch_size"`
	StoreChunkText bool `yaml:"store_chunk_text" json:"store_chunk_text"`
}

type Config struct {
	DatabaseURL   string
	SslCertPath   string
	LedgerBackend string
	SQLitePath    string
	VectorBackend string

	StorageBackend string
	UploadDir      string
	AwsAccessKey   string
	AwsSecretKey   string
	AwsRegion      string
	BucketName     string

	AIAPIKey    string
	EmbedModel  string
	EmbedDim    int
	EmbedRPS    float64
	GenBackend  string
	GenModel    string
	OllamaURL   string
	OllamaModel string
	DefaultTopK int

	OCREnabled     bool
	OCRLanguage    string
	SofficePath    string
	ConvertTimeout time.Duration

	Chunking ChunkingConfig

	Workers     int
	Port        string
	MaxUploadMB int
	CORSOrigins []string
	LogJSON     bool
}

// LoadConfig loads the environment variables (and the optional CONFIG_FILE
// overlay for chunking knobs) and returns the config.
func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		SslCertPath:   getEnv("SSL_CERT_PATH", ""),
		LedgerBackend: getEnv("LEDGER_BACKEND", BackendPostgres),
		SQLitePath:    getEnv("SQLITE_PATH", "officerag.db"),
		VectorBackend: getEnv("VECTOR_BACKEND", BackendPgvector),

		StorageBackend: getEnv("STORAGE_BACKEND", BackendS3),
		UploadDir:      getEnv("UPLOAD_DIR", "uploaded_files"),
		AwsAccessKey:   getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey:   getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:      getEnv("AWS_REGION", "us-east-2"),
		BucketName:     getEnv("BUCKET_NAME", "officerag-docs"),

		AIAPIKey:    getEnv("GEMINI_API_KEY", ""),
		EmbedModel:  getEnv("EMBED_MODEL", "text-embedding-004"),
		EmbedDim:    getEnvInt("EMBED_DIM", 768),
		EmbedRPS:    getEnvFloat("EMBED_RPS", 5),
		GenBackend:  getEnv("GEN_BACKEND", BackendGemini),
		GenModel:    getEnv("GEN_MODEL", "gemini-1.5-flash"),
		OllamaURL:   getEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel: getEnv("OLLAMA_MODEL", "llama3.2"),
		DefaultTopK: getEnvInt("TOP_K", 5),

		OCREnabled:     getEnvBool("OCR_ENABLED", true),
		OCRLanguage:    getEnv("OCR_LANGUAGE", "eng"),
		SofficePath:    getEnv("SOFFICE_PATH", "soffice"),
		ConvertTimeout: time.Duration(getEnvInt("CONVERT_TIMEOUT_SECONDS", 300)) * time.Second,

		Chunking: ChunkingConfig{
			ChunkSize:      getEnvInt("CHUNK_SIZE", 1000),
			Overlap:        getEnvInt("CHUNK_OVERLAP", 100),
			SlideChunkSize: getEnvInt("SLIDE_CHUNK_SIZE", 1000),
			SlideOverlap:   getEnvInt("SLIDE_OVERLAP", 100),
			RowsPerChunk:   getEnvInt("ROWS_PER_CHUNK", 5),
			BatchSize:      getEnvInt("BATCH_SIZE", 100),
			StoreChunkText: getEnvBool("STORE_CHUNK_TEXT", true),
		},

		Workers:     getEnvInt("WORKERS", 2),
		Port:        getEnv("PORT", "8080"),
		MaxUploadMB: getEnvInt("MAX_FILE_SIZE_MB", 50),
		CORSOrigins: getEnvList("CORS_ORIGINS", []string{"http://localhost:5173", "http://localhost:8888"}),
		LogJSON:     getEnvBool("LOG_JSON", true),
	}

	if path := getEnv("CONFIG_FILE", ""); path != "" {
		if err := applyChunkingFile(path, &cfg.Chunking); err != nil {
			slog.Warn("config file ignored", "path", path, "error", err)
		}
	}
	applyChunkingDefaults(&cfg.Chunking)

	return cfg
}

// Validate reports settings the selected backends cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if c.LedgerBackend == BackendPostgres || c.VectorBackend == BackendPgvector {
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL not set"))
		}
	}
	switch c.LedgerBackend {
	case BackendPostgres, BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("LEDGER_BACKEND %q is not one of postgres|sqlite", c.LedgerBackend))
	}
	switch c.VectorBackend {
	case BackendPgvector, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("VECTOR_BACKEND %q is not one of pgvector|memory", c.VectorBackend))
	}
	switch c.StorageBackend {
	case BackendS3, BackendLocal:
	default:
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND %q is not one of s3|local", c.StorageBackend))
	}
	switch c.GenBackend {
	case BackendGemini, BackendOllama:
	default:
		errs = append(errs, fmt.Errorf("GEN_BACKEND %q is not one of gemini|ollama", c.GenBackend))
	}
	if c.EmbedDim <= 0 {
		errs = append(errs, errors.New("EMBED_DIM must be positive"))
	}
	return errors.Join(errs...)
}

// applyChunkingFile overlays the chunking section of a YAML file onto cur.
// Keys missing from the file keep their current value.
func applyChunkingFile(path string, cur *ChunkingConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var file struct {
		Chunking ChunkingConfig `yaml:"chunking"`
	}
	file.Chunking = *cur
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	*cur = file.Chunking
	return nil
}

func applyChunkingDefaults(c *ChunkingConfig) {
	if c.ChunkSize <= 0 {
		c.ChunkSize = 1000
	}
	if c.SlideChunkSize <= 0 {
		c.SlideChunkSize = 1000
	}
	if c.Overlap < 0 {
		c.Overlap = 0
	}
	if c.SlideOverlap < 0 {
		c.SlideOverlap = 0
	}
	if c.RowsPerChunk <= 0 {
		c.RowsPerChunk = 5
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("env var not an int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("env var not a number, using default", "key", key, "value", v, "default", def)
		return def
	}
	return f
}

func getEnvBool(key string, def bool) bool {
	v := strings.TrimSpace(getEnv(key, ""))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("env var not a bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

// getEnvList splits a comma separated value, dropping empty items.
func getEnvList(key string, def []string) []string {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
